// Package generative は Gemini API (google.golang.org/genai) へのテキスト生成と画像生成を 1 回ずつ呼び出すアダプターです。
// リトライ、キャッシュ、レート制限は行いません。
package generative

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"cinegen-web/internal/domain"
	"cinegen-web/internal/prompts"
)

const (
	DefaultTextModel  = "gemini-2.5-flash"
	DefaultImageModel = "imagen-4.0-generate-001"

	jsonMIMEType = "application/json"
)

// modelsAPI は genai.Models のうち、このパッケージが使う部分です。
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateImages(ctx context.Context, model string, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// Config は Client の設定です。
type Config struct {
	APIKey     string
	TextModel  string
	ImageModel string
	// Temperature が nil の場合はモデルの既定値を使います。
	Temperature *float32
}

// Client は GenerativeClient の genai 実装です。
type Client struct {
	models      modelsAPI
	textModel   string
	imageModel  string
	temperature *float32
}

// NewClient は Gemini API バックエンドの genai クライアントを初期化します。
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API キーが設定されていません")
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return newClient(gc.Models, cfg), nil
}

func newClient(models modelsAPI, cfg Config) *Client {
	textModel := cfg.TextModel
	if textModel == "" {
		textModel = DefaultTextModel
	}
	imageModel := cfg.ImageModel
	if imageModel == "" {
		imageModel = DefaultImageModel
	}
	return &Client{
		models:      models,
		textModel:   textModel,
		imageModel:  imageModel,
		temperature: cfg.Temperature,
	}
}

// GenerateStructuredContent はシステム指示とコンテンツを 1 回だけ送り、応答テキストをそのまま返します。
// 使えるテキストが無い場合は ErrGeneration です。
func (c *Client) GenerateStructuredContent(ctx context.Context, payload domain.PromptPayload, opts domain.ContentOptions) (string, error) {
	parts := make([]*genai.Part, 0, len(payload.Parts))
	for _, p := range payload.Parts {
		if p.Image != nil {
			parts = append(parts, genai.NewPartFromBytes(p.Image.Data, p.Image.MIMEType))
			continue
		}
		if p.Text != "" {
			parts = append(parts, genai.NewPartFromText(p.Text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: payload has no content parts", domain.ErrInvalidRequest)
	}

	config := &genai.GenerateContentConfig{Temperature: c.temperature}
	if payload.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(payload.SystemInstruction, genai.RoleUser)
	}
	if opts.JSONResponse {
		config.ResponseMIMEType = jsonMIMEType
	}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.textModel, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, config)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	if resp == nil {
		return "", fmt.Errorf("%w: empty response", domain.ErrGeneration)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: response contained no text", domain.ErrGeneration)
	}

	slog.DebugContext(ctx, "Content generated",
		"model", c.textModel,
		"parts", len(parts),
		"images", payload.ImageCount(),
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
	return text, nil
}

// GenerateImage はプロンプトから画像を 1 枚生成します。
// textAllowed が false の場合は文字抑止の語句を付けてから送ります。
func (c *Client) GenerateImage(ctx context.Context, prompt string, aspect domain.AspectRatio, textAllowed bool) ([]byte, error) {
	if _, ok := domain.ParseAspectRatio(string(aspect)); !ok {
		return nil, fmt.Errorf("%w: unsupported aspect ratio %q", domain.ErrInvalidRequest, aspect)
	}
	finalPrompt := prompts.WithTextFreeQualifier(prompt, textAllowed)

	resp, err := c.models.GenerateImages(ctx, c.imageModel, finalPrompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    string(aspect),
		OutputMIMEType: domain.GeneratedImageMIMEType,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNoImage, err)
	}
	if resp == nil {
		return nil, domain.ErrNoImage
	}

	for _, img := range resp.GeneratedImages {
		if img != nil && img.Image != nil && len(img.Image.ImageBytes) > 0 {
			return img.Image.ImageBytes, nil
		}
	}
	return nil, domain.ErrNoImage
}

// AnalyzeStyle は画像の画風をカンマ区切りのキーワードで返します。
// 呼び出し側は失敗してもキーワード無しで処理を続けます。
func (c *Client) AnalyzeStyle(ctx context.Context, image domain.InlineImage) (string, error) {
	if len(image.Data) == 0 {
		return "", fmt.Errorf("%w: style image is empty", domain.ErrFileRead)
	}

	payload := domain.PromptPayload{
		Parts: []domain.Part{
			domain.TextPart(prompts.StyleAnalysisInstruction),
			domain.ImagePart(image.MIMEType, image.Data),
		},
	}
	text, err := c.GenerateStructuredContent(ctx, payload, domain.ContentOptions{})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
