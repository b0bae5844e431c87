package generative

import (
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"

	"cinegen-web/internal/domain"
	"cinegen-web/internal/prompts"
)

type fakeModels struct {
	text     string
	textErr  error
	images   [][]byte
	imageErr error

	gotModel    string
	gotContents []*genai.Content
	gotConfig   *genai.GenerateContentConfig
	gotPrompt   string
	gotImageCfg *genai.GenerateImagesConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.gotModel = model
	f.gotContents = contents
	f.gotConfig = config
	if f.textErr != nil {
		return nil, f.textErr
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText(f.text, genai.RoleModel),
		}},
	}, nil
}

func (f *fakeModels) GenerateImages(_ context.Context, model string, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	f.gotModel = model
	f.gotPrompt = prompt
	f.gotImageCfg = config
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	resp := &genai.GenerateImagesResponse{}
	for _, b := range f.images {
		resp.GeneratedImages = append(resp.GeneratedImages, &genai.GeneratedImage{
			Image: &genai.Image{ImageBytes: b, MIMEType: "image/jpeg"},
		})
	}
	return resp, nil
}

func TestGenerateStructuredContent(t *testing.T) {
	ctx := context.Background()

	t.Run("システム指示と JSON 指定を渡す", func(t *testing.T) {
		fake := &fakeModels{text: `[{"description":"x"}]`}
		c := newClient(fake, Config{})

		payload := domain.PromptPayload{
			SystemInstruction: "be a director",
			Parts: []domain.Part{
				domain.TextPart("scene one"),
				domain.ImagePart("image/png", []byte("png")),
			},
		}
		got, err := c.GenerateStructuredContent(ctx, payload, domain.ContentOptions{JSONResponse: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != `[{"description":"x"}]` {
			t.Errorf("got %q", got)
		}
		if fake.gotModel != DefaultTextModel {
			t.Errorf("model = %q", fake.gotModel)
		}
		if fake.gotConfig.ResponseMIMEType != "application/json" {
			t.Errorf("ResponseMIMEType = %q", fake.gotConfig.ResponseMIMEType)
		}
		if fake.gotConfig.SystemInstruction == nil || fake.gotConfig.SystemInstruction.Parts[0].Text != "be a director" {
			t.Errorf("SystemInstruction が渡っていない")
		}
		parts := fake.gotContents[0].Parts
		if len(parts) != 2 || parts[0].Text != "scene one" || parts[1].InlineData == nil {
			t.Fatalf("parts の順序が不正: %+v", parts)
		}
		if parts[1].InlineData.MIMEType != "image/png" {
			t.Errorf("MIME = %q", parts[1].InlineData.MIMEType)
		}
	})

	t.Run("JSON 指定が無ければ MIME を付けない", func(t *testing.T) {
		fake := &fakeModels{text: "keywords"}
		c := newClient(fake, Config{TextModel: "custom-model"})
		if _, err := c.GenerateStructuredContent(ctx, domain.PromptPayload{Parts: []domain.Part{domain.TextPart("x")}}, domain.ContentOptions{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fake.gotConfig.ResponseMIMEType != "" || fake.gotModel != "custom-model" {
			t.Errorf("config = %+v model = %q", fake.gotConfig, fake.gotModel)
		}
	})

	t.Run("空のテキストは ErrGeneration", func(t *testing.T) {
		c := newClient(&fakeModels{text: "  "}, Config{})
		_, err := c.GenerateStructuredContent(ctx, domain.PromptPayload{Parts: []domain.Part{domain.TextPart("x")}}, domain.ContentOptions{})
		if !errors.Is(err, domain.ErrGeneration) {
			t.Errorf("ErrGeneration を期待したのに %v", err)
		}
	})

	t.Run("API エラーは ErrGeneration でラップする", func(t *testing.T) {
		c := newClient(&fakeModels{textErr: errors.New("quota exceeded")}, Config{})
		_, err := c.GenerateStructuredContent(ctx, domain.PromptPayload{Parts: []domain.Part{domain.TextPart("x")}}, domain.ContentOptions{})
		if !errors.Is(err, domain.ErrGeneration) || !strings.Contains(err.Error(), "quota exceeded") {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestGenerateImage(t *testing.T) {
	ctx := context.Background()

	t.Run("1 枚だけ要求して最初の画像を返す", func(t *testing.T) {
		fake := &fakeModels{images: [][]byte{[]byte("jpeg")}}
		c := newClient(fake, Config{})
		got, err := c.GenerateImage(ctx, "a harbor", domain.AspectStandard, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(got) != "jpeg" {
			t.Errorf("got %q", got)
		}
		if fake.gotImageCfg.NumberOfImages != 1 || fake.gotImageCfg.AspectRatio != "4:3" || fake.gotImageCfg.OutputMIMEType != "image/jpeg" {
			t.Errorf("config = %+v", fake.gotImageCfg)
		}
		if fake.gotModel != DefaultImageModel || fake.gotPrompt != "a harbor" {
			t.Errorf("model = %q prompt = %q", fake.gotModel, fake.gotPrompt)
		}
	})

	t.Run("テキスト禁止なら語句を付けて送る", func(t *testing.T) {
		fake := &fakeModels{images: [][]byte{[]byte("jpeg")}}
		c := newClient(fake, Config{})
		if _, err := c.GenerateImage(ctx, "a sign", domain.AspectWide, false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasSuffix(fake.gotPrompt, prompts.TextFreeQualifier) {
			t.Errorf("prompt = %q", fake.gotPrompt)
		}
	})

	t.Run("画像が 0 枚なら ErrNoImage", func(t *testing.T) {
		c := newClient(&fakeModels{}, Config{})
		if _, err := c.GenerateImage(ctx, "x", domain.AspectWide, true); !errors.Is(err, domain.ErrNoImage) {
			t.Errorf("ErrNoImage を期待したのに %v", err)
		}
	})

	t.Run("空のバイト列だけなら ErrNoImage", func(t *testing.T) {
		c := newClient(&fakeModels{images: [][]byte{nil}}, Config{})
		if _, err := c.GenerateImage(ctx, "x", domain.AspectWide, true); !errors.Is(err, domain.ErrNoImage) {
			t.Errorf("ErrNoImage を期待したのに %v", err)
		}
	})

	t.Run("未対応のアスペクト比は送らない", func(t *testing.T) {
		fake := &fakeModels{images: [][]byte{[]byte("jpeg")}}
		c := newClient(fake, Config{})
		if _, err := c.GenerateImage(ctx, "x", "1:1", true); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("ErrInvalidRequest を期待したのに %v", err)
		}
		if fake.gotPrompt != "" {
			t.Error("API が呼ばれている")
		}
	})
}

func TestAnalyzeStyle(t *testing.T) {
	fake := &fakeModels{text: " moody, teal and orange, low key lighting \n"}
	c := newClient(fake, Config{})

	got, err := c.AnalyzeStyle(context.Background(), domain.InlineImage{MIMEType: "image/png", Data: []byte("png")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "moody, teal and orange, low key lighting" {
		t.Errorf("got %q", got)
	}
	parts := fake.gotContents[0].Parts
	if len(parts) != 2 || !strings.Contains(parts[0].Text, "master art director") || parts[1].InlineData == nil {
		t.Errorf("parts = %+v", parts)
	}

	t.Run("空の画像は送らない", func(t *testing.T) {
		if _, err := c.AnalyzeStyle(context.Background(), domain.InlineImage{}); !errors.Is(err, domain.ErrFileRead) {
			t.Errorf("ErrFileRead を期待したのに %v", err)
		}
	})
}
