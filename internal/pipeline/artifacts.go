package pipeline

import (
	"context"
	"fmt"
	"strings"

	"cinegen-web/internal/domain"
	"cinegen-web/internal/normalizer"
	"cinegen-web/internal/prompts"
)

// PreviewResult はプレビュー画像と、実際に画像生成へ渡したプロンプトです。
type PreviewResult struct {
	Prompt string `json:"prompt"`
	Image  []byte `json:"image"`
}

// GenerateArtifact はロゴ、YouTube イントロ、解説動画、キネティックタイポグラフィのいずれかを
// 1 回の API 呼び出しで生成します。
func (o *StoryboardOrchestrator) GenerateArtifact(ctx context.Context, userKey string, req domain.ArtifactRequest) (domain.GeneratedArtifact, error) {
	kind := req.Kind()
	switch kind {
	case domain.KindLogo, domain.KindYouTubeIntro, domain.KindExplainer, domain.KindKineticTypography:
	default:
		return domain.GeneratedArtifact{}, fmt.Errorf("%w: unsupported artifact kind %q", domain.ErrInvalidRequest, kind)
	}

	title := artifactTitle(req)
	exec := o.newExecution(ctx, kind)

	exec.enter(ctx, StageMasterPromptSynthesis)
	payload, err := o.builder.Build(req)
	if err != nil {
		return domain.GeneratedArtifact{}, exec.fail(ctx, title, err)
	}
	raw, err := o.client.GenerateStructuredContent(ctx, payload, domain.ContentOptions{JSONResponse: true})
	if err != nil {
		return domain.GeneratedArtifact{}, exec.fail(ctx, title, err)
	}

	result := normalizer.NormalizeJSONText(raw)
	if !result.WellFormed {
		exec.logger.WarnContext(ctx, "Response is not valid JSON, returning raw text")
	}

	artifact := domain.GeneratedArtifact{
		Kind:           kind,
		Title:          title,
		PromptJSONText: result.Text,
		WellFormed:     result.WellFormed,
		Inputs:         req.Inputs,
	}

	exec.enter(ctx, StageDone)
	o.complete(ctx, exec, userKey, req.Format, artifact)
	return artifact, nil
}

// GenerateSceneDescriptions は大まかなアイデアから要求された数のシーン説明を生成します。
// 返ってきた数が要求と異なる場合は ErrSchema です。履歴には保存しません。
func (o *StoryboardOrchestrator) GenerateSceneDescriptions(ctx context.Context, req domain.ArtifactRequest) ([]string, error) {
	in, ok := req.Inputs.(domain.SceneDescriptionInputs)
	if !ok {
		return nil, fmt.Errorf("%w: scene description inputs are required", domain.ErrInvalidRequest)
	}
	if strings.TrimSpace(in.GeneralIdea) == "" {
		return nil, fmt.Errorf("%w: please enter a general idea", domain.ErrInvalidRequest)
	}

	const title = "Scene Descriptions"
	exec := o.newExecution(ctx, domain.KindSceneDescriptions)

	exec.enter(ctx, StageMasterPromptSynthesis)
	payload, err := o.builder.Build(req)
	if err != nil {
		return nil, exec.fail(ctx, title, err)
	}
	raw, err := o.client.GenerateStructuredContent(ctx, payload, domain.ContentOptions{JSONResponse: true})
	if err != nil {
		return nil, exec.fail(ctx, title, err)
	}

	scenes, err := normalizer.ExtractSceneList(raw)
	if err != nil {
		return nil, exec.fail(ctx, title, err)
	}
	if want := in.NormalizedSceneCount(); len(scenes) != want {
		return nil, exec.fail(ctx, title, fmt.Errorf("%w: expected %d scenes, got %d", domain.ErrSchema, want, len(scenes)))
	}

	exec.enter(ctx, StageDone)
	return scenes, nil
}

// GeneratePreviewImage は生成済みのプロンプトから代表の説明を取り出し、16:9 の画像を 1 枚生成します。
func (o *StoryboardOrchestrator) GeneratePreviewImage(ctx context.Context, prompt string, includeText bool) (PreviewResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return PreviewResult{}, fmt.Errorf("%w: prompt is empty", domain.ErrInvalidRequest)
	}

	lead := normalizer.ExtractLeadDescription(prompt)
	img, err := o.generateSingleImage(ctx, lead, includeText)
	if err != nil {
		return PreviewResult{}, err
	}
	return PreviewResult{Prompt: prompts.WithTextFreeQualifier(lead, includeText), Image: img}, nil
}

// GenerateCardImage は入力プロンプトをそのまま使って 16:9 の画像を 1 枚生成します。
func (o *StoryboardOrchestrator) GenerateCardImage(ctx context.Context, prompt string, includeText bool) ([]byte, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is empty", domain.ErrInvalidRequest)
	}
	return o.generateSingleImage(ctx, prompt, includeText)
}

func (o *StoryboardOrchestrator) generateSingleImage(ctx context.Context, prompt string, includeText bool) ([]byte, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}
	img, err := o.client.GenerateImage(ctx, prompt, domain.AspectWide, includeText)
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}
	return img, nil
}
