package pipeline

import (
	"context"
	"fmt"

	"cinegen-web/internal/domain"
	"cinegen-web/internal/normalizer"
)

// GenerateStoryboard はストーリーボードからマスタープロンプトを生成します。
//
// スタイル解析とシーン画像の生成は失敗しても続行し、マスタープロンプトの合成だけが失敗時に中断します。
// 応答が JSON でない場合も失敗ではなく、WellFormed=false のまま生テキストを返します。
func (o *StoryboardOrchestrator) GenerateStoryboard(ctx context.Context, userKey string, req domain.ArtifactRequest) (domain.GeneratedArtifact, error) {
	in, ok := req.Inputs.(domain.StoryboardInputs)
	if !ok {
		return domain.GeneratedArtifact{}, fmt.Errorf("%w: storyboard inputs are required", domain.ErrInvalidRequest)
	}
	if in.NonEmptyScenes() == 0 {
		return domain.GeneratedArtifact{}, fmt.Errorf("%w: please add at least one scene to the storyboard", domain.ErrInvalidRequest)
	}

	title := artifactTitle(req)
	exec := o.newExecution(ctx, domain.KindStoryboard)

	// --- Stage 1: Style Analysis ---
	guide := o.resolveStyleGuide(ctx, exec, req.ReferenceImage, in.SelectedStyleName)

	// --- Stage 2: Parallel Scene Imaging ---
	visuals := make([][]byte, len(in.Scenes))
	if in.GenerateVisuals {
		exec.enter(ctx, StageParallelSceneImaging)
		visuals = o.generateSceneImages(ctx, exec, in.Scenes, guide, req.IncludeTextOverlay)
	}

	// --- Stage 3: Master Prompt Synthesis ---
	exec.enter(ctx, StageMasterPromptSynthesis)
	payload, err := o.builder.BuildStoryboard(req, guide, visuals)
	if err != nil {
		return domain.GeneratedArtifact{}, exec.fail(ctx, title, err)
	}
	raw, err := o.client.GenerateStructuredContent(ctx, payload, domain.ContentOptions{JSONResponse: true})
	if err != nil {
		return domain.GeneratedArtifact{}, exec.fail(ctx, title, err)
	}

	result := normalizer.NormalizeJSONText(raw)
	if !result.WellFormed {
		exec.logger.WarnContext(ctx, "Master prompt is not valid JSON, returning raw text")
	}

	artifact := domain.GeneratedArtifact{
		Kind:           domain.KindStoryboard,
		Title:          title,
		PromptJSONText: result.Text,
		WellFormed:     result.WellFormed,
		Visuals:        visuals,
		Inputs:         in,
	}

	// --- Stage 4: Done ---
	exec.enter(ctx, StageDone)
	o.complete(ctx, exec, userKey, req.Format, artifact)
	return artifact, nil
}
