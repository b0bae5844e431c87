package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"cinegen-web/internal/domain"
	"cinegen-web/internal/normalizer"
)

// NextSceneResult は続きのシーン生成の結果です。
type NextSceneResult struct {
	Description string          `json:"description"`
	ScenePrompt json.RawMessage `json:"scene_prompt"`
	// Visual は新しいシーンの画像です。生成に失敗した場合は nil です。
	Visual []byte `json:"visual"`
	// MasterPrompt は既存のマスタープロンプト配列に ScenePrompt を追加して整形したものです。
	MasterPrompt string `json:"master_prompt"`
}

// GenerateNextScene は既存のシーン、画像、マスタープロンプトすべてを文脈として次のシーンを 1 つ生成します。
// 応答に説明文とシーンプロンプトの両方が揃っていなければ ErrSchema で中断します。
func (o *StoryboardOrchestrator) GenerateNextScene(ctx context.Context, req domain.ArtifactRequest) (NextSceneResult, error) {
	in, ok := req.Inputs.(domain.NextSceneInputs)
	if !ok {
		return NextSceneResult{}, fmt.Errorf("%w: next scene inputs are required", domain.ErrInvalidRequest)
	}
	if !normalizer.IsJSONArray(in.ExistingMasterPrompt) {
		return NextSceneResult{}, fmt.Errorf("%w: existing master prompt must be a JSON array", domain.ErrInvalidRequest)
	}

	const title = "Next Scene"
	exec := o.newExecution(ctx, domain.KindNextScene)

	guide := o.resolveStyleGuide(ctx, exec, req.ReferenceImage, in.SelectedStyleName)

	exec.enter(ctx, StageMasterPromptSynthesis)
	payload, err := o.builder.BuildNextScene(req, guide)
	if err != nil {
		return NextSceneResult{}, exec.fail(ctx, title, err)
	}
	raw, err := o.client.GenerateStructuredContent(ctx, payload, domain.ContentOptions{JSONResponse: true})
	if err != nil {
		return NextSceneResult{}, exec.fail(ctx, title, err)
	}

	next, err := normalizer.ExtractNextScene(raw)
	if err != nil {
		return NextSceneResult{}, exec.fail(ctx, title, err)
	}
	master, err := normalizer.AppendScenePrompt(in.ExistingMasterPrompt, next.ScenePrompt)
	if err != nil {
		return NextSceneResult{}, exec.fail(ctx, title, err)
	}

	// 新しいシーンの画像は 1 枚だけなので、失敗しても他の結果は返します。
	exec.enter(ctx, StageParallelSceneImaging)
	images := o.generateSceneImages(ctx, exec, []domain.SceneSpec{{Description: next.Description, ShotCount: domain.MinShotCount}}, guide, req.IncludeTextOverlay)

	exec.enter(ctx, StageDone)
	return NextSceneResult{
		Description:  next.Description,
		ScenePrompt:  next.ScenePrompt,
		Visual:       images[0],
		MasterPrompt: master,
	}, nil
}
