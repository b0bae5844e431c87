package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"cinegen-web/internal/domain"
	"cinegen-web/internal/prompts"
)

// generateSceneImages は空でないシーンごとに画像生成を並列に実行し、全件の完了を待ちます。
// 戻り値の長さは常に len(scenes) で、空のシーンや失敗したシーンの要素は nil です。
// 各ゴルーチンは自分の添字にだけ書き込み、常に nil を返すので、1 件の失敗が他のシーンを止めることはありません。
func (o *StoryboardOrchestrator) generateSceneImages(ctx context.Context, exec *execution, scenes []domain.SceneSpec, guide domain.StyleGuide, includeText bool) [][]byte {
	images := make([][]byte, len(scenes))
	var eg errgroup.Group

	for i, scene := range scenes {
		if scene.IsBlank() {
			continue
		}
		eg.Go(func() error {
			logger := exec.logger.With("scene_index", i+1)

			if err := o.limiter.Wait(ctx); err != nil {
				logger.WarnContext(ctx, "Rate limiter wait aborted, skipping scene image", "error", err)
				return nil
			}

			logger.InfoContext(ctx, "Starting scene image generation")
			startTime := time.Now()

			prompt := prompts.BuildImagePrompt(guide, scene.Description, includeText)
			img, err := o.client.GenerateImage(ctx, prompt, domain.AspectStandard, includeText)
			if err != nil {
				logger.WarnContext(ctx, "Failed to generate scene image", "error", err)
				return nil
			}

			images[i] = img
			logger.InfoContext(ctx, "Scene image generation completed", "duration", time.Since(startTime).Round(time.Millisecond))
			return nil
		})
	}

	_ = eg.Wait()
	return images
}
