// Package handlers は生成ワークフローと履歴を JSON API として公開します。
package handlers

import (
	"context"
	"errors"

	"cinegen-web/internal/config"
	"cinegen-web/internal/domain"
	"cinegen-web/internal/history"
	"cinegen-web/internal/pipeline"
)

var (
	ErrInvalidPath    = errors.New("invalid path provided")
	ErrOutputNotFound = errors.New("output not found")
)

// Generator は StoryboardOrchestrator のうち HTTP から呼び出す操作です。
type Generator interface {
	GenerateArtifact(ctx context.Context, userKey string, req domain.ArtifactRequest) (domain.GeneratedArtifact, error)
	GenerateStoryboard(ctx context.Context, userKey string, req domain.ArtifactRequest) (domain.GeneratedArtifact, error)
	GenerateNextScene(ctx context.Context, req domain.ArtifactRequest) (pipeline.NextSceneResult, error)
	GenerateSceneDescriptions(ctx context.Context, req domain.ArtifactRequest) ([]string, error)
	GeneratePreviewImage(ctx context.Context, prompt string, includeText bool) (pipeline.PreviewResult, error)
	GenerateCardImage(ctx context.Context, prompt string, includeText bool) ([]byte, error)
}

type Handler struct {
	cfg       *config.Config
	generator Generator
	history   history.Store
	outputs   *OutputBrowser // nil ならエクスポート結果の閲覧は無効
}

// NewHandler は API ハンドラーを初期化します。outputs は nil でも構いません。
func NewHandler(cfg *config.Config, generator Generator, store history.Store, outputs *OutputBrowser) *Handler {
	return &Handler{
		cfg:       cfg,
		generator: generator,
		history:   store,
		outputs:   outputs,
	}
}

func (h *Handler) maxUploadBytes() int64 {
	if h.cfg.MaxUploadBytes > 0 {
		return h.cfg.MaxUploadBytes
	}
	return config.DefaultMaxUploadMB << 20
}
