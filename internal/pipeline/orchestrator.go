// Package pipeline はスタイル解析、シーン画像の並列生成、マスタープロンプト合成、続きのシーン生成といった
// 複数回の API 呼び出しからなるワークフローを調整します。
package pipeline

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"cinegen-web/internal/domain"
	"cinegen-web/internal/history"
	"cinegen-web/internal/prompts"
)

const (
	defaultRateBurst     = 2
	defaultStyleCacheTTL = 30 * time.Minute
)

// GenerativeClient は生成 API のアダプターです。各メソッドは 1 回だけ API を呼び出します。
type GenerativeClient interface {
	GenerateStructuredContent(ctx context.Context, payload domain.PromptPayload, opts domain.ContentOptions) (string, error)
	GenerateImage(ctx context.Context, prompt string, aspect domain.AspectRatio, textAllowed bool) ([]byte, error)
	AnalyzeStyle(ctx context.Context, image domain.InlineImage) (string, error)
}

// Notifier は完了通知とエラー通知の送信先です。
type Notifier interface {
	Notify(ctx context.Context, publicURL, storageURI string, req domain.NotificationRequest) error
	NotifyError(ctx context.Context, errDetail error, req domain.NotificationRequest) error
}

// Exporter は成果物をリモートストレージに書き出します。
type Exporter interface {
	Export(ctx context.Context, dir string, artifact domain.GeneratedArtifact) (domain.ExportResult, error)
}

// Options は StoryboardOrchestrator の任意設定です。ゼロ値でも動作します。
type Options struct {
	// ImageRateInterval は画像生成の最小間隔です。0 なら制限しません。
	ImageRateInterval time.Duration
	// StyleCacheTTL はスタイル解析結果のキャッシュ期間です。0 なら既定値、負数ならキャッシュしません。
	StyleCacheTTL time.Duration
	// BaseOutputDir はエクスポート先のディレクトリ接頭辞です。
	BaseOutputDir string

	Notifier Notifier
	Exporter Exporter
}

// StoryboardOrchestrator はプロンプト生成と結果集約のワークフローを実行します。
type StoryboardOrchestrator struct {
	builder *prompts.Builder
	client  GenerativeClient
	history history.Store
	style   *styleAnalyzer
	limiter *rate.Limiter

	notifier      Notifier
	exporter      Exporter
	baseOutputDir string
	now           func() time.Time
}

// New は StoryboardOrchestrator を初期化します。store が nil の場合は履歴を保存しません。
func New(builder *prompts.Builder, client GenerativeClient, store history.Store, opts Options) *StoryboardOrchestrator {
	ttl := opts.StyleCacheTTL
	if ttl == 0 {
		ttl = defaultStyleCacheTTL
	}

	return &StoryboardOrchestrator{
		builder:       builder,
		client:        client,
		history:       store,
		style:         newStyleAnalyzer(client, ttl),
		limiter:       rate.NewLimiter(rate.Every(opts.ImageRateInterval), defaultRateBurst),
		notifier:      opts.Notifier,
		exporter:      opts.Exporter,
		baseOutputDir: opts.BaseOutputDir,
		now:           time.Now,
	}
}
