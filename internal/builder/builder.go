package builder

import (
	"context"
	"fmt"
	"log/slog"

	"cinegen-web/internal/adapters"
	"cinegen-web/internal/app"
	"cinegen-web/internal/config"
	"cinegen-web/internal/generative"
	"cinegen-web/internal/history"
	"cinegen-web/internal/pipeline"
	"cinegen-web/internal/prompts"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"google.golang.org/genai"
)

const defaultGeminiTemperature = float32(0.7)

// BuildContainer は外部サービスとの接続を確立し、アプリケーションの依存関係を組み立てます。
// 途中で失敗した場合は、それまでに確保したリソースを解放してからエラーを返します。
func BuildContainer(ctx context.Context, cfg *config.Config) (container *app.Container, err error) {
	var resources []func()
	defer func() {
		if err != nil {
			for i := len(resources) - 1; i >= 0; i-- {
				resources[i]()
			}
		}
	}()

	// 1. 基盤クライアントの初期化
	httpClient := httpkit.New(config.DefaultHTTPTimeout)

	// 2. I/O インフラ (GCS) の初期化
	var rio *app.RemoteIO
	if cfg.ExportEnabled() {
		rio, err = buildRemoteIO(ctx, cfg)
		if err != nil {
			return nil, err
		}
		resources = append(resources, func() { _ = rio.Factory.Close() })
	} else {
		slog.Info("GCS_BUCKET が未設定のため、エクスポートは無効です")
	}

	// 3. 履歴ストア
	store, err := buildHistoryStore(cfg)
	if err != nil {
		return nil, err
	}
	resources = append(resources, func() { _ = store.Close() })

	// 4. アダプター
	slack, err := adapters.NewSlackAdapter(httpClient, cfg.SlackWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Slack adapter: %w", err)
	}

	// 5. オーケストレーター
	orchestrator, err := buildOrchestrator(ctx, cfg, store, rio, slack)
	if err != nil {
		return nil, err
	}

	return &app.Container{
		Config:        cfg,
		RemoteIO:      rio,
		History:       store,
		Orchestrator:  orchestrator,
		Auth:          buildAuthHandler(cfg),
		HTTPClient:    httpClient,
		SlackNotifier: slack,
	}, nil
}

// buildHistoryStore は HISTORY_DB_PATH があれば SQLite、なければメモリの履歴ストアを返します。
func buildHistoryStore(cfg *config.Config) (history.Store, error) {
	if cfg.HistoryDBPath == "" {
		slog.Info("HISTORY_DB_PATH が未設定のため、履歴はメモリに保存します")
		return history.NewMemoryStore(), nil
	}
	store, err := history.NewSQLiteStore(cfg.HistoryDBPath)
	if err != nil {
		return nil, fmt.Errorf("履歴ストアの初期化に失敗しました (path: %s): %w", cfg.HistoryDBPath, err)
	}
	return store, nil
}

func buildOrchestrator(ctx context.Context, cfg *config.Config, store history.Store, rio *app.RemoteIO, slack adapters.SlackNotifier) (*pipeline.StoryboardOrchestrator, error) {
	client, err := generative.NewClient(ctx, generative.Config{
		APIKey:      cfg.GeminiAPIKey,
		TextModel:   cfg.GeminiModel,
		ImageModel:  cfg.ImageModel,
		Temperature: genai.Ptr(defaultGeminiTemperature),
	})
	if err != nil {
		return nil, err
	}

	promptBuilder, err := prompts.NewBuilder()
	if err != nil {
		return nil, fmt.Errorf("プロンプトビルダーの初期化に失敗しました: %w", err)
	}

	opts := pipeline.Options{
		ImageRateInterval: cfg.ImageRateInterval,
		StyleCacheTTL:     cfg.StyleCacheTTL,
		BaseOutputDir:     cfg.BaseOutputDir,
		Notifier:          slack,
	}
	if rio != nil {
		opts.Exporter = adapters.NewRemoteExporter(rio.Writer, rio.Signer, cfg.GetGCSObjectURL, cfg.SignedURLExpiration)
	}

	return pipeline.New(promptBuilder, client, store, opts), nil
}
