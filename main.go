package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"cinegen-web/internal/builder"
	"cinegen-web/internal/config"
	"cinegen-web/internal/server"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	if err := run(context.Background()); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// 1. 設定のロードとバリデーション
	cfg := config.LoadConfig()
	if err := config.ValidateEssentialConfig(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// 2. 依存関係の構築とライフサイクル管理
	container, err := builder.BuildContainer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	defer func() {
		slog.Info("Closing resources...")
		container.Close()
	}()

	// 3. ハンドラーとルーターの構築
	appHandlers, err := builder.BuildHandlers(container)
	if err != nil {
		return fmt.Errorf("failed to build handlers: %w", err)
	}

	return server.Run(ctx, cfg, server.NewRouter(appHandlers))
}
