package builder

import (
	"context"
	"fmt"
	"log/slog"

	"cinegen-web/internal/app"
	"cinegen-web/internal/config"

	"github.com/shouni/go-remote-io/pkg/gcsfactory"
)

// buildRemoteIO はエクスポート先の GCS に対する読み書きと URL 署名を初期化します。
// 途中で失敗した場合はファクトリを閉じてからエラーを返します。
func buildRemoteIO(ctx context.Context, cfg *config.Config) (*app.RemoteIO, error) {
	factory, err := gcsfactory.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("GCS ファクトリの初期化に失敗しました: %w", err)
	}

	rio := &app.RemoteIO{Factory: factory}
	if rio.Reader, err = factory.InputReader(); err != nil {
		err = fmt.Errorf("failed to create input reader: %w", err)
	} else if rio.Writer, err = factory.OutputWriter(); err != nil {
		err = fmt.Errorf("failed to create output writer: %w", err)
	} else if rio.Signer, err = factory.URLSigner(); err != nil {
		err = fmt.Errorf("failed to create URL signer: %w", err)
	}
	if err != nil {
		if closeErr := factory.Close(); closeErr != nil {
			slog.Error("failed to close IOFactory", "error", closeErr)
		}
		return nil, err
	}

	slog.Info("エクスポートを有効化しました", "bucket", cfg.GCSBucket, "base_dir", cfg.BaseOutputDir)
	return rio, nil
}
