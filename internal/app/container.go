package app

import (
	"log/slog"

	"cinegen-web/internal/adapters"
	"cinegen-web/internal/config"
	"cinegen-web/internal/controllers/auth"
	"cinegen-web/internal/history"
	"cinegen-web/internal/pipeline"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// Container はアプリケーションの依存関係（DIコンテナ）を保持します。
type Container struct {
	Config *config.Config

	// I/O and Storage
	// RemoteIO は GCS_BUCKET が未設定の場合 nil です。
	RemoteIO *RemoteIO
	History  history.Store

	// Business Logic
	Orchestrator *pipeline.StoryboardOrchestrator

	// Identity
	Auth *auth.Handler

	// External Adapters
	HTTPClient    httpkit.ClientInterface
	SlackNotifier adapters.SlackNotifier
}

type RemoteIO struct {
	Factory remoteio.IOFactory
	Reader  remoteio.InputReader
	Writer  remoteio.OutputWriter
	Signer  remoteio.URLSigner
}

// Close は、Container が保持するすべての外部接続リソースを安全に解放します。
func (c *Container) Close() {
	if c.RemoteIO != nil && c.RemoteIO.Factory != nil {
		if err := c.RemoteIO.Factory.Close(); err != nil {
			slog.Error("failed to close IOFactory", "error", err)
		}
	}
	if c.History != nil {
		if err := c.History.Close(); err != nil {
			slog.Error("failed to close history store", "error", err)
		}
	}
}
