package builder

import (
	"fmt"
	"net/url"

	"cinegen-web/internal/app"
	"cinegen-web/internal/config"
	"cinegen-web/internal/controllers/auth"
	"cinegen-web/internal/server/handlers"
)

// AppHandlers は生成されたすべての HTTP ハンドラーを保持する構造体です。
// server パッケージはこの構造体を受け取ってルーティングを行います。
type AppHandlers struct {
	Auth *auth.Handler
	API  *handlers.Handler
}

// BuildHandlers は Container から各ハンドラーを組み立て、AppHandlers 構造体を返します。
func BuildHandlers(c *app.Container) (*AppHandlers, error) {
	if c.Config == nil {
		return nil, fmt.Errorf("設定が読み込まれていません")
	}
	if c.Orchestrator == nil {
		return nil, fmt.Errorf("オーケストレーターが初期化されていません")
	}

	authHandler := c.Auth
	if authHandler == nil {
		authHandler = buildAuthHandler(c.Config)
	}

	var outputs *handlers.OutputBrowser
	if c.RemoteIO != nil {
		cfg := c.Config
		outputs = handlers.NewOutputBrowser(c.RemoteIO.Reader, c.RemoteIO.Signer, cfg.GetWorkDir, cfg.GetGCSObjectURL, cfg.SignedURLExpiration)
	}

	return &AppHandlers{
		Auth: authHandler,
		API:  handlers.NewHandler(c.Config, c.Orchestrator, c.History, outputs),
	}, nil
}

// buildAuthHandler は設定から認証ハンドラーを生成します。
func buildAuthHandler(cfg *config.Config) *auth.Handler {
	redirectURL, err := url.JoinPath(cfg.ServiceURL, "/auth/google/callback")
	if err != nil {
		redirectURL = cfg.ServiceURL + "/auth/google/callback"
	}

	return auth.NewHandler(auth.AuthConfig{
		RedirectURL:    redirectURL,
		ClientID:       cfg.GoogleClientID,
		ClientSecret:   cfg.GoogleClientSecret,
		SessionKey:     cfg.SessionSecret,
		EncryptKey:     cfg.SessionEncryptKey,
		IsSecureCookie: config.IsSecureURL(cfg.ServiceURL),
		AllowedEmails:  cfg.AllowedEmails,
		AllowedDomains: cfg.AllowedDomains,
	})
}
