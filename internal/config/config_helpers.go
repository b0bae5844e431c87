package config

import (
	"fmt"
	"path"
	"strings"

	"github.com/shouni/netarmor/securenet"
)

// GetWorkDir は特定の実行に対する一意の作業ディレクトリを返します。
// 例: "output/20261017_090000_ab12cd34"
func (c Config) GetWorkDir(runID string) string {
	return path.Join(c.BaseOutputDir, runID)
}

// GetGCSObjectURL は、指定されたパスから完全なGCSオブジェクトURL ("gs://...") を組み立てます。
// pathが既に "gs://" プレフィックスを持つ場合は、そのままpathを返します。
// c.GCSBucketが空文字列の場合、この関数は引数で与えられたpathをそのまま返します。
func (c Config) GetGCSObjectURL(path string) string {
	if strings.HasPrefix(path, "gs://") {
		return path
	}
	if c.GCSBucket != "" {
		return fmt.Sprintf("gs://%s/%s", c.GCSBucket, strings.TrimPrefix(path, "/"))
	}

	return path
}

// OAuthEnabled は Google サインインが設定されているかを返します。
func (c Config) OAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// ExportEnabled は成果物をリモートストレージへ書き出すかを返します。
func (c Config) ExportEnabled() bool {
	return c.GCSBucket != ""
}

// --- バリデーション ---

// ValidateEssentialConfig はアプリケーション実行に不可欠な設定を検証します。
func ValidateEssentialConfig(cfg *Config) error {
	if !IsSecureURL(cfg.ServiceURL) {
		return fmt.Errorf("security error: SERVICE_URL ('%s') must be HTTPS in production", cfg.ServiceURL)
	}

	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("configuration error: GEMINI_API_KEY is not set")
	}

	if cfg.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET が設定されていません")
	}

	// SessionEncryptKey の長さチェック (AES要件: 16, 24, 32 bytes)
	if cfg.SessionEncryptKey != "" {
		keyLen := len([]byte(cfg.SessionEncryptKey))
		if keyLen != 16 && keyLen != 24 && keyLen != 32 {
			return fmt.Errorf("SESSION_ENCRYPT_KEY の長さが不正です (%d バイト)。16, 24, 32 バイトのいずれかにしてください", keyLen)
		}
	}

	if (cfg.GoogleClientID == "") != (cfg.GoogleClientSecret == "") {
		return fmt.Errorf("configuration error: GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set together")
	}

	if cfg.OAuthEnabled() && len(cfg.AllowedEmails) == 0 && len(cfg.AllowedDomains) == 0 {
		return fmt.Errorf("configuration error: authorization lists are empty")
	}

	return nil
}

// IsSecureURL は指定された URL が HTTPS または localhost であるか判定します。
func IsSecureURL(rawURL string) bool {
	return securenet.IsSecureServiceURL(rawURL)
}
