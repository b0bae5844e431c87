package config

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shouni/go-utils/envutil"
)

const (
	// SignedURLExpiration はエクスポートしたプロンプトを確認する時間を考慮した有効期限
	SignedURLExpiration = 5 * time.Minute
	DefaultModel        = "gemini-2.5-flash"
	DefaultImageModel   = "imagen-4.0-generate-001"
	// DefaultHTTPTimeout は Slack などの外部呼び出しに使うタイムアウト
	DefaultHTTPTimeout     = 30 * time.Second
	DefaultStyleCacheTTL   = 30 * time.Minute
	DefaultShutdownTimeout = 15 * time.Second
	// DefaultMaxUploadMB は参照画像アップロードの上限 (MB)
	DefaultMaxUploadMB = 10
)

// Config は環境変数から読み込まれたアプリケーションの全設定を保持します。
type Config struct {
	ServiceURL string
	Port       string

	GeminiAPIKey string
	GeminiModel  string // プロンプト生成用モデル
	ImageModel   string // シーン画像・プレビュー用モデル

	// GCSBucket が空の場合、成果物のエクスポートは行いません。
	GCSBucket           string
	BaseOutputDir       string // GCS内のベースルート (例: "output")
	SignedURLExpiration time.Duration
	SlackWebhookURL     string

	// HistoryDBPath が空の場合、履歴はメモリにのみ保持されます。
	HistoryDBPath string

	ImageRateInterval time.Duration // 画像生成の最小間隔。0 なら無制限
	StyleCacheTTL     time.Duration
	ShutdownTimeout   time.Duration
	MaxUploadBytes    int64

	// OAuth & Session Settings
	GoogleClientID     string
	GoogleClientSecret string
	// SessionSecret はセッションデータのHMAC署名用シークレットキーです。
	SessionSecret string
	// SessionEncryptKey はセッションデータのAES暗号化用シークレットキーです。 16, 24, 32 バイトのいずれかである必要があります。
	SessionEncryptKey string

	// Authz Settings
	AllowedEmails  []string
	AllowedDomains []string
}

// LoadConfig は環境変数から設定を読み込み、Config 構造体を生成します。
func LoadConfig() *Config {
	return &Config{
		ServiceURL: envutil.GetEnv("SERVICE_URL", "http://localhost:8080"),
		Port:       envutil.GetEnv("PORT", "8080"),

		GeminiAPIKey: envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:  envutil.GetEnv("GEMINI_MODEL", DefaultModel),
		ImageModel:   envutil.GetEnv("IMAGE_MODEL", DefaultImageModel),

		GCSBucket:           envutil.GetEnv("GCS_BUCKET", ""),
		BaseOutputDir:       envutil.GetEnv("BASE_OUTPUT_DIR", "output"),
		SignedURLExpiration: SignedURLExpiration,
		SlackWebhookURL:     envutil.GetEnv("SLACK_WEBHOOK_URL", ""),

		HistoryDBPath: envutil.GetEnv("HISTORY_DB_PATH", ""),

		ImageRateInterval: getDuration("IMAGE_RATE_INTERVAL", 0),
		StyleCacheTTL:     getDuration("STYLE_CACHE_TTL", DefaultStyleCacheTTL),
		ShutdownTimeout:   getDuration("SHUTDOWN_TIMEOUT", DefaultShutdownTimeout),
		MaxUploadBytes:    int64(getInt("MAX_UPLOAD_MB", DefaultMaxUploadMB)) << 20,

		// OAuth & Session
		GoogleClientID:     envutil.GetEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: envutil.GetEnv("GOOGLE_CLIENT_SECRET", ""),
		SessionSecret:      envutil.GetEnv("SESSION_SECRET", ""),
		SessionEncryptKey:  envutil.GetEnv("SESSION_ENCRYPT_KEY", ""),

		AllowedEmails:  parseCommaSeparatedList(envutil.GetEnv("ALLOWED_EMAILS", "")),
		AllowedDomains: parseCommaSeparatedList(envutil.GetEnv("ALLOWED_DOMAINS", "")),
	}
}

// getDuration は "1500ms" や "30m" のような値を読み込みます。解釈できない値は既定値に戻します。
func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(envutil.GetEnv(key, ""))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		slog.Warn("Invalid duration in environment, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(envutil.GetEnv(key, ""))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		slog.Warn("Invalid integer in environment, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return n
}

// parseCommaSeparatedList はカンマ区切りの値を小文字に揃えて分割し、空要素を除きます。
func parseCommaSeparatedList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if v := strings.ToLower(strings.TrimSpace(item)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
