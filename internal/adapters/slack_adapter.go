package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cinegen-web/internal/domain"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-notifier/pkg/factory"
)

// --- インターフェース定義 ---

type SlackNotifier interface {
	Notify(ctx context.Context, publicURL, storageURI string, req domain.NotificationRequest) error
	NotifyError(ctx context.Context, errDetail error, req domain.NotificationRequest) error
}

// --- 具象アダプター ---

// textSender は Slack クライアントのうち、このアダプターが使う部分です。
type textSender interface {
	SendTextWithHeader(ctx context.Context, header, text string) error
}

type SlackAdapter struct {
	webhookURL  string
	slackClient textSender
}

// NewSlackAdapter は webhookURL が空の場合、何も送信しないアダプターを返します。
func NewSlackAdapter(httpClient httpkit.ClientInterface, webhookURL string) (*SlackAdapter, error) {
	if webhookURL == "" {
		return &SlackAdapter{}, nil
	}
	client, err := factory.GetSlackClient(httpClient)
	if err != nil {
		return nil, fmt.Errorf("Slackクライアントの初期化に失敗しました: %w", err)
	}

	return &SlackAdapter{
		webhookURL:  webhookURL,
		slackClient: client,
	}, nil
}

// Notify は成果物の生成完了を、保存先の情報とともに Slack へ送信します。
func (a *SlackAdapter) Notify(ctx context.Context, publicURL, storageURI string, req domain.NotificationRequest) error {
	if a.slackClient == nil {
		slog.Info("Slackクライアントが初期化されていないため、通知をスキップします。", "storage_uri", storageURI)
		return nil
	}

	title := fmt.Sprintf("%s プロンプトの生成が完了しました！", kindIcon(req.Kind))
	content := a.buildSlackContent(publicURL, storageURI, req)

	if err := a.slackClient.SendTextWithHeader(ctx, title, content); err != nil {
		return fmt.Errorf("Slackへの投稿に失敗しました: %w", err)
	}

	slog.Info("Slack に完了通知を送信しました。", "public_url", publicURL)
	return nil
}

// NotifyError エラー詳細と実行メタデータを含むSlackエラー通知の送信。
func (a *SlackAdapter) NotifyError(ctx context.Context, errDetail error, req domain.NotificationRequest) error {
	if a.slackClient == nil {
		slog.Info("Slackクライアントが初期化されていないため、エラー通知をスキップします。", "error", errDetail)
		return nil
	}

	// Slackのmrkdwn形式では、アスタリスク(*)でテキストを囲むと太字として解釈されます。
	title := "❌ 処理中にエラーが発生しました"

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*タイトル:* `%s`\n", req.TargetTitle))
	sb.WriteString(fmt.Sprintf("*種類:* `%s`\n\n", req.Kind))

	sb.WriteString("*エラー内容:*\n")
	sb.WriteString(fmt.Sprintf("```\n%v\n```\n", errDetail))

	if req.OutputCategory != "" && req.OutputCategory != domain.CategoryNotAvailable {
		sb.WriteString(fmt.Sprintf("\n📍 *カテゴリ:* `%s`", req.OutputCategory))
	}

	if err := a.slackClient.SendTextWithHeader(ctx, title, sb.String()); err != nil {
		return fmt.Errorf("Slackへのエラー通知に失敗しました: %w", err)
	}

	slog.Info("Slack にエラー通知を送信しました。", "error", errDetail)
	return nil
}

// buildSlackContent は公開URL、ストレージURI、通知リクエストから Slack メッセージ本文を組み立てます。
func (a *SlackAdapter) buildSlackContent(publicURL, storageURI string, req domain.NotificationRequest) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("**タイトル:** `%s`\n", req.TargetTitle))
	sb.WriteString(fmt.Sprintf("**種類:** `%s` / **形式:** `%s`\n", req.Kind, req.Format))

	if req.SceneCount > 0 {
		sb.WriteString(fmt.Sprintf("**シーン画像:** %d / %d\n", req.ImageCount, req.SceneCount))
	}
	if !req.WellFormed {
		sb.WriteString("⚠️ _応答が正しい JSON ではなかったため、生テキストのまま保存しています。_\n")
	}
	sb.WriteString("\n")

	if publicURL != "" && publicURL != domain.CategoryNotAvailable {
		sb.WriteString(fmt.Sprintf("🌐 **詳細(ブラウザ):** <%s|ここから確認できます>\n", publicURL))
	}

	if strings.HasPrefix(storageURI, "gs://") {
		consoleURL := "https://console.cloud.google.com/storage/browser/" + strings.TrimPrefix(storageURI, "gs://")
		sb.WriteString(fmt.Sprintf("📂 **管理者(Console):** <%s|GCSで直接見る>\n", consoleURL))
	}
	if storageURI != "" && storageURI != domain.CategoryNotAvailable {
		sb.WriteString(fmt.Sprintf("📍 **保存場所(URI):** `%s`\n", storageURI))
	}

	return sb.String()
}

func kindIcon(kind domain.ArtifactKind) string {
	switch kind {
	case domain.KindStoryboard:
		return "🎬"
	case domain.KindLogo:
		return "✨"
	case domain.KindYouTubeIntro:
		return "📺"
	case domain.KindExplainer:
		return "📘"
	case domain.KindKineticTypography:
		return "🔤"
	}
	return "🎨"
}
