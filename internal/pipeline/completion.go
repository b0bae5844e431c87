package pipeline

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"cinegen-web/internal/domain"
)

const (
	untitled         = "Untitled"
	kineticTitleRune = 20
)

// complete は成果物の履歴保存、エクスポート、完了通知を行います。
// いずれも失敗してもログを残すだけで、ワークフローの結果には影響しません。
func (o *StoryboardOrchestrator) complete(ctx context.Context, exec *execution, userKey string, format domain.PromptFormat, artifact domain.GeneratedArtifact) {
	if o.history != nil {
		entry, err := o.history.Save(ctx, userKey, artifact)
		if err != nil {
			exec.logger.ErrorContext(ctx, "Failed to save history entry", "error", err)
		} else if entry != nil {
			exec.logger.InfoContext(ctx, "History entry saved", "id", entry.ID)
		}
	}

	notification := domain.NewNotificationRequest(artifact, format)
	publicURL, storageURI := domain.CategoryNotAvailable, domain.CategoryNotAvailable

	if o.exporter != nil {
		dir := path.Join(o.baseOutputDir, exec.resolveSafeTitle(artifact.Title))
		result, err := o.exporter.Export(ctx, dir, artifact)
		if err != nil {
			exec.logger.ErrorContext(ctx, "Failed to export artifact", "dir", dir, "error", err)
		} else {
			publicURL, storageURI = result.PublicURL, result.StorageURI
			notification.OutputCategory = string(artifact.Kind) + "-output"
			exec.logger.InfoContext(ctx, "Artifact exported", "uri", result.StorageURI, "files", len(result.Files))
		}
	}

	if o.notifier == nil {
		return
	}
	if err := o.notifier.Notify(ctx, publicURL, storageURI, notification); err != nil {
		exec.logger.ErrorContext(ctx, "Notification failed", "error", err)
	}
}

// notifyError は失敗したワークフローのエラー通知を送ります。通知の失敗はログに残すだけです。
func (o *StoryboardOrchestrator) notifyError(ctx context.Context, kind domain.ArtifactKind, title string, err error) {
	if o.notifier == nil {
		return
	}
	req := domain.NotificationRequest{
		Kind:           kind,
		TargetTitle:    title,
		OutputCategory: domain.CategoryNotAvailable,
	}
	if notifyErr := o.notifier.NotifyError(ctx, err, req); notifyErr != nil {
		slog.ErrorContext(ctx, "Failed to send error notification", "error", notifyErr)
	}
}

// resolveSafeTitle は実行開始時刻とタイトルから一意で安全なディレクトリ名を生成します。
func (e *execution) resolveSafeTitle(title string) string {
	if e.resolvedSafeTitle != "" {
		return e.resolvedSafeTitle
	}

	t := e.startTime
	if t.IsZero() {
		t = time.Now()
	}

	jst, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		e.logger.Warn("Failed to load Asia/Tokyo location, using FixedZone", "error", err)
		jst = time.FixedZone("Asia/Tokyo", 9*60*60)
	}

	// タイトルとナノ秒を混ぜて、同じ秒に開始した実行同士の衝突を防ぎます。
	h := md5.New()
	h.Write([]byte(title))
	nanoBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(nanoBytes, uint64(t.UnixNano()))
	h.Write(nanoBytes)

	hash := fmt.Sprintf("%x", h.Sum(nil))[:8]
	e.resolvedSafeTitle = fmt.Sprintf("%s_%s", t.In(jst).Format("20060102_150405"), hash)
	return e.resolvedSafeTitle
}

// artifactTitle は履歴と通知に表示するタイトルを入力から決めます。
func artifactTitle(req domain.ArtifactRequest) string {
	switch in := req.Inputs.(type) {
	case domain.LogoInputs:
		name := untitled
		if req.ReferenceImage != nil && strings.TrimSpace(req.ReferenceImage.Filename) != "" {
			name = strings.TrimSpace(req.ReferenceImage.Filename)
		}
		return "Logo Animation: " + name
	case domain.YouTubeIntroInputs:
		return "Intro: " + orUntitled(in.ChannelName)
	case domain.StoryboardInputs:
		for _, s := range in.Scenes {
			if !s.IsBlank() {
				return "Storyboard: " + strings.TrimSpace(s.Description)
			}
		}
		return "Storyboard: " + untitled
	case domain.ExplainerInputs:
		return "Explainer: " + orUntitled(in.Topic)
	case domain.KineticTypographyInputs:
		script := []rune(strings.TrimSpace(in.Script))
		if len(script) == 0 {
			return "Kinetic: " + untitled
		}
		if len(script) > kineticTitleRune {
			script = script[:kineticTitleRune]
		}
		return "Kinetic: " + string(script) + "..."
	}
	return untitled
}

func orUntitled(s string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return untitled
}
