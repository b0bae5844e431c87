package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"cinegen-web/internal/domain"
)

type memoryWriter struct {
	objects      map[string]string
	contentTypes map[string]string
	failOn       string
}

func newMemoryWriter() *memoryWriter {
	return &memoryWriter{objects: map[string]string{}, contentTypes: map[string]string{}}
}

func (w *memoryWriter) Write(_ context.Context, path string, r io.Reader, contentType string) error {
	if w.failOn != "" && strings.HasSuffix(path, w.failOn) {
		return errors.New("permission denied")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	w.objects[path] = string(data)
	w.contentTypes[path] = contentType
	return nil
}

type stubSigner struct{ err error }

func (s stubSigner) GenerateSignedURL(_ context.Context, path, method string, _ time.Duration) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "https://signed.example.com/" + strings.TrimPrefix(path, "gs://") + "?method=" + method, nil
}

type recordingSender struct {
	headers []string
	texts   []string
	err     error
}

func (r *recordingSender) SendTextWithHeader(_ context.Context, header, text string) error {
	r.headers = append(r.headers, header)
	r.texts = append(r.texts, text)
	return r.err
}

func bucketURL(p string) string { return "gs://bucket/" + p }

func TestRemoteExporter_Export(t *testing.T) {
	ctx := context.Background()
	artifact := domain.GeneratedArtifact{
		Kind:           domain.KindStoryboard,
		Title:          "Storyboard: Dawn",
		PromptJSONText: "[]",
		WellFormed:     true,
		Visuals:        [][]byte{[]byte("a"), nil, []byte("c")},
		Inputs:         domain.StoryboardInputs{SelectedStyleName: "Noir"},
	}

	t.Run("プロンプトと画像を書き出す", func(t *testing.T) {
		w := newMemoryWriter()
		e := NewRemoteExporter(w, stubSigner{}, bucketURL, time.Minute)

		got, err := e.Export(ctx, "output/run1", artifact)
		if err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		if got.StorageURI != "gs://bucket/output/run1" {
			t.Errorf("StorageURI = %q", got.StorageURI)
		}
		if !strings.HasPrefix(got.PublicURL, "https://signed.example.com/bucket/output/run1/prompt.json") {
			t.Errorf("PublicURL = %q", got.PublicURL)
		}
		if len(got.Files) != 4 {
			t.Errorf("Files = %v, want 4 files", got.Files)
		}

		if w.objects["gs://bucket/output/run1/images/scene_01.jpg"] != "a" || w.objects["gs://bucket/output/run1/images/scene_03.jpg"] != "c" {
			t.Errorf("scene images not written: %v", w.objects)
		}
		if _, ok := w.objects["gs://bucket/output/run1/images/scene_02.jpg"]; ok {
			t.Error("empty slot must not be written")
		}
		if ct := w.contentTypes["gs://bucket/output/run1/prompt.json"]; ct != "application/json" {
			t.Errorf("prompt content type = %q", ct)
		}

		var meta struct {
			Images []*string `json:"images"`
		}
		if err := json.Unmarshal([]byte(w.objects["gs://bucket/output/run1/metadata.json"]), &meta); err != nil {
			t.Fatalf("metadata is not JSON: %v", err)
		}
		if len(meta.Images) != 3 || meta.Images[1] != nil || *meta.Images[2] != "images/scene_03.jpg" {
			t.Errorf("metadata images = %v", meta.Images)
		}
	})

	t.Run("署名の失敗は N/A で続行する", func(t *testing.T) {
		e := NewRemoteExporter(newMemoryWriter(), stubSigner{err: errors.New("no key")}, bucketURL, time.Minute)

		got, err := e.Export(ctx, "output/run2", artifact)
		if err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		if got.PublicURL != domain.CategoryNotAvailable {
			t.Errorf("PublicURL = %q", got.PublicURL)
		}
	})

	t.Run("書き込みの失敗はエラー", func(t *testing.T) {
		w := newMemoryWriter()
		w.failOn = "scene_03.jpg"
		e := NewRemoteExporter(w, nil, bucketURL, time.Minute)

		if _, err := e.Export(ctx, "output/run3", artifact); err == nil {
			t.Fatal("Export() error = nil, want error")
		}
	})

	t.Run("不正な JSON はテキストとして保存する", func(t *testing.T) {
		w := newMemoryWriter()
		e := NewRemoteExporter(w, nil, nil, time.Minute)

		raw := artifact
		raw.WellFormed = false
		raw.PromptJSONText = "not json"
		if _, err := e.Export(ctx, "local/run4", raw); err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		if ct := w.contentTypes["local/run4/prompt.json"]; !strings.HasPrefix(ct, "text/plain") {
			t.Errorf("content type = %q", ct)
		}
	})
}

func TestSlackAdapter(t *testing.T) {
	ctx := context.Background()
	req := domain.NotificationRequest{
		Kind:           domain.KindStoryboard,
		TargetTitle:    "Storyboard: Dawn",
		Format:         domain.FormatDetailed,
		SceneCount:     3,
		ImageCount:     2,
		WellFormed:     true,
		OutputCategory: "storyboard-output",
	}

	t.Run("未設定なら送信しない", func(t *testing.T) {
		a, err := NewSlackAdapter(nil, "")
		if err != nil {
			t.Fatalf("NewSlackAdapter() error = %v", err)
		}
		if err := a.Notify(ctx, "https://x", "gs://b/p", req); err != nil {
			t.Errorf("Notify() error = %v", err)
		}
		if err := a.NotifyError(ctx, errors.New("boom"), req); err != nil {
			t.Errorf("NotifyError() error = %v", err)
		}
	})

	t.Run("完了通知の本文", func(t *testing.T) {
		sender := &recordingSender{}
		a := &SlackAdapter{slackClient: sender}

		if err := a.Notify(ctx, "https://signed", "gs://bucket/output/run1", req); err != nil {
			t.Fatalf("Notify() error = %v", err)
		}
		text := sender.texts[0]
		for _, want := range []string{"Storyboard: Dawn", "2 / 3", "https://signed", "console.cloud.google.com/storage/browser/bucket/output/run1"} {
			if !strings.Contains(text, want) {
				t.Errorf("text does not contain %q:\n%s", want, text)
			}
		}
		if !strings.HasPrefix(sender.headers[0], "🎬") {
			t.Errorf("header = %q", sender.headers[0])
		}
	})

	t.Run("エクスポートなしではリンクを出さない", func(t *testing.T) {
		sender := &recordingSender{}
		a := &SlackAdapter{slackClient: sender}

		if err := a.Notify(ctx, domain.CategoryNotAvailable, domain.CategoryNotAvailable, req); err != nil {
			t.Fatalf("Notify() error = %v", err)
		}
		if strings.Contains(sender.texts[0], "http") {
			t.Errorf("unexpected link:\n%s", sender.texts[0])
		}
	})

	t.Run("送信失敗はエラーを返す", func(t *testing.T) {
		sender := &recordingSender{err: errors.New("429")}
		a := &SlackAdapter{slackClient: sender}

		if err := a.NotifyError(ctx, errors.New("boom"), req); err == nil {
			t.Fatal("NotifyError() error = nil, want error")
		}
		if !strings.Contains(sender.texts[0], "boom") {
			t.Errorf("error text = %q", sender.texts[0])
		}
	})
}
