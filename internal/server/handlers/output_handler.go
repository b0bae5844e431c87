package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

var (
	validTitle     = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	sceneFileRegex = regexp.MustCompile(`^scene_\d+\.jpg$`)
)

const (
	promptFile   = "prompt.json"
	metadataFile = "metadata.json"
	imageDir     = "images"
)

// ObjectReader はエクスポート先の読み取り部分です。remoteio.InputReader が満たします。
type ObjectReader interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string, fn func(path string) error) error
}

// URLSigner は署名付き URL の発行部分です。remoteio.URLSigner が満たします。
type URLSigner interface {
	GenerateSignedURL(ctx context.Context, path, method string, expires time.Duration) (string, error)
}

// OutputBrowser はエクスポート済みの実行結果を署名付き URL で参照させます。
type OutputBrowser struct {
	reader    ObjectReader
	signer    URLSigner
	workDir   func(string) string
	objectURL func(string) string
	expires   time.Duration
}

// NewOutputBrowser は OutputBrowser を初期化します。
// workDir は実行 ID からディレクトリを、objectURL はそのパスから完全な URL を組み立てます。
func NewOutputBrowser(reader ObjectReader, signer URLSigner, workDir, objectURL func(string) string, expires time.Duration) *OutputBrowser {
	return &OutputBrowser{
		reader:    reader,
		signer:    signer,
		workDir:   workDir,
		objectURL: objectURL,
		expires:   expires,
	}
}

// outputView は /api/outputs/{title} のレスポンスです。
type outputView struct {
	Title     string          `json:"title"`
	Metadata  json.RawMessage `json:"metadata"`
	PromptURL string          `json:"prompt_url,omitempty"`
	ImageURLs []string        `json:"image_urls"`
}

// ServeOutput は指定された実行のメタデータと、プロンプト・シーン画像の署名付き URL を返します。
func (h *Handler) ServeOutput(w http.ResponseWriter, r *http.Request) {
	if h.outputs == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Export is not configured on this server."})
		return
	}

	ctx := r.Context()
	title := chi.URLParam(r, "title")

	// 1. メタデータの取得（これが正となるデータ源です）
	meta, err := h.outputs.loadMetadata(ctx, title)
	if err != nil {
		writeWorkflowError(w, r, err)
		return
	}

	// 2. 署名付き URL の生成
	promptPath, _ := h.outputs.validateAndCleanPath(title, promptFile)
	promptURL, err := h.outputs.signer.GenerateSignedURL(ctx, h.outputs.objectURL(promptPath), http.MethodGet, h.outputs.expires)
	if err != nil {
		slog.ErrorContext(ctx, "署名付きURL生成失敗", "path", promptPath, "error", err)
		promptURL = ""
	}

	imageURLs, err := h.outputs.loadSignedImageURLs(ctx, title)
	if err != nil {
		writeWorkflowError(w, r, err)
		return
	}

	// 署名付きURLの有効期限に同期させる
	w.Header().Set("Cache-Control", fmt.Sprintf("private, max-age=%d", int64(h.outputs.expires.Seconds())))
	writeJSON(w, http.StatusOK, outputView{
		Title:     title,
		Metadata:  meta,
		PromptURL: promptURL,
		ImageURLs: imageURLs,
	})
}

// loadMetadata は metadata.json を読み込み、JSON として検証して返します。
func (b *OutputBrowser) loadMetadata(ctx context.Context, title string) (json.RawMessage, error) {
	relPath, err := b.validateAndCleanPath(title, metadataFile)
	if err != nil {
		return nil, err
	}

	rc, err := b.reader.Open(ctx, b.objectURL(relPath))
	if err != nil {
		return nil, fmt.Errorf("%w: メタデータが見つかりません: %w", ErrOutputNotFound, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("メタデータの読み込みに失敗しました: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("メタデータが JSON ではありません: %s", relPath)
	}
	return json.RawMessage(data), nil
}

// loadSignedImageURLs はシーン画像をリストし、ファイル名順に署名付き URL を生成します。
func (b *OutputBrowser) loadSignedImageURLs(ctx context.Context, title string) ([]string, error) {
	prefix, err := b.validateAndCleanPath(title, imageDir)
	if err != nil {
		return nil, err
	}

	var filePaths []string
	// path.Base を使い、OSに依存せずスラッシュ区切りでファイル名を判定
	err = b.reader.List(ctx, b.objectURL(prefix), func(p string) error {
		if sceneFileRegex.MatchString(path.Base(p)) {
			filePaths = append(filePaths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ストレージのリスト取得に失敗: %w", err)
	}

	sort.Strings(filePaths)

	signedURLs := []string{}
	for _, p := range filePaths {
		u, err := b.signer.GenerateSignedURL(ctx, p, http.MethodGet, b.expires)
		if err != nil {
			slog.ErrorContext(ctx, "署名付きURL生成失敗", "path", p, "error", err)
			continue
		}
		signedURLs = append(signedURLs, u)
	}
	return signedURLs, nil
}

// validateAndCleanPath タイトルを検証し、指定されたワークスペース内に安全でクリーンなファイル パスを構築します
func (b *OutputBrowser) validateAndCleanPath(title, file string) (string, error) {
	if title == "" || !validTitle.MatchString(title) {
		return "", fmt.Errorf("%w: invalid title %q", ErrInvalidPath, title)
	}

	baseDir := b.workDir(title)
	cleaned := path.Clean(path.Join(baseDir, file))

	if !strings.HasPrefix(cleaned, baseDir+"/") {
		return "", fmt.Errorf("%w: potential traversal %s", ErrInvalidPath, cleaned)
	}
	return cleaned, nil
}
