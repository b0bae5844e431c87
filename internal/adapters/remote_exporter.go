package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"cinegen-web/internal/domain"
)

const (
	promptFileName   = "prompt.json"
	metadataFileName = "metadata.json"
	imageDirName     = "images"
)

// ObjectWriter はリモートストレージへの書き込み部分です。remoteio.OutputWriter が満たします。
type ObjectWriter interface {
	Write(ctx context.Context, path string, r io.Reader, contentType string) error
}

// URLSigner は署名付き URL の発行部分です。remoteio.URLSigner が満たします。
type URLSigner interface {
	GenerateSignedURL(ctx context.Context, path, method string, expires time.Duration) (string, error)
}

// exportMetadata は prompt.json と並べて保存する成果物の属性です。
type exportMetadata struct {
	Kind       domain.ArtifactKind   `json:"kind"`
	Title      string                `json:"title"`
	WellFormed bool                  `json:"well_formed"`
	Images     []*string             `json:"images"`
	Inputs     domain.ArtifactInputs `json:"inputs"`
}

// RemoteExporter は成果物を GCS などのリモートストレージに書き出します。
type RemoteExporter struct {
	writer       ObjectWriter
	signer       URLSigner
	objectURL    func(string) string
	signedURLTTL time.Duration
}

// NewRemoteExporter は RemoteExporter を初期化します。
// objectURL は相対パスを "gs://bucket/..." のような完全な URL に変換します。signer は nil でも構いません。
func NewRemoteExporter(writer ObjectWriter, signer URLSigner, objectURL func(string) string, signedURLTTL time.Duration) *RemoteExporter {
	if objectURL == nil {
		objectURL = func(p string) string { return p }
	}
	return &RemoteExporter{
		writer:       writer,
		signer:       signer,
		objectURL:    objectURL,
		signedURLTTL: signedURLTTL,
	}
}

// Export は dir 配下に prompt.json、metadata.json、images/scene_NN.jpg を書き込みます。
// 画像の無いスロットは書き出さず、metadata.json の images では null になります。
func (e *RemoteExporter) Export(ctx context.Context, dir string, artifact domain.GeneratedArtifact) (domain.ExportResult, error) {
	workDir := e.objectURL(dir)
	result := domain.ExportResult{StorageURI: workDir, PublicURL: domain.CategoryNotAvailable}

	promptPath := joinObjectPath(workDir, promptFileName)
	promptContentType := "application/json"
	if !artifact.WellFormed {
		promptContentType = "text/plain; charset=utf-8"
	}
	if err := e.writer.Write(ctx, promptPath, strings.NewReader(artifact.PromptJSONText), promptContentType); err != nil {
		return domain.ExportResult{}, fmt.Errorf("failed to write %s: %w", promptFileName, err)
	}
	result.Files = append(result.Files, promptPath)

	images := make([]string, len(artifact.Visuals))
	for i, img := range artifact.Visuals {
		if img == nil {
			continue
		}
		name := fmt.Sprintf("scene_%02d.jpg", i+1)
		imagePath := joinObjectPath(workDir, imageDirName, name)
		if err := e.writer.Write(ctx, imagePath, bytes.NewReader(img), domain.GeneratedImageMIMEType); err != nil {
			return domain.ExportResult{}, fmt.Errorf("failed to write scene image %d: %w", i+1, err)
		}
		images[i] = path.Join(imageDirName, name)
		result.Files = append(result.Files, imagePath)
	}

	meta := exportMetadata{
		Kind:       artifact.Kind,
		Title:      artifact.Title,
		WellFormed: artifact.WellFormed,
		Images:     nullableStrings(images),
		Inputs:     artifact.Inputs,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return domain.ExportResult{}, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	metaPath := joinObjectPath(workDir, metadataFileName)
	if err := e.writer.Write(ctx, metaPath, bytes.NewReader(data), "application/json"); err != nil {
		return domain.ExportResult{}, fmt.Errorf("failed to write %s: %w", metadataFileName, err)
	}
	result.Files = append(result.Files, metaPath)

	if e.signer != nil {
		u, err := e.signer.GenerateSignedURL(ctx, promptPath, http.MethodGet, e.signedURLTTL)
		if err != nil {
			slog.WarnContext(ctx, "署名付きURLの生成に失敗しました", "path", promptPath, "error", err)
		} else {
			result.PublicURL = u
		}
	}

	return result, nil
}

// joinObjectPath は "gs://" のスキームを壊さずにパスを連結します。
func joinObjectPath(base string, elem ...string) string {
	if rest, ok := strings.CutPrefix(base, "gs://"); ok {
		return "gs://" + path.Join(append([]string{rest}, elem...)...)
	}
	return path.Join(append([]string{base}, elem...)...)
}

// nullableStrings は空文字を null として書き出すために *string に変換します。
func nullableStrings(ss []string) []*string {
	out := make([]*string, len(ss))
	for i := range ss {
		if ss[i] != "" {
			out[i] = &ss[i]
		}
	}
	return out
}
