package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"cinegen-web/internal/domain"
)

const (
	payloadField        = "payload"
	referenceImageField = "reference_image"
)

// generateRequest は生成系エンドポイント共通のリクエストボディです。
// multipart の場合は payload フィールドにこの JSON を入れます。
type generateRequest struct {
	Format             string          `json:"format"`
	IncludeTextOverlay bool            `json:"include_text_overlay"`
	Inputs             json.RawMessage `json:"inputs"`
}

// promptRequest はプレビューとカード画像のリクエストボディです。
type promptRequest struct {
	Prompt             string `json:"prompt"`
	IncludeTextOverlay bool   `json:"include_text_overlay"`
}

// errorResponse はエラー時のレスポンスです。Detail は入力の誤りを伝える場合にのみ設定します。
type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// parseArtifactRequest は JSON または multipart のリクエストを ArtifactRequest に変換します。
func (h *Handler) parseArtifactRequest(w http.ResponseWriter, r *http.Request, kind domain.ArtifactKind) (domain.ArtifactRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes())

	var body generateRequest
	var ref *domain.ReferenceImage

	if isMultipart(r) {
		if err := r.ParseMultipartForm(h.maxUploadBytes()); err != nil {
			return domain.ArtifactRequest{}, fmt.Errorf("%w: failed to parse form: %w", domain.ErrInvalidRequest, err)
		}
		if raw := r.FormValue(payloadField); raw != "" {
			if err := json.Unmarshal([]byte(raw), &body); err != nil {
				return domain.ArtifactRequest{}, fmt.Errorf("%w: payload is not valid JSON: %v", domain.ErrInvalidRequest, err)
			}
		}
		img, err := readReferenceImage(r)
		if err != nil {
			return domain.ArtifactRequest{}, err
		}
		ref = img
	} else if err := decodeJSON(r, &body); err != nil {
		return domain.ArtifactRequest{}, err
	}

	inputs, err := decodeInputs(kind, body.Inputs)
	if err != nil {
		return domain.ArtifactRequest{}, err
	}

	return domain.ArtifactRequest{
		Format:             domain.ParsePromptFormat(body.Format),
		IncludeTextOverlay: body.IncludeTextOverlay,
		ReferenceImage:     ref,
		Inputs:             inputs,
	}, nil
}

// readReferenceImage はアップロードされた画像を読み込みます。ファイルが無い場合は nil を返します。
func readReferenceImage(r *http.Request) (*domain.ReferenceImage, error) {
	file, header, err := r.FormFile(referenceImageField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFileRead, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFileRead, err)
	}

	return &domain.ReferenceImage{
		Filename: header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}, nil
}

// decodeInputs は種類に応じたフォーム入力の型に変換します。
func decodeInputs(kind domain.ArtifactKind, raw json.RawMessage) (domain.ArtifactInputs, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}

	var (
		inputs domain.ArtifactInputs
		err    error
	)
	switch kind {
	case domain.KindLogo:
		inputs, err = decodeAs[domain.LogoInputs](raw)
	case domain.KindYouTubeIntro:
		inputs, err = decodeAs[domain.YouTubeIntroInputs](raw)
	case domain.KindExplainer:
		inputs, err = decodeAs[domain.ExplainerInputs](raw)
	case domain.KindKineticTypography:
		inputs, err = decodeAs[domain.KineticTypographyInputs](raw)
	case domain.KindStoryboard:
		inputs, err = decodeAs[domain.StoryboardInputs](raw)
	case domain.KindNextScene:
		inputs, err = decodeAs[domain.NextSceneInputs](raw)
	case domain.KindSceneDescriptions:
		inputs, err = decodeAs[domain.SceneDescriptionInputs](raw)
	default:
		return nil, fmt.Errorf("%w: unknown artifact kind %q", domain.ErrInvalidRequest, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s inputs: %v", domain.ErrInvalidRequest, kind, err)
	}
	return inputs, nil
}

func decodeAs[T domain.ArtifactInputs](raw json.RawMessage) (domain.ArtifactInputs, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", domain.ErrInvalidRequest)
		}
		return fmt.Errorf("%w: request body is not valid JSON: %w", domain.ErrInvalidRequest, err)
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("レスポンスの書き込みに失敗しました", "error", err)
	}
}

// writeWorkflowError はエラーの種類を HTTP ステータスと利用者向けの文言に変換します。
func writeWorkflowError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classify(err)
	resp := errorResponse{Error: message}
	if status == http.StatusBadRequest {
		resp.Detail = err.Error()
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		slog.WarnContext(r.Context(), "Request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, resp)
}

func classify(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, "The uploaded file is too large. Please choose a smaller image."
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, "Some required information is missing. Please check the form and try again."
	case errors.Is(err, domain.ErrFileRead):
		return http.StatusBadRequest, "We couldn't read the uploaded image. Please try a different file."
	case errors.Is(err, domain.ErrSchema):
		return http.StatusBadGateway, "The AI returned an unexpected response. Please try again."
	case errors.Is(err, domain.ErrNoImage):
		return http.StatusBadGateway, "No image could be generated for this prompt. Please try again or adjust the prompt."
	case errors.Is(err, domain.ErrGeneration):
		return http.StatusBadGateway, "The AI did not return a usable result. Please try again."
	case errors.Is(err, ErrOutputNotFound):
		return http.StatusNotFound, "The requested output could not be found."
	case errors.Is(err, ErrInvalidPath):
		return http.StatusBadRequest, "The requested path is invalid."
	}
	return http.StatusInternalServerError, "Something went wrong on our side. Please try again in a moment."
}
