package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cinegen-web/internal/controllers/auth"
	"cinegen-web/internal/domain"
)

// GenerateArtifact は /api/artifacts/{kind} で単発の成果物を生成します。
func (h *Handler) GenerateArtifact(w http.ResponseWriter, r *http.Request) {
	kind, ok := domain.ParseArtifactKind(chi.URLParam(r, "kind"))
	switch {
	case !ok:
		writeWorkflowError(w, r, fmt.Errorf("%w: unknown artifact kind %q", domain.ErrInvalidRequest, chi.URLParam(r, "kind")))
		return
	case kind == domain.KindStoryboard || kind == domain.KindNextScene || kind == domain.KindSceneDescriptions:
		writeWorkflowError(w, r, fmt.Errorf("%w: %s has its own endpoint", domain.ErrInvalidRequest, kind))
		return
	}

	req, err := h.parseArtifactRequest(w, r, kind)
	if err != nil {
		writeWorkflowError(w, r, err)
		return
	}

	artifact, err := h.generator.GenerateArtifact(r.Context(), auth.UserFromContext(r.Context()), req)
	if err != nil {
		writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

// GenerateStoryboard はストーリーボードからマスタープロンプトとシーン画像を生成します。
func (h *Handler) GenerateStoryboard(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseArtifactRequest(w, r, domain.KindStoryboard)
	if err != nil {
		writeWorkflowError(w, r, err)
		return
	}

	artifact, err := h.generator.GenerateStoryboard(r.Context(), auth.UserFromContext(r.Context()), req)
	if err != nil {
		writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

// GenerateNextScene は既存のストーリーボードに続くシーンを 1 つ生成します。
func (h *Handler) GenerateNextScene(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseArtifactRequest(w, r, domain.KindNextScene)
	if err != nil {
		writeWorkflowError(w, r, err)
		return
	}

	result, err := h.generator.GenerateNextScene(r.Context(), req)
	if err != nil {
		writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GenerateScenes は大まかなアイデアからシーン説明の一覧を生成します。
func (h *Handler) GenerateScenes(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseArtifactRequest(w, r, domain.KindSceneDescriptions)
	if err != nil {
		writeWorkflowError(w, r, err)
		return
	}

	scenes, err := h.generator.GenerateSceneDescriptions(r.Context(), req)
	if err != nil {
		writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"scenes": scenes})
}

// GeneratePreview は生成済みプロンプトの先頭ショットからプレビュー画像を作ります。
func (h *Handler) GeneratePreview(w http.ResponseWriter, r *http.Request) {
	var body promptRequest
	if err := decodeJSON(r, &body); err != nil {
		writeWorkflowError(w, r, err)
		return
	}

	result, err := h.generator.GeneratePreviewImage(r.Context(), body.Prompt, body.IncludeTextOverlay)
	if err != nil {
		writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GenerateImage は入力プロンプトをそのまま使ってカード画像を作ります。
func (h *Handler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var body promptRequest
	if err := decodeJSON(r, &body); err != nil {
		writeWorkflowError(w, r, err)
		return
	}

	img, err := h.generator.GenerateCardImage(r.Context(), body.Prompt, body.IncludeTextOverlay)
	if err != nil {
		writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]byte{"image": img})
}
