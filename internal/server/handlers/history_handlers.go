package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"cinegen-web/internal/controllers/auth"
)

// ListHistory はサインイン中のユーザーの履歴を新しい順に返します。
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.history.List(r.Context(), auth.UserFromContext(r.Context()))
	if err != nil {
		writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// DeleteHistory は履歴を 1 件削除します。存在しない ID でも 204 を返します。
func (h *Handler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Delete(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeWorkflowError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearHistory はユーザーの履歴をすべて削除します。
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Clear(r.Context(), auth.UserFromContext(r.Context())); err != nil {
		writeWorkflowError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Healthz は死活監視用です。
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
