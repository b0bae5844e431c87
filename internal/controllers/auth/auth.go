// Package auth はセッションに基づくユーザー識別を提供します。
// 既定はメールアドレスを入力するだけの簡易サインインで、Google OAuth が設定されている場合はそちらに切り替わります。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/gorilla/sessions"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	sessionName     = "cinegen-session"
	userKey         = "user_email"
	stateCookieName = "oauth_state"
	callbackPath    = "/auth/google/callback"
	userInfoURL     = "https://www.googleapis.com/oauth2/v2/userinfo"
)

type contextKey struct{}

// AuthConfig は認証ハンドラーの初期化に必要な設定です
type AuthConfig struct {
	RedirectURL    string
	ClientID       string
	ClientSecret   string
	SessionKey     string
	EncryptKey     string
	IsSecureCookie bool
	AllowedEmails  []string
	AllowedDomains []string
}

// Handler は認証に関連するHTTPハンドラーです
type Handler struct {
	oauthConfig    *oauth2.Config // nil ならメールアドレスによる簡易サインイン
	store          *sessions.CookieStore
	isSecureCookie bool
	allowedEmails  map[string]struct{}
	allowedDomains map[string]struct{}
}

// NewHandler は新しいAuthHandlerを作成します
func NewHandler(cfg AuthConfig) *Handler {
	var oauthCfg *oauth2.Config
	if cfg.ClientID != "" && cfg.ClientSecret != "" {
		oauthCfg = &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
			},
			Endpoint: google.Endpoint,
		}
	}

	keyPairs := [][]byte{[]byte(cfg.SessionKey)}
	if cfg.EncryptKey != "" {
		keyPairs = append(keyPairs, []byte(cfg.EncryptKey))
	}
	store := sessions.NewCookieStore(keyPairs...)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   cfg.IsSecureCookie,
		SameSite: http.SameSiteLaxMode,
	}

	emailMap := make(map[string]struct{})
	for _, e := range cfg.AllowedEmails {
		if e = normalizeEmail(e); e != "" {
			emailMap[e] = struct{}{}
		}
	}
	domainMap := make(map[string]struct{})
	for _, d := range cfg.AllowedDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			domainMap[d] = struct{}{}
		}
	}

	return &Handler{
		oauthConfig:    oauthCfg,
		store:          store,
		isSecureCookie: cfg.IsSecureCookie,
		allowedEmails:  emailMap,
		allowedDomains: domainMap,
	}
}

// OAuthEnabled は Google サインインを使うかどうかを返します。
func (h *Handler) OAuthEnabled() bool {
	return h.oauthConfig != nil
}

// EmailLogin はフォームまたは JSON の email を検証し、そのままセッションに保存します。
// 所有確認は行いません。
func (h *Handler) EmailLogin(w http.ResponseWriter, r *http.Request) {
	if h.OAuthEnabled() {
		writeError(w, http.StatusNotFound, "Email sign-in is disabled. Please sign in with Google.")
		return
	}

	email, err := readEmail(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Please enter a valid email address.")
		return
	}

	if err := h.saveUser(w, r, email); err != nil {
		slog.ErrorContext(r.Context(), "セッション保存失敗", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save session.")
		return
	}

	slog.InfoContext(r.Context(), "ログイン成功", "email", email)
	writeJSON(w, http.StatusOK, map[string]any{"email": email, "authenticated": true})
}

// Logout はセッションを破棄します。
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.store.Get(r, sessionName)
	delete(session.Values, userKey)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		slog.ErrorContext(r.Context(), "セッション破棄失敗", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
}

// Me は現在のユーザーを返します。匿名の場合は authenticated=false です。
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	email := UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"email":         email,
		"authenticated": email != "",
		"oauth":         h.OAuthEnabled(),
	})
}

// GoogleLogin はGoogleのログイン画面へリダイレクトします
func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.OAuthEnabled() {
		http.NotFound(w, r)
		return
	}

	state, err := generateState()
	if err != nil {
		slog.Error("State生成失敗", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.isSecureCookie,
		Path:     callbackPath,
	})

	url := h.oauthConfig.AuthCodeURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// GoogleCallback は認可コードをトークンに交換し、許可リストに含まれるユーザーだけをサインインさせます。
func (h *Handler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if !h.OAuthEnabled() {
		http.NotFound(w, r)
		return
	}

	queryState := r.URL.Query().Get("state")
	cookieState, err := r.Cookie(stateCookieName)
	if err != nil || cookieState.Value != queryState {
		slog.Warn("CSRF攻撃の可能性があるため拒否しました", "query_state", queryState, "cookie_error", err)
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.isSecureCookie,
		Path:     callbackPath,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Code not found", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	token, err := h.oauthConfig.Exchange(ctx, code)
	if err != nil {
		slog.ErrorContext(ctx, "トークン交換失敗", "error", err)
		http.Error(w, "Failed to exchange token", http.StatusInternalServerError)
		return
	}

	resp, err := h.oauthConfig.Client(ctx, token).Get(userInfoURL)
	if err != nil {
		slog.ErrorContext(ctx, "ユーザー情報取得失敗", "error", err)
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	var userInfo struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		slog.ErrorContext(ctx, "JSONデコード失敗", "error", err)
		http.Error(w, "Failed to decode user info", http.StatusInternalServerError)
		return
	}

	email := normalizeEmail(userInfo.Email)
	if !h.isAuthorized(email) {
		slog.Warn("未許可ユーザーからのアクセス試行", "email", email)
		http.Error(w, "Unauthorized email address", http.StatusForbidden)
		return
	}

	if err := h.saveUser(w, r, email); err != nil {
		slog.ErrorContext(ctx, "セッション保存失敗", "error", err)
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}

	slog.InfoContext(ctx, "ログイン成功", "email", email)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Middleware はセッションのユーザーをリクエストのコンテキストに載せます。
// 匿名のリクエストもそのまま通します。
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, _ := h.store.Get(r, sessionName)
		if email, ok := session.Values[userKey].(string); ok && email != "" {
			r = r.WithContext(WithUser(r.Context(), email))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser はサインインしていないリクエストを 401 で拒否します。Middleware の内側で使います。
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == "" {
			writeError(w, http.StatusUnauthorized, "Please sign in to use your history.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithUser は email をユーザーとしてコンテキストに設定します。
func WithUser(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, contextKey{}, email)
}

// UserFromContext はコンテキストのユーザーを返します。匿名なら空文字です。
func UserFromContext(ctx context.Context) string {
	email, _ := ctx.Value(contextKey{}).(string)
	return email
}

func (h *Handler) saveUser(w http.ResponseWriter, r *http.Request, email string) error {
	session, _ := h.store.Get(r, sessionName)
	session.Values[userKey] = email
	return session.Save(r, w)
}

func (h *Handler) isAuthorized(email string) bool {
	if len(h.allowedEmails) == 0 && len(h.allowedDomains) == 0 {
		return false
	}
	if _, ok := h.allowedEmails[email]; ok {
		return true
	}
	parts := strings.Split(email, "@")
	if len(parts) == 2 {
		domain := parts[1]
		if _, ok := h.allowedDomains[domain]; ok {
			return true
		}
	}
	return false
}

// readEmail は application/json と フォームの両方から email を読み取ります。
func readEmail(r *http.Request) (string, error) {
	var raw string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", err
		}
		raw = body.Email
	} else {
		raw = r.FormValue("email")
	}

	email := normalizeEmail(raw)
	if !strings.Contains(email, "@") {
		return "", errors.New("email must contain @")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", err
	}
	return email, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.New("failed to generate state")
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("JSONレスポンスの書き込みに失敗しました", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
