// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/timeoff/internal/apiclient"
	"github.com/hitoshi/timeoff/internal/flash"
	"github.com/hitoshi/timeoff/internal/middleware"
	"github.com/hitoshi/timeoff/internal/model"
)

// 画面パス
const (
	pathSignIn    = "/sign_in"
	pathSignUp    = "/sign_up"
	pathSignOut   = "/sign_out"
	pathVacations = "/vacations"
)

// AuthAPI は認証ハンドラーが必要とするAPI操作。
type AuthAPI interface {
	SignUp(ctx context.Context, params apiclient.SignUpParams) error
	SignIn(ctx context.Context, email, password string) (model.Credentials, error)
	SignOut(ctx context.Context, creds model.Credentials) error
}

// SessionServiceInterface はセッションの作成と破棄を行うサービスインターフェース。
type SessionServiceInterface interface {
	Create(ctx context.Context, creds model.Credentials) (*model.Session, error)
	Destroy(ctx context.Context, id string) error
}

// ListingCache はサインアウト時に破棄する一覧キャッシュ。
type ListingCache interface {
	Forget(sessionID string)
}

// Flasher はリダイレクト後に表示するメッセージの保存先。
type Flasher interface {
	Add(w http.ResponseWriter, r *http.Request, kind flash.Kind, message string) error
	Pop(w http.ResponseWriter, r *http.Request) flash.Messages
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はユーザー登録・サインイン・サインアウトのHTTPハンドラー。
type AuthHandler struct {
	sessionCookies
	api       AuthAPI
	flash     Flasher
	validator *formValidator
	logger    *slog.Logger
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(api AuthAPI, sessions SessionServiceInterface, listing ListingCache, flasher Flasher, config AuthHandlerConfig, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		sessionCookies: sessionCookies{
			sessions: sessions,
			listing:  listing,
			config:   config,
			logger:   logger,
		},
		api:       api,
		flash:     flasher,
		validator: newFormValidator(),
		logger:    logger,
	}
}

// signInPage はサインイン画面のテンプレートデータ。
type signInPage struct {
	layoutData
	Email string
	Error *model.APIError
}

// signUpPage はユーザー登録画面のテンプレートデータ。
type signUpPage struct {
	layoutData
	Name  string
	Email string
	Error *model.APIError
}

// ShowSignIn はサインイン画面を表示する。
// GET /sign_in
func (h *AuthHandler) ShowSignIn(w http.ResponseWriter, r *http.Request) {
	render(w, h.logger, http.StatusOK, pageSignIn, signInPage{layoutData: h.layout(w, r, "Sign In")})
}

// SignIn はAPIで認証し、成功したらセッションを作成する。
// POST /sign_in
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	form := signInForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	page := signInPage{layoutData: h.layout(w, r, "Sign In"), Email: form.Email}

	if msg := h.validator.check(form); msg != "" {
		page.Error = model.NewInvalidFormError(msg)
		render(w, h.logger, http.StatusUnprocessableEntity, pageSignIn, page)
		return
	}

	creds, err := h.api.SignIn(r.Context(), form.Email, form.Password)
	if err != nil {
		status, apiErr := h.signInError(err)
		page.Error = apiErr
		render(w, h.logger, status, pageSignIn, page)
		return
	}

	session, err := h.sessions.Create(r.Context(), creds)
	if err != nil {
		h.logger.Error("failed to create session", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	h.setSessionCookie(w, session.ID, h.config.SessionMaxAge)
	h.logger.Info("user signed in")
	redirect(w, r, pathVacations)
}

// signInError はサインイン失敗をステータスコードと画面表示用エラーに変換する。
func (h *AuthHandler) signInError(err error) (int, *model.APIError) {
	if errors.Is(err, model.ErrIncompleteCredentials) {
		return http.StatusBadGateway, model.NewMissingCredentialsError()
	}

	var ve *apiclient.ValidationError
	if errors.As(err, &ve) {
		return http.StatusUnauthorized, model.NewSignInFailedError(ve.Message())
	}

	var te *apiclient.TransportError
	if errors.As(err, &te) {
		h.logger.Error("sign in request failed", slog.String("error", err.Error()))
		return http.StatusBadGateway, model.NewSignInFailedError("")
	}
	return http.StatusUnauthorized, model.NewSignInFailedError("")
}

// ShowSignUp はユーザー登録画面を表示する。
// GET /sign_up
func (h *AuthHandler) ShowSignUp(w http.ResponseWriter, r *http.Request) {
	render(w, h.logger, http.StatusOK, pageSignUp, signUpPage{layoutData: h.layout(w, r, "Sign Up")})
}

// SignUp はAPIにユーザーを登録し、成功したらサインイン画面へ遷移する。
// POST /sign_up
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	form := signUpForm{
		Name:                 strings.TrimSpace(r.PostFormValue("name")),
		Email:                strings.TrimSpace(r.PostFormValue("email")),
		Password:             r.PostFormValue("password"),
		PasswordConfirmation: r.PostFormValue("password_confirmation"),
	}
	page := signUpPage{layoutData: h.layout(w, r, "Sign Up"), Name: form.Name, Email: form.Email}

	if msg := h.validator.check(form); msg != "" {
		page.Error = model.NewInvalidFormError(msg)
		render(w, h.logger, http.StatusUnprocessableEntity, pageSignUp, page)
		return
	}

	err := h.api.SignUp(r.Context(), apiclient.SignUpParams{
		Name:                 form.Name,
		Email:                form.Email,
		Password:             form.Password,
		PasswordConfirmation: form.PasswordConfirmation,
	})
	if err != nil {
		var ve *apiclient.ValidationError
		if errors.As(err, &ve) {
			page.Error = model.NewSignUpFailedError(ve.Message())
		} else {
			h.logger.Error("sign up request failed", slog.String("error", err.Error()))
			page.Error = model.NewSignUpFailedError("")
		}
		render(w, h.logger, http.StatusUnprocessableEntity, pageSignUp, page)
		return
	}

	redirect(w, r, pathSignIn)
}

// SignOut はAPI側のトークンを無効化し、ローカルセッションを破棄する。
// API呼び出しに失敗した場合はセッションを維持して一覧に戻る。
// 401はすでに無効化されているとみなしてセッションを破棄する。
// POST /sign_out
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		redirect(w, r, pathSignIn)
		return
	}

	if err := h.api.SignOut(r.Context(), session.Credentials); err != nil && !errors.Is(err, apiclient.ErrUnauthorized) {
		h.logger.Warn("sign out failed", slog.String("error", err.Error()))
		if flashErr := h.flash.Add(w, r, flash.KindAlert, model.NewSignOutFailedError().Message); flashErr != nil {
			h.logger.Error("failed to save flash message", slog.String("error", flashErr.Error()))
		}
		redirect(w, r, pathVacations)
		return
	}

	h.endSession(w, r, session.ID)
	redirect(w, r, pathSignIn)
}

func (h *AuthHandler) layout(w http.ResponseWriter, r *http.Request, title string) layoutData {
	return layoutData{
		Title:     title,
		CSRFToken: middleware.CSRFToken(r),
		Flash:     h.flash.Pop(w, r),
	}
}
