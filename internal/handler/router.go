package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/timeoff/internal/metrics"
	"github.com/hitoshi/timeoff/internal/middleware"
	"github.com/hitoshi/timeoff/internal/request"
)

// HealthChecker はヘルスチェックで疎通を確認する依存先。*sql.DB が満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger        *slog.Logger
	SessionFinder middleware.SessionFinder
	RateLimiter   *middleware.RateLimiter
	CSRFConfig    middleware.CSRFConfig

	// 運用
	HealthChecker HealthChecker
	Gatherer      prometheus.Gatherer

	// 認証
	AuthAPI    AuthAPI
	Sessions   SessionServiceInterface
	AuthConfig AuthHandlerConfig

	// 一覧・作成
	Loader     ListingLoader
	RequestAPI request.API

	Flasher Flasher
}

// NewRouter は全画面のルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Logging → Recovery → SecurityHeaders → CSRF
//	  認証画面: RateLimit(SignIn)
//	  認証が必要な画面: Session → RateLimit(General)
//
// /health と /metrics はCSRFとセッションの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewRecoveryMiddleware())

	r.Get("/health", healthHandler(deps.HealthChecker, deps.Logger))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	authHandler := NewAuthHandler(deps.AuthAPI, deps.Sessions, deps.Loader, deps.Flasher, deps.AuthConfig, deps.Logger)
	vacationHandler := NewVacationHandler(deps.Loader, deps.RequestAPI, deps.Sessions, deps.Flasher, deps.AuthConfig, deps.Logger)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSecurityHeadersMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// --- 認証不要の画面 ---
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.SignInMiddleware())

			r.Get(pathSignIn, authHandler.ShowSignIn)
			r.Post(pathSignIn, authHandler.SignIn)
			r.Get(pathSignUp, authHandler.ShowSignUp)
			r.Post(pathSignUp, authHandler.SignUp)
		})

		// --- 認証が必要な画面 ---
		// ミドルウェアスタック: Session → RateLimit(General)
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewSessionMiddleware(deps.SessionFinder, pathSignIn))
			r.Use(deps.RateLimiter.GeneralMiddleware())

			r.Get("/", vacationHandler.Index)
			r.Post(pathSignOut, authHandler.SignOut)

			r.Route(pathVacations, func(r chi.Router) {
				r.Get("/", vacationHandler.List)
				r.Post("/requests", vacationHandler.CreateRequest)
			})
		})
	})

	return r
}

// healthHandler はDBへの疎通を確認する。
// GET /health
func healthHandler(checker HealthChecker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				logger.Error("health check failed", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("unavailable\n"))
				return
			}
		}
		_, _ = w.Write([]byte("ok\n"))
	}
}
