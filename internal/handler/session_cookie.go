package handler

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/timeoff/internal/middleware"
)

// sessionCookies はセッションCookieの発行と、セッション終了時の後始末をまとめる。
type sessionCookies struct {
	sessions SessionServiceInterface
	listing  ListingCache
	config   AuthHandlerConfig
	logger   *slog.Logger
}

// endSession はローカルセッションと一覧キャッシュを破棄し、Cookieをクリアする。
// 破棄に失敗してもCookieはクリアする。
func (c sessionCookies) endSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if err := c.sessions.Destroy(r.Context(), sessionID); err != nil {
		c.logger.Error("failed to destroy session", slog.String("error", err.Error()))
	}
	c.listing.Forget(sessionID)
	c.setSessionCookie(w, "", -1)
}

func (c sessionCookies) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   c.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
