// Package flash はリダイレクトをまたいで1回だけ表示するメッセージを提供する。
// 署名付きCookie（gorilla/sessions）に保存し、サーバー側には状態を持たない。
package flash

import (
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	cookieName = "timeoff_flash"
	// maxAge はフラッシュCookieの有効期間（秒）。表示前に期限が切れた場合は破棄される。
	maxAge = 300
)

// Kind はメッセージの種類。
type Kind string

const (
	KindAlert  Kind = "alert"
	KindNotice Kind = "notice"
)

// Messages は1回分のフラッシュメッセージ。
type Messages struct {
	Alerts  []string
	Notices []string
}

// Empty はメッセージがないかを返す。
func (m Messages) Empty() bool {
	return len(m.Alerts) == 0 && len(m.Notices) == 0
}

// Options はCookieの属性。
type Options struct {
	Secure bool
	Domain string
}

// NewCookieStore はSESSION_SECRETで署名するCookieストアを生成する。
func NewCookieStore(secret string, opts Options) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   maxAge,
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// Flasher はフラッシュメッセージの追加と取り出しを行う。
type Flasher struct {
	store sessions.Store
}

// New はFlasherを生成する。
func New(store sessions.Store) *Flasher {
	return &Flasher{store: store}
}

// Add はメッセージを追加してCookieに保存する。
func (f *Flasher) Add(w http.ResponseWriter, r *http.Request, kind Kind, message string) error {
	s, err := f.store.Get(r, cookieName)
	if err != nil && s == nil {
		return fmt.Errorf("failed to load flash cookie: %w", err)
	}
	s.AddFlash(message, string(kind))
	if err := s.Save(r, w); err != nil {
		return fmt.Errorf("failed to save flash cookie: %w", err)
	}
	return nil
}

// Pop は保存済みのメッセージを取り出して削除する。
// 改ざん・期限切れのCookieは空として扱う。
func (f *Flasher) Pop(w http.ResponseWriter, r *http.Request) Messages {
	s, err := f.store.Get(r, cookieName)
	if s == nil || err != nil {
		return Messages{}
	}

	msgs := Messages{
		Alerts:  toStrings(s.Flashes(string(KindAlert))),
		Notices: toStrings(s.Flashes(string(KindNotice))),
	}
	if !msgs.Empty() {
		_ = s.Save(r, w)
	}
	return msgs
}

func toStrings(values []interface{}) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
