package handler

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/hitoshi/timeoff/internal/flash"
	"github.com/hitoshi/timeoff/internal/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

// 画面テンプレート名
const (
	pageSignIn    = "sign_in.html"
	pageSignUp    = "sign_up.html"
	pageVacations = "vacations.html"
)

// pages は画面ごとにlayoutと組み合わせて解析済みのテンプレート。
var pages = mustParsePages(pageSignIn, pageSignUp, pageVacations)

func mustParsePages(names ...string) map[string]*template.Template {
	m := make(map[string]*template.Template, len(names))
	for _, name := range names {
		m[name] = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+name))
	}
	return m
}

// layoutData は全画面共通のテンプレートデータ。
type layoutData struct {
	Title     string
	CSRFToken string
	Flash     flash.Messages
}

// render はテンプレートをバッファに描画してからレスポンスに書き込む。
// 描画に失敗した場合は途中までのHTMLを返さず500にする。
func render(w http.ResponseWriter, logger *slog.Logger, status int, page string, data any) {
	t, ok := pages[page]
	if !ok {
		logger.Error("unknown page template", slog.String("page", page))
		middleware.WriteInternalServerError(w)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		logger.Error("failed to render page",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Debug("failed to write response", slog.String("error", err.Error()))
	}
}

// redirect は303 See Otherでリダイレクトする。
func redirect(w http.ResponseWriter, r *http.Request, location string) {
	http.Redirect(w, r, location, http.StatusSeeOther)
}
