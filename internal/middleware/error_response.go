package middleware

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/hitoshi/timeoff/internal/model"
)

// errorPage はミドルウェアが返すエラーページ。画面テンプレートに依存しない最小構成。
var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Message}}</title></head>
<body>
<main class="error-page" data-code="{{.Code}}">
<h1>{{.Message}}</h1>
<p>{{.Action}}</p>
<p><a href="/vacations">Back to Vacation Requests</a></p>
</main>
</body>
</html>
`))

// WriteErrorPage は統一エラーフォーマットでHTMLエラーページを書き込む。
func WriteErrorPage(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := errorPage.Execute(w, apiErr); err != nil {
		slog.Error("failed to render error page", slog.String("error", err.Error()))
	}
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorPage(w, http.StatusInternalServerError, model.NewInternalError())
}
