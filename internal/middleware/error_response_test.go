package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/timeoff/internal/model"
)

func TestWriteErrorPage_RendersMessageAndAction(t *testing.T) {
	w := httptest.NewRecorder()
	WriteErrorPage(w, http.StatusTooManyRequests, model.NewRateLimitedError())

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Too many requests. Please try again later.") {
		t.Errorf("message missing: %s", body)
	}
	if !strings.Contains(body, `data-code="RATE_LIMITED"`) {
		t.Errorf("code missing: %s", body)
	}
}

func TestWriteErrorPage_EscapesMessage(t *testing.T) {
	w := httptest.NewRecorder()
	WriteErrorPage(w, http.StatusBadRequest, model.NewInvalidFormError("<script>alert(1)</script>"))

	if strings.Contains(w.Body.String(), "<script>") {
		t.Error("message must be HTML escaped")
	}
}

func TestWriteInternalServerError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteInternalServerError(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Something went wrong.") {
		t.Errorf("body = %s", w.Body.String())
	}
}
