// Package apiclient は休暇申請REST APIのクライアントを提供する。
// 認証が必要な呼び出しはすべて model.Credentials を明示的に受け取る。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/timeoff/internal/metrics"
	"github.com/hitoshi/timeoff/internal/model"
	"github.com/hitoshi/timeoff/internal/security"
)

const (
	// maxResponseBytes はレスポンスボディの読み取り上限。
	maxResponseBytes = 1 << 20
	// maxDetailRunes はHTMLエラーページから取り出す本文の上限。
	maxDetailRunes = 200

	headerAccessToken = "access-token"
	headerClient      = "client"
	headerUID         = "uid"

	userAgent = "Timeoff/1.0 Admin"
)

// Client はAPIクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	metrics    metrics.MetricsCollector
	errorPage  *security.HTMLText
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLはAPIのルートURL（例: http://localhost:3000）。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL string, collector metrics.MetricsCollector) *Client {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
		metrics:    collector,
		errorPage:  security.NewHTMLText(),
	}
}

// call は1回のAPI呼び出し。
type call struct {
	op     string
	method string
	path   string
	query  url.Values
	creds  *model.Credentials
	body   any
}

// response はステータス・ヘッダー・ボディをまとめた結果。
type response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Detail     string // HTMLのエラーページの本文
}

func (r *response) ok() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *response) isHTML() bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "text/html"
}

// do はリクエストを1回だけ実行する。リトライは行わない。
func (c *Client) do(ctx context.Context, cl call) (*response, error) {
	reqURL := c.baseURL + cl.path
	if len(cl.query) > 0 {
		reqURL += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to encode request body: %w", cl.op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build request: %w", cl.op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.creds != nil {
		req.Header.Set(headerAccessToken, cl.creds.AccessToken)
		req.Header.Set(headerClient, cl.creds.Client)
		req.Header.Set(headerUID, cl.creds.UID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamCall(cl.op, 0, time.Since(start))
		c.logger.Error("API呼び出しに失敗しました",
			slog.String("operation", cl.op),
			slog.String("error", err.Error()),
		)
		return nil, &TransportError{Op: cl.op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.metrics.RecordUpstreamCall(cl.op, resp.StatusCode, time.Since(start))
	if err != nil {
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("operation", cl.op),
			slog.String("error", err.Error()),
		)
		return nil, &TransportError{Op: cl.op, Err: err}
	}

	r := &response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}
	if resp.StatusCode >= 400 {
		attrs := []any{
			slog.String("operation", cl.op),
			slog.Int("http_status", resp.StatusCode),
		}
		if r.isHTML() {
			r.Detail = c.errorPage.Extract(string(data), maxDetailRunes)
			attrs = append(attrs, slog.String("detail", r.Detail))
		}
		c.logger.Warn("APIがエラーステータスを返しました", attrs...)
	}

	return r, nil
}

// decode はJSONボディをデコードする。失敗はTransportErrorとして返す。
func decode(op string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// flexibleID は文字列・数値のどちらでも受け付けるID。
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("id must be a string or a number")
	}
	*f = flexibleID(n.String())
	return nil
}
