package apiclient

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthorized はAPIが401を返した場合のエラー。
// 呼び出し元はセッションを破棄してサインイン画面へ誘導する。
var ErrUnauthorized = errors.New("upstream API rejected the session credentials")

// StatusError はAPIが2xx以外のステータスを返した場合のエラー。
// DetailはHTMLのエラーページから取り出した本文で、ログ用。画面には出さない。
type StatusError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: upstream API returned status %d: %s", e.Op, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: upstream API returned status %d", e.Op, e.StatusCode)
}

func newStatusError(op string, resp *response) *StatusError {
	return &StatusError{Op: op, StatusCode: resp.StatusCode, Detail: resp.Detail}
}

// ValidationError はAPIがレスポンスボディでエラーメッセージを返した場合のエラー。
// Messagesはそのまま画面に表示できる。
type ValidationError struct {
	Op         string
	StatusCode int
	Messages   []string
}

func (e *ValidationError) Error() string {
	return e.Message()
}

// Message はメッセージを ", " で連結して返す。
func (e *ValidationError) Message() string {
	return strings.Join(e.Messages, ", ")
}

// TransportError は通信エラーやレスポンスのデコード失敗を表す。
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
