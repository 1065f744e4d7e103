package model

import (
	"errors"
	"time"
)

// ErrIncompleteCredentials は認証情報の3項目がそろっていない場合のエラー。
var ErrIncompleteCredentials = errors.New("incomplete session credentials")

// Credentials はAPIに対してユーザーを証明する3つの値。
// 3つすべてがそろっている場合のみ有効とみなす。
type Credentials struct {
	AccessToken string
	Client      string
	UID         string
}

// NewCredentials は3項目すべてが空でない場合のみCredentialsを返す。
func NewCredentials(accessToken, client, uid string) (Credentials, error) {
	if accessToken == "" || client == "" || uid == "" {
		return Credentials{}, ErrIncompleteCredentials
	}
	return Credentials{AccessToken: accessToken, Client: client, UID: uid}, nil
}

// Complete は3項目すべてがそろっているかを返す。
func (c Credentials) Complete() bool {
	return c.AccessToken != "" && c.Client != "" && c.UID != ""
}

// Session はブラウザのCookieとAPI認証情報を結びつけるサーバー側セッション。
type Session struct {
	ID          string
	Credentials Credentials
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// IsAuthenticated はセッションが認証済みとみなせるかを返す。
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.ID != "" && s.Credentials.Complete()
}
