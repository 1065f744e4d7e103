package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hitoshi/timeoff/internal/model"
)

// SignUpParams はユーザー登録の入力。
type SignUpParams struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type signInParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authErrorBody は認証系エンドポイントのエラーボディ。
// 登録は {errors:{full_messages:[...]}}、サインインは {errors:[...]} を返す。
type authErrorBody struct {
	Errors json.RawMessage `json:"errors"`
}

// messages はerrorsフィールドからメッセージを取り出す。
func (b authErrorBody) messages() []string {
	if len(b.Errors) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(b.Errors, &list); err == nil {
		return list
	}
	var obj struct {
		FullMessages []string `json:"full_messages"`
	}
	if err := json.Unmarshal(b.Errors, &obj); err == nil {
		return obj.FullMessages
	}
	return nil
}

// authError は非2xxレスポンスをValidationErrorまたはStatusErrorに変換する。
func authError(op string, resp *response) error {
	var body authErrorBody
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		if msgs := body.messages(); len(msgs) > 0 {
			return &ValidationError{Op: op, StatusCode: resp.StatusCode, Messages: msgs}
		}
	}
	return newStatusError(op, resp)
}

// SignUp は新しいユーザーを登録する。成功時もセッションは発行しない。
func (c *Client) SignUp(ctx context.Context, params SignUpParams) error {
	const op = "sign_up"
	resp, err := c.do(ctx, call{op: op, method: http.MethodPost, path: "/auth", body: params})
	if err != nil {
		return err
	}
	if !resp.ok() {
		return authError(op, resp)
	}
	return nil
}

// SignIn はメールアドレスとパスワードで認証し、レスポンスヘッダーの認証情報を返す。
// 3つのヘッダーのいずれかが欠けている場合は model.ErrIncompleteCredentials を返す。
func (c *Client) SignIn(ctx context.Context, email, password string) (model.Credentials, error) {
	const op = "sign_in"
	resp, err := c.do(ctx, call{
		op:     op,
		method: http.MethodPost,
		path:   "/auth/sign_in",
		body:   signInParams{Email: email, Password: password},
	})
	if err != nil {
		return model.Credentials{}, err
	}
	if !resp.ok() {
		return model.Credentials{}, authError(op, resp)
	}

	creds, err := model.NewCredentials(
		resp.Header.Get(headerAccessToken),
		resp.Header.Get(headerClient),
		resp.Header.Get(headerUID),
	)
	if err != nil {
		c.logger.Warn("sign in response is missing credential headers")
		return model.Credentials{}, fmt.Errorf("%s: %w", op, err)
	}
	return creds, nil
}

// SignOut はAPI側のトークンを無効化する。
func (c *Client) SignOut(ctx context.Context, creds model.Credentials) error {
	const op = "sign_out"
	resp, err := c.do(ctx, call{op: op, method: http.MethodDelete, path: "/auth/sign_out", creds: &creds})
	if err != nil {
		return err
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case !resp.ok():
		return newStatusError(op, resp)
	}
	return nil
}
