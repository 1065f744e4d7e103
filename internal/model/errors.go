package model

import "fmt"

// APIError は画面に表示する統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, upstream, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeSignInFailed       = "SIGN_IN_FAILED"
	ErrCodeSignUpFailed       = "SIGN_UP_FAILED"
	ErrCodeMissingCredentials = "MISSING_CREDENTIALS"
	ErrCodeSignOutFailed      = "SIGN_OUT_FAILED"
	ErrCodeListingFailed      = "LISTING_FETCH_FAILED"
	ErrCodeEmployeesFailed    = "EMPLOYEES_FETCH_FAILED"
	ErrCodeCreateFailed       = "CREATE_REQUEST_FAILED"
	ErrCodeInvalidForm        = "INVALID_FORM"
	ErrCodeSessionExpired     = "SESSION_EXPIRED"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewSignInFailedError はサインイン失敗エラーを生成する。
// messageにはAPIが返したエラーメッセージをそのまま渡す。
func NewSignInFailedError(message string) *APIError {
	if message == "" {
		message = "Invalid login credentials"
	}
	return &APIError{
		Code:     ErrCodeSignInFailed,
		Message:  message,
		Category: "auth",
		Action:   "Check your email and password and try again.",
	}
}

// NewSignUpFailedError はユーザー登録失敗エラーを生成する。
func NewSignUpFailedError(message string) *APIError {
	if message == "" {
		message = "Sign up failed"
	}
	return &APIError{
		Code:     ErrCodeSignUpFailed,
		Message:  message,
		Category: "auth",
		Action:   "Fix the highlighted problems and submit again.",
	}
}

// NewMissingCredentialsError はサインイン応答に認証ヘッダーがそろっていない場合のエラーを生成する。
func NewMissingCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingCredentials,
		Message:  "Sign in response did not include session credentials",
		Category: "auth",
		Action:   "Try again later or contact an administrator.",
	}
}

// NewSignOutFailedError はサインアウト失敗エラーを生成する。
// ローカルセッションは維持されるため再試行できる。
func NewSignOutFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeSignOutFailed,
		Message:  "Error while logging out. Try again.",
		Category: "auth",
		Action:   "Press Logout again.",
	}
}

// NewListingFetchFailedError は一覧取得失敗エラーを生成する。
func NewListingFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeListingFailed,
		Message:  reason,
		Category: "upstream",
		Action:   "Reload the page in a moment.",
	}
}

// NewSessionExpiredError はAPIが認証情報を拒否した場合のエラーを生成する。
func NewSessionExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionExpired,
		Message:  "Your session has expired. Please sign in again.",
		Category: "auth",
		Action:   "Sign in again.",
	}
}

// NewEmployeesFetchFailedError は従業員一覧の取得失敗を表す。
// モーダルは開いたまま、担当者の選択肢が空になる。
func NewEmployeesFetchFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeEmployeesFailed,
		Message:  "Employees could not be loaded.",
		Category: "upstream",
		Action:   "Close the form and open it again.",
	}
}

// NewCreateRequestFailedError は申請作成失敗エラーを生成する。
func NewCreateRequestFailedError(message string) *APIError {
	if message == "" {
		message = "Error adding request"
	}
	return &APIError{
		Code:     ErrCodeCreateFailed,
		Message:  message,
		Category: "validation",
		Action:   "Correct the form and submit again.",
	}
}

// NewInvalidFormError はフォーム入力の不備を表すエラーを生成する。
func NewInvalidFormError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidForm,
		Message:  message,
		Category: "validation",
		Action:   "Fill in every required field.",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Too many requests. Please try again later.",
		Category: "system",
		Action:   "Please wait and retry after the specified time.",
	}
}

// NewInternalError は内部エラーを生成する。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Something went wrong.",
		Category: "system",
		Action:   "Please try again in a moment.",
	}
}
