// Package model はドメインモデルを定義する。
package model

// RequestType は休暇申請の種別を表す。
type RequestType string

const (
	// RequestTypeVacation は有給休暇。
	RequestTypeVacation RequestType = "vacation"
	// RequestTypeIncapacity は傷病による休業。
	RequestTypeIncapacity RequestType = "incapacity"
)

// RequestTypes はフォームで選択可能な申請種別の一覧。
var RequestTypes = []RequestType{RequestTypeVacation, RequestTypeIncapacity}

// RequestStatus は休暇申請の承認状態を表す。
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// RequestStatuses はフォームで選択可能な状態の一覧。
var RequestStatuses = []RequestStatus{RequestStatusPending, RequestStatusApproved, RequestStatusRejected}

// TimeOffRequest はAPIから取得した休暇申請の読み取り専用ビュー。
// ローカルで変更することはない。
type TimeOffRequest struct {
	ID            string
	EmployeeName  string
	EmployeeEmail string
	LeaderName    string
	StartDate     string
	EndDate       string
	RequestType   RequestType
	Reason        string
	Status        RequestStatus
}

// Pagination はAPIが返すページネーション情報。
type Pagination struct {
	CurrentPage int
	TotalPages  int
	TotalCount  int
	PerPage     int
}

// DefaultPagination はレスポンスにpaginationが含まれない場合の値を返す。
func DefaultPagination(perPage int) Pagination {
	return Pagination{
		CurrentPage: 1,
		TotalPages:  1,
		TotalCount:  0,
		PerPage:     perPage,
	}
}

// TimeOffPage は一覧APIの1ページ分の結果。
type TimeOffPage struct {
	Records    []TimeOffRequest
	Pagination Pagination
}

// Employee は申請フォームの担当者選択に使う従業員。
type Employee struct {
	ID   string
	Name string
}

// NewRequestDraft は作成モーダルで編集中の申請内容。
// 送信成功時とキャンセル時に空に戻る。
type NewRequestDraft struct {
	UserID      string `json:"user_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	RequestType string `json:"request_type"`
	Reason      string `json:"reason"`
	Status      string `json:"status"`
}

// IsEmpty はドラフトが初期状態かどうかを返す。
func (d NewRequestDraft) IsEmpty() bool {
	return d == NewRequestDraft{}
}
