// Package listing は休暇申請一覧のクエリ状態と取得処理を提供する。
package listing

import (
	"net/url"
	"strconv"
)

// デフォルト値
const (
	DefaultPage    = 1
	DefaultPerPage = 10
	StatusAll      = "all"
)

// PerPageOptions は1ページあたりの表示件数の選択肢。
var PerPageOptions = []int{5, 10, 25, 50}

// URLパラメータ名
const (
	ParamPage      = "page"
	ParamPerPage   = "per_page"
	ParamSearch    = "search"
	ParamStatus    = "status"
	ParamStartDate = "start_date"
	ParamEndDate   = "end_date"
)

// Query は一覧の取得条件。URLのクエリ文字列と1対1に対応する。
type Query struct {
	Page      int
	PerPage   int
	Search    string
	Status    string
	StartDate string
	EndDate   string
}

// DefaultQuery は初期状態のクエリを返す。
func DefaultQuery() Query {
	return Query{
		Page:    DefaultPage,
		PerPage: DefaultPerPage,
		Status:  StatusAll,
	}
}

// QueryFromValues はURLのクエリ文字列からQueryを組み立てる。
// 欠落・不正な値はデフォルトに置き換える。
func QueryFromValues(v url.Values) Query {
	q := DefaultQuery()
	q.Page = positiveInt(v.Get(ParamPage), DefaultPage)
	q.PerPage = positiveInt(v.Get(ParamPerPage), DefaultPerPage)
	q.Search = v.Get(ParamSearch)
	if s := v.Get(ParamStatus); s != "" {
		q.Status = s
	}
	q.StartDate = v.Get(ParamStartDate)
	q.EndDate = v.Get(ParamEndDate)
	return q
}

// Values は正規形のクエリ文字列を返す。6つのパラメータを常にすべて含む。
func (q Query) Values() url.Values {
	return url.Values{
		ParamPage:      {strconv.Itoa(q.Page)},
		ParamPerPage:   {strconv.Itoa(q.PerPage)},
		ParamSearch:    {q.Search},
		ParamStatus:    {q.Status},
		ParamStartDate: {q.StartDate},
		ParamEndDate:   {q.EndDate},
	}
}

// Encode は正規形のクエリ文字列をエンコードして返す。
func (q Query) Encode() string {
	return q.Values().Encode()
}

// APIValues はAPIに渡すクエリ文字列を組み立てる。
// page と per_page は常に含め、フィルタは値があるものだけ含める。
func (q Query) APIValues() url.Values {
	v := url.Values{
		"page":     {strconv.Itoa(q.Page)},
		"per_page": {strconv.Itoa(q.PerPage)},
	}
	if q.Search != "" {
		v.Set("filters[user_name_cont]", q.Search)
	}
	if q.Status != "" && q.Status != StatusAll {
		v.Set("filters[status_eq]", q.Status)
	}
	if q.StartDate != "" {
		v.Set("filters[start_date_gteq]", q.StartDate)
	}
	if q.EndDate != "" {
		v.Set("filters[end_date_lteq]", q.EndDate)
	}
	return v
}

// WithPage はページ番号だけを差し替えたクエリを返す。
func (q Query) WithPage(page int) Query {
	if page < 1 {
		page = DefaultPage
	}
	q.Page = page
	return q
}

// WithPerPage は表示件数を差し替え、ページを1に戻したクエリを返す。
func (q Query) WithPerPage(perPage int) Query {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	q.PerPage = perPage
	q.Page = DefaultPage
	return q
}

func positiveInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
