package handler

import (
	"fmt"
	"net/url"
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/hitoshi/timeoff/internal/listing"
	"github.com/hitoshi/timeoff/internal/model"
	"github.com/hitoshi/timeoff/internal/request"
)

const paramModal = "modal"

// field はhiddenフィールド1つ分。
type field struct {
	Name  string
	Value string
}

// option はselectの選択肢1つ分。
type option struct {
	Value    string
	Label    string
	Selected bool
}

// requestRow は一覧テーブルの1行。文字列はすべてサニタイズ済み。
type requestRow struct {
	ID            string
	EmployeeName  string
	EmployeeEmail string
	LeaderName    string
	StartDate     string
	EndDate       string
	RequestType   string
	Reason        string
	Status        string
	StatusClass   string
}

// perPageOption は表示件数の選択肢。
type perPageOption struct {
	Value    int
	Selected bool
	URL      string
}

// pagerView はページネーション表示。PrevURL/NextURLが空なら移動できない。
type pagerView struct {
	Label          string
	PrevURL        string
	NextURL        string
	PerPageOptions []perPageOption
}

// modalView は作成モーダルの表示内容。
type modalView struct {
	CSRFToken    string
	Hidden       []field
	Employees    []option
	RequestTypes []option
	Statuses     []option
	Draft        model.NewRequestDraft
	Notice       *model.APIError
	Error        *model.APIError
	CancelURL    string
}

// vacationsPage は一覧画面のテンプレートデータ。
type vacationsPage struct {
	layoutData
	PendingSearch string
	StartDate     string
	EndDate       string
	NewRequestURL string
	SearchHidden  []field
	FilterHidden  []field
	StatusOptions []option
	Rows          []requestRow
	Pager         pagerView
	ListError     *model.APIError
	Modal         *modalView
}

// statusFilters は状態フィルタの選択肢。値はAPIのstatus_eqにそのまま渡す。
var statusFilters = []option{
	{Value: listing.StatusAll, Label: "All"},
	{Value: "1", Label: "Approved"},
	{Value: "2", Label: "Rejected"},
}

// listingURL は正規形の一覧URLを返す。
func listingURL(q listing.Query, modalOpen bool) string {
	v := q.Values()
	if modalOpen {
		v.Set(paramModal, "new")
	}
	return pathVacations + "?" + v.Encode()
}

// hiddenFields は指定したパラメータをhiddenフィールドにする。名前順に並べる。
func hiddenFields(v url.Values, names ...string) []field {
	sort.Strings(names)
	fields := make([]field, 0, len(names))
	for _, name := range names {
		fields = append(fields, field{Name: name, Value: v.Get(name)})
	}
	return fields
}

// statusClass は状態セルのCSSクラスを返す。
func statusClass(status model.RequestStatus) string {
	switch status {
	case model.RequestStatusApproved:
		return "status-approved"
	case model.RequestStatusRejected:
		return "status-rejected"
	default:
		return "status-other"
	}
}

// toRows はAPIの値をそのまま行に詰める。エスケープはhtml/templateが行う。
func toRows(records []model.TimeOffRequest) []requestRow {
	rows := make([]requestRow, len(records))
	for i, rec := range records {
		rows[i] = requestRow{
			ID:            rec.ID,
			EmployeeName:  rec.EmployeeName,
			EmployeeEmail: rec.EmployeeEmail,
			LeaderName:    rec.LeaderName,
			StartDate:     rec.StartDate,
			EndDate:       rec.EndDate,
			RequestType:   string(rec.RequestType),
			Reason:        rec.Reason,
			Status:        string(rec.Status),
			StatusClass:   statusClass(rec.Status),
		}
	}
	return rows
}

// rangeLabel は "from–to of total" 形式の表示範囲を返す。件数0なら "0–0 of 0"。
func rangeLabel(p model.Pagination) string {
	if p.TotalCount <= 0 {
		return "0–0 of 0"
	}
	page, perPage := p.CurrentPage, p.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = listing.DefaultPerPage
	}
	from := (page-1)*perPage + 1
	to := min(page*perPage, p.TotalCount)
	return fmt.Sprintf("%d–%d of %d", from, to, p.TotalCount)
}

// newPager はAPIのページネーション情報から表示を組み立てる。
// 移動先のURLは現在のクエリを引き継ぐ。
func newPager(q listing.Query, p model.Pagination) pagerView {
	pv := pagerView{Label: rangeLabel(p)}
	if q.Page > 1 {
		pv.PrevURL = listingURL(q.WithPage(q.Page-1), false)
	}
	if q.Page*q.PerPage < p.TotalCount {
		pv.NextURL = listingURL(q.WithPage(q.Page+1), false)
	}
	for _, n := range listing.PerPageOptions {
		pv.PerPageOptions = append(pv.PerPageOptions, perPageOption{
			Value:    n,
			Selected: n == q.PerPage,
			URL:      listingURL(q.WithPerPage(n), false),
		})
	}
	return pv
}

func selectOptions(values []string, selected string) []option {
	caser := cases.Title(language.English)
	opts := make([]option, len(values))
	for i, v := range values {
		opts[i] = option{Value: v, Label: caser.String(v), Selected: v == selected}
	}
	return opts
}

// newModalView はモーダルの状態から表示内容を組み立てる。閉じていればnil。
func newModalView(m *request.Modal, q listing.Query, csrfToken string) *modalView {
	if m == nil || !m.IsOpen() {
		return nil
	}
	draft := m.Draft()

	employees := make([]option, len(m.Employees()))
	for i, e := range m.Employees() {
		employees[i] = option{
			Value:    e.ID,
			Label:    e.Name,
			Selected: e.ID == draft.UserID,
		}
	}

	types := make([]string, len(model.RequestTypes))
	for i, t := range model.RequestTypes {
		types[i] = string(t)
	}
	statuses := make([]string, len(model.RequestStatuses))
	for i, st := range model.RequestStatuses {
		statuses[i] = string(st)
	}

	mv := &modalView{
		CSRFToken:    csrfToken,
		Hidden:       hiddenFields(q.Values(), listing.ParamPage, listing.ParamPerPage, listing.ParamSearch, listing.ParamStatus, listing.ParamStartDate, listing.ParamEndDate),
		Employees:    employees,
		RequestTypes: selectOptions(types, draft.RequestType),
		Statuses:     selectOptions(statuses, draft.Status),
		Draft:        draft,
		Notice:       m.Notice(),
		Error:        m.Err(),
		CancelURL:    listingURL(q, false),
	}
	return mv
}
