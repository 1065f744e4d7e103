package listing

// State は確定済みのQueryと、検索ボックスに入力中の未確定テキストを保持する。
// 未確定テキストは確定されるまで取得条件に影響しない。
type State struct {
	Query         Query
	PendingSearch string
}

// NewState はQueryから状態を生成する。入力中テキストは確定済みの検索語で初期化する。
func NewState(q Query) *State {
	return &State{Query: q, PendingSearch: q.Search}
}

// SetPending は入力中テキストだけを変更する。
func (s *State) SetPending(text string) {
	s.PendingSearch = text
}

// CommitSearch は入力中テキストを検索語として確定し、ページを1に戻す。
// 表示件数・状態・日付には触れない。
func (s *State) CommitSearch() {
	s.Query.Search = s.PendingSearch
	s.Query.Page = DefaultPage
}

// SetFilter は status, start_date, end_date のいずれかを変更する。
// ページは維持する。未知のキーは無視して false を返す。
func (s *State) SetFilter(key, value string) bool {
	switch key {
	case ParamStatus:
		if value == "" {
			value = StatusAll
		}
		s.Query.Status = value
	case ParamStartDate:
		s.Query.StartDate = value
	case ParamEndDate:
		s.Query.EndDate = value
	default:
		return false
	}
	return true
}

// SetPage はページ番号を変更する。
func (s *State) SetPage(page int) {
	s.Query = s.Query.WithPage(page)
}

// SetPerPage は表示件数を変更し、ページを1に戻す。
func (s *State) SetPerPage(perPage int) {
	s.Query = s.Query.WithPerPage(perPage)
}
