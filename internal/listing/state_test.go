package listing

import "testing"

func TestNewState_InitialisesPendingFromQuery(t *testing.T) {
	s := NewState(Query{Page: 2, PerPage: 10, Search: "ana", Status: "all"})
	if s.PendingSearch != "ana" {
		t.Errorf("PendingSearch = %q, want %q", s.PendingSearch, "ana")
	}
}

func TestState_SetPendingDoesNotChangeQuery(t *testing.T) {
	q := Query{Page: 3, PerPage: 10, Search: "", Status: "all"}
	s := NewState(q)
	s.SetPending("bo")
	if s.Query != q {
		t.Errorf("Query changed by SetPending: %+v", s.Query)
	}
}

// TestState_CommitSearchResetsOnlyPage は確定時にページ以外の条件が維持されることを検証する。
func TestState_CommitSearchResetsOnlyPage(t *testing.T) {
	q := Query{Page: 3, PerPage: 25, Search: "", Status: "approved", StartDate: "2024-07-01", EndDate: "2024-07-31"}
	s := NewState(q)
	s.SetPending("ana")
	s.CommitSearch()

	want := q
	want.Page = 1
	want.Search = "ana"
	if s.Query != want {
		t.Errorf("after commit = %+v, want %+v", s.Query, want)
	}
}

func TestState_SetFilterKeepsPage(t *testing.T) {
	s := NewState(Query{Page: 4, PerPage: 10, Status: "all"})

	if !s.SetFilter("status", "rejected") {
		t.Fatal("status should be accepted")
	}
	s.SetFilter("start_date", "2024-01-01")
	s.SetFilter("end_date", "2024-01-31")

	want := Query{Page: 4, PerPage: 10, Status: "rejected", StartDate: "2024-01-01", EndDate: "2024-01-31"}
	if s.Query != want {
		t.Errorf("after filters = %+v, want %+v", s.Query, want)
	}

	s.SetFilter("status", "")
	if s.Query.Status != "all" {
		t.Errorf("empty status should mean all, got %q", s.Query.Status)
	}

	if s.SetFilter("per_page", "50") {
		t.Error("unknown filter key should be rejected")
	}
}

func TestState_Paging(t *testing.T) {
	s := NewState(DefaultQuery())
	s.SetPage(5)
	if s.Query.Page != 5 {
		t.Errorf("Page = %d, want 5", s.Query.Page)
	}
	s.SetPerPage(50)
	if s.Query.Page != 1 || s.Query.PerPage != 50 {
		t.Errorf("after SetPerPage = %+v", s.Query)
	}
}
