package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/timeoff/internal/apiclient"
	"github.com/hitoshi/timeoff/internal/flash"
	"github.com/hitoshi/timeoff/internal/listing"
	"github.com/hitoshi/timeoff/internal/middleware"
	"github.com/hitoshi/timeoff/internal/model"
	"github.com/hitoshi/timeoff/internal/request"
)

const (
	// 検索フォームは入力中テキストと確定操作を送る。
	paramSearchInput = "search_input"
	paramAction      = "action"
	actionSearch     = "search"

	// 作成フォームのフィールド名。一覧のstatusと衝突しないよう request[...] で囲む。
	fieldDraftUserID      = "request[user_id]"
	fieldDraftStartDate   = "request[start_date]"
	fieldDraftEndDate     = "request[end_date]"
	fieldDraftRequestType = "request[request_type]"
	fieldDraftReason      = "request[reason]"
	fieldDraftStatus      = "request[status]"

	requestCreatedNotice = "Request added"
)

// ListingLoader は一覧の取得とキャッシュ破棄を行うインターフェース。
type ListingLoader interface {
	Load(ctx context.Context, sess *model.Session, q listing.Query) (*model.TimeOffPage, error)
	Invalidate(sessionID string)
	Forget(sessionID string)
}

// VacationHandler は休暇申請一覧と作成モーダルのHTTPハンドラー。
type VacationHandler struct {
	sessionCookies
	loader ListingLoader
	api    request.API
	flash  Flasher
	logger *slog.Logger
}

// NewVacationHandler はVacationHandlerを生成する。
func NewVacationHandler(loader ListingLoader, api request.API, sessions SessionServiceInterface, flasher Flasher, config AuthHandlerConfig, logger *slog.Logger) *VacationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VacationHandler{
		sessionCookies: sessionCookies{
			sessions: sessions,
			listing:  loader,
			config:   config,
			logger:   logger,
		},
		loader: loader,
		api:    api,
		flash:  flasher,
		logger: logger,
	}
}

// Index は一覧画面へリダイレクトする。
// GET /
func (h *VacationHandler) Index(w http.ResponseWriter, r *http.Request) {
	redirect(w, r, pathVacations)
}

// List は休暇申請一覧を表示する。
// クエリ文字列が正規形でなければ正規形のURLへリダイレクトし、正規形のURLでのみ取得する。
// GET /vacations?page=&per_page=&search=&status=&start_date=&end_date=[&modal=new]
func (h *VacationHandler) List(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		redirect(w, r, pathSignIn)
		return
	}

	raw := r.URL.Query()
	state := listing.NewState(listing.QueryFromValues(raw))
	if raw.Get(paramAction) == actionSearch {
		state.SetPending(raw.Get(paramSearchInput))
		state.CommitSearch()
	}
	modalOpen := raw.Get(paramModal) == "new"

	if canonical := listingURL(state.Query, modalOpen); pathVacations+"?"+r.URL.RawQuery != canonical {
		redirect(w, r, canonical)
		return
	}

	var modal *request.Modal
	if modalOpen {
		modal = request.NewModal(h.api, h.logger)
		if err := modal.Open(r.Context(), session.Credentials); err != nil {
			h.fail(w, r, session, err)
			return
		}
	}

	page := h.newPage(w, r, state)
	if !h.loadListing(w, r, session, state.Query, &page) {
		return
	}
	page.Modal = newModalView(modal, state.Query, page.CSRFToken)
	render(w, h.logger, http.StatusOK, pageVacations, page)
}

// CreateRequest は作成モーダルの内容をAPIへ送信する。
// 成功時はキャッシュを破棄して一覧へリダイレクトし、失敗時は担当者候補を読み込み直して
// モーダルを開いたまま再表示する。
// POST /vacations/requests
func (h *VacationHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		redirect(w, r, pathSignIn)
		return
	}
	if err := r.ParseForm(); err != nil {
		middleware.WriteErrorPage(w, http.StatusBadRequest, model.NewInvalidFormError("The form could not be read."))
		return
	}

	q := listing.QueryFromValues(r.PostForm)
	draft := model.NewRequestDraft{
		UserID:      r.PostFormValue(fieldDraftUserID),
		StartDate:   r.PostFormValue(fieldDraftStartDate),
		EndDate:     r.PostFormValue(fieldDraftEndDate),
		RequestType: r.PostFormValue(fieldDraftRequestType),
		Reason:      r.PostFormValue(fieldDraftReason),
		Status:      r.PostFormValue(fieldDraftStatus),
	}

	modal := request.NewModal(h.api, h.logger)
	if err := modal.Restore(draft); err != nil {
		h.fail(w, r, session, err)
		return
	}
	if err := modal.Submit(r.Context(), session.Credentials); err != nil {
		h.fail(w, r, session, err)
		return
	}

	if !modal.IsOpen() {
		h.loader.Invalidate(session.ID)
		if err := h.flash.Add(w, r, flash.KindNotice, requestCreatedNotice); err != nil {
			h.logger.Error("failed to save flash message", slog.String("error", err.Error()))
		}
		redirect(w, r, listingURL(q, false))
		return
	}

	// 再表示のときだけ担当者候補を読み込む
	if err := modal.ReloadEmployees(r.Context(), session.Credentials); err != nil {
		h.fail(w, r, session, err)
		return
	}

	page := h.newPage(w, r, listing.NewState(q))
	if !h.loadListing(w, r, session, q, &page) {
		return
	}
	page.Modal = newModalView(modal, q, page.CSRFToken)
	render(w, h.logger, http.StatusUnprocessableEntity, pageVacations, page)
}

// newPage は一覧画面のうち取得結果に依存しない部分を組み立てる。
func (h *VacationHandler) newPage(w http.ResponseWriter, r *http.Request, state *listing.State) vacationsPage {
	q := state.Query
	v := q.Values()

	statuses := make([]option, len(statusFilters))
	for i, o := range statusFilters {
		o.Selected = o.Value == q.Status
		statuses[i] = o
	}

	return vacationsPage{
		layoutData: layoutData{
			Title:     "Vacation Requests",
			CSRFToken: middleware.CSRFToken(r),
			Flash:     h.flash.Pop(w, r),
		},
		PendingSearch: state.PendingSearch,
		StartDate:     q.StartDate,
		EndDate:       q.EndDate,
		NewRequestURL: listingURL(q, true),
		SearchHidden:  hiddenFields(v, listing.ParamPerPage, listing.ParamStatus, listing.ParamStartDate, listing.ParamEndDate),
		FilterHidden:  hiddenFields(v, listing.ParamPage, listing.ParamPerPage, listing.ParamSearch),
		StatusOptions: statuses,
	}
}

// loadListing は一覧を取得してpageに反映する。
// レスポンスを書き込んだ場合はfalseを返し、呼び出し元はそれ以上書き込んではならない。
func (h *VacationHandler) loadListing(w http.ResponseWriter, r *http.Request, session *model.Session, q listing.Query, page *vacationsPage) bool {
	result, err := h.loader.Load(r.Context(), session, q)
	switch {
	case err == nil:
		page.Rows = toRows(result.Records)
		page.Pager = newPager(q, result.Pagination)
		return true
	case errors.Is(err, apiclient.ErrUnauthorized):
		h.expire(w, r, session)
		return false
	default:
		h.logger.Error("failed to load time off requests", slog.String("error", err.Error()))
		page.ListError = model.NewListingFetchFailedError(listingErrorMessage(err))
		return true
	}
}

// fail はモーダル操作のエラーに応答する。401ならセッションを終了する。
func (h *VacationHandler) fail(w http.ResponseWriter, r *http.Request, session *model.Session, err error) {
	if errors.Is(err, apiclient.ErrUnauthorized) {
		h.expire(w, r, session)
		return
	}
	h.logger.Error("time off request form failed", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// expire はAPIに認証情報を拒否されたセッションを終了し、サインイン画面へ誘導する。
func (h *VacationHandler) expire(w http.ResponseWriter, r *http.Request, session *model.Session) {
	h.logger.Info("upstream rejected session credentials, signing out")
	h.endSession(w, r, session.ID)
	if err := h.flash.Add(w, r, flash.KindAlert, model.NewSessionExpiredError().Message); err != nil {
		h.logger.Error("failed to save flash message", slog.String("error", err.Error()))
	}
	redirect(w, r, pathSignIn)
}

// listingErrorMessage は一覧取得エラーのバナー文言を返す。
func listingErrorMessage(err error) string {
	var te *apiclient.TransportError
	if errors.As(err, &te) {
		return "Failed to fetch"
	}
	var se *apiclient.StatusError
	if errors.As(err, &se) {
		return fmt.Sprintf("Request failed with status code %d", se.StatusCode)
	}
	return "Failed to load time off requests"
}
