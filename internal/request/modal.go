// Package request は休暇申請作成モーダルの状態遷移を提供する。
package request

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/timeoff/internal/apiclient"
	"github.com/hitoshi/timeoff/internal/model"
)

// Phase はモーダルの状態。
type Phase int

const (
	PhaseClosed Phase = iota
	PhaseLoadingEmployees
	PhaseReady
	PhaseSubmitting
)

func (p Phase) String() string {
	switch p {
	case PhaseClosed:
		return "closed"
	case PhaseLoadingEmployees:
		return "loading_employees"
	case PhaseReady:
		return "ready"
	case PhaseSubmitting:
		return "submitting"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ErrInvalidTransition は現在の状態で許可されない操作を表す。
var ErrInvalidTransition = errors.New("invalid modal transition")

// API はモーダルが利用するAPI操作。
type API interface {
	ListUsers(ctx context.Context, creds model.Credentials) ([]model.Employee, error)
	CreateTimeOffRequest(ctx context.Context, creds model.Credentials, draft model.NewRequestDraft) error
}

// Modal は作成モーダル1回分の状態を保持する。
// Closed → Open(LoadingEmployees) → Open(Ready) → Submitting → Closed | Open(Ready, Error)
// フォーム送信時は Closed → Restore → Open(Ready) から送信する。
type Modal struct {
	api    API
	logger *slog.Logger

	phase     Phase
	employees []model.Employee
	draft     model.NewRequestDraft
	notice    *model.APIError
	err       *model.APIError
}

// NewModal は閉じた状態のModalを生成する。
func NewModal(api API, logger *slog.Logger) *Modal {
	return &Modal{api: api, logger: logger, phase: PhaseClosed}
}

// Open はモーダルを開き、担当者候補を読み込む。
// 読み込みに失敗しても空の候補でReadyになり、通知を表示する。
// 401の場合のみ apiclient.ErrUnauthorized を返す。
func (m *Modal) Open(ctx context.Context, creds model.Credentials) error {
	if m.phase != PhaseClosed {
		return fmt.Errorf("open from %s: %w", m.phase, ErrInvalidTransition)
	}
	m.notice = nil
	m.err = nil
	return m.loadEmployees(ctx, creds)
}

// Restore は送信されたフォームの内容でモーダルをReadyにする。
// 担当者候補はフォーム表示時に読み込み済みのため、ここでは取得しない。
func (m *Modal) Restore(d model.NewRequestDraft) error {
	if m.phase != PhaseClosed {
		return fmt.Errorf("restore from %s: %w", m.phase, ErrInvalidTransition)
	}
	m.phase = PhaseReady
	m.draft = d
	m.notice = nil
	m.err = nil
	return nil
}

// ReloadEmployees はReady状態のまま担当者候補を読み込み直す。
// 送信失敗後にフォームを再表示するときに使う。ドラフトと送信エラーは保持する。
func (m *Modal) ReloadEmployees(ctx context.Context, creds model.Credentials) error {
	if m.phase != PhaseReady {
		return fmt.Errorf("reload employees in %s: %w", m.phase, ErrInvalidTransition)
	}
	m.notice = nil
	return m.loadEmployees(ctx, creds)
}

func (m *Modal) loadEmployees(ctx context.Context, creds model.Credentials) error {
	m.phase = PhaseLoadingEmployees

	employees, err := m.api.ListUsers(ctx, creds)
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			m.close()
			return err
		}
		m.logger.Warn("failed to load employees",
			slog.String("error", err.Error()),
		)
		employees = nil
		m.notice = model.NewEmployeesFetchFailedError()
	}

	m.employees = employees
	m.phase = PhaseReady
	return nil
}

// SetDraft は入力中の申請内容を差し替える。Ready状態でのみ有効。
func (m *Modal) SetDraft(d model.NewRequestDraft) error {
	if m.phase != PhaseReady {
		return fmt.Errorf("edit draft in %s: %w", m.phase, ErrInvalidTransition)
	}
	m.draft = d
	return nil
}

// Submit はドラフトをAPIへ送信する。
// 成功時はモーダルを閉じてドラフトを空に戻す。
// 失敗時はReadyに戻り、エラーを表示してドラフトを保持する。
// 401の場合のみ apiclient.ErrUnauthorized を返す。
func (m *Modal) Submit(ctx context.Context, creds model.Credentials) error {
	if m.phase != PhaseReady {
		return fmt.Errorf("submit from %s: %w", m.phase, ErrInvalidTransition)
	}
	m.phase = PhaseSubmitting
	m.err = nil

	err := m.api.CreateTimeOffRequest(ctx, creds, m.draft)
	if err == nil {
		m.close()
		return nil
	}
	if errors.Is(err, apiclient.ErrUnauthorized) {
		m.close()
		return err
	}

	m.phase = PhaseReady
	m.err = submitError(err)
	m.logger.Info("time off request rejected",
		slog.String("error", err.Error()),
	)
	return nil
}

// Cancel はモーダルを閉じてドラフトを空に戻す。
func (m *Modal) Cancel() {
	m.close()
}

func (m *Modal) close() {
	m.phase = PhaseClosed
	m.draft = model.NewRequestDraft{}
	m.err = nil
	m.notice = nil
	m.employees = nil
}

// Phase は現在の状態を返す。
func (m *Modal) Phase() Phase { return m.phase }

// IsOpen はモーダルが開いているかを返す。
func (m *Modal) IsOpen() bool { return m.phase != PhaseClosed }

// Employees は担当者候補を返す。
func (m *Modal) Employees() []model.Employee { return m.employees }

// Draft は入力中の申請内容を返す。
func (m *Modal) Draft() model.NewRequestDraft { return m.draft }

// Err は直近の送信エラーを返す。なければnil。
func (m *Modal) Err() *model.APIError { return m.err }

// Notice は担当者読み込み失敗などの通知を返す。なければnil。
func (m *Modal) Notice() *model.APIError { return m.notice }

// submitError は送信エラーを画面表示用のエラーに変換する。
func submitError(err error) *model.APIError {
	var ve *apiclient.ValidationError
	if errors.As(err, &ve) {
		return model.NewCreateRequestFailedError(ve.Message())
	}
	return model.NewCreateRequestFailedError("")
}
