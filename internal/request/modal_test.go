package request

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/hitoshi/timeoff/internal/apiclient"
	"github.com/hitoshi/timeoff/internal/model"
)

type mockAPI struct {
	listUsersFn func(ctx context.Context, creds model.Credentials) ([]model.Employee, error)
	createFn    func(ctx context.Context, creds model.Credentials, draft model.NewRequestDraft) error
}

func (m *mockAPI) ListUsers(ctx context.Context, creds model.Credentials) ([]model.Employee, error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(ctx, creds)
	}
	return []model.Employee{{ID: "1", Name: "Ana"}}, nil
}

func (m *mockAPI) CreateTimeOffRequest(ctx context.Context, creds model.Credentials, draft model.NewRequestDraft) error {
	if m.createFn != nil {
		return m.createFn(ctx, creds, draft)
	}
	return nil
}

var creds = model.Credentials{AccessToken: "t", Client: "c", UID: "u"}

func sampleDraft() model.NewRequestDraft {
	return model.NewRequestDraft{
		UserID: "1", StartDate: "2024-07-01", EndDate: "2024-07-05",
		RequestType: "vacation", Reason: "trip", Status: "pending",
	}
}

func newTestModal(api API) (*Modal, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewModal(api, logger), &buf
}

func TestModal_StartsClosed(t *testing.T) {
	m, _ := newTestModal(&mockAPI{})
	if m.Phase() != PhaseClosed || m.IsOpen() {
		t.Errorf("phase = %s, want closed", m.Phase())
	}
}

func TestModal_OpenLoadsEmployees(t *testing.T) {
	m, _ := newTestModal(&mockAPI{})
	if err := m.Open(context.Background(), creds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Phase() != PhaseReady {
		t.Errorf("phase = %s, want ready", m.Phase())
	}
	if len(m.Employees()) != 1 || m.Employees()[0].Name != "Ana" {
		t.Errorf("employees = %+v", m.Employees())
	}
	if m.Notice() != nil {
		t.Errorf("unexpected notice: %v", m.Notice())
	}
}

func TestModal_OpenEmployeeFailureStillReady(t *testing.T) {
	api := &mockAPI{
		listUsersFn: func(context.Context, model.Credentials) ([]model.Employee, error) {
			return nil, &apiclient.StatusError{Op: "list_users", StatusCode: 500}
		},
	}
	m, logs := newTestModal(api)

	if err := m.Open(context.Background(), creds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Phase() != PhaseReady {
		t.Errorf("phase = %s, want ready", m.Phase())
	}
	if len(m.Employees()) != 0 {
		t.Errorf("employees should be empty, got %+v", m.Employees())
	}
	if m.Notice() == nil || m.Notice().Message != "Employees could not be loaded." {
		t.Errorf("notice = %v", m.Notice())
	}
	if !strings.Contains(logs.String(), `"level":"WARN"`) {
		t.Errorf("employee load failure should be logged at WARN: %s", logs.String())
	}
}

func TestModal_OpenUnauthorized(t *testing.T) {
	api := &mockAPI{
		listUsersFn: func(context.Context, model.Credentials) ([]model.Employee, error) {
			return nil, apiclient.ErrUnauthorized
		},
	}
	m, _ := newTestModal(api)

	if err := m.Open(context.Background(), creds); !errors.Is(err, apiclient.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if m.IsOpen() {
		t.Error("modal should stay closed")
	}
}

func TestModal_SubmitSuccessClosesAndResets(t *testing.T) {
	var sent model.NewRequestDraft
	api := &mockAPI{
		createFn: func(_ context.Context, c model.Credentials, d model.NewRequestDraft) error {
			if c != creds {
				t.Errorf("creds = %+v", c)
			}
			sent = d
			return nil
		},
	}
	m, _ := newTestModal(api)
	m.Open(context.Background(), creds)
	if err := m.SetDraft(sampleDraft()); err != nil {
		t.Fatalf("SetDraft: %v", err)
	}

	if err := m.Submit(context.Background(), creds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent != sampleDraft() {
		t.Errorf("sent draft = %+v", sent)
	}
	if m.Phase() != PhaseClosed {
		t.Errorf("phase = %s, want closed", m.Phase())
	}
	if !m.Draft().IsEmpty() {
		t.Errorf("draft should be reset, got %+v", m.Draft())
	}
	if m.Err() != nil {
		t.Errorf("unexpected error: %v", m.Err())
	}
}

func TestModal_SubmitValidationErrorKeepsDraft(t *testing.T) {
	api := &mockAPI{
		createFn: func(context.Context, model.Credentials, model.NewRequestDraft) error {
			return &apiclient.ValidationError{Messages: []string{"Start date is required"}}
		},
	}
	m, _ := newTestModal(api)
	m.Open(context.Background(), creds)
	d := sampleDraft()
	d.StartDate = ""
	m.SetDraft(d)

	if err := m.Submit(context.Background(), creds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Phase() != PhaseReady {
		t.Errorf("phase = %s, want ready", m.Phase())
	}
	if m.Err() == nil || m.Err().Message != "Start date is required" {
		t.Errorf("error = %v", m.Err())
	}
	if m.Draft() != d {
		t.Errorf("draft should be preserved, got %+v", m.Draft())
	}
}

func TestModal_SubmitJoinsMultipleDetails(t *testing.T) {
	api := &mockAPI{
		createFn: func(context.Context, model.Credentials, model.NewRequestDraft) error {
			return &apiclient.ValidationError{Messages: []string{"Start date is required", "User must exist"}}
		},
	}
	m, _ := newTestModal(api)
	m.Open(context.Background(), creds)

	m.Submit(context.Background(), creds)
	if m.Err().Message != "Start date is required, User must exist" {
		t.Errorf("error = %q", m.Err().Message)
	}
}

func TestModal_SubmitTransportFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"transport", &apiclient.TransportError{Op: "create_time_off_request", Err: errors.New("connection refused")}},
		{"status", &apiclient.StatusError{Op: "create_time_off_request", StatusCode: 502}},
		{"empty validation", &apiclient.ValidationError{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockAPI{
				createFn: func(context.Context, model.Credentials, model.NewRequestDraft) error { return tt.err },
			}
			m, _ := newTestModal(api)
			m.Open(context.Background(), creds)
			m.SetDraft(sampleDraft())

			if err := m.Submit(context.Background(), creds); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.Err() == nil || m.Err().Message != "Error adding request" {
				t.Errorf("error = %v", m.Err())
			}
			if m.Phase() != PhaseReady || m.Draft() != sampleDraft() {
				t.Errorf("phase = %s, draft = %+v", m.Phase(), m.Draft())
			}
		})
	}
}

func TestModal_SubmitUnauthorized(t *testing.T) {
	api := &mockAPI{
		createFn: func(context.Context, model.Credentials, model.NewRequestDraft) error {
			return apiclient.ErrUnauthorized
		},
	}
	m, _ := newTestModal(api)
	m.Open(context.Background(), creds)

	if err := m.Submit(context.Background(), creds); !errors.Is(err, apiclient.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestModal_ErrorClearedOnResubmit(t *testing.T) {
	fail := true
	api := &mockAPI{
		createFn: func(context.Context, model.Credentials, model.NewRequestDraft) error {
			if fail {
				return &apiclient.ValidationError{Messages: []string{"Start date is required"}}
			}
			return nil
		},
	}
	m, _ := newTestModal(api)
	m.Open(context.Background(), creds)
	m.Submit(context.Background(), creds)
	fail = false
	m.Submit(context.Background(), creds)

	if m.Phase() != PhaseClosed || m.Err() != nil {
		t.Errorf("phase = %s, err = %v", m.Phase(), m.Err())
	}
}

func TestModal_InvalidTransitions(t *testing.T) {
	m, _ := newTestModal(&mockAPI{})

	if err := m.Submit(context.Background(), creds); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("submit while closed: %v", err)
	}
	if err := m.SetDraft(sampleDraft()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("edit while closed: %v", err)
	}

	m.Open(context.Background(), creds)
	if err := m.Open(context.Background(), creds); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("open while open: %v", err)
	}
}

func TestModal_CancelResets(t *testing.T) {
	m, _ := newTestModal(&mockAPI{})
	m.Open(context.Background(), creds)
	m.SetDraft(sampleDraft())
	m.Cancel()

	if m.IsOpen() || !m.Draft().IsEmpty() {
		t.Errorf("phase = %s, draft = %+v", m.Phase(), m.Draft())
	}
}

func TestModal_RestoreSkipsEmployeeLoad(t *testing.T) {
	listed := 0
	api := &mockAPI{
		listUsersFn: func(context.Context, model.Credentials) ([]model.Employee, error) {
			listed++
			return nil, apiclient.ErrUnauthorized
		},
	}
	m, _ := newTestModal(api)

	if err := m.Restore(sampleDraft()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Phase() != PhaseReady || m.Draft() != sampleDraft() {
		t.Errorf("phase = %s, draft = %+v", m.Phase(), m.Draft())
	}
	if err := m.Submit(context.Background(), creds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.IsOpen() {
		t.Error("successful submit must close the modal")
	}
	if listed != 0 {
		t.Errorf("ListUsers called %d times, want 0", listed)
	}
}

func TestModal_ReloadEmployeesKeepsDraftAndError(t *testing.T) {
	api := &mockAPI{
		createFn: func(context.Context, model.Credentials, model.NewRequestDraft) error {
			return &apiclient.StatusError{Op: "create_time_off_request", StatusCode: 500}
		},
	}
	m, _ := newTestModal(api)
	m.Restore(sampleDraft())
	m.Submit(context.Background(), creds)

	if err := m.ReloadEmployees(context.Background(), creds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Phase() != PhaseReady || m.Draft() != sampleDraft() {
		t.Errorf("phase = %s, draft = %+v", m.Phase(), m.Draft())
	}
	if m.Err() == nil || m.Err().Message != "Error adding request" {
		t.Errorf("error = %v, want the submit error to survive the reload", m.Err())
	}
	if len(m.Employees()) != 1 {
		t.Errorf("employees = %+v", m.Employees())
	}
}

func TestModal_ReloadEmployeesUnauthorizedCloses(t *testing.T) {
	api := &mockAPI{
		listUsersFn: func(context.Context, model.Credentials) ([]model.Employee, error) {
			return nil, apiclient.ErrUnauthorized
		},
	}
	m, _ := newTestModal(api)
	m.Restore(sampleDraft())

	if err := m.ReloadEmployees(context.Background(), creds); !errors.Is(err, apiclient.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if m.IsOpen() {
		t.Error("modal must close on 401")
	}
}

func TestModal_RestoreAndReloadTransitions(t *testing.T) {
	m, _ := newTestModal(&mockAPI{})

	if err := m.ReloadEmployees(context.Background(), creds); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("reload while closed: %v", err)
	}
	m.Restore(sampleDraft())
	if err := m.Restore(sampleDraft()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("restore while open: %v", err)
	}
}
