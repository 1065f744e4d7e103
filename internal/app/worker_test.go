package app

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

// syncBuffer はゴルーチンから書き込まれるログ用のバッファ。
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// TestSessionCleanupJob_DeletesExpiredSessionsUntilCancelled はworkerが組み立てるジョブが
// 起動直後に期限切れセッションを削除し、ctxのキャンセルで停止することを検証する。
func TestSessionCleanupJob_DeletesExpiredSessionsUntilCancelled(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at <= \$1`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	logs := &syncBuffer{}
	job := sessionCleanupJob(db, slog.New(slog.NewJSONHandler(logs, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, time.Hour)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for mock.ExpectationsWereMet() != nil {
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("expired sessions were not deleted: %v", mock.ExpectationsWereMet())
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not stop after cancel")
	}

	if !strings.Contains(logs.String(), `"deleted_count":2`) {
		t.Errorf("deleted_count not logged: %s", logs.String())
	}
}
