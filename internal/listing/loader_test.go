package listing

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hitoshi/timeoff/internal/model"
)

type mockFetcher struct {
	calls  atomic.Int32
	listFn func(ctx context.Context, creds model.Credentials, values url.Values) (*model.TimeOffPage, error)
}

func (m *mockFetcher) ListTimeOffRequests(ctx context.Context, creds model.Credentials, values url.Values) (*model.TimeOffPage, error) {
	m.calls.Add(1)
	if m.listFn != nil {
		return m.listFn(ctx, creds, values)
	}
	return &model.TimeOffPage{Pagination: model.DefaultPagination(10)}, nil
}

type countingCollector struct {
	hits, misses, stale atomic.Int32
}

func (c *countingCollector) RecordUpstreamCall(string, int, time.Duration) {}
func (c *countingCollector) RecordCacheHit()                               { c.hits.Add(1) }
func (c *countingCollector) RecordCacheMiss()                              { c.misses.Add(1) }
func (c *countingCollector) RecordStaleDiscard()                           { c.stale.Add(1) }

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func testSession(id string) *model.Session {
	return &model.Session{
		ID:          id,
		Credentials: model.Credentials{AccessToken: "tok-" + id, Client: "cli", UID: id + "@example.com"},
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

func newTestLoader(f Fetcher, ttl time.Duration, c *countingCollector) *Loader {
	var buf bytes.Buffer
	if c == nil {
		c = &countingCollector{}
	}
	return NewLoader(f, LoaderConfig{CacheTTL: ttl, CacheSize: 16}, c, newTestLogger(&buf))
}

func TestLoader_PassesCredentialsAndAPIValues(t *testing.T) {
	sess := testSession("s1")
	q := Query{Page: 2, PerPage: 25, Search: "ana", Status: "approved"}
	f := &mockFetcher{
		listFn: func(_ context.Context, creds model.Credentials, values url.Values) (*model.TimeOffPage, error) {
			if creds != sess.Credentials {
				t.Errorf("creds = %+v", creds)
			}
			if values.Encode() != q.APIValues().Encode() {
				t.Errorf("values = %s, want %s", values.Encode(), q.APIValues().Encode())
			}
			return &model.TimeOffPage{}, nil
		},
	}
	l := newTestLoader(f, time.Minute, nil)

	if _, err := l.Load(context.Background(), sess, q); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoader_NoSessionNoFetch(t *testing.T) {
	f := &mockFetcher{}
	l := newTestLoader(f, time.Minute, nil)

	if _, err := l.Load(context.Background(), nil, DefaultQuery()); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
	partial := &model.Session{ID: "x", Credentials: model.Credentials{AccessToken: "t"}}
	if _, err := l.Load(context.Background(), partial, DefaultQuery()); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession for partial credentials, got %v", err)
	}
	if f.calls.Load() != 0 {
		t.Errorf("fetch count = %d, want 0", f.calls.Load())
	}
}

func TestLoader_CachesIdenticalTuple(t *testing.T) {
	f := &mockFetcher{}
	c := &countingCollector{}
	l := newTestLoader(f, time.Minute, c)
	sess := testSession("s1")

	for i := 0; i < 3; i++ {
		if _, err := l.Load(context.Background(), sess, DefaultQuery()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if f.calls.Load() != 1 {
		t.Errorf("fetch count = %d, want 1", f.calls.Load())
	}
	if c.hits.Load() != 2 || c.misses.Load() != 1 {
		t.Errorf("hits = %d, misses = %d", c.hits.Load(), c.misses.Load())
	}

	// 条件が1つでも違えば再取得する
	other := DefaultQuery()
	other.Page = 2
	if _, err := l.Load(context.Background(), sess, other); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.calls.Load() != 2 {
		t.Errorf("fetch count = %d, want 2", f.calls.Load())
	}
}

func TestLoader_CacheIsPerSession(t *testing.T) {
	f := &mockFetcher{}
	l := newTestLoader(f, time.Minute, nil)

	l.Load(context.Background(), testSession("a"), DefaultQuery())
	l.Load(context.Background(), testSession("b"), DefaultQuery())

	if f.calls.Load() != 2 {
		t.Errorf("fetch count = %d, want 2", f.calls.Load())
	}
}

func TestLoader_DisabledCacheAlwaysFetches(t *testing.T) {
	f := &mockFetcher{}
	l := newTestLoader(f, 0, nil)
	sess := testSession("s1")

	l.Load(context.Background(), sess, DefaultQuery())
	l.Load(context.Background(), sess, DefaultQuery())

	if f.calls.Load() != 2 {
		t.Errorf("fetch count = %d, want 2", f.calls.Load())
	}
}

func TestLoader_ErrorsAreNotCached(t *testing.T) {
	upstream := errors.New("boom")
	fail := true
	f := &mockFetcher{
		listFn: func(context.Context, model.Credentials, url.Values) (*model.TimeOffPage, error) {
			if fail {
				return nil, upstream
			}
			return &model.TimeOffPage{}, nil
		},
	}
	l := newTestLoader(f, time.Minute, nil)
	sess := testSession("s1")

	if _, err := l.Load(context.Background(), sess, DefaultQuery()); !errors.Is(err, upstream) {
		t.Fatalf("expected wrapped upstream error, got %v", err)
	}
	fail = false
	if _, err := l.Load(context.Background(), sess, DefaultQuery()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.calls.Load() != 2 {
		t.Errorf("fetch count = %d, want 2", f.calls.Load())
	}
}

func TestLoader_InvalidateDropsSessionPages(t *testing.T) {
	f := &mockFetcher{}
	l := newTestLoader(f, time.Minute, nil)
	a, b := testSession("a"), testSession("b")

	l.Load(context.Background(), a, DefaultQuery())
	l.Load(context.Background(), b, DefaultQuery())
	l.Invalidate("a")
	l.Load(context.Background(), a, DefaultQuery())
	l.Load(context.Background(), b, DefaultQuery())

	if f.calls.Load() != 3 {
		t.Errorf("fetch count = %d, want 3 (only session a refetched)", f.calls.Load())
	}

	l.Forget("a")
	l.Load(context.Background(), a, DefaultQuery())
	if f.calls.Load() != 4 {
		t.Errorf("fetch count = %d, want 4 after Forget", f.calls.Load())
	}
}

// TestLoader_SupersededResultNotCached は古い条件のレスポンスが後から届いた場合に、
// そのリクエストには返すがキャッシュしないことを検証する。
func TestLoader_SupersededResultNotCached(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f := &mockFetcher{
		listFn: func(_ context.Context, _ model.Credentials, values url.Values) (*model.TimeOffPage, error) {
			if values.Get("filters[user_name_cont]") == "old" {
				blocked := false
				once.Do(func() { blocked = true })
				if blocked {
					close(started)
					<-release
				}
			}
			return &model.TimeOffPage{Records: []model.TimeOffRequest{{ID: values.Get("filters[user_name_cont]")}}}, nil
		},
	}
	c := &countingCollector{}
	l := newTestLoader(f, time.Minute, c)
	sess := testSession("s1")

	oldQ := DefaultQuery()
	oldQ.Search = "old"
	newQ := DefaultQuery()
	newQ.Search = "new"

	type result struct {
		page *model.TimeOffPage
		err  error
	}
	resCh := make(chan result, 1)
	go func() {
		page, err := l.Load(context.Background(), sess, oldQ)
		resCh <- result{page, err}
	}()
	<-started

	page, err := l.Load(context.Background(), sess, newQ)
	if err != nil {
		t.Fatalf("newer request failed: %v", err)
	}
	if page.Records[0].ID != "new" {
		t.Errorf("newer page = %+v", page.Records)
	}

	close(release)
	old := <-resCh
	if old.err != nil {
		t.Fatalf("older request failed: %v", old.err)
	}
	if len(old.page.Records) != 1 || old.page.Records[0].ID != "old" {
		t.Errorf("older request must still get its own page, got %+v", old.page)
	}
	if c.stale.Load() != 1 {
		t.Errorf("stale discards = %d, want 1", c.stale.Load())
	}

	// 追い越された結果はキャッシュされていない
	before := f.calls.Load()
	if _, err := l.Load(context.Background(), sess, oldQ); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.calls.Load() != before+1 {
		t.Error("stale result must not be cached")
	}
}

func TestLoader_SupersededOnlyWithinSession(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	f := &mockFetcher{
		listFn: func(_ context.Context, creds model.Credentials, _ url.Values) (*model.TimeOffPage, error) {
			if creds.UID == "a@example.com" {
				close(started)
				<-release
			}
			return &model.TimeOffPage{}, nil
		},
	}
	c := &countingCollector{}
	l := newTestLoader(f, time.Minute, c)

	errCh := make(chan error, 1)
	go func() {
		_, err := l.Load(context.Background(), testSession("a"), DefaultQuery())
		errCh <- err
	}()
	<-started

	other := DefaultQuery()
	other.Page = 3
	if _, err := l.Load(context.Background(), testSession("b"), other); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(release)
	if err := <-errCh; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.stale.Load() != 0 {
		t.Errorf("another session's request must not supersede this one, stale = %d", c.stale.Load())
	}
}

func TestLoader_DeduplicatesInFlight(t *testing.T) {
	release := make(chan struct{})
	f := &mockFetcher{
		listFn: func(context.Context, model.Credentials, url.Values) (*model.TimeOffPage, error) {
			<-release
			return &model.TimeOffPage{}, nil
		},
	}
	l := newTestLoader(f, time.Minute, nil)
	sess := testSession("s1")

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Load(context.Background(), sess, DefaultQuery())
			errs <- err
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("identical in-flight requests must both succeed: %v", err)
		}
	}
	if f.calls.Load() != 1 {
		t.Errorf("fetch count = %d, want 1", f.calls.Load())
	}
}
