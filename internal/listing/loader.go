package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/hitoshi/timeoff/internal/metrics"
	"github.com/hitoshi/timeoff/internal/model"
)

// ErrNoSession は認証済みセッションなしで取得しようとした場合のエラー。
var ErrNoSession = errors.New("listing requires an authenticated session")

const (
	defaultCacheSize = 1024
	// sessionStateTTL はセッションごとの世代情報を保持する期間。
	sessionStateTTL = 15 * time.Minute
)

// Fetcher は一覧を1ページ取得するデータソース。
type Fetcher interface {
	ListTimeOffRequests(ctx context.Context, creds model.Credentials, values url.Values) (*model.TimeOffPage, error)
}

// LoaderConfig はLoaderの設定。
type LoaderConfig struct {
	CacheTTL  time.Duration // 0以下でキャッシュ無効
	CacheSize int
}

type cacheKey struct {
	SessionID string
	Query     Query
}

// sessionState はセッションごとに最後に発行したリクエストの世代を保持する。
type sessionState struct {
	generation uint64
	key        string
	epoch      uint64
}

// Loader はFetcherをキャッシュ・重複排除・世代チェックで包む。
type Loader struct {
	fetcher Fetcher
	metrics metrics.MetricsCollector
	logger  *slog.Logger

	cache    *expirable.LRU[cacheKey, *model.TimeOffPage]
	cacheTTL time.Duration
	group    singleflight.Group

	mu       sync.Mutex
	seq      uint64
	sessions *expirable.LRU[string, *sessionState]
}

// NewLoader はLoaderを生成する。
func NewLoader(fetcher Fetcher, cfg LoaderConfig, collector metrics.MetricsCollector, logger *slog.Logger) *Loader {
	if collector == nil {
		collector = metrics.Nop{}
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	l := &Loader{
		fetcher:  fetcher,
		metrics:  collector,
		logger:   logger,
		cacheTTL: cfg.CacheTTL,
		sessions: expirable.NewLRU[string, *sessionState](size, nil, sessionStateTTL),
	}
	if cfg.CacheTTL > 0 {
		l.cache = expirable.NewLRU[cacheKey, *model.TimeOffPage](size, nil, cfg.CacheTTL)
	}
	return l
}

// Load はセッションの認証情報でQueryに対応するページを返す。
// TTL内の同一条件はキャッシュから返し、同時に発生した同一条件の取得は1回にまとめる。
// 取得中に同じセッションで別条件のリクエストが発行された場合、結果はそのリクエストには返すがキャッシュしない。
func (l *Loader) Load(ctx context.Context, sess *model.Session, q Query) (*model.TimeOffPage, error) {
	if !sess.IsAuthenticated() {
		return nil, ErrNoSession
	}

	ck := cacheKey{SessionID: sess.ID, Query: q}
	if l.cache != nil {
		if page, ok := l.cache.Get(ck); ok {
			l.metrics.RecordCacheHit()
			l.markLatest(sess.ID, q.Encode())
			return page, nil
		}
		l.metrics.RecordCacheMiss()
	}

	key := q.Encode()
	gen, epoch := l.begin(sess.ID, key)

	creds := sess.Credentials
	v, err, _ := l.group.Do(sess.ID+"\x00"+key, func() (any, error) {
		return l.fetcher.ListTimeOffRequests(context.WithoutCancel(ctx), creds, q.APIValues())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load listing: %w", err)
	}
	page := v.(*model.TimeOffPage)

	stale, cacheable := l.finish(sess.ID, key, gen, epoch)
	if stale {
		l.metrics.RecordStaleDiscard()
		l.logger.Debug("superseded listing result not cached",
			slog.Uint64("generation", gen),
		)
		return page, nil
	}
	if cacheable && l.cache != nil {
		l.cache.Add(ck, page)
	}
	return page, nil
}

// Invalidate はセッションのキャッシュ済みページをすべて破棄する。
// 取得中のレスポンスもキャッシュされなくなる。
func (l *Loader) Invalidate(sessionID string) {
	l.mu.Lock()
	if st, ok := l.sessions.Get(sessionID); ok {
		st.epoch++
	}
	l.mu.Unlock()

	if l.cache == nil {
		return
	}
	removed := 0
	for _, k := range l.cache.Keys() {
		if k.SessionID == sessionID {
			if l.cache.Remove(k) {
				removed++
			}
		}
	}
	l.logger.Debug("listing cache invalidated", slog.Int("removed", removed))
}

// Forget はキャッシュに加えてセッションの世代情報も破棄する。サインアウト時に使う。
func (l *Loader) Forget(sessionID string) {
	l.Invalidate(sessionID)
	l.mu.Lock()
	l.sessions.Remove(sessionID)
	l.mu.Unlock()
}

// begin は新しい世代を発行し、そのセッションの最新リクエストとして記録する。
func (l *Loader) begin(sessionID, key string) (generation, epoch uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	st, ok := l.sessions.Get(sessionID)
	if !ok {
		st = &sessionState{}
		l.sessions.Add(sessionID, st)
	}
	st.generation = l.seq
	st.key = key
	return st.generation, st.epoch
}

// markLatest はキャッシュヒットしたリクエストも最新として記録する。
// 古い条件の取得中レスポンスは以後staleになる。
func (l *Loader) markLatest(sessionID, key string) {
	l.begin(sessionID, key)
}

// finish は取得結果が最新かどうかと、キャッシュしてよいかを判定する。
// 条件が同じ結果は世代が古くても有効とみなす。
func (l *Loader) finish(sessionID, key string, generation, epoch uint64) (stale, cacheable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.sessions.Get(sessionID)
	if !ok {
		return false, false
	}
	if st.generation != generation && st.key != key {
		return true, false
	}
	return false, st.epoch == epoch
}
