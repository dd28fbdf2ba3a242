package views

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/d0ngw/blogviews/content"
	"github.com/d0ngw/blogviews/counter"
	"github.com/d0ngw/blogviews/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (p *clock) Now() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now
}

func (p *clock) Add(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = p.now.Add(d)
}

// 浏览器能保存的单个cookie的最大长度
const maxCookieSize = 4096

// visitor 保存服务端设置的cookie,模拟浏览器,超过长度的cookie被丢弃
type visitor struct {
	cookies map[string]*http.Cookie
}

func newVisitor() *visitor {
	return &visitor{cookies: map[string]*http.Cookie{}}
}

func (p *visitor) view(t *testing.T, service *Service, articleID string) *Result {
	r := httptest.NewRequest(http.MethodPost, "/api/views/"+articleID, nil)
	for _, cookie := range p.cookies {
		r.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	result, err := service.View(context.Background(), w, r, articleID)
	require.NoError(t, err)
	for _, cookie := range w.Result().Cookies() {
		if len(cookie.String()) > maxCookieSize {
			continue
		}
		p.cookies[cookie.Name] = cookie
	}
	return result
}

func newTestService(t *testing.T, store counter.Store, tracker Tracker) (*Service, *clock) {
	clk := &clock{now: time.Unix(1700000000, 0)}
	if tracker == nil {
		conf := &session.Config{Key: "0123456789abcdef"}
		require.NoError(t, conf.Parse())
		var err error
		tracker, err = session.NewTrackerWithClock(conf, clk.Now)
		require.NoError(t, err)
	}
	catalog, err := content.NewCatalog([]*content.Article{{Slug: "intro-to-go"}, {Slug: "channels"}})
	require.NoError(t, err)
	service, err := NewService(store, tracker, catalog)
	require.NoError(t, err)
	return service, clk
}

func TestViewOncePerSession(t *testing.T) {
	store := counter.NewMemoryStore()
	service, _ := newTestService(t, store, nil)

	v := newVisitor()
	result := v.view(t, service, "intro-to-go")
	assert.Equal(t, &Result{Slug: "intro-to-go", Views: 1, Counted: true}, result)
	result = v.view(t, service, "intro-to-go")
	assert.Equal(t, &Result{Slug: "intro-to-go", Views: 1, Counted: false}, result)
	for i := 0; i < 5; i++ {
		v.view(t, service, "intro-to-go")
	}
	assert.Equal(t, counter.Views{"intro-to-go": 1}, service.Views(context.Background()))

	w := newVisitor()
	result = w.view(t, service, "intro-to-go")
	assert.Equal(t, int64(2), result.Views)
	assert.True(t, result.Counted)
	assert.Equal(t, counter.Views{"intro-to-go": 2}, service.Views(context.Background()))
	assert.Equal(t, int64(2), service.Count(context.Background(), "intro-to-go"))

	// 同一个会话中浏览其他文章
	result = v.view(t, service, "channels")
	assert.True(t, result.Counted)
	result = v.view(t, service, "unknown-article")
	assert.True(t, result.Counted)
	assert.Equal(t, counter.Views{"intro-to-go": 2, "channels": 1, "unknown-article": 1}, service.Views(context.Background()))
}

func TestViewSessionExpiry(t *testing.T) {
	store := counter.NewMemoryStore()
	service, clk := newTestService(t, store, nil)

	v := newVisitor()
	assert.True(t, v.view(t, service, "intro-to-go").Counted)
	clk.Add(session.DefaultMaxAge - time.Minute)
	assert.False(t, v.view(t, service, "intro-to-go").Counted)
	clk.Add(time.Minute)
	result := v.view(t, service, "intro-to-go")
	assert.True(t, result.Counted)
	assert.Equal(t, int64(2), result.Views)
}

func TestViewManyStoredArticles(t *testing.T) {
	ctx := context.Background()
	store := counter.NewMemoryStore()
	for i := 0; i < 200; i++ {
		_, err := store.Incr(ctx, fmt.Sprintf("junk-article-with-a-rather-long-slug-%03d", i))
		require.NoError(t, err)
	}
	service, _ := newTestService(t, store, nil)

	v := newVisitor()
	r := httptest.NewRequest(http.MethodPost, "/api/views/intro-to-go", nil)
	w := httptest.NewRecorder()
	_, err := service.View(ctx, w, r, "intro-to-go")
	require.NoError(t, err)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Less(t, len(cookies[0].String()), 512)
	v.cookies[cookies[0].Name] = cookies[0]

	for i := 0; i < 3; i++ {
		assert.False(t, v.view(t, service, "intro-to-go").Counted)
	}
	assert.Equal(t, int64(1), service.Count(ctx, "intro-to-go"))
}

func TestViewGarbageSession(t *testing.T) {
	store := counter.NewMemoryStore()
	service, _ := newTestService(t, store, nil)

	v := newVisitor()
	v.cookies[session.DefaultCookieName] = &http.Cookie{Name: session.DefaultCookieName, Value: "eyJpbnRyby10by1nbyI6dHJ1ZX0="}
	result := v.view(t, service, "intro-to-go")
	assert.True(t, result.Counted)
	assert.Equal(t, int64(1), result.Views)
	assert.NotEqual(t, "eyJpbnRyby10by1nbyI6dHJ1ZX0=", v.cookies[session.DefaultCookieName].Value)

	assert.False(t, v.view(t, service, "intro-to-go").Counted)
	assert.Equal(t, counter.Views{"intro-to-go": 1}, service.Views(context.Background()))
}

type failSaveTracker struct {
	saved int
}

func (p *failSaveTracker) Load(r *http.Request) (session.Record, bool) {
	return nil, false
}

func (p *failSaveTracker) Save(w http.ResponseWriter, r *http.Request, record session.Record) error {
	p.saved++
	return errors.New("save fail")
}

func TestViewSessionSaveFail(t *testing.T) {
	store := counter.NewMemoryStore()
	tracker := &failSaveTracker{}
	service, _ := newTestService(t, store, tracker)

	v := newVisitor()
	assert.True(t, v.view(t, service, "intro-to-go").Counted)
	// 会话丢失,再次计数
	assert.True(t, v.view(t, service, "intro-to-go").Counted)
	assert.Equal(t, 2, tracker.saved)
	assert.Equal(t, counter.Views{"intro-to-go": 2}, service.Views(context.Background()))
}

type brokenStore struct {
	counter.Store
	getAllErr error
	incrErr   error
}

func (p *brokenStore) GetAll(ctx context.Context) (counter.Views, error) {
	if p.getAllErr != nil {
		return nil, p.getAllErr
	}
	return p.Store.GetAll(ctx)
}

func (p *brokenStore) Incr(ctx context.Context, articleID string) (int64, error) {
	if p.incrErr != nil {
		return 0, p.incrErr
	}
	return p.Store.Incr(ctx, articleID)
}

func TestViewStoreUnavailable(t *testing.T) {
	memory := counter.NewMemoryStore()
	store := &brokenStore{Store: memory, incrErr: errors.New("connection refused")}
	service, _ := newTestService(t, store, nil)

	v := newVisitor()
	result := v.view(t, service, "intro-to-go")
	assert.Equal(t, &Result{Slug: "intro-to-go"}, result)
	assert.Empty(t, v.cookies)

	store.incrErr = nil
	result = v.view(t, service, "intro-to-go")
	assert.True(t, result.Counted)
	assert.Equal(t, int64(1), result.Views)

	store.getAllErr = errors.New("connection refused")
	assert.Equal(t, counter.Views{}, service.Views(context.Background()))
	assert.Equal(t, int64(0), service.Count(context.Background(), "intro-to-go"))
	result = v.view(t, service, "intro-to-go")
	assert.Equal(t, &Result{Slug: "intro-to-go"}, result)
}

func TestViewEmptyID(t *testing.T) {
	service, _ := newTestService(t, counter.NewMemoryStore(), nil)
	_, err := service.View(context.Background(), httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil), "")
	assert.Equal(t, counter.ErrEmptyID, err)

	_, err = NewService(nil, &failSaveTracker{}, nil)
	assert.Error(t, err)
}

func TestViewConcurrentVisitors(t *testing.T) {
	store := counter.NewMemoryStore()
	service, _ := newTestService(t, store, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := newVisitor()
			v.view(t, service, "intro-to-go")
			v.view(t, service, "intro-to-go")
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), service.Count(context.Background(), "intro-to-go"))
}

func TestPopular(t *testing.T) {
	store := counter.NewMemoryStore()
	require.NoError(t, store.ReplaceAll(context.Background(), counter.Views{"a": 5, "b": 9, "c": 5, "d": 100}))
	service, _ := newTestService(t, store, nil)

	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	draft := false
	articles := []*content.Article{
		{Slug: "a", PublishedAt: day(1)},
		{Slug: "b", PublishedAt: day(2)},
		{Slug: "c", PublishedAt: day(3)},
		{Slug: "d", PublishedAt: day(4), IsPublished: &draft},
		{Slug: "e", PublishedAt: day(1)},
		{Slug: "f", PublishedAt: day(1)},
		nil,
	}
	ranked := service.Popular(context.Background(), articles)
	var slugs []string
	for _, r := range ranked {
		slugs = append(slugs, r.Slug)
	}
	assert.Equal(t, []string{"b", "c", "a", "e", "f"}, slugs)
	assert.Equal(t, int64(9), ranked[0].Views)
}

func TestReplaceAll(t *testing.T) {
	ctx := context.Background()
	store := counter.NewMemoryStore()
	service, _ := newTestService(t, store, nil)

	require.NoError(t, service.ReplaceAll(ctx, counter.Views{"intro-to-go": 40}))
	assert.Equal(t, int64(40), service.Count(ctx, "intro-to-go"))
	assert.Error(t, service.ReplaceAll(ctx, counter.Views{"intro-to-go": -1}))

	persist := counter.NewMemoryStore()
	schedule, err := counter.NewSyncSchedule("sync", store, persist, time.Minute)
	require.NoError(t, err)
	_, err = schedule.SyncOnce(ctx)
	require.NoError(t, err)

	service.SetReplacer(schedule)
	require.NoError(t, service.ReplaceAll(ctx, counter.Views{"intro-to-go": 5}))
	assert.True(t, newVisitor().view(t, service, "intro-to-go").Counted)
	n, err := schedule.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(6), service.Count(ctx, "intro-to-go"))

	service.SetReplacer(nil)
	require.NoError(t, service.ReplaceAll(ctx, counter.Views{}))
	assert.Equal(t, counter.Views{}, service.Views(ctx))
}
