package session

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func newTestTracker(t *testing.T, now time.Time) *Tracker {
	conf := &Config{Key: testKey}
	require.NoError(t, conf.Parse())
	tracker, err := NewTracker(conf)
	require.NoError(t, err)
	tracker.now = func() time.Time { return now }
	return tracker
}

func requestWith(cookies ...*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/views/intro-to-go", nil)
	for _, cookie := range cookies {
		r.AddCookie(cookie)
	}
	return r
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == DefaultCookieName {
			return cookie
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func TestRecord(t *testing.T) {
	a := Record{"a": true, "b": false}
	assert.True(t, a.Equal(Record{"b": false, "a": true}))
	assert.False(t, a.Equal(Record{"a": true}))
	assert.False(t, a.Equal(Record{"a": true, "b": true}))
	assert.False(t, a.Equal(Record{"a": true, "c": false}))
	assert.True(t, Record{}.Equal(nil))

	assert.Equal(t, Record{"a": true}, a.Counted())
	assert.Equal(t, Record{}, Record(nil).Counted())

	cloned := a.Clone()
	cloned["a"] = false
	assert.True(t, a.Viewed("a"))
	assert.Nil(t, Record(nil).Clone())
}

func TestEnsureTracked(t *testing.T) {
	record := EnsureTracked(nil, []string{"a", "b", ""}, "c")
	assert.Equal(t, Record{"a": false, "b": false, "c": false}, record)

	record = EnsureTracked(Record{"a": true}, []string{"b"}, "c")
	assert.Equal(t, Record{"a": true, "c": false}, record)

	record = EnsureTracked(Record{"a": true}, nil, "a")
	assert.Equal(t, Record{"a": true}, record)
}

func TestCodec(t *testing.T) {
	codec, err := NewCodec([]byte(testKey))
	require.NoError(t, err)
	now := time.Unix(1700000000, 0)

	token, err := codec.Encode(Record{"intro-to-go": true, "channels": false}, now.Add(time.Hour))
	require.NoError(t, err)
	assert.NotContains(t, token, "intro-to-go")

	record, expires, err := codec.Decode(token, now)
	require.NoError(t, err)
	assert.Equal(t, Record{"intro-to-go": true}, record)
	assert.Equal(t, now.Add(time.Hour).Unix(), expires.Unix())

	_, _, err = codec.Decode(token, now.Add(time.Hour))
	assert.Equal(t, ErrExpired, err)

	tampered := []byte(token)
	tampered[len(tampered)/2] ^= 1
	for _, garbage := range []string{"", "garbage", "%%%", token[:len(token)-2], string(tampered)} {
		_, _, err = codec.Decode(garbage, now)
		assert.Error(t, err, garbage)
	}

	other, err := NewCodec([]byte("fedcba9876543210"))
	require.NoError(t, err)
	_, _, err = other.Decode(token, now)
	assert.Equal(t, ErrInvalidToken, err)

	_, err = NewCodec([]byte("short"))
	assert.Error(t, err)
}

func TestCodecEmptyRecord(t *testing.T) {
	codec, err := NewCodec([]byte(testKey))
	require.NoError(t, err)
	now := time.Now()

	token, err := codec.Encode(nil, now.Add(time.Minute))
	require.NoError(t, err)
	record, _, err := codec.Decode(token, now)
	require.NoError(t, err)
	assert.NotNil(t, record)
	assert.Empty(t, record)
}

func TestTrackerSaveLoad(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tracker := newTestTracker(t, now)

	record, ok := tracker.Load(requestWith())
	assert.False(t, ok)
	assert.Nil(t, record)

	w := httptest.NewRecorder()
	require.NoError(t, tracker.Save(w, requestWith(), Record{"intro-to-go": true}))
	cookie := sessionCookie(t, w)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 7*24*3600, cookie.MaxAge)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.True(t, cookie.HttpOnly)

	record, ok = tracker.Load(requestWith(cookie))
	require.True(t, ok)
	assert.Equal(t, Record{"intro-to-go": true}, record)

	// 相同的记录不重新写cookie
	w = httptest.NewRecorder()
	require.NoError(t, tracker.Save(w, requestWith(cookie), Record{"intro-to-go": true}))
	assert.Empty(t, w.Result().Cookies())

	// 未计数的文章不影响保存的内容
	w = httptest.NewRecorder()
	require.NoError(t, tracker.Save(w, requestWith(cookie), Record{"intro-to-go": true, "channels": false}))
	assert.Empty(t, w.Result().Cookies())

	w = httptest.NewRecorder()
	require.NoError(t, tracker.Save(w, requestWith(cookie), Record{"intro-to-go": true, "channels": true}))
	assert.NotEmpty(t, w.Result().Cookies())
}

func TestTrackerCookieSize(t *testing.T) {
	tracker := newTestTracker(t, time.Unix(1700000000, 0))
	record := Record{"intro-to-go": true}
	for i := 0; i < 500; i++ {
		record[fmt.Sprintf("article-%03d", i)] = false
	}

	w := httptest.NewRecorder()
	require.NoError(t, tracker.Save(w, requestWith(), record))
	cookie := sessionCookie(t, w)
	assert.Less(t, len(cookie.String()), 256)

	loaded, ok := tracker.Load(requestWith(cookie))
	require.True(t, ok)
	assert.Equal(t, Record{"intro-to-go": true}, loaded)
}

func TestTrackerExpiry(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tracker := newTestTracker(t, now)

	w := httptest.NewRecorder()
	require.NoError(t, tracker.Save(w, requestWith(), Record{"intro-to-go": true}))
	cookie := sessionCookie(t, w)

	tracker.now = func() time.Time { return now.Add(DefaultMaxAge - time.Second) }
	_, ok := tracker.Load(requestWith(cookie))
	assert.True(t, ok)

	tracker.now = func() time.Time { return now.Add(DefaultMaxAge) }
	_, ok = tracker.Load(requestWith(cookie))
	assert.False(t, ok)
}

func TestTrackerGarbage(t *testing.T) {
	tracker := newTestTracker(t, time.Now())
	r := requestWith(&http.Cookie{Name: DefaultCookieName, Value: "not-a-token"})
	record, ok := tracker.Load(r)
	assert.False(t, ok)
	assert.Nil(t, record)

	w := httptest.NewRecorder()
	require.NoError(t, tracker.Save(w, r, Record{"intro-to-go": true}))
	record, ok = tracker.Load(requestWith(sessionCookie(t, w)))
	require.True(t, ok)
	assert.Equal(t, Record{"intro-to-go": true}, record)
}

func TestConfigParse(t *testing.T) {
	conf := &Config{}
	require.NoError(t, conf.Parse())
	assert.Equal(t, DefaultCookieName, conf.CookieName)
	assert.Equal(t, 7*24*3600, conf.MaxAge)
	assert.Len(t, conf.key, 32)
	assert.True(t, *conf.HTTPOnly)

	assert.Error(t, (&Config{Key: "short"}).Parse())
	assert.Error(t, (&Config{Key: testKey, CookieName: "bad name"}).Parse())
	assert.Error(t, (&Config{Key: testKey, MaxAge: -1}).Parse())

	_, err := NewTracker(&Config{Key: testKey})
	assert.Error(t, err)
}
