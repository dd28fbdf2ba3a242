package session

import (
	"net/http"
	"time"

	c "github.com/d0ngw/blogviews/common"
	"github.com/pkg/errors"
)

// Tracker 通过cookie读取和保存访客的会话记录
type Tracker struct {
	codec      *Codec
	cookieName string
	maxAge     time.Duration
	secure     bool
	httpOnly   bool
	now        func() time.Time
}

// NewTracker create Tracker,conf必须已经Parse
func NewTracker(conf *Config) (*Tracker, error) {
	return NewTrackerWithClock(conf, time.Now)
}

// NewTrackerWithClock create Tracker,使用now取得当前时间
func NewTrackerWithClock(conf *Config, now func() time.Time) (*Tracker, error) {
	if conf == nil || conf.key == nil {
		return nil, errors.New("session config not parsed")
	}
	if now == nil {
		now = time.Now
	}
	codec, err := NewCodec(conf.key)
	if err != nil {
		return nil, err
	}
	return &Tracker{
		codec:      codec,
		cookieName: conf.CookieName,
		maxAge:     time.Duration(conf.MaxAge) * time.Second,
		secure:     conf.Secure,
		httpOnly:   conf.HTTPOnly == nil || *conf.HTTPOnly,
		now:        now,
	}, nil
}

// Load 读取请求中的会话记录.没有cookie、无法解码或者已经过期时返回false
func (p *Tracker) Load(r *http.Request) (Record, bool) {
	cookie, err := r.Cookie(p.cookieName)
	if err != nil {
		return nil, false
	}
	record, _, err := p.codec.Decode(cookie.Value, p.now())
	if err != nil {
		if c.DebugEnabled() {
			c.Debugf("ignore session from %s,err:%v", r.RemoteAddr, err)
		}
		return nil, false
	}
	return record, true
}

// Save 保存会话记录中已经计数的文章,并重新开始计算有效期.
// 已计数的文章与请求中已有的记录完全相同时不做任何事情.
func (p *Tracker) Save(w http.ResponseWriter, r *http.Request, record Record) error {
	if previous, ok := p.Load(r); ok && previous.Equal(record.Counted()) {
		return nil
	}
	now := p.now()
	expires := now.Add(p.maxAge)
	token, err := p.codec.Encode(record, expires)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     p.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires.UTC(),
		MaxAge:   int(p.maxAge / time.Second),
		Secure:   p.secure,
		HttpOnly: p.httpOnly,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}
