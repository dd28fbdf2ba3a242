package http

import (
	"net/http"
	"runtime/debug"
	"time"

	c "github.com/d0ngw/blogviews/common"
)

// MiddlewareFunc 处理函数
type MiddlewareFunc func(http.ResponseWriter, *http.Request)

// Middleware 定义接口
type Middleware interface {
	// Handle 处理,需要继续处理时调用next
	Handle(next MiddlewareFunc) MiddlewareFunc
}

// MiddlewareHandle 把函数转为Middleware
type MiddlewareHandle func(next MiddlewareFunc) MiddlewareFunc

// Handle implements Middleware
func (f MiddlewareHandle) Handle(next MiddlewareFunc) MiddlewareFunc {
	return f(next)
}

type statusWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

// AccessLogMiddleware 记录访问日志
type AccessLogMiddleware struct{}

// Handle implements Middleware
func (p *AccessLogMiddleware) Handle(next MiddlewareFunc) MiddlewareFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next(sw, r)
		if !c.InfoEnabled() {
			return
		}
		status := sw.status
		if status == 0 {
			status = http.StatusOK
		}
		c.Infof("%s %s %s %d %d %v", r.RemoteAddr, r.Method, r.URL.Path, status, sw.size, time.Since(st))
	}
}

// RecoverMiddleware 处理panic,返回500
type RecoverMiddleware struct{}

// Handle implements Middleware
func (p *RecoverMiddleware) Handle(next MiddlewareFunc) MiddlewareFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				c.Errorf("handle %s %s panic:%v\n%s", r.Method, r.URL.Path, err, debug.Stack())
				RenderJSONStatus(w, http.StatusInternalServerError, &Resp{Msg: "internal error"})
			}
		}()
		next(w, r)
	}
}

// AuthMiddleware 使用请求头中的token认证,认证失败时返回403
type AuthMiddleware struct {
	Header string
	Auth   AuthService
}

// Handle implements Middleware
func (p *AuthMiddleware) Handle(next MiddlewareFunc) MiddlewareFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := p.Auth.AuthToken(r.Header.Get(p.Header)); err != nil {
			c.Warnf("auth %s %s from %s fail,err:%v", r.Method, r.URL.Path, r.RemoteAddr, err)
			RenderJSONStatus(w, http.StatusForbidden, &Resp{Msg: err.Error()})
			next(w, RequestWithError(r, err))
			return
		}
		next(w, r)
	}
}
