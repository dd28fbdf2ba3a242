package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	c "github.com/d0ngw/blogviews/common"
	"github.com/rs/cors"
	"golang.org/x/net/netutil"
)

type tcpKeepAliveListener struct {
	*net.TCPListener
}

// Accept 接受连接
func (ln tcpKeepAliveListener) Accept() (net.Conn, error) {
	tc, err := ln.AcceptTCP()
	if err != nil {
		return nil, err
	}
	if err = tc.SetKeepAlive(true); err != nil {
		return nil, err
	}
	if err = tc.SetKeepAlivePeriod(3 * time.Minute); err != nil {
		return nil, err
	}
	return tc, nil
}

// GraceableHandler 安全地关闭的处理器
type GraceableHandler struct {
	handler   http.Handler
	waitGroup *sync.WaitGroup
}

func (p *GraceableHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.waitGroup.Add(1)
	defer p.waitGroup.Done()

	p.handler.ServeHTTP(w, r)
}

// Service Http服务
type Service struct {
	c.BaseService
	Conf         *Config
	listener     net.Listener
	graceHandler *GraceableHandler
	server       *http.Server
	lock         sync.Mutex
}

// NewService create Service
func NewService(name string, conf *Config) *Service {
	return &Service{
		BaseService: c.BaseService{SName: name},
		Conf:        conf,
	}
}

// Init 初始化Http服务
func (p *Service) Init() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.Conf == nil {
		return errors.New("no http conf")
	}
	handler, err := p.Conf.Handler()
	if err != nil {
		return err
	}

	graceHandler := &GraceableHandler{
		handler:   handler,
		waitGroup: &sync.WaitGroup{}}

	if p.Conf.Addr == "" {
		p.Conf.Addr = ":http"
	}
	p.graceHandler = graceHandler
	p.server = &http.Server{
		Addr:         p.Conf.Addr,
		ReadTimeout:  time.Duration(p.Conf.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(p.Conf.WriteTimeout) * time.Second,
		Handler:      graceHandler}
	return nil
}

// Handler 用注册的处理函数和middleware构建http.Handler
func (p *Config) Handler() (http.Handler, error) {
	p.controllerMux.RLock()
	defer p.controllerMux.RUnlock()

	serveMux := http.NewServeMux()
	for pattern, handler := range p.handles {
		if handler == nil || handler.handlerFunc == nil {
			return nil, errors.New("can't bind nil handler to path " + pattern)
		}
		serveMux.Handle(pattern, p.handleWithMiddleware(handler))
	}

	if p.CORS == nil || len(p.CORS.AllowedOrigins) == 0 {
		return serveMux, nil
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   p.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowCredentials: p.CORS.AllowCredentials,
		MaxAge:           p.CORS.MaxAge,
	})
	return corsHandler.Handler(serveMux), nil
}

// handleWithMiddleware 依次调用各个middleware,处理函数专用的middleware在前
func (p *Config) handleWithMiddleware(handler *handlerWithMiddleware) http.HandlerFunc {
	originHandler := func(w http.ResponseWriter, r *http.Request) {
		if err, ok := ErrorFromRequestContext(r); ok {
			c.Debugf("stop handle %s,cause by error:%v", r.RequestURI, err)
			return
		}
		handler.handlerFunc(w, r)
	}

	middlewares := make([]Middleware, 0, len(p.middlewares)+len(handler.middlewares))
	middlewares = append(middlewares, p.middlewares...)
	middlewares = append(middlewares, handler.middlewares...)

	h := MiddlewareFunc(originHandler)
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i].Handle(h)
	}
	return http.HandlerFunc(h)
}

// Addr 实际监听的地址,未启动时返回nil
func (p *Service) Addr() net.Addr {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}

// Start 启动Http服务,开始端口监听和服务处理
func (p *Service) Start() bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	c.Infof("listen at %s", p.Conf.Addr)
	ln, err := net.Listen("tcp", p.Conf.Addr)
	if err != nil {
		c.Errorf("listen at %s fail,error:%v", p.Conf.Addr, err)
		return false
	}

	var listener net.Listener = tcpKeepAliveListener{ln.(*net.TCPListener)}
	if p.Conf.MaxConns > 0 {
		listener = netutil.LimitListener(listener, p.Conf.MaxConns)
	}
	p.listener = listener

	p.graceHandler.waitGroup.Add(1)
	go func(server *http.Server, wg *sync.WaitGroup) {
		defer wg.Done()
		err := server.Serve(listener)
		if err != nil {
			var errLevel = c.Error
			if errors.Is(err, http.ErrServerClosed) || errors.Is(err, net.ErrClosed) {
				errLevel = c.Info
			}
			c.Logf(errLevel, "server.Serve return with %v", err)
		}
	}(p.server, p.graceHandler.waitGroup)
	return true
}

// Stop 停止Http服务,关闭端口监听并等待正在处理的请求
func (p *Service) Stop() bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.server == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(p.Conf.WriteTimeout+1)*time.Second)
	defer cancel()
	if err := p.server.Shutdown(ctx); err != nil {
		c.Errorf("shutdown error:%v", err)
	}

	//等待所有的服务
	c.Infof("waiting shutdown")
	p.graceHandler.waitGroup.Wait()
	c.Infof("finish shutdown")

	p.listener = nil
	return true
}
