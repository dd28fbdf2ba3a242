// Package http 提供基本的http服务
package http

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	c "github.com/d0ngw/blogviews/common"
)

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`   //允许的来源,为空时不启用跨域
	AllowCredentials bool     `yaml:"allow_credentials"` //是否允许携带cookie
	MaxAge           int      `yaml:"max_age"`           //预检结果的缓存时间,单位秒
}

// Config Http配置
type Config struct {
	Addr          string                            `yaml:"addr"`          //Http监听地址
	ReadTimeout   int                               `yaml:"read_timeout"`  //读超时,单位秒
	WriteTimeout  int                               `yaml:"write_timeout"` //写超时,单位秒
	MaxConns      int                               `yaml:"max_conns"`     //最大的并发连接数
	CORS          *CORSConfig                       `yaml:"cors"`          //跨域配置
	middlewares   []Middleware                      //过滤操作
	controllers   []Controller                      //controller
	handles       map[string]*handlerWithMiddleware //handles
	controllerMux sync.RWMutex
}

type handlerWithMiddleware struct {
	handlerFunc http.HandlerFunc
	middlewares []Middleware
}

// NewConfig 创建配置
func NewConfig(addr string) *Config {
	return &Config{
		Addr:        addr,
		handles:     map[string]*handlerWithMiddleware{},
		middlewares: []Middleware{},
		controllers: []Controller{},
	}
}

// Parse implements Configurer
func (p *Config) Parse() error {
	if p.Addr == "" {
		p.Addr = ":8080"
	}
	if p.ReadTimeout < 0 || p.WriteTimeout < 0 || p.MaxConns < 0 {
		return fmt.Errorf("invalid http conf")
	}
	if p.ReadTimeout == 0 {
		p.ReadTimeout = 10
	}
	if p.WriteTimeout == 0 {
		p.WriteTimeout = 10
	}
	return nil
}

// RegController 注册controller中的所有处理函数
func (p *Config) RegController(controller Controller) error {
	if controller == nil {
		return fmt.Errorf("can't reg nil controller")
	}

	handlers, err := controller.GetHandlers()
	if err != nil {
		return err
	}
	if len(handlers) == 0 {
		c.Warnf("can't find handler in %T", controller)
		return nil
	}

	p.controllerMux.Lock()
	defer p.controllerMux.Unlock()

	p.controllers = append(p.controllers, controller)
	handlerMiddlewares := controller.GetHandlerMiddlewares()
	for pattern, h := range handlers {
		patternPath := joinPattern(controller.GetPath(), pattern)
		if err := p.regHandleFunc(patternPath, &handlerWithMiddleware{h, handlerMiddlewares[pattern]}); err != nil {
			return err
		}
		c.Infof("register controller %T#%s,path:%s", controller, controller.GetName(), patternPath)
	}
	return nil
}

// joinPattern 把controller的路径加到pattern前面,pattern可以有方法前缀,例如"GET /{id}".
// 不以'/'开始且包含'/'的pattern是带主机名的,不做处理.
func joinPattern(path, pattern string) string {
	var method string
	if i := strings.IndexByte(pattern, ' '); i > 0 {
		method, pattern = pattern[:i+1], strings.TrimSpace(pattern[i+1:])
	}
	if !strings.HasPrefix(pattern, "/") && strings.Contains(pattern, "/") {
		return method + pattern
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return method + path + strings.TrimPrefix(pattern, "/")
}

func (p *Config) regHandleFunc(patternPath string, handle *handlerWithMiddleware) error {
	if p.handles == nil {
		p.handles = map[string]*handlerWithMiddleware{}
	}
	if _, ok := p.handles[patternPath]; ok {
		return fmt.Errorf("duplicate path:%s", patternPath)
	}
	p.handles[patternPath] = handle
	return nil
}

// RegHandleFunc 注册patternPath的处理函数handlerFunc
func (p *Config) RegHandleFunc(patternPath string, handlerFunc http.HandlerFunc) error {
	if handlerFunc == nil {
		return fmt.Errorf("nil handler for %s", patternPath)
	}
	p.controllerMux.Lock()
	defer p.controllerMux.Unlock()
	return p.regHandleFunc(patternPath, &handlerWithMiddleware{handlerFunc, nil})
}

// RegMiddleware 注册middleware,对所有的处理函数生效
func (p *Config) RegMiddleware(middleware Middleware) error {
	if middleware == nil {
		return fmt.Errorf("invalid middleware")
	}
	p.controllerMux.Lock()
	defer p.controllerMux.Unlock()
	p.middlewares = append(p.middlewares, middleware)
	return nil
}
