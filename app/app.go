// Package app 按照配置组装阅读计数服务
package app

import (
	"context"
	gohttp "net/http"
	"time"

	c "github.com/d0ngw/blogviews/common"
	"github.com/d0ngw/blogviews/content"
	"github.com/d0ngw/blogviews/counter"
	"github.com/d0ngw/blogviews/http"
	"github.com/d0ngw/blogviews/session"
	"github.com/d0ngw/blogviews/views"
	"github.com/pkg/errors"
)

// App 阅读计数服务
type App struct {
	Conf     *Config
	Stores   *Stores
	Catalog  *content.Catalog
	Views    *views.Service
	HTTP     *http.Service
	Sync     *counter.SyncSchedule
	services *c.Services
}

// New 按照配置创建App,conf必须已经Parse
func New(ctx context.Context, conf *Config) (app *App, err error) {
	stores, err := OpenStores(ctx, conf)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			stores.Close()
		}
	}()

	catalog, err := conf.Content.Load()
	if err != nil {
		return nil, err
	}
	tracker, err := session.NewTracker(conf.Session)
	if err != nil {
		return nil, err
	}
	service, err := views.NewService(stores.Store, tracker, catalog)
	if err != nil {
		return nil, err
	}

	httpConf := conf.HTTP
	if err = httpConf.RegMiddleware(&http.AccessLogMiddleware{}); err != nil {
		return nil, err
	}
	if err = httpConf.RegMiddleware(&http.RecoverMiddleware{}); err != nil {
		return nil, err
	}
	if err = httpConf.RegController(http.NewViewsController(service, catalog, http.TokenAuth(conf.AdminToken))); err != nil {
		return nil, err
	}
	if err = httpConf.RegHandleFunc("GET /healthz", healthz); err != nil {
		return nil, err
	}
	httpService := http.NewService("http", httpConf)
	httpService.Order = 10

	app = &App{
		Conf:    conf,
		Stores:  stores,
		Catalog: catalog,
		Views:   service,
		HTTP:    httpService,
	}
	services := []c.Service{httpService}
	if stores.Persist != nil {
		app.Sync, err = counter.NewSyncSchedule("sync", stores.Store, stores.Persist, time.Duration(conf.Sync.Interval)*time.Second)
		if err != nil {
			return nil, err
		}
		service.SetReplacer(app.Sync)
		services = append(services, app.Sync)
	}
	app.services = c.NewServices(services...)
	if conf.AdminToken == "" {
		c.Infof("no admin token,admin api disabled")
	}
	return app, nil
}

func healthz(w gohttp.ResponseWriter, r *gohttp.Request) {
	http.RenderText(w, "ok")
}

// Start 初始化并启动所有的服务
func (p *App) Start() error {
	if !p.services.Init() {
		return errors.New("init services fail")
	}
	if !p.services.Start() {
		p.services.Stop()
		return errors.New("start services fail")
	}
	return nil
}

// Stop 停止所有的服务并释放存储
func (p *App) Stop() {
	if !p.services.Stop() {
		c.Errorf("stop services fail")
	}
	p.Stores.Close()
	c.SyncLog()
}
