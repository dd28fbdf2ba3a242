// Package views 文章阅读计数.
//
// 每个访客在一个会话中对同一篇文章只计数一次:
// 会话记录中未计数的文章才会在存储中加1,加1成功后标记到会话中并保存.
// 计数失败不会影响页面,读取失败时返回空的阅读数.
package views

import (
	"context"
	"net/http"
	"sort"

	c "github.com/d0ngw/blogviews/common"
	"github.com/d0ngw/blogviews/content"
	"github.com/d0ngw/blogviews/counter"
	"github.com/d0ngw/blogviews/session"
	"github.com/pkg/errors"
)

var errInvalidParams = errors.New("store and tracker must not be nil")

// Tracker 会话记录的读取和保存
type Tracker interface {
	Load(r *http.Request) (session.Record, bool)
	Save(w http.ResponseWriter, r *http.Request, record session.Record) error
}

// Catalog 文章目录
type Catalog interface {
	Slugs() []string
}

// Replacer 整体替换阅读数
type Replacer interface {
	ReplaceAll(ctx context.Context, views counter.Views) error
}

// Result 一次浏览的结果
type Result struct {
	Slug    string `json:"slug"`
	Views   int64  `json:"views"`
	Counted bool   `json:"counted"`
}

// Ranked 带阅读数的文章
type Ranked struct {
	*content.Article
	Views int64 `json:"views"`
}

// Service 阅读计数服务
type Service struct {
	store    counter.Store
	tracker  Tracker
	catalog  Catalog
	replacer Replacer
}

// NewService create Service,catalog可以为nil
func NewService(store counter.Store, tracker Tracker, catalog Catalog) (*Service, error) {
	if c.HasNil(store, tracker) {
		return nil, errInvalidParams
	}
	return &Service{store: store, tracker: tracker, catalog: catalog, replacer: store}, nil
}

// SetReplacer 设置整体替换阅读数的方式,默认直接替换store.
// 有同步任务时需要通过同步任务替换,保证持久化存储与store一致
func (p *Service) SetReplacer(replacer Replacer) {
	if replacer == nil {
		replacer = p.store
	}
	p.replacer = replacer
}

// ReplaceAll 用views整体替换所有文章的阅读数
func (p *Service) ReplaceAll(ctx context.Context, views counter.Views) error {
	if err := views.Validate(); err != nil {
		return err
	}
	return p.replacer.ReplaceAll(ctx, views)
}

// Store 阅读数存储
func (p *Service) Store() counter.Store {
	return p.store
}

// Views 所有文章的阅读数,存储不可用时返回空
func (p *Service) Views(ctx context.Context) counter.Views {
	views, err := p.store.GetAll(ctx)
	if err != nil {
		c.Errorf("get views from %s fail,err:%v", p.store.Name(), err)
		return counter.Views{}
	}
	return views
}

// Count articleID的阅读数
func (p *Service) Count(ctx context.Context, articleID string) int64 {
	return p.Views(ctx).Get(articleID)
}

// View 访客浏览了articleID,本会话中第一次浏览时计数.
// 只有articleID为空时返回错误,存储和会话的错误只记录日志.
func (p *Service) View(ctx context.Context, w http.ResponseWriter, r *http.Request, articleID string) (*Result, error) {
	if articleID == "" {
		return nil, counter.ErrEmptyID
	}
	result := &Result{Slug: articleID}

	record, ok := p.tracker.Load(r)
	if !ok {
		record = session.EnsureTracked(nil, p.known(), articleID)
	} else {
		record = session.EnsureTracked(record, nil, articleID)
	}

	if record.Viewed(articleID) {
		result.Views = p.Count(ctx, articleID)
		return result, nil
	}

	n, err := p.store.Incr(ctx, articleID)
	if err != nil {
		c.Errorf("incr %s in %s fail,err:%v", articleID, p.store.Name(), err)
		result.Views = p.Count(ctx, articleID)
		return result, nil
	}
	result.Views = n
	result.Counted = true

	record[articleID] = true
	if err := p.tracker.Save(w, r, record); err != nil {
		c.Warnf("save session for %s fail,err:%v", articleID, err)
	}
	return result, nil
}

// known 新会话预置为未计数的文章,只使用文章目录
func (p *Service) known() []string {
	if p.catalog == nil {
		return nil
	}
	return p.catalog.Slugs()
}

// Popular 已发布的文章按阅读数从多到少排序,阅读数相同时按发布时间从新到旧,再按slug
func (p *Service) Popular(ctx context.Context, articles []*content.Article) []*Ranked {
	views := p.Views(ctx)
	ranked := make([]*Ranked, 0, len(articles))
	for _, article := range articles {
		if article == nil || !article.Published() {
			continue
		}
		ranked = append(ranked, &Ranked{Article: article, Views: views.Get(article.Slug)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Views != b.Views {
			return a.Views > b.Views
		}
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.Slug < b.Slug
	})
	return ranked
}
