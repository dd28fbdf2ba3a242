package http

import (
	"net/http"

	c "github.com/d0ngw/blogviews/common"
	"github.com/d0ngw/blogviews/content"
	"github.com/d0ngw/blogviews/counter"
	"github.com/d0ngw/blogviews/views"
)

// AdminTokenHeader 管理接口的token请求头
const AdminTokenHeader = "X-Admin-Token"

const maxReplaceBody = 4 << 20

// ViewsController 阅读数接口
type ViewsController struct {
	BaseController
	service *views.Service
	catalog *content.Catalog
}

// NewViewsController create ViewsController,管理接口使用auth认证
func NewViewsController(service *views.Service, catalog *content.Catalog, auth AuthService) *ViewsController {
	if catalog == nil {
		catalog, _ = content.NewCatalog(nil)
	}
	return &ViewsController{
		BaseController: BaseController{
			Name: "views",
			Path: "/api/",
			PatternMethods: map[string]string{
				"GET /views":            "List",
				"GET /views/{slug}":     "Get",
				"POST /views/{slug}":    "View",
				"PUT /views":            "Replace",
				"GET /articles/popular": "Popular",
				"GET /articles/recent":  "Recent",
			},
			HandlerMiddlewares: map[string][]Middleware{
				"PUT /views": {&AuthMiddleware{Header: AdminTokenHeader, Auth: auth}},
			},
		},
		service: service,
		catalog: catalog,
	}
}

// GetHandlers implements Controller
func (p *ViewsController) GetHandlers() (map[string]http.HandlerFunc, error) {
	return ReflectHandlers(p, p.PatternMethods)
}

// List 所有文章的阅读数
func (p *ViewsController) List(w http.ResponseWriter, r *http.Request) {
	RenderOK(w, p.service.Views(r.Context()))
}

// Get 单个文章的阅读数,目录中没有并且没有阅读数的文章返回404
func (p *ViewsController) Get(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	count := p.service.Count(r.Context(), slug)
	if count == 0 && p.catalog.Get(slug) == nil {
		RenderError(w, http.StatusNotFound, "unknown article "+slug)
		return
	}
	RenderOK(w, &views.Result{Slug: slug, Views: count})
}

// View 浏览文章,本会话中第一次浏览时计数
func (p *ViewsController) View(w http.ResponseWriter, r *http.Request) {
	result, err := p.service.View(r.Context(), w, r, r.PathValue("slug"))
	if err != nil {
		RenderError(w, http.StatusBadRequest, err.Error())
		return
	}
	RenderOK(w, result)
}

// Replace 整体替换所有文章的阅读数
func (p *ViewsController) Replace(w http.ResponseWriter, r *http.Request) {
	var replaced counter.Views
	if err := ReadJSON(r, maxReplaceBody, &replaced); err != nil {
		RenderError(w, http.StatusBadRequest, "invalid views:"+err.Error())
		return
	}
	if err := replaced.Validate(); err != nil {
		RenderError(w, http.StatusBadRequest, err.Error())
		return
	}
	store := p.service.Store()
	if err := p.service.ReplaceAll(r.Context(), replaced); err != nil {
		c.Errorf("replace views in %s fail,err:%v", store.Name(), err)
		RenderError(w, http.StatusInternalServerError, "replace views fail")
		return
	}
	c.Infof("replace views in %s with %d articles", store.Name(), len(replaced))
	RenderOK(w, len(replaced))
}

// Popular 已发布的文章按阅读数排序,limit参数限制返回的个数
func (p *ViewsController) Popular(w http.ResponseWriter, r *http.Request) {
	ranked := p.service.Popular(r.Context(), p.catalog.Published())
	RenderOK(w, ranked[:limitParam(r, len(ranked))])
}

// Recent 已发布的文章按发布时间从新到旧排序,limit参数限制返回的个数
func (p *ViewsController) Recent(w http.ResponseWriter, r *http.Request) {
	articles := content.SortByDate(p.catalog.Published())
	articles = articles[:limitParam(r, len(articles))]
	counts := p.service.Views(r.Context())
	ranked := make([]*views.Ranked, 0, len(articles))
	for _, article := range articles {
		ranked = append(ranked, &views.Ranked{Article: article, Views: counts.Get(article.Slug)})
	}
	RenderOK(w, ranked)
}

func limitParam(r *http.Request, n int) int {
	if limit, err := GetInt32Parameter(r.URL.Query(), "limit"); err == nil && limit > 0 && int(limit) < n {
		return int(limit)
	}
	return n
}
