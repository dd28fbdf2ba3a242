// Package content 文章目录,提供所有文章的id和发布状态
package content

import (
	"sort"
	"time"

	c "github.com/d0ngw/blogviews/common"
	"github.com/pkg/errors"
)

// Article 文章
type Article struct {
	Slug        string    `yaml:"slug" json:"slug"`
	Title       string    `yaml:"title" json:"title"`
	Description string    `yaml:"description" json:"description,omitempty"`
	Author      string    `yaml:"author" json:"author,omitempty"`
	Tags        []string  `yaml:"tags" json:"tags,omitempty"`
	PublishedAt time.Time `yaml:"published_at" json:"published_at"`
	UpdatedAt   time.Time `yaml:"updated_at" json:"updated_at,omitempty"`
	IsPublished *bool     `yaml:"is_published" json:"-"`
}

// Published 是否已发布,未设置时为已发布
func (p *Article) Published() bool {
	return p.IsPublished == nil || *p.IsPublished
}

// Catalog 文章目录,创建后只读
type Catalog struct {
	articles []*Article
	index    map[string]*Article
}

type catalogFile struct {
	Articles []*Article `yaml:"articles"`
}

// NewCatalog create Catalog,文章的slug不能为空也不能重复
func NewCatalog(articles []*Article) (*Catalog, error) {
	index := make(map[string]*Article, len(articles))
	list := make([]*Article, 0, len(articles))
	for _, article := range articles {
		if article == nil || article.Slug == "" {
			return nil, errors.New("article slug must not be empty")
		}
		if _, ok := index[article.Slug]; ok {
			return nil, errors.Errorf("duplicate article %s", article.Slug)
		}
		index[article.Slug] = article
		list = append(list, article)
	}
	return &Catalog{articles: list, index: index}, nil
}

// LoadCatalog 从YAML文件加载文章目录
func LoadCatalog(path string) (*Catalog, error) {
	var file catalogFile
	if err := c.LoadYAMLFromPath(path, &file); err != nil {
		return nil, errors.Wrapf(err, "load catalog %s", path)
	}
	catalog, err := NewCatalog(file.Articles)
	if err != nil {
		return nil, errors.Wrapf(err, "load catalog %s", path)
	}
	c.Infof("load %d articles from %s", len(catalog.articles), path)
	return catalog, nil
}

// Get 取得文章,不存在时返回nil
func (p *Catalog) Get(slug string) *Article {
	return p.index[slug]
}

// Slugs 所有文章的id,包括未发布的
func (p *Catalog) Slugs() []string {
	slugs := make([]string, 0, len(p.articles))
	for _, article := range p.articles {
		slugs = append(slugs, article.Slug)
	}
	return slugs
}

// Published 已发布的文章
func (p *Catalog) Published() []*Article {
	var published []*Article
	for _, article := range p.articles {
		if article.Published() {
			published = append(published, article)
		}
	}
	return published
}

// SortByDate 按发布时间从新到旧排序,返回新的slice
func SortByDate(articles []*Article) []*Article {
	sorted := append([]*Article(nil), articles...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.After(sorted[j].PublishedAt)
	})
	return sorted
}

// Config 文章目录配置
type Config struct {
	File string `yaml:"file"` //文章目录的YAML文件,为空时目录为空
}

// Parse implements Configurer
func (p *Config) Parse() error {
	return nil
}

// Load 加载文章目录
func (p *Config) Load() (*Catalog, error) {
	if p == nil || p.File == "" {
		c.Warnf("no content catalog file")
		return NewCatalog(nil)
	}
	return LoadCatalog(p.File)
}
