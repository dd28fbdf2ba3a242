package app

import (
	"fmt"

	"github.com/d0ngw/blogviews/cache"
	c "github.com/d0ngw/blogviews/common"
	"github.com/d0ngw/blogviews/content"
	"github.com/d0ngw/blogviews/counter"
	"github.com/d0ngw/blogviews/http"
	"github.com/d0ngw/blogviews/session"
)

// SyncConfig Redis阅读数同步到持久化存储的配置
type SyncConfig struct {
	Interval int `yaml:"interval"` //同步间隔,单位秒
}

// Parse implements Configurer
func (p *SyncConfig) Parse() error {
	if p.Interval < 0 {
		return fmt.Errorf("invalid sync interval %d", p.Interval)
	}
	if p.Interval == 0 {
		p.Interval = 60
	}
	return nil
}

// Config 应用配置
type Config struct {
	c.AppConfig `yaml:",inline"`
	HTTP        *http.Config         `yaml:"http"`
	Store       *counter.StoreConfig `yaml:"store"`
	Redis       *cache.RedisConf     `yaml:"redis"`
	MySQL       *counter.MySQLConfig `yaml:"mysql"`
	Session     *session.Config      `yaml:"session"`
	Content     *content.Config      `yaml:"content"`
	Sync        *SyncConfig          `yaml:"sync"`
	AdminToken  string               `yaml:"admin_token"` //管理接口的token,为空时禁用管理接口
}

// Parse implements Configurer
func (p *Config) Parse() error {
	if p.HTTP == nil {
		p.HTTP = http.NewConfig("")
	}
	if p.Store == nil {
		p.Store = &counter.StoreConfig{}
	}
	if p.Session == nil {
		p.Session = &session.Config{}
	}
	if p.Content == nil {
		p.Content = &content.Config{}
	}
	if p.Sync == nil {
		p.Sync = &SyncConfig{}
	}
	if err := c.Parse(p); err != nil {
		return err
	}

	if p.Store.Type == counter.TypeRedis && p.Redis == nil {
		return fmt.Errorf("store type redis need redis conf")
	}
	if (p.Store.Type == counter.TypeMySQL || p.Store.Type == counter.TypeRedis && p.Store.Persist == counter.TypeMySQL) && p.MySQL == nil {
		return fmt.Errorf("store need mysql conf")
	}
	return nil
}

// LoadConfig 从文件中加载配置
func LoadConfig(file string) (*Config, error) {
	conf := &Config{}
	if err := c.LoadConfig(conf, "", "", file); err != nil {
		return nil, err
	}
	if err := conf.Parse(); err != nil {
		return nil, err
	}
	return conf, nil
}
