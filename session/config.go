package session

import (
	"crypto/rand"
	"net/http"
	"time"

	c "github.com/d0ngw/blogviews/common"
	"github.com/pkg/errors"
)

// 默认值
const (
	DefaultCookieName = "session"
	DefaultMaxAge     = 7 * 24 * time.Hour
)

// Config 会话配置
type Config struct {
	Key        string `yaml:"key"`         //AES密钥,16/24/32字节的字符串或者base64编码
	CookieName string `yaml:"cookie_name"` //cookie名称
	MaxAge     int    `yaml:"max_age"`     //会话有效期,单位秒
	Secure     bool   `yaml:"secure"`
	HTTPOnly   *bool  `yaml:"http_only"` //默认为true
	key        []byte
}

// Parse implements Configurer
func (p *Config) Parse() error {
	if p.CookieName == "" {
		p.CookieName = DefaultCookieName
	}
	if !validCookieName(p.CookieName) {
		return errors.Errorf("invalid cookie name %q", p.CookieName)
	}
	if p.MaxAge < 0 {
		return errors.Errorf("invalid max_age %d", p.MaxAge)
	}
	if p.MaxAge == 0 {
		p.MaxAge = int(DefaultMaxAge / time.Second)
	}
	if p.HTTPOnly == nil {
		httpOnly := true
		p.HTTPOnly = &httpOnly
	}
	if p.Key == "" {
		c.Warnf("no session key,use random key,sessions will be lost after restart")
		p.key = make([]byte, 32)
		if _, err := rand.Read(p.key); err != nil {
			return errors.Wrap(err, "generate session key")
		}
		return nil
	}
	key, err := c.AesKey(p.Key)
	if err != nil {
		return errors.Wrap(err, "session key")
	}
	p.key = key
	return nil
}

func validCookieName(name string) bool {
	cookie := &http.Cookie{Name: name, Value: "v"}
	return cookie.String() != ""
}
