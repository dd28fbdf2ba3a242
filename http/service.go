package http

import (
	"crypto/subtle"
	"errors"
)

var (
	errAuthDisabled = errors.New("admin api disabled")
	errAuthFail     = errors.New("invalid token")
)

// AuthService 验证服务
type AuthService interface {
	// AuthToken 使用token认证,失败时返回错误
	AuthToken(token string) error
}

// TokenAuth 与固定的token比较,token为空时所有的认证都失败
type TokenAuth string

// AuthToken implements AuthService
func (p TokenAuth) AuthToken(token string) error {
	if p == "" {
		return errAuthDisabled
	}
	if subtle.ConstantTimeCompare([]byte(p), []byte(token)) != 1 {
		return errAuthFail
	}
	return nil
}
