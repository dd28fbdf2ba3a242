package common

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// ErrAESOpen 密文被篡改、密钥不匹配或长度不足
var ErrAESOpen = errors.New("aes open fail")

// AesKey 解析AES密钥,支持16/24/32字节的原始字符串,或者base64编码后的同样长度的密钥
func AesKey(key string) ([]byte, error) {
	if validAesKeyLen(len(key)) {
		return []byte(key), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(key)
	if err == nil && validAesKeyLen(len(decoded)) {
		return decoded, nil
	}
	return nil, fmt.Errorf("invalid aes key length %d", len(key))
}

func validAesKeyLen(n int) bool {
	return n == 16 || n == 24 || n == 32
}

// AesSeal 使用AES-GCM加密data,随机nonce放在结果的最前面
func AesSeal(data, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, data, nil), nil
}

// AesOpen 解密AesSeal的结果,校验失败返回ErrAESOpen
func AesOpen(data, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize+gcm.Overhead() {
		return nil, ErrAESOpen
	}
	plain, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, ErrAESOpen
	}
	return plain, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
