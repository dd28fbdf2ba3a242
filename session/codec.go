package session

import (
	"encoding/base64"
	"time"

	"github.com/d0ngw/blogviews/cache"
	c "github.com/d0ngw/blogviews/common"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidToken token无法解码或者被篡改
	ErrInvalidToken = errors.New("invalid session token")
	// ErrExpired token已经过期
	ErrExpired = errors.New("session token expired")
)

type payload struct {
	Viewed  map[string]bool `codec:"v"`
	Expires int64           `codec:"e"`
}

// Codec 会话记录与token之间的编解码
type Codec struct {
	key []byte
}

// NewCodec create Codec,key的长度必须是16,24或者32
func NewCodec(key []byte) (*Codec, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, errors.Errorf("invalid session key length %d", len(key))
	}
	return &Codec{key: key}, nil
}

// Encode 编码record中已经计数的文章,expires是record的过期时间
func (p *Codec) Encode(record Record, expires time.Time) (string, error) {
	data, err := cache.MsgPackEncodeBytes(&payload{Viewed: record.Counted(), Expires: expires.Unix()})
	if err != nil {
		return "", errors.Wrap(err, "encode session")
	}
	sealed, err := c.AesSeal(data, p.key)
	if err != nil {
		return "", errors.Wrap(err, "seal session")
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decode 解码token,返回记录和过期时间.在now时已经过期返回ErrExpired
func (p *Codec) Decode(token string, now time.Time) (Record, time.Time, error) {
	if token == "" {
		return nil, time.Time{}, ErrInvalidToken
	}
	sealed, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, time.Time{}, ErrInvalidToken
	}
	data, err := c.AesOpen(sealed, p.key)
	if err != nil {
		return nil, time.Time{}, ErrInvalidToken
	}
	var pl payload
	if err := cache.MsgPackDecodeBytes(data, &pl); err != nil {
		return nil, time.Time{}, ErrInvalidToken
	}
	expires := time.Unix(pl.Expires, 0)
	if !now.Before(expires) {
		return nil, expires, ErrExpired
	}
	return Record(pl.Viewed).Counted(), expires, nil
}
