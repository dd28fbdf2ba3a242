package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Viewed  map[string]bool `codec:"v"`
	Expires int64           `codec:"e"`
}

func TestEncDec(t *testing.T) {
	p := &payload{Viewed: map[string]bool{"intro-to-go": true, "b": false}, Expires: 1700000000}
	bytes, err := MsgPackEncodeBytes(p)
	require.NoError(t, err)

	decoded := &payload{}
	require.NoError(t, MsgPackDecodeBytes(bytes, decoded))
	assert.Equal(t, p, decoded)

	assert.Error(t, MsgPackDecodeBytes(nil, decoded))
	assert.Error(t, MsgPackDecodeBytes([]byte{0xc1}, decoded))
}

func TestParamKey(t *testing.T) {
	conf := NewParamConf("views", "blog:")
	key := conf.NewParamKey("views")
	assert.Equal(t, "blog:views", key.Key())
	assert.Equal(t, "views", key.Group())
	assert.Equal(t, "blog:", conf.KeyPrefix())
}
