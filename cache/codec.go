package cache

import (
	"github.com/pkg/errors"
	"github.com/ugorji/go/codec"
)

var msgpackHandle = &codec.MsgpackHandle{WriteExt: true}

// MsgPackEncodeBytes 使用msgpack编码data
func MsgPackEncodeBytes(data interface{}) ([]byte, error) {
	var out []byte
	if err := codec.NewEncoderBytes(&out, msgpackHandle).Encode(data); err != nil {
		return nil, errors.Wrap(err, "msgpack encode")
	}
	return out, nil
}

// MsgPackDecodeBytes 使用msgpack将data解码到dest中,data为空时返回错误
func MsgPackDecodeBytes(data []byte, dest interface{}) error {
	if len(data) == 0 {
		return errors.New("empty msgpack data")
	}
	return errors.Wrap(codec.NewDecoderBytes(data, msgpackHandle).Decode(dest), "msgpack decode")
}
