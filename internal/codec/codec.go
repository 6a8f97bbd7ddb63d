package codec

import (
	"github.com/golang/snappy"
)

type CompressionType uint8

const (
	None   CompressionType = 0
	Snappy CompressionType = 1
)

func Encode(codec CompressionType, src []byte) ([]byte, error) {
	switch codec {
	case Snappy:
		return snappy.Encode(nil, src), nil
	default:
		return append([]byte(nil), src...), nil
	}
}

func Decode(codec CompressionType, src []byte) ([]byte, error) {
	switch codec {
	case Snappy:
		return snappy.Decode(nil, src)
	default:
		return append([]byte(nil), src...), nil
	}
}

// Pack compresses values of at least threshold bytes. The input is returned
// unchanged with None when it is short or does not shrink.
func Pack(threshold int, src []byte) ([]byte, CompressionType) {
	if len(src) < threshold {
		return src, None
	}
	enc, err := Encode(Snappy, src)
	if err != nil || len(enc) >= len(src) {
		return src, None
	}
	return enc, Snappy
}
