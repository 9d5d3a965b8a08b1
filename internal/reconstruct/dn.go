package reconstruct

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/bft-labs/ladcache/internal/domain"
)

// decodeDN interprets raw data number bytes. Numeric types are big-endian
// and 1, 2, 4 or 8 bytes wide; signed values are sign-extended.
func decodeDN(t domain.ChannelType, raw []byte) (any, error) {
	switch t {
	case domain.ChannelASCII:
		return string(raw), nil
	case domain.ChannelUnknown:
		return append([]byte(nil), raw...), nil
	}

	u, err := widen(raw)
	if err != nil {
		return nil, err
	}
	switch t {
	case domain.ChannelSignedInt, domain.ChannelStatus:
		shift := 64 - 8*uint(len(raw))
		return int64(u<<shift) >> shift, nil
	case domain.ChannelUnsignedInt, domain.ChannelDigital, domain.ChannelTime:
		return u, nil
	case domain.ChannelFloat:
		switch len(raw) {
		case 4:
			return float64(math.Float32frombits(uint32(u))), nil
		case 8:
			return math.Float64frombits(u), nil
		}
		return nil, fmt.Errorf("float DN must be 4 or 8 bytes, got %d", len(raw))
	case domain.ChannelBoolean:
		return u != 0, nil
	}
	return nil, fmt.Errorf("unsupported DN type %s", t)
}

func widen(raw []byte) (uint64, error) {
	switch len(raw) {
	case 1:
		return uint64(raw[0]), nil
	case 2:
		return uint64(binary.BigEndian.Uint16(raw)), nil
	case 4:
		return uint64(binary.BigEndian.Uint32(raw)), nil
	case 8:
		return binary.BigEndian.Uint64(raw), nil
	}
	return 0, fmt.Errorf("numeric DN must be 1, 2, 4 or 8 bytes, got %d", len(raw))
}

// EncodeDN is the inverse of the reconstructor's DN decoding, producing the
// 8-byte form producers send for numeric types.
func EncodeDN(t domain.ChannelType, v any) ([]byte, error) {
	switch t {
	case domain.ChannelASCII:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("ASCII DN wants string, got %T", v)
		}
		return []byte(s), nil
	case domain.ChannelSignedInt, domain.ChannelStatus:
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("%s DN wants int64, got %T", t, v)
		}
		return binary.BigEndian.AppendUint64(nil, uint64(n)), nil
	case domain.ChannelUnsignedInt, domain.ChannelDigital, domain.ChannelTime:
		n, ok := v.(uint64)
		if !ok {
			return nil, fmt.Errorf("%s DN wants uint64, got %T", t, v)
		}
		return binary.BigEndian.AppendUint64(nil, n), nil
	case domain.ChannelFloat:
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("FLOAT DN wants float64, got %T", v)
		}
		return binary.BigEndian.AppendUint64(nil, math.Float64bits(f)), nil
	case domain.ChannelBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("BOOLEAN DN wants bool, got %T", v)
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	}
	return nil, fmt.Errorf("unsupported DN type %s", t)
}
