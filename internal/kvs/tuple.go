package kvs

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Order-preserving tuple encoding. Each Scalar is tagged so that the total
// order across types is null < number < string, and within a type the byte
// order of the encoding matches the natural order of the value. Components
// concatenate without a separator: strings are escaped and terminated so a
// shorter tuple's encoding is always a byte-prefix of a longer one that
// starts with the same components (the property PrefixRange relies on),
// following the null-terminated component style beads' index key builders
// use in internal/storage/convex/indexes.go.
const (
	tagNull   byte = 0x00
	tagNumber byte = 0x01
	tagString byte = 0x02
)

// EncodeKey serializes key into an order-preserving byte string.
func EncodeKey(key Key) []byte {
	var buf []byte
	for _, v := range key {
		buf = append(buf, encodeScalar(v)...)
	}
	return buf
}

func encodeScalar(v Scalar) []byte {
	switch x := v.(type) {
	case nil:
		return []byte{tagNull}
	case float64:
		return encodeNumber(x)
	case float32:
		return encodeNumber(float64(x))
	case int:
		return encodeNumber(float64(x))
	case int64:
		return encodeNumber(float64(x))
	case string:
		return encodeString(x)
	default:
		panic(fmt.Sprintf("kvs: unsupported key component type %T", v))
	}
}

func encodeNumber(f float64) []byte {
	bits := math.Float64bits(f)
	if f >= 0 {
		bits |= 1 << 63
	} else {
		bits = ^bits
	}
	buf := make([]byte, 9)
	buf[0] = tagNumber
	binary.BigEndian.PutUint64(buf[1:], bits)
	return buf
}

func decodeNumber(bits uint64) float64 {
	if bits&(1<<63) != 0 {
		bits &^= 1 << 63
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits)
}

func encodeString(s string) []byte {
	buf := make([]byte, 0, len(s)+3)
	buf = append(buf, tagString)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == 0x00 {
			buf = append(buf, 0x00, 0xFF)
		} else {
			buf = append(buf, c)
		}
	}
	buf = append(buf, 0x00, 0x00)
	return buf
}

// DecodeKey is the inverse of EncodeKey; it fails if b is not a well-formed
// encoding (truncated tag, unterminated string, ...).
func DecodeKey(b []byte) (Key, error) {
	var key Key
	for len(b) > 0 {
		v, rest, err := decodeScalar(b)
		if err != nil {
			return nil, err
		}
		key = append(key, v)
		b = rest
	}
	return key, nil
}

func decodeScalar(b []byte) (Scalar, []byte, error) {
	if len(b) == 0 {
		return nil, nil, fmt.Errorf("kvs: empty key component")
	}
	switch b[0] {
	case tagNull:
		return nil, b[1:], nil
	case tagNumber:
		if len(b) < 9 {
			return nil, nil, fmt.Errorf("kvs: truncated number component")
		}
		return decodeNumber(binary.BigEndian.Uint64(b[1:9])), b[9:], nil
	case tagString:
		out := make([]byte, 0, len(b))
		i := 1
		for {
			if i >= len(b) {
				return nil, nil, fmt.Errorf("kvs: unterminated string component")
			}
			if b[i] == 0x00 {
				if i+1 >= len(b) {
					return nil, nil, fmt.Errorf("kvs: truncated string escape")
				}
				switch b[i+1] {
				case 0xFF:
					out = append(out, 0x00)
					i += 2
					continue
				case 0x00:
					return string(out), b[i+2:], nil
				default:
					return nil, nil, fmt.Errorf("kvs: malformed string escape")
				}
			}
			out = append(out, b[i])
			i++
		}
	default:
		return nil, nil, fmt.Errorf("kvs: unknown tag byte %#x", b[0])
	}
}

// PrefixRange returns the half-open byte range [start, end) that contains
// exactly the keys whose encoding starts with prefix's encoding. end is nil
// when prefix is the all-0xFF maximal byte string (no finite upper bound is
// needed — practically unreachable for real tuples). Mirrors the
// increment-last-byte trick beads' convex/document.go Interval.Prefix uses.
func PrefixRange(prefix Key) (start, end []byte) {
	start = EncodeKey(prefix)
	end = prefixEnd(start)
	return start, end
}

func prefixEnd(b []byte) []byte {
	end := make([]byte, len(b))
	copy(end, b)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
