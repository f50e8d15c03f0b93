package kvs

import "bytes"

// ByteRange is the resolved byte-level scan window a backend executes.
// Upper == nil means unbounded above.
type ByteRange struct {
	Lower      []byte
	LowerIncl  bool
	Upper      []byte
	UpperIncl  bool
}

// ComputeByteRange turns a FindOptions/RangeOptions-shaped set of bounds
// into a single byte range, narrowing the Prefix range by any Start/
// StartAfter/End/EndBefore absolute keys. Shared by every Store
// implementation so the bound-combining logic — and its edge cases — is
// written once.
func ComputeByteRange(prefix, start, startAfter, end, endBefore Key) ByteRange {
	lower, upper := PrefixRange(prefix)
	r := ByteRange{Lower: lower, LowerIncl: true, Upper: upper, UpperIncl: false}

	if start != nil {
		b := EncodeKey(start)
		if bytes.Compare(b, r.Lower) > 0 {
			r.Lower, r.LowerIncl = b, true
		}
	}
	if startAfter != nil {
		b := EncodeKey(startAfter)
		if bytes.Compare(b, r.Lower) >= 0 {
			r.Lower, r.LowerIncl = b, false
		}
	}
	if end != nil {
		b := EncodeKey(end)
		if r.Upper == nil || bytes.Compare(b, r.Upper) < 0 {
			r.Upper, r.UpperIncl = b, true
		}
	}
	if endBefore != nil {
		b := EncodeKey(endBefore)
		if r.Upper == nil || bytes.Compare(b, r.Upper) <= 0 {
			r.Upper, r.UpperIncl = b, false
		}
	}
	return r
}

// Contains reports whether encoded key k falls within r.
func (r ByteRange) Contains(k []byte) bool {
	if r.LowerIncl {
		if bytes.Compare(k, r.Lower) < 0 {
			return false
		}
	} else if bytes.Compare(k, r.Lower) <= 0 {
		return false
	}
	if r.Upper == nil {
		return true
	}
	if r.UpperIncl {
		return bytes.Compare(k, r.Upper) <= 0
	}
	return bytes.Compare(k, r.Upper) < 0
}
