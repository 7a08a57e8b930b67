package codec

import "fmt"

// Limit wraps another codec and refuses to decode payloads larger than
// MaxDecode bytes. Encode is forwarded unchanged. MaxDecode <= 0 disables the
// check.
//
// Response bodies come from remote servers; wrap the gateway codec in Limit
// when those servers are not fully trusted.
type Limit[V any] struct {
	Inner     Codec[V]
	MaxDecode int
}

var _ Codec[int] = Limit[int]{}

func (c Limit[V]) Encode(v V) ([]byte, error) { return c.Inner.Encode(v) }

func (c Limit[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("%w: %d > %d", ErrTooLarge, len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}

func (c Limit[V]) ContentType() string { return c.Inner.ContentType() }
