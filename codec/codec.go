// Package codec converts between request/response bodies and Go values.
// Each codec names the media type it speaks so transports can set
// Content-Type and Accept.
package codec

import "errors"

// Codec encodes/decodes values V to wire bytes.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
	ContentType() string
}

var ErrTooLarge = errors.New("codec: payload too large")

const (
	TypeJSON     = "application/json"
	TypeMsgpack  = "application/msgpack"
	TypeCBOR     = "application/cbor"
	TypeProtobuf = "application/x-protobuf"
	TypeBytes    = "application/octet-stream"
	TypeText     = "text/plain; charset=utf-8"
)
