// Package codec provides pluggable value serialization for the typed
// cache view. A Codec turns a caller value V into the opaque bytes the
// Cache contract stores, and back.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
