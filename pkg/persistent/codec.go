package persistent

import (
	"encoding/json"
	"fmt"

	"github.com/vango-dev/nanostore/internal/errors"
)

// Codec converts store values to and from their stored string form.
// Decode(Encode(v)) must equal v for every value the store can hold.
type Codec[T any] interface {
	Encode(v T) (string, error)
	Decode(s string) (T, error)
}

// CodecFuncs adapts a pair of functions to a Codec.
type CodecFuncs[T any] struct {
	EncodeFunc func(T) (string, error)
	DecodeFunc func(string) (T, error)
}

// Encode implements Codec.
func (c CodecFuncs[T]) Encode(v T) (string, error) {
	return c.EncodeFunc(v)
}

// Decode implements Codec.
func (c CodecFuncs[T]) Decode(s string) (T, error) {
	return c.DecodeFunc(s)
}

// JSON returns a codec that stores values as JSON documents.
func JSON[T any]() Codec[T] {
	return jsonCodec[T]{}
}

type jsonCodec[T any] struct{}

func (jsonCodec[T]) Encode(v T) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (jsonCodec[T]) Decode(s string) (T, error) {
	var v T
	err := json.Unmarshal([]byte(s), &v)
	return v, err
}

// stringCodec is the identity codec for string stores.
type stringCodec struct{}

func (stringCodec) Encode(v string) (string, error) { return v, nil }
func (stringCodec) Decode(s string) (string, error) { return s, nil }

// stringPtrCodec is the identity codec for *string stores. Absent values
// never reach it.
type stringPtrCodec struct{}

func (stringPtrCodec) Encode(v *string) (string, error) {
	if v == nil {
		return "", nil
	}
	return *v, nil
}

func (stringPtrCodec) Decode(s string) (*string, error) {
	return &s, nil
}

// resolveCodec returns the configured codec for T, or the identity codec
// for string and *string stores.
func resolveCodec[T any](configured any) (Codec[T], error) {
	if configured != nil {
		c, ok := configured.(Codec[T])
		if !ok {
			var zero T
			return nil, errors.New("N103").
				WithDetailf("codec %T does not encode %T", configured, zero)
		}
		return c, nil
	}
	if c, ok := any(stringCodec{}).(Codec[T]); ok {
		return c, nil
	}
	if c, ok := any(stringPtrCodec{}).(Codec[T]); ok {
		return c, nil
	}
	var zero T
	return nil, errors.New("N103").
		WithDetailf("no codec for %T", zero).
		WithSuggestion(fmt.Sprintf("Pass persistent.WithCodec(persistent.JSON[%T]())", zero))
}
