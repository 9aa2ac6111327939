// Package primitive provides the leaf codecs: strings, booleans, integers,
// floats, times, byte slices and arrays, identifiers and raw documents.
package primitive

import (
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/docmap/pkg/codec"
	"github.com/ssargent/docmap/pkg/document"
)

var (
	rawType   = reflect.TypeFor[document.Raw]()
	timeType  = reflect.TypeFor[time.Time]()
	ksuidType = reflect.TypeFor[ksuid.KSUID]()
	uuidType  = reflect.TypeFor[uuid.UUID]()
)

// Provider resolves leaf codecs by type and, for named scalar types, by
// kind.
type Provider struct{}

func (Provider) Lookup(t reflect.Type, _ codec.Registry) (codec.Codec, bool, error) {
	switch t {
	case rawType:
		return rawCodec{}, true, nil
	case timeType:
		return timeCodec{}, true, nil
	case ksuidType:
		return byteArrayCodec{typ: t, subtype: document.BinaryKSUID}, true, nil
	case uuidType:
		return byteArrayCodec{typ: t, subtype: document.BinaryUUID}, true, nil
	}

	switch t.Kind() {
	case reflect.String:
		return stringCodec{typ: t}, true, nil
	case reflect.Bool:
		return boolCodec{typ: t}, true, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return intCodec{typ: t}, true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return uintCodec{typ: t}, true, nil
	case reflect.Float32, reflect.Float64:
		return floatCodec{typ: t}, true, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return bytesCodec{typ: t}, true, nil
		}
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return byteArrayCodec{typ: t, subtype: document.BinaryGeneric}, true, nil
		}
	}
	return nil, false, nil
}

// NewDefaultRegistry returns a registry asking providers first and the
// primitive Provider last.
func NewDefaultRegistry(providers ...codec.Provider) *codec.CodecRegistry {
	all := make([]codec.Provider, 0, len(providers)+1)
	all = append(all, providers...)
	all = append(all, Provider{})
	return codec.NewRegistry(all...)
}
