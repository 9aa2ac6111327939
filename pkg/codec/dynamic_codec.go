package codec

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/docmap/pkg/document"
)

// dynamicCodec serves interface types no provider maps, such as the any of
// an unbound type parameter. Encode dispatches on the runtime type. Decode
// picks a Go type from the document type, or from "_t" for documents.
type dynamicCodec struct {
	typ      reflect.Type
	registry Registry
}

var (
	timeType  = reflect.TypeFor[time.Time]()
	ksuidType = reflect.TypeFor[ksuid.KSUID]()
	uuidType  = reflect.TypeFor[uuid.UUID]()
	bytesType = reflect.TypeFor[[]byte]()
	anyMap    = reflect.TypeFor[map[string]any]()
	anySlice  = reflect.TypeFor[[]any]()
)

func (c *dynamicCodec) Type() reflect.Type {
	return c.typ
}

func (c *dynamicCodec) Encode(w document.Writer, v reflect.Value) error {
	v = Unwrap(v)
	if IsNil(v) {
		return w.WriteNull()
	}
	actual, err := c.registry.Lookup(v.Type())
	if err != nil {
		return err
	}
	return actual.Encode(w, v)
}

func (c *dynamicCodec) Decode(r document.Reader) (reflect.Value, error) {
	v, err := c.decode(r)
	if err != nil || !v.IsValid() {
		return reflect.Value{}, err
	}
	if !v.Type().AssignableTo(c.typ) {
		return reflect.Value{}, configErrorf(nil, "decoded a %s which does not implement %s", v.Type(), c.typ)
	}
	return v, nil
}

func (c *dynamicCodec) decode(r document.Reader) (reflect.Value, error) {
	switch t := r.CurrentType(); t {
	case document.TypeNull:
		return reflect.Value{}, r.ReadNull()
	case document.TypeString:
		s, err := r.ReadString()
		return reflect.ValueOf(s), err
	case document.TypeBoolean:
		b, err := r.ReadBoolean()
		return reflect.ValueOf(b), err
	case document.TypeInt32:
		n, err := r.ReadInt32()
		return reflect.ValueOf(n), err
	case document.TypeInt64:
		n, err := r.ReadInt64()
		return reflect.ValueOf(n), err
	case document.TypeDouble:
		f, err := r.ReadDouble()
		return reflect.ValueOf(f), err
	case document.TypeDateTime, document.TypeBinary:
		return c.decodeAs(r, c.leafType(r))
	case document.TypeArray:
		return newCollectionCodec(anySlice, c.any()).Decode(r)
	case document.TypeDocument:
		name, found, err := peekDiscriminator(r)
		if err != nil {
			return reflect.Value{}, err
		}
		if !found {
			return newMapCodec(anyMap, c.any()).Decode(r)
		}
		mapped, err := c.registry.ResolveDiscriminator(name)
		if err != nil {
			return reflect.Value{}, err
		}
		return c.decodeAs(r, mapped)
	default:
		return reflect.Value{}, fmt.Errorf("%w: can not decode %s into %s", document.ErrUnexpectedType, t, c.typ)
	}
}

func (c *dynamicCodec) leafType(r document.Reader) reflect.Type {
	if r.CurrentType() == document.TypeDateTime {
		return timeType
	}
	if peeker, ok := r.(interface{ PeekBinarySubtype() (byte, error) }); ok {
		switch subtype, err := peeker.PeekBinarySubtype(); {
		case err != nil:
		case subtype == document.BinaryKSUID:
			return ksuidType
		case subtype == document.BinaryUUID:
			return uuidType
		}
	}
	return bytesType
}

func (c *dynamicCodec) decodeAs(r document.Reader, t reflect.Type) (reflect.Value, error) {
	codec, err := c.registry.Lookup(t)
	if err != nil {
		return reflect.Value{}, err
	}
	return codec.Decode(r)
}

func (c *dynamicCodec) any() Codec {
	if c.typ == reflect.TypeFor[any]() {
		return c
	}
	return &dynamicCodec{typ: reflect.TypeFor[any](), registry: c.registry}
}

func (c *dynamicCodec) String() string {
	return fmt.Sprintf("DynamicCodec<%s>", c.typ)
}
