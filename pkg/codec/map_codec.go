package codec

import (
	"fmt"
	"reflect"

	"github.com/ssargent/docmap/pkg/document"
)

// mapCodec encodes string-keyed maps as embedded documents. Keys are written
// in sorted order so equal maps produce equal bytes.
type mapCodec struct {
	typ   reflect.Type
	inner Codec
}

func newMapCodec(t reflect.Type, inner Codec) *mapCodec {
	return &mapCodec{typ: t, inner: inner}
}

func (c *mapCodec) Type() reflect.Type {
	return c.typ
}

func (c *mapCodec) Encode(w document.Writer, v reflect.Value) error {
	v = Unwrap(v)
	if IsNil(v) {
		return w.WriteNull()
	}
	if err := w.WriteStartDocument(); err != nil {
		return err
	}
	for _, key := range sortedKeys(v) {
		if err := w.WriteName(key.String()); err != nil {
			return err
		}
		if err := c.inner.Encode(w, v.MapIndex(key)); err != nil {
			return fmt.Errorf("map entry %q: %w", key.String(), err)
		}
	}
	return w.WriteEndDocument()
}

func (c *mapCodec) Decode(r document.Reader) (reflect.Value, error) {
	if r.CurrentType() == document.TypeNull {
		return reflect.Value{}, r.ReadNull()
	}
	if err := r.ReadStartDocument(); err != nil {
		return reflect.Value{}, err
	}
	out := reflect.MakeMap(c.typ)
	for {
		t, err := r.ReadType()
		if err != nil {
			return reflect.Value{}, err
		}
		if t == document.TypeEndOfDocument {
			break
		}
		name, err := r.ReadName()
		if err != nil {
			return reflect.Value{}, err
		}
		v, err := c.inner.Decode(r)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("map entry %q: %w", name, err)
		}
		elem := reflect.New(c.typ.Elem()).Elem()
		if err := Assign(elem, v); err != nil {
			return reflect.Value{}, err
		}
		out.SetMapIndex(reflect.ValueOf(name).Convert(c.typ.Key()), elem)
	}
	if err := r.ReadEndDocument(); err != nil {
		return reflect.Value{}, err
	}
	return out, nil
}

func (c *mapCodec) String() string {
	return fmt.Sprintf("MapCodec<%s>", c.typ)
}
