package codec

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"

	"github.com/ssargent/docmap/pkg/document"
)

// collectionCodec encodes slices and arrays as document arrays, delegating
// every element to inner.
type collectionCodec struct {
	typ   reflect.Type
	inner Codec
}

func newCollectionCodec(t reflect.Type, inner Codec) *collectionCodec {
	return &collectionCodec{typ: t, inner: inner}
}

func (c *collectionCodec) Type() reflect.Type {
	return c.typ
}

func (c *collectionCodec) Encode(w document.Writer, v reflect.Value) error {
	v = Unwrap(v)
	if IsNil(v) {
		return w.WriteNull()
	}
	if err := w.WriteStartArray(); err != nil {
		return err
	}
	for i := 0; i < v.Len(); i++ {
		if err := c.inner.Encode(w, v.Index(i)); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return w.WriteEndArray()
}

func (c *collectionCodec) Decode(r document.Reader) (reflect.Value, error) {
	if r.CurrentType() == document.TypeNull {
		return reflect.Value{}, r.ReadNull()
	}
	if err := r.ReadStartArray(); err != nil {
		return reflect.Value{}, err
	}
	var out reflect.Value
	if c.typ.Kind() == reflect.Array {
		out = reflect.New(c.typ).Elem()
	} else {
		out = reflect.MakeSlice(c.typ, 0, 4)
	}
	for i := 0; ; i++ {
		t, err := r.ReadType()
		if err != nil {
			return reflect.Value{}, err
		}
		if t == document.TypeEndOfDocument {
			break
		}
		v, err := c.inner.Decode(r)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		if c.typ.Kind() == reflect.Array {
			if i >= out.Len() {
				return reflect.Value{}, configErrorf(nil, "%s can not hold more than %d elements", c.typ, out.Len())
			}
			if err := Assign(out.Index(i), v); err != nil {
				return reflect.Value{}, err
			}
			continue
		}
		elem := reflect.New(c.typ.Elem()).Elem()
		if err := Assign(elem, v); err != nil {
			return reflect.Value{}, err
		}
		out = reflect.Append(out, elem)
	}
	if err := r.ReadEndArray(); err != nil {
		return reflect.Value{}, err
	}
	return out, nil
}

func (c *collectionCodec) String() string {
	return fmt.Sprintf("CollectionCodec<%s>", c.typ)
}

// setCodec encodes map[K]struct{} as an array of its keys in sorted order.
type setCodec struct {
	typ   reflect.Type
	inner Codec
}

func newSetCodec(t reflect.Type, inner Codec) *setCodec {
	return &setCodec{typ: t, inner: inner}
}

func (c *setCodec) Type() reflect.Type {
	return c.typ
}

func (c *setCodec) Encode(w document.Writer, v reflect.Value) error {
	v = Unwrap(v)
	if IsNil(v) {
		return w.WriteNull()
	}
	if err := w.WriteStartArray(); err != nil {
		return err
	}
	for _, key := range sortedKeys(v) {
		if err := c.inner.Encode(w, key); err != nil {
			return fmt.Errorf("set element %v: %w", key, err)
		}
	}
	return w.WriteEndArray()
}

func (c *setCodec) Decode(r document.Reader) (reflect.Value, error) {
	if r.CurrentType() == document.TypeNull {
		return reflect.Value{}, r.ReadNull()
	}
	if err := r.ReadStartArray(); err != nil {
		return reflect.Value{}, err
	}
	out := reflect.MakeMap(c.typ)
	present := reflect.New(c.typ.Elem()).Elem()
	for {
		t, err := r.ReadType()
		if err != nil {
			return reflect.Value{}, err
		}
		if t == document.TypeEndOfDocument {
			break
		}
		v, err := c.inner.Decode(r)
		if err != nil {
			return reflect.Value{}, err
		}
		key := reflect.New(c.typ.Key()).Elem()
		if err := Assign(key, v); err != nil {
			return reflect.Value{}, err
		}
		out.SetMapIndex(key, present)
	}
	if err := r.ReadEndArray(); err != nil {
		return reflect.Value{}, err
	}
	return out, nil
}

func (c *setCodec) String() string {
	return fmt.Sprintf("SetCodec<%s>", c.typ)
}

// sortedKeys returns the keys of map v in a stable order.
func sortedKeys(v reflect.Value) []reflect.Value {
	keys := v.MapKeys()
	slices.SortFunc(keys, compareKeys)
	return keys
}

func compareKeys(a, b reflect.Value) int {
	switch a.Kind() {
	case reflect.String:
		return cmp.Compare(a.String(), b.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cmp.Compare(a.Int(), b.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return cmp.Compare(a.Uint(), b.Uint())
	case reflect.Float32, reflect.Float64:
		return cmp.Compare(a.Float(), b.Float())
	case reflect.Bool:
		switch {
		case a.Bool() == b.Bool():
			return 0
		case a.Bool():
			return 1
		default:
			return -1
		}
	}
	return cmp.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
}
