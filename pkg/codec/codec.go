package codec

import (
	"reflect"

	"github.com/ssargent/docmap/pkg/document"
)

// Reserved document names.
const (
	// IDFieldName is the mapped name of every identifier field.
	IDFieldName = "_id"
	// DiscriminatorKey names the entry holding an entity's concrete type.
	DiscriminatorKey = "_t"
	// IDDeclaredName is the Go field name that becomes the identifier
	// automatically.
	IDDeclaredName = "ID"
)

// Codec encodes and decodes values of one Go type or type shape.
//
// Decode returns a value assignable to Type(), a pointer to such a value, or
// the zero reflect.Value when the document holds a null.
type Codec interface {
	Type() reflect.Type
	Encode(w document.Writer, v reflect.Value) error
	Decode(r document.Reader) (reflect.Value, error)
}

// Registry resolves codecs for Go types and concrete types for
// discriminator values.
type Registry interface {
	// Lookup fails with a *ConfigurationError naming t when nothing can
	// encode or decode it.
	Lookup(t reflect.Type) (Codec, error)
	ResolveDiscriminator(name string) (reflect.Type, error)
}

// Provider supplies codecs to a registry. A false result means "not
// provided" and the registry moves on to the next provider.
type Provider interface {
	Lookup(t reflect.Type, registry Registry) (Codec, bool, error)
}

// DiscriminatorResolver is implemented by providers that map discriminator
// values back to Go types.
type DiscriminatorResolver interface {
	ResolveDiscriminator(name string, registry Registry) (reflect.Type, bool, error)
}

// IsNil reports whether v is absent: invalid, or a nil pointer, interface,
// map, slice, func or channel. An interface holding a nil pointer is nil.
func IsNil(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return true
		}
		return IsNil(v.Elem())
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// Unwrap returns the dynamic value held by a non-nil interface value and v
// itself otherwise.
func Unwrap(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	return v
}

// Assign stores a decoded value into dst, bridging between T and *T and
// between named types of the same kind. An invalid v stores the zero value.
func Assign(dst, v reflect.Value) error {
	if !v.IsValid() {
		dst.SetZero()
		return nil
	}
	vt, dt := v.Type(), dst.Type()
	switch {
	case vt.AssignableTo(dt):
		dst.Set(v)
	case vt.Kind() == reflect.Pointer && vt.Elem().AssignableTo(dt):
		if v.IsNil() {
			dst.SetZero()
		} else {
			dst.Set(v.Elem())
		}
	case dt.Kind() == reflect.Pointer && vt.AssignableTo(dt.Elem()):
		p := reflect.New(dt.Elem())
		p.Elem().Set(v)
		dst.Set(p)
	case vt.Kind() == dt.Kind() && vt.ConvertibleTo(dt):
		dst.Set(v.Convert(dt))
	default:
		return configErrorf(nil, "can not assign a value of type %s to %s", vt, dt)
	}
	return nil
}
