package codec

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/ssargent/docmap/pkg/document"
)

// CodecRegistry resolves codecs by asking its providers in order. Results
// are cached for the lifetime of the registry.
type CodecRegistry struct {
	providers []Provider
	cache     sync.Map // reflect.Type -> Codec
}

// NewRegistry creates a registry over providers, earlier ones first.
func NewRegistry(providers ...Provider) *CodecRegistry {
	return &CodecRegistry{providers: providers}
}

// Lookup returns the codec for t. When no provider has one, containers are
// composed from their leaf codec, pointers use the codec of their element
// and interfaces dispatch on the runtime type.
func (r *CodecRegistry) Lookup(t reflect.Type) (Codec, error) {
	if t == nil {
		return nil, configErrorf(nil, "can't find a codec for a nil type")
	}
	if c, ok := r.cache.Load(t); ok {
		return c.(Codec), nil
	}
	c, err := r.resolve(t)
	if err != nil {
		return nil, err
	}
	actual, _ := r.cache.LoadOrStore(t, c)
	return actual.(Codec), nil
}

func (r *CodecRegistry) resolve(t reflect.Type) (Codec, error) {
	for _, p := range r.providers {
		c, ok, err := p.Lookup(t, r)
		if err != nil {
			return nil, err
		}
		if ok {
			return c, nil
		}
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		if chain, err := ExtractContainers(t); err == nil && chain[0].Kind != ContainerLeaf {
			return r.containerCodec(chain)
		}
	case reflect.Pointer:
		inner, err := r.Lookup(t.Elem())
		if err != nil {
			return nil, configErrorf(err, "can't find a codec for %s", t)
		}
		return &pointerCodec{typ: t, inner: inner}, nil
	case reflect.Interface:
		return &dynamicCodec{typ: t, registry: r}, nil
	}
	return nil, configErrorf(nil, "can't find a codec for %s", t)
}

// containerCodec composes the codec of a container chain outside of any
// field, as needed for runtime values of interface-typed fields.
func (r *CodecRegistry) containerCodec(chain []ContainerType) (Codec, error) {
	leaf := chain[len(chain)-1]
	c, err := r.Lookup(leaf.Type)
	if err != nil {
		return nil, err
	}
	for i := len(chain) - 2; i >= 0; i-- {
		switch chain[i].Kind {
		case ContainerList:
			c = newCollectionCodec(chain[i].Type, c)
		case ContainerSet:
			c = newSetCodec(chain[i].Type, c)
		case ContainerMap:
			c = newMapCodec(chain[i].Type, c)
		}
	}
	return c, nil
}

// ResolveDiscriminator asks every provider implementing
// DiscriminatorResolver for the type mapped under name.
func (r *CodecRegistry) ResolveDiscriminator(name string) (reflect.Type, error) {
	var resolveErr error
	for _, p := range r.providers {
		resolver, ok := p.(DiscriminatorResolver)
		if !ok {
			continue
		}
		t, ok, err := resolver.ResolveDiscriminator(name, r)
		if ok {
			return t, nil
		}
		if err != nil && resolveErr == nil {
			resolveErr = err
		}
	}
	return nil, configErrorf(resolveErr, "a mapped type could not be found: %s", name)
}

// pointerCodec adapts the codec of T to *T. Nil pointers are nulls.
type pointerCodec struct {
	typ   reflect.Type
	inner Codec
}

func (c *pointerCodec) Type() reflect.Type {
	return c.typ
}

func (c *pointerCodec) Encode(w document.Writer, v reflect.Value) error {
	v = Unwrap(v)
	if IsNil(v) {
		return w.WriteNull()
	}
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	return c.inner.Encode(w, v)
}

func (c *pointerCodec) Decode(r document.Reader) (reflect.Value, error) {
	if r.CurrentType() == document.TypeNull {
		return reflect.Value{}, r.ReadNull()
	}
	v, err := c.inner.Decode(r)
	if err != nil || !v.IsValid() {
		return reflect.Value{}, err
	}
	if v.Type() == c.typ {
		return v, nil
	}
	p := reflect.New(c.typ.Elem())
	if err := Assign(p.Elem(), v); err != nil {
		return reflect.Value{}, err
	}
	return p, nil
}

func (c *pointerCodec) String() string {
	return fmt.Sprintf("PointerCodec<%s>", c.typ)
}
