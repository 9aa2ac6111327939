package codec

import (
	"reflect"
	"sync"
)

// ProviderBuilder collects the types an EntityProvider maps.
//
//	provider := codec.NewProviderBuilder().
//		RegisterValues(User{}, Address{}).
//		Configure(reflect.TypeFor[User](), func(m *codec.ClassModel) error {
//			m.SetCollectionName("users")
//			return nil
//		}).
//		Build()
type ProviderBuilder struct {
	types            []reflect.Type
	seen             map[reflect.Type]bool
	configure        map[reflect.Type][]func(*ClassModel) error
	ids              IDGenerator
	introspector     Introspector
	useDiscriminator *bool
}

func NewProviderBuilder() *ProviderBuilder {
	return &ProviderBuilder{
		seen:      make(map[reflect.Type]bool),
		configure: make(map[reflect.Type][]func(*ClassModel) error),
	}
}

// Register adds struct, pointer to struct or interface types. Registering
// a type twice has no effect.
func (b *ProviderBuilder) Register(types ...reflect.Type) *ProviderBuilder {
	for _, t := range types {
		t = baseType(t)
		if b.seen[t] {
			continue
		}
		b.seen[t] = true
		b.types = append(b.types, t)
	}
	return b
}

// RegisterValues registers the types of sample values.
func (b *ProviderBuilder) RegisterValues(samples ...any) *ProviderBuilder {
	for _, s := range samples {
		b.Register(reflect.TypeOf(s))
	}
	return b
}

// Configure adds a hook run on the ClassModel of t right after it is built
// and before it is used. The type is registered as well.
func (b *ProviderBuilder) Configure(t reflect.Type, fn func(*ClassModel) error) *ProviderBuilder {
	b.Register(t)
	t = baseType(t)
	b.configure[t] = append(b.configure[t], fn)
	return b
}

func (b *ProviderBuilder) IDGenerator(ids IDGenerator) *ProviderBuilder {
	b.ids = ids
	return b
}

func (b *ProviderBuilder) Introspector(i Introspector) *ProviderBuilder {
	b.introspector = i
	return b
}

// UseDiscriminator sets the discriminator default of every model built.
func (b *ProviderBuilder) UseDiscriminator(use bool) *ProviderBuilder {
	b.useDiscriminator = &use
	return b
}

// Build returns the provider. Registered types become available to bind=
// tag options under their simple names when the introspector is a
// *ReflectIntrospector.
func (b *ProviderBuilder) Build() *EntityProvider {
	introspector := b.introspector
	if introspector == nil {
		introspector = NewReflectIntrospector()
	}
	if names, ok := introspector.(*ReflectIntrospector); ok {
		for _, t := range b.types {
			names.RegisterTypeName(t.Name(), t)
			names.RegisterTypeName(qualifiedName(t), t)
		}
	}
	ids := b.ids
	if ids == nil {
		ids = KSUIDGenerator{}
	}
	p := &EntityProvider{
		types:            make(map[reflect.Type]bool, len(b.types)),
		order:            append([]reflect.Type(nil), b.types...),
		configure:        make(map[reflect.Type][]func(*ClassModel) error, len(b.configure)),
		ids:              ids,
		introspector:     introspector,
		useDiscriminator: b.useDiscriminator,
	}
	for _, t := range b.types {
		p.types[t] = true
	}
	for t, fns := range b.configure {
		p.configure[t] = append([]func(*ClassModel) error(nil), fns...)
	}
	return p
}

// EntityProvider supplies entity codecs for a fixed set of types. Class
// models are built on first lookup and cached; a provider serves the
// registry that first looks a type up.
type EntityProvider struct {
	types            map[reflect.Type]bool
	order            []reflect.Type
	configure        map[reflect.Type][]func(*ClassModel) error
	ids              IDGenerator
	introspector     Introspector
	useDiscriminator *bool

	codecs sync.Map // reflect.Type -> *EntityCodec
}

// Lookup provides an *EntityCodec for a registered type or a pointer to
// one.
func (p *EntityProvider) Lookup(t reflect.Type, registry Registry) (Codec, bool, error) {
	if t.Kind() == reflect.Pointer && t.Elem().Kind() != reflect.Struct {
		return nil, false, nil
	}
	t = baseType(t)
	if !p.types[t] {
		return nil, false, nil
	}
	c, err := p.entityCodec(t, registry)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// ClassModel returns the model of a registered type, building it if needed.
func (p *EntityProvider) ClassModel(t reflect.Type, registry Registry) (*ClassModel, error) {
	t = baseType(t)
	if !p.types[t] {
		return nil, configErrorf(nil, "type %s is not registered", t)
	}
	c, err := p.entityCodec(t, registry)
	if err != nil {
		return nil, err
	}
	return c.model, nil
}

// ResolveDiscriminator finds the registered type whose model carries name.
// Types whose model can not be built are skipped; the first such error is
// reported only when no other type matches.
func (p *EntityProvider) ResolveDiscriminator(name string, registry Registry) (reflect.Type, bool, error) {
	var buildErr error
	for _, t := range p.order {
		c, err := p.entityCodec(t, registry)
		if err != nil {
			if buildErr == nil {
				buildErr = err
			}
			continue
		}
		if c.model.discriminator == name {
			return t, true, nil
		}
	}
	return nil, false, buildErr
}

// Registered returns the registered types in registration order.
func (p *EntityProvider) Registered() []reflect.Type {
	return append([]reflect.Type(nil), p.order...)
}

func (p *EntityProvider) entityCodec(t reflect.Type, registry Registry) (*EntityCodec, error) {
	if c, ok := p.codecs.Load(t); ok {
		return c.(*EntityCodec), nil
	}
	model, err := NewClassModel(t, registry, p.introspector)
	if err != nil {
		return nil, err
	}
	if p.useDiscriminator != nil {
		model.SetUseDiscriminator(*p.useDiscriminator)
	}
	for _, fn := range p.configure[t] {
		if err := fn(model); err != nil {
			return nil, configErrorf(err, "configuring %s", model)
		}
	}
	c, _ := p.codecs.LoadOrStore(t, NewEntityCodec(model, registry, p.ids))
	return c.(*EntityCodec), nil
}

func baseType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}
