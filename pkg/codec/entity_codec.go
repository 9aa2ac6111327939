package codec

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/ssargent/docmap/pkg/document"
)

// EntityCodec encodes and decodes the entities described by a ClassModel.
//
// Decoding peeks for a "_t" entry and dispatches to the codec of the type it
// names, so a codec for an interface or a base struct decodes every
// registered concrete type. Encoding dispatches on the runtime type.
type EntityCodec struct {
	model    *ClassModel
	registry Registry
	ids      IDGenerator

	specialized sync.Map // binding key -> *EntityCodec
}

// NewEntityCodec returns a codec for model. A nil ids generator means
// KSUIDGenerator.
func NewEntityCodec(model *ClassModel, registry Registry, ids IDGenerator) *EntityCodec {
	if ids == nil {
		ids = KSUIDGenerator{}
	}
	return &EntityCodec{model: model, registry: registry, ids: ids}
}

func (c *EntityCodec) Type() reflect.Type {
	return c.model.Type()
}

func (c *EntityCodec) ClassModel() *ClassModel {
	return c.model
}

func (c *EntityCodec) String() string {
	return fmt.Sprintf("EntityCodec<%s>", c.model)
}

func (c *EntityCodec) Encode(w document.Writer, v reflect.Value) error {
	v = Unwrap(v)
	if IsNil(v) {
		return w.WriteNull()
	}
	actual, err := c.codecForValue(v)
	if err != nil {
		return err
	}
	if entity, ok := actual.(*EntityCodec); ok {
		return entity.encodeFields(w, v)
	}
	return actual.Encode(w, v)
}

func (c *EntityCodec) Decode(r document.Reader) (reflect.Value, error) {
	if r.CurrentType() == document.TypeNull {
		return reflect.Value{}, r.ReadNull()
	}
	actual, err := c.codecForDocument(r)
	if err != nil {
		return reflect.Value{}, err
	}
	if entity, ok := actual.(*EntityCodec); ok {
		return entity.decodeFields(r)
	}
	return actual.Decode(r)
}

// EncodeEntity writes entity, a struct or pointer to struct, to w.
func (c *EntityCodec) EncodeEntity(w document.Writer, entity any) error {
	return c.Encode(w, reflect.ValueOf(entity))
}

// DecodeEntity reads the pending document of r. A null yields nil.
func (c *EntityCodec) DecodeEntity(r document.Reader) (any, error) {
	v, err := c.Decode(r)
	if err != nil || !v.IsValid() {
		return nil, err
	}
	return v.Interface(), nil
}

// Marshal encodes entity into a standalone document.
func (c *EntityCodec) Marshal(entity any) (document.Raw, error) {
	w := document.NewBinaryWriter()
	if err := c.EncodeEntity(w, entity); err != nil {
		return nil, err
	}
	return w.Raw()
}

// Unmarshal decodes a standalone document.
func (c *EntityCodec) Unmarshal(data document.Raw) (any, error) {
	return c.DecodeEntity(document.NewBinaryReader(data))
}

func (c *EntityCodec) codecForValue(v reflect.Value) (Codec, error) {
	rt := v.Type()
	if rt == c.model.typ || (rt.Kind() == reflect.Pointer && rt.Elem() == c.model.typ) {
		return c, nil
	}
	actual, err := c.registry.Lookup(rt)
	if err != nil {
		return nil, configErrorf(err, "no codec for the runtime type %s of a %s value", rt, c.model.Name())
	}
	return actual, nil
}

func (c *EntityCodec) codecForDocument(r document.Reader) (Codec, error) {
	if r.CurrentType() != document.TypeDocument {
		return nil, fmt.Errorf("%w: %s expects a document, found %s", document.ErrUnexpectedType, c.model.Name(), r.CurrentType())
	}
	name, found, err := peekDiscriminator(r)
	if err != nil {
		return nil, err
	}
	if !found || name == c.model.discriminator {
		return c, nil
	}
	t, err := c.registry.ResolveDiscriminator(name)
	if err != nil {
		return nil, err
	}
	if t == c.model.typ {
		return c, nil
	}
	return c.registry.Lookup(t)
}

// peekDiscriminator scans the pending document for a "_t" entry and rewinds
// the reader to where it started.
func peekDiscriminator(r document.Reader) (name string, found bool, err error) {
	if err := r.Mark(); err != nil {
		return "", false, err
	}
	defer func() {
		if resetErr := r.Reset(); err == nil {
			err = resetErr
		}
	}()

	if err := r.ReadStartDocument(); err != nil {
		return "", false, err
	}
	for {
		t, err := r.ReadType()
		if err != nil {
			return "", false, err
		}
		if t == document.TypeEndOfDocument {
			return "", false, nil
		}
		entry, err := r.ReadName()
		if err != nil {
			return "", false, err
		}
		if entry != DiscriminatorKey {
			if err := r.SkipValue(); err != nil {
				return "", false, err
			}
			continue
		}
		if t != document.TypeString {
			return "", false, fmt.Errorf("%w: discriminator must be a string, found %s", document.ErrUnexpectedType, t)
		}
		name, err := r.ReadString()
		if err != nil {
			return "", false, err
		}
		return name, true, nil
	}
}

func (c *EntityCodec) encodeFields(w document.Writer, v reflect.Value) error {
	if err := w.WriteStartDocument(); err != nil {
		return err
	}
	if c.model.useDiscriminator {
		if err := w.WriteName(DiscriminatorKey); err != nil {
			return err
		}
		if err := w.WriteString(c.model.discriminator); err != nil {
			return err
		}
	}
	for _, f := range c.model.fields {
		if err := f.Encode(w, v); err != nil {
			return err
		}
	}
	return w.WriteEndDocument()
}

func (c *EntityCodec) decodeFields(r document.Reader) (reflect.Value, error) {
	entity, err := c.model.NewInstance()
	if err != nil {
		return reflect.Value{}, err
	}
	if err := r.ReadStartDocument(); err != nil {
		return reflect.Value{}, err
	}
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
		f, ok := c.model.lookup(name)
		if name == DiscriminatorKey || !ok {
			if err := r.SkipValue(); err != nil {
				return reflect.Value{}, err
			}
			continue
		}
		if err := f.Decode(r, entity); err != nil {
			return reflect.Value{}, err
		}
	}
	if err := r.ReadEndDocument(); err != nil {
		return reflect.Value{}, err
	}
	return entity, nil
}

// specialize returns the codec used for values reached through ref.
func (c *EntityCodec) specialize(ref *FieldModel) (Codec, error) {
	if !c.model.generic && ref.useDiscriminator == nil {
		return c, nil
	}
	key := ref.bindingKey()
	if cached, ok := c.specialized.Load(key); ok {
		return cached.(*EntityCodec), nil
	}
	model, err := c.model.specialize(ref)
	if err != nil {
		return nil, err
	}
	codec, _ := c.specialized.LoadOrStore(key, NewEntityCodec(model, c.registry, c.ids))
	return codec.(*EntityCodec), nil
}

// HasIdentifier reports whether the identifier field of entity holds a
// non-zero value.
func (c *EntityCodec) HasIdentifier(entity any) (bool, error) {
	f, err := c.identifier()
	if err != nil {
		return false, err
	}
	v := f.Get(reflect.ValueOf(entity))
	return !IsNil(v) && !Unwrap(v).IsZero(), nil
}

// EnsureIdentifier assigns a generated identifier to entity, a pointer,
// unless it already has one.
func (c *EntityCodec) EnsureIdentifier(entity any) error {
	has, err := c.HasIdentifier(entity)
	if err != nil || has {
		return err
	}
	f := c.model.idField
	id := reflect.New(f.Type()).Elem()
	if err := assignID(id, c.ids.Generate()); err != nil {
		return configErrorf(err, "identifier field %s", f)
	}
	return f.Set(reflect.ValueOf(entity), id)
}

// IdentifierValue returns the encoded identifier of entity, suitable as a
// lookup key.
func (c *EntityCodec) IdentifierValue(entity any) (document.RawValue, error) {
	f, err := c.identifier()
	if err != nil {
		return document.RawValue{}, err
	}
	return c.encodeID(f, f.Get(reflect.ValueOf(entity)))
}

// EncodeIdentifier encodes a bare identifier value the way IdentifierValue
// encodes it on an entity. Generated id types convert to string identifier
// fields.
func (c *EntityCodec) EncodeIdentifier(id any) (document.RawValue, error) {
	f, err := c.identifier()
	if err != nil {
		return document.RawValue{}, err
	}
	v := reflect.New(f.Type()).Elem()
	if err := assignID(v, id); err != nil {
		return document.RawValue{}, configErrorf(err, "identifier field %s", f)
	}
	return c.encodeID(f, v)
}

func (c *EntityCodec) identifier() (*FieldModel, error) {
	if c.model.idField == nil {
		return nil, configErrorf(nil, "%s has no identifier field", c.model)
	}
	return c.model.idField, nil
}

func (c *EntityCodec) encodeID(f *FieldModel, v reflect.Value) (document.RawValue, error) {
	codec, err := f.Codec()
	if err != nil {
		return document.RawValue{}, err
	}
	w := document.NewBinaryWriter()
	if err := w.WriteStartDocument(); err != nil {
		return document.RawValue{}, err
	}
	if err := w.WriteName(IDFieldName); err != nil {
		return document.RawValue{}, err
	}
	if err := codec.Encode(w, Unwrap(v)); err != nil {
		return document.RawValue{}, err
	}
	if err := w.WriteEndDocument(); err != nil {
		return document.RawValue{}, err
	}
	raw, err := w.Raw()
	if err != nil {
		return document.RawValue{}, err
	}
	value, _ := raw.Lookup(IDFieldName)
	return value, nil
}

func assignID(dst reflect.Value, id any) error {
	v := reflect.ValueOf(id)
	if v.IsValid() && dst.Kind() == reflect.String && !v.Type().AssignableTo(dst.Type()) && v.Kind() != reflect.String {
		s, ok := id.(fmt.Stringer)
		if !ok {
			return configErrorf(nil, "can not use a %s as a string identifier", v.Type())
		}
		v = reflect.ValueOf(s.String())
	}
	return Assign(dst, v)
}
