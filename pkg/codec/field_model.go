package codec

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/ssargent/docmap/pkg/document"
)

// FieldModel holds the mapping metadata of one field of a ClassModel.
//
// Setters are not synchronized. Configure a model completely before the
// first encode or decode that uses it.
type FieldModel struct {
	owner    *ClassModel
	registry Registry

	index       []int
	fieldName   string
	defaultName string
	name        string

	typ           reflect.Type
	typeParameter string
	bindings      map[string]reflect.Type
	containers    []ContainerType
	containerErr  error
	annotations   []Annotation

	final            bool
	included         bool
	storeNulls       bool
	storeEmpties     bool
	useDiscriminator *bool
	idField          bool
	shouldSerialize  ShouldSerialize

	codec atomic.Pointer[codecRef]
}

type codecRef struct {
	codec Codec
}

func newFieldModel(owner *ClassModel, registry Registry, info FieldInfo) (*FieldModel, error) {
	name := info.MappedName
	if name == "" {
		name = info.Name
	}
	f := &FieldModel{
		owner:            owner,
		registry:         registry,
		index:            info.Index,
		fieldName:        info.Name,
		defaultName:      name,
		name:             name,
		typ:              info.Type,
		bindings:         maps.Clone(info.Bindings),
		annotations:      info.Annotations,
		final:            info.Final,
		included:         !(info.Final || info.Static || info.Transient),
		storeNulls:       info.StoreNulls,
		storeEmpties:     info.StoreEmpties,
		useDiscriminator: info.UseDiscriminator,
	}
	if info.TypeParameter != "" {
		if info.Type.Kind() != reflect.Interface {
			return nil, configErrorf(nil, "field %s: type parameter %s requires an interface-typed field, found %s",
				info.Name, info.TypeParameter, info.Type)
		}
		f.typeParameter = info.TypeParameter
	}
	containers, err := ExtractContainers(info.Type)
	if err != nil {
		err = configErrorf(err, "field %s of %s", info.Name, owner.Name())
		if f.included {
			return nil, err
		}
		// Excluded fields keep the error until someone includes them.
		f.containerErr = err
		containers = []ContainerType{{Kind: ContainerLeaf, Type: info.Type}}
	}
	f.containers = containers
	f.shouldSerialize = shouldSerializeFor(containers[0].Kind)
	return f, nil
}

// copyTo clones f into another owner, keeping every policy flag and
// dropping the cached codec.
func (f *FieldModel) copyTo(owner *ClassModel) *FieldModel {
	c := &FieldModel{
		owner:            owner,
		registry:         f.registry,
		index:            f.index,
		fieldName:        f.fieldName,
		defaultName:      f.defaultName,
		name:             f.name,
		typ:              f.typ,
		typeParameter:    f.typeParameter,
		bindings:         maps.Clone(f.bindings),
		containers:       f.containers,
		containerErr:     f.containerErr,
		annotations:      f.annotations,
		final:            f.final,
		included:         f.included,
		storeNulls:       f.storeNulls,
		storeEmpties:     f.storeEmpties,
		useDiscriminator: f.useDiscriminator,
		idField:          f.idField,
		shouldSerialize:  f.shouldSerialize,
	}
	return c
}

// copyWithType clones f into owner with its type parameter replaced by a
// concrete type.
func (f *FieldModel) copyWithType(owner *ClassModel, bound reflect.Type) (*FieldModel, error) {
	if !bound.AssignableTo(f.typ) {
		return nil, configErrorf(nil, "field %s: bound type %s is not assignable to %s", f, bound, f.typ)
	}
	containers, err := ExtractContainers(bound)
	if err != nil {
		return nil, configErrorf(err, "field %s", f)
	}
	c := f.copyTo(owner)
	c.typ = bound
	c.typeParameter = ""
	c.containers = containers
	c.containerErr = nil
	c.shouldSerialize = shouldSerializeFor(containers[0].Kind)
	return c, nil
}

// Owner returns the ClassModel this field belongs to.
func (f *FieldModel) Owner() *ClassModel {
	return f.owner
}

// Name returns the mapped document name.
func (f *FieldModel) Name() string {
	return f.name
}

// SetName changes the mapped name. Identifier fields must stay "_id" and a
// name already used by another field of the owner is rejected.
func (f *FieldModel) SetName(name string) error {
	return f.rename(name)
}

// FieldName returns the declared Go field name.
func (f *FieldModel) FieldName() string {
	return f.fieldName
}

// Type returns the effective field type.
func (f *FieldModel) Type() reflect.Type {
	return f.typ
}

// TypeParameter returns the unbound type parameter name, if any.
func (f *FieldModel) TypeParameter() string {
	return f.typeParameter
}

// Containers returns the container chain, outermost first.
func (f *FieldModel) Containers() []ContainerType {
	return slices.Clone(f.containers)
}

func (f *FieldModel) IsIncluded() bool {
	return f.included
}

// SetIncluded toggles whether the field takes part in encode and decode.
// Unexported fields can not be included.
func (f *FieldModel) SetIncluded(include bool) error {
	if include && f.final {
		return configErrorf(nil, "field %s is unexported and can not be included", f)
	}
	if include && f.containerErr != nil {
		return f.containerErr
	}
	f.included = include
	return nil
}

func (f *FieldModel) StoreNulls() bool {
	return f.storeNulls
}

func (f *FieldModel) SetStoreNulls(storeNulls bool) {
	f.storeNulls = storeNulls
}

func (f *FieldModel) StoreEmpties() bool {
	return f.storeEmpties
}

func (f *FieldModel) SetStoreEmpties(storeEmpties bool) {
	f.storeEmpties = storeEmpties
}

// UseDiscriminator returns the field-level override for embedded entities,
// nil when the referenced class model decides.
func (f *FieldModel) UseDiscriminator() *bool {
	return f.useDiscriminator
}

func (f *FieldModel) SetUseDiscriminator(use bool) {
	f.useDiscriminator = &use
	f.codec.Store(nil)
}

func (f *FieldModel) IsIDField() bool {
	return f.idField
}

// SetIDField marks the field as identifier, renaming it to "_id", or
// unmarks it and restores its default name.
func (f *FieldModel) SetIDField(id bool) error {
	if id {
		if f.idField {
			return nil
		}
		if f.owner != nil && f.owner.idField != nil {
			return configErrorf(nil, "%s already has the identifier field %s", f.owner, f.owner.idField)
		}
		if err := f.rename(IDFieldName); err != nil {
			return err
		}
		f.idField = true
		if f.owner != nil {
			f.owner.idField = f
		}
		return nil
	}
	if !f.idField {
		return nil
	}
	f.idField = false
	if err := f.rename(f.plainName()); err != nil {
		f.idField = true
		return err
	}
	if f.owner != nil && f.owner.idField == f {
		f.owner.idField = nil
	}
	return nil
}

// plainName is the name the field reverts to when it stops being the
// identifier.
func (f *FieldModel) plainName() string {
	if f.defaultName == IDFieldName {
		return f.fieldName
	}
	return f.defaultName
}

func (f *FieldModel) Annotations() []Annotation {
	return slices.Clone(f.annotations)
}

// Annotation returns the tag value stored under key.
func (f *FieldModel) Annotation(key string) (string, bool) {
	for _, a := range f.annotations {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

func (f *FieldModel) HasAnnotation(key string) bool {
	_, ok := f.Annotation(key)
	return ok
}

// BindType binds a type parameter of the referenced type to t for values
// reached through this field.
func (f *FieldModel) BindType(param string, t reflect.Type) {
	if f.bindings == nil {
		f.bindings = make(map[string]reflect.Type)
	}
	f.bindings[param] = t
	f.codec.Store(nil)
}

func (f *FieldModel) BoundType(param string) (reflect.Type, bool) {
	t, ok := f.bindings[param]
	return t, ok
}

// SetShouldSerialize replaces the encode predicate.
func (f *FieldModel) SetShouldSerialize(fn ShouldSerialize) {
	f.shouldSerialize = fn
}

func (f *FieldModel) ShouldSerialize(value reflect.Value) bool {
	return f.shouldSerialize(f, value)
}

// Get returns the field value of entity (a struct or pointer to struct).
func (f *FieldModel) Get(entity reflect.Value) reflect.Value {
	s := Unwrap(entity)
	for s.Kind() == reflect.Pointer {
		if s.IsNil() {
			return reflect.Value{}
		}
		s = s.Elem()
	}
	return s.FieldByIndex(f.index)
}

// Set stores v into the field of entity, which must be a non-nil pointer.
func (f *FieldModel) Set(entity, v reflect.Value) error {
	s := Unwrap(entity)
	if s.Kind() != reflect.Pointer || s.IsNil() {
		return configErrorf(nil, "field %s: entity must be a non-nil pointer, got %s", f, s.Kind())
	}
	fv := s.Elem().FieldByIndex(f.index)
	if !fv.CanSet() {
		return configErrorf(nil, "field %s can not be set", f)
	}
	if err := Assign(fv, v); err != nil {
		return configErrorf(err, "field %s", f)
	}
	return nil
}

// Codec returns the field codec, resolving it on first use. Concurrent
// first calls may each resolve a codec; one of them is kept.
func (f *FieldModel) Codec() (Codec, error) {
	if ref := f.codec.Load(); ref != nil {
		return ref.codec, nil
	}
	c, err := f.wrap(f.containers)
	if err != nil {
		return nil, err
	}
	f.codec.CompareAndSwap(nil, &codecRef{codec: c})
	return f.codec.Load().codec, nil
}

// Encode writes the field of entity when it is included and its value
// passes ShouldSerialize.
func (f *FieldModel) Encode(w document.Writer, entity reflect.Value) error {
	if !f.included {
		return nil
	}
	c, err := f.Codec()
	if err != nil {
		return err
	}
	value := f.Get(entity)
	if !f.shouldSerialize(f, value) {
		return nil
	}
	if err := w.WriteName(f.name); err != nil {
		return err
	}
	if err := c.Encode(w, Unwrap(value)); err != nil {
		return fmt.Errorf("encoding %s: %w", f, err)
	}
	return nil
}

// Decode reads the current value into the field of entity. Values of
// excluded fields are skipped.
func (f *FieldModel) Decode(r document.Reader, entity reflect.Value) error {
	if !f.included {
		return r.SkipValue()
	}
	c, err := f.Codec()
	if err != nil {
		return err
	}
	v, err := c.Decode(r)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", f, err)
	}
	return f.Set(entity, v)
}

func (f *FieldModel) String() string {
	owner := "?"
	if f.owner != nil {
		owner = f.owner.Name()
	}
	return fmt.Sprintf("%s#%s:%s", owner, f.name, f.typ)
}

func (f *FieldModel) rename(name string) error {
	if name == "" {
		return configErrorf(nil, "field %s: mapped names can not be empty", f)
	}
	if f.idField && name != IDFieldName {
		return configErrorf(nil, "identifier fields can not be renamed, they must be mapped as '%s'", IDFieldName)
	}
	if name == DiscriminatorKey {
		return configErrorf(nil, "'%s' is reserved for the type discriminator", DiscriminatorKey)
	}
	if name == f.name {
		return nil
	}
	if f.owner != nil {
		return f.owner.renameField(f, name)
	}
	f.name = name
	return nil
}

// wrap builds the codec for a container chain, innermost first.
func (f *FieldModel) wrap(chain []ContainerType) (Codec, error) {
	head := chain[0]
	switch head.Kind {
	case ContainerList, ContainerSet, ContainerMap:
		inner, err := f.wrap(chain[1:])
		if err != nil {
			return nil, err
		}
		switch head.Kind {
		case ContainerList:
			return newCollectionCodec(head.Type, inner), nil
		case ContainerSet:
			return newSetCodec(head.Type, inner), nil
		default:
			return newMapCodec(head.Type, inner), nil
		}
	}

	if f.registry == nil {
		return nil, configErrorf(nil, "field %s has no registry", f)
	}
	c, err := f.registry.Lookup(head.Type)
	if err != nil {
		return nil, configErrorf(err, "can not find codec for the field '%s' of type '%s'", f.name, head.Type)
	}
	if entity, ok := c.(*EntityCodec); ok {
		return entity.specialize(f)
	}
	return c, nil
}

// bindingKey identifies the specialization context this field provides.
func (f *FieldModel) bindingKey() string {
	var b strings.Builder
	for _, param := range slices.Sorted(maps.Keys(f.bindings)) {
		fmt.Fprintf(&b, "%s=%s;", param, f.bindings[param])
	}
	switch {
	case f.useDiscriminator == nil:
		b.WriteString("discriminator=inherit")
	case *f.useDiscriminator:
		b.WriteString("discriminator=true")
	default:
		b.WriteString("discriminator=false")
	}
	return b.String()
}
