package codec

import (
	"fmt"
	"maps"
	"reflect"
)

// ClassModel is the mapping of one struct or interface type: its fields in
// declaration order indexed by mapped name, the identifier field and the
// discriminator written for polymorphic decoding.
//
// Like FieldModel, a ClassModel must be fully configured before first use.
type ClassModel struct {
	typ              reflect.Type
	collectionName   string
	discriminator    string
	useDiscriminator bool

	fields  []*FieldModel
	byName  map[string]int
	idField *FieldModel
	generic bool

	constructor func() any
}

// NewClassModel introspects t, a struct, pointer to struct or interface
// type. A nil introspector means a fresh ReflectIntrospector.
func NewClassModel(t reflect.Type, registry Registry, introspector Introspector) (*ClassModel, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct && t.Kind() != reflect.Interface {
		return nil, configErrorf(nil, "type %s can not be mapped, only structs and interfaces are supported", t)
	}
	if introspector == nil {
		introspector = NewReflectIntrospector()
	}
	m := &ClassModel{
		typ:              t,
		collectionName:   t.Name(),
		discriminator:    qualifiedName(t),
		useDiscriminator: true,
		byName:           make(map[string]int),
	}
	infos, err := introspector.Fields(t)
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		f, err := newFieldModel(m, registry, info)
		if err != nil {
			return nil, err
		}
		if err := m.addField(f, info.MappedName == IDFieldName); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *ClassModel) addField(f *FieldModel, claimsID bool) error {
	if f.name == DiscriminatorKey {
		return configErrorf(nil, "field %s of %s: '%s' is reserved for the type discriminator",
			f.fieldName, m.Name(), DiscriminatorKey)
	}
	if f.included && (claimsID || f.fieldName == IDDeclaredName) {
		switch {
		case m.idField == nil:
			f.idField = true
			f.name = IDFieldName
		case claimsID:
			// A later explicit "_id" takes the identifier over.
			prev := m.idField
			prev.idField = false
			if err := m.renameField(prev, prev.plainName()); err != nil {
				return err
			}
			f.idField = true
			f.name = IDFieldName
		}
	}
	if idx, ok := m.byName[f.name]; ok {
		return configErrorf(nil, "'%s' is already mapped to '%s'", f.name, m.fields[idx].fieldName)
	}
	m.byName[f.name] = len(m.fields)
	m.fields = append(m.fields, f)
	if f.idField {
		m.idField = f
	}
	if f.typeParameter != "" {
		m.generic = true
	}
	return nil
}

// renameField moves f from its current key to name, keeping its slot.
func (m *ClassModel) renameField(f *FieldModel, name string) error {
	if idx, ok := m.byName[name]; ok && m.fields[idx] != f {
		return configErrorf(nil, "'%s' is already mapped to '%s'", name, m.fields[idx].fieldName)
	}
	idx, ok := m.byName[f.name]
	if !ok || m.fields[idx] != f {
		return configErrorf(nil, "field %s does not belong to %s", f, m)
	}
	delete(m.byName, f.name)
	m.byName[name] = idx
	f.name = name
	return nil
}

func (m *ClassModel) Type() reflect.Type {
	return m.typ
}

// Name returns the simple type name.
func (m *ClassModel) Name() string {
	return m.typ.Name()
}

func (m *ClassModel) CollectionName() string {
	return m.collectionName
}

func (m *ClassModel) SetCollectionName(name string) {
	m.collectionName = name
}

func (m *ClassModel) Discriminator() string {
	return m.discriminator
}

func (m *ClassModel) SetDiscriminator(discriminator string) {
	m.discriminator = discriminator
}

func (m *ClassModel) UseDiscriminator() bool {
	return m.useDiscriminator
}

func (m *ClassModel) SetUseDiscriminator(use bool) {
	m.useDiscriminator = use
}

// Field returns the field mapped under name.
func (m *ClassModel) Field(name string) (*FieldModel, error) {
	f, ok := m.lookup(name)
	if !ok {
		return nil, configErrorf(nil, "%s has no field mapped as '%s'", m, name)
	}
	return f, nil
}

func (m *ClassModel) lookup(name string) (*FieldModel, bool) {
	idx, ok := m.byName[name]
	if !ok {
		return nil, false
	}
	return m.fields[idx], true
}

// Fields returns the fields in declaration order.
func (m *ClassModel) Fields() []*FieldModel {
	out := make([]*FieldModel, len(m.fields))
	copy(out, m.fields)
	return out
}

// IDField returns the identifier field or nil.
func (m *ClassModel) IDField() *FieldModel {
	return m.idField
}

// SetIDField makes the field mapped under name the identifier. The current
// identifier, if any, reverts to its default name.
func (m *ClassModel) SetIDField(name string) error {
	f, err := m.Field(name)
	if err != nil {
		return err
	}
	if f == m.idField {
		return nil
	}
	if prev := m.idField; prev != nil {
		if err := prev.SetIDField(false); err != nil {
			return err
		}
	}
	return f.SetIDField(true)
}

// IsGeneric reports whether some field still has an unbound type parameter.
func (m *ClassModel) IsGeneric() bool {
	return m.generic
}

// SetConstructor replaces reflect.New as the way new instances are made.
// fn must return a pointer to the model type or a value of it.
func (m *ClassModel) SetConstructor(fn func() any) {
	m.constructor = fn
}

// NewInstance returns a pointer to a new zero instance of the model type.
func (m *ClassModel) NewInstance() (v reflect.Value, err error) {
	if m.constructor == nil {
		if m.typ.Kind() != reflect.Struct {
			return reflect.Value{}, configErrorf(nil, "no zero argument constructor was found for the type %s", m.typ)
		}
		return reflect.New(m.typ), nil
	}

	defer func() {
		if r := recover(); r != nil {
			v = reflect.Value{}
			err = configErrorf(fmt.Errorf("%v", r), "constructor of %s failed", m.typ)
		}
	}()
	inst := reflect.ValueOf(m.constructor())
	switch {
	case inst.IsValid() && inst.Type() == reflect.PointerTo(m.typ) && !inst.IsNil():
		return inst, nil
	case inst.IsValid() && inst.Type() == m.typ:
		p := reflect.New(m.typ)
		p.Elem().Set(inst)
		return p, nil
	}
	return reflect.Value{}, configErrorf(nil, "constructor of %s returned %v", m.typ, inst)
}

func (m *ClassModel) String() string {
	return fmt.Sprintf("ClassModel<%s>", m.Name())
}

// specialize returns a copy of m with the type parameters bound by ref
// substituted. m is left untouched.
func (m *ClassModel) specialize(ref *FieldModel) (*ClassModel, error) {
	c := &ClassModel{
		typ:              m.typ,
		collectionName:   m.collectionName,
		discriminator:    m.discriminator,
		useDiscriminator: m.useDiscriminator,
		byName:           maps.Clone(m.byName),
		fields:           make([]*FieldModel, 0, len(m.fields)),
		constructor:      m.constructor,
	}
	if ref.useDiscriminator != nil {
		c.useDiscriminator = *ref.useDiscriminator
	}
	for _, f := range m.fields {
		copied := f.copyTo(c)
		if f.typeParameter != "" {
			if bound, ok := ref.bindings[f.typeParameter]; ok {
				var err error
				if copied, err = f.copyWithType(c, bound); err != nil {
					return nil, err
				}
			}
		}
		if copied.typeParameter != "" {
			c.generic = true
		}
		if copied.idField {
			c.idField = copied
		}
		c.fields = append(c.fields, copied)
	}
	return c, nil
}
