package codec

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// Annotation is one key/value pair of a struct field tag.
type Annotation struct {
	Key   string
	Value string
}

// FieldInfo describes one declared field of a mapped type.
type FieldInfo struct {
	Name  string // declared Go name
	Index []int  // path for reflect.Value.FieldByIndex
	Type  reflect.Type

	MappedName    string // empty means the declared name
	TypeParameter string
	Bindings      map[string]reflect.Type
	Annotations   []Annotation

	Final     bool
	Static    bool
	Transient bool

	StoreNulls       bool
	StoreEmpties     bool
	UseDiscriminator *bool
}

// Introspector enumerates the fields of a type in a stable order.
type Introspector interface {
	Fields(t reflect.Type) ([]FieldInfo, error)
}

// ReflectIntrospector reads fields through package reflect and policy from
// struct tags:
//
//	Name  string         `doc:"name"`
//	Tags  []string       `doc:"tags,empties"`
//	Note  *string        `doc:",nulls"`
//	Value any            `doc:"value,param=T"`
//	Box   Box            `doc:"box,bind=T:int32,nodiscriminator"`
//	Cache map[string]int `doc:"-"`
//
// Without a doc tag the json tag name is used. Embedded structs without a
// name are flattened following Go's visibility rules. Unexported fields are
// reported as final and `-` marks a field transient.
type ReflectIntrospector struct {
	mu    sync.RWMutex
	names map[string]reflect.Type
}

// NewReflectIntrospector returns an introspector whose binding name table
// knows the Go scalar types, time.Time, []byte, ksuid.KSUID and uuid.UUID.
func NewReflectIntrospector() *ReflectIntrospector {
	i := &ReflectIntrospector{names: make(map[string]reflect.Type)}
	for _, t := range []reflect.Type{
		reflect.TypeFor[string](), reflect.TypeFor[bool](),
		reflect.TypeFor[int](), reflect.TypeFor[int8](), reflect.TypeFor[int16](),
		reflect.TypeFor[int32](), reflect.TypeFor[int64](),
		reflect.TypeFor[uint](), reflect.TypeFor[uint8](), reflect.TypeFor[uint16](),
		reflect.TypeFor[uint32](), reflect.TypeFor[uint64](),
		reflect.TypeFor[float32](), reflect.TypeFor[float64](),
		reflect.TypeFor[time.Time](), reflect.TypeFor[ksuid.KSUID](), reflect.TypeFor[uuid.UUID](),
	} {
		i.names[t.String()] = t
	}
	i.names["byte"] = reflect.TypeFor[byte]()
	i.names["any"] = reflect.TypeFor[any]()
	return i
}

// RegisterTypeName makes t available to bind= tag options under name.
func (i *ReflectIntrospector) RegisterTypeName(name string, t reflect.Type) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.names[name] = t
}

// LookupTypeName resolves a type expression built from registered names
// and the *T, []T and map[string]T constructors.
func (i *ReflectIntrospector) LookupTypeName(name string) (reflect.Type, bool) {
	name = strings.TrimSpace(name)
	switch {
	case strings.HasPrefix(name, "*"):
		elem, ok := i.LookupTypeName(name[1:])
		if !ok {
			return nil, false
		}
		return reflect.PointerTo(elem), true
	case strings.HasPrefix(name, "[]"):
		elem, ok := i.LookupTypeName(name[2:])
		if !ok {
			return nil, false
		}
		return reflect.SliceOf(elem), true
	case strings.HasPrefix(name, "map[string]"):
		elem, ok := i.LookupTypeName(name[len("map[string]"):])
		if !ok {
			return nil, false
		}
		return reflect.MapOf(reflect.TypeFor[string](), elem), true
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	t, ok := i.names[name]
	return t, ok
}

// Fields returns the mappable fields of a struct type in declaration order.
// Interfaces have no fields.
func (i *ReflectIntrospector) Fields(t reflect.Type) ([]FieldInfo, error) {
	if t.Kind() == reflect.Interface {
		return nil, nil
	}
	if t.Kind() != reflect.Struct {
		return nil, configErrorf(nil, "type %s is not a struct", t)
	}
	var collected []FieldInfo
	if err := i.collect(t, nil, map[reflect.Type]bool{t: true}, &collected); err != nil {
		return nil, err
	}

	// Drop fields hidden by shallower or ambiguous promotions.
	visible := collected[:0]
	for _, info := range collected {
		dominant, ok := t.FieldByName(info.Name)
		if ok && slices.Equal(dominant.Index, info.Index) {
			visible = append(visible, info)
		}
	}
	return visible, nil
}

func (i *ReflectIntrospector) collect(t reflect.Type, index []int, seen map[reflect.Type]bool, out *[]FieldInfo) error {
	for n := 0; n < t.NumField(); n++ {
		sf := t.Field(n)
		path := append(append([]int(nil), index...), n)
		opts, err := parseDocTag(sf)
		if err != nil {
			return err
		}
		if sf.Anonymous && opts.name == "" && !opts.skip && sf.Type.Kind() == reflect.Struct {
			if !seen[sf.Type] {
				seen[sf.Type] = true
				if err := i.collect(sf.Type, path, seen, out); err != nil {
					return err
				}
				delete(seen, sf.Type)
			}
			continue
		}

		info := FieldInfo{
			Name:             sf.Name,
			Index:            path,
			Type:             sf.Type,
			MappedName:       opts.name,
			TypeParameter:    opts.param,
			Annotations:      parseStructTag(string(sf.Tag)),
			Final:            !sf.IsExported(),
			Transient:        opts.skip,
			StoreNulls:       opts.nulls,
			StoreEmpties:     opts.empties,
			UseDiscriminator: opts.discriminator,
		}
		for _, bind := range opts.binds {
			param, typeName, ok := strings.Cut(bind, ":")
			if !ok {
				return configErrorf(nil, "field %s.%s: binding %q must look like T:type", t.Name(), sf.Name, bind)
			}
			bound, ok := i.LookupTypeName(typeName)
			if !ok {
				return configErrorf(nil, "field %s.%s: unknown type %q in binding for %s", t.Name(), sf.Name, typeName, param)
			}
			if info.Bindings == nil {
				info.Bindings = make(map[string]reflect.Type)
			}
			info.Bindings[strings.TrimSpace(param)] = bound
		}
		*out = append(*out, info)
	}
	return nil
}

type tagOptions struct {
	name          string
	skip          bool
	nulls         bool
	empties       bool
	discriminator *bool
	param         string
	binds         []string
}

func parseDocTag(sf reflect.StructField) (tagOptions, error) {
	var opts tagOptions
	tag, ok := sf.Tag.Lookup("doc")
	if !ok {
		jsonTag := sf.Tag.Get("json")
		if jsonTag == "-" {
			opts.skip = true
			return opts, nil
		}
		opts.name, _, _ = strings.Cut(jsonTag, ",")
		return opts, nil
	}
	if tag == "-" {
		opts.skip = true
		return opts, nil
	}
	parts := strings.Split(tag, ",")
	opts.name = parts[0]
	for _, opt := range parts[1:] {
		switch {
		case opt == "":
		case opt == "nulls":
			opts.nulls = true
		case opt == "empties":
			opts.empties = true
		case opt == "discriminator":
			use := true
			opts.discriminator = &use
		case opt == "nodiscriminator":
			use := false
			opts.discriminator = &use
		case strings.HasPrefix(opt, "param="):
			opts.param = strings.TrimPrefix(opt, "param=")
		case strings.HasPrefix(opt, "bind="):
			opts.binds = append(opts.binds, strings.TrimPrefix(opt, "bind="))
		default:
			return opts, configErrorf(nil, "field %s: unknown doc tag option %q", sf.Name, opt)
		}
	}
	return opts, nil
}

// parseStructTag splits a conventional `key:"value" key2:"value2"` tag.
func parseStructTag(tag string) []Annotation {
	var annotations []Annotation
	for tag != "" {
		i := 0
		for i < len(tag) && tag[i] == ' ' {
			i++
		}
		tag = tag[i:]
		if tag == "" {
			break
		}
		i = 0
		for i < len(tag) && tag[i] > ' ' && tag[i] != ':' && tag[i] != '"' && tag[i] != 0x7f {
			i++
		}
		if i == 0 || i+1 >= len(tag) || tag[i] != ':' || tag[i+1] != '"' {
			break
		}
		key := tag[:i]
		tag = tag[i+1:]

		i = 1
		for i < len(tag) && tag[i] != '"' {
			if tag[i] == '\\' {
				i++
			}
			i++
		}
		if i >= len(tag) {
			break
		}
		quoted := tag[:i+1]
		tag = tag[i+1:]
		value, err := strconv.Unquote(quoted)
		if err != nil {
			break
		}
		annotations = append(annotations, Annotation{Key: key, Value: value})
	}
	return annotations
}

func qualifiedName(t reflect.Type) string {
	if t.PkgPath() == "" {
		return t.String()
	}
	return fmt.Sprintf("%s.%s", t.PkgPath(), t.Name())
}
