package codec

import (
	"fmt"
	"reflect"
)

// ContainerKind classifies one level of a field's type nesting.
type ContainerKind int

const (
	ContainerLeaf ContainerKind = iota
	ContainerList
	ContainerSet
	ContainerMap
)

func (k ContainerKind) String() string {
	switch k {
	case ContainerList:
		return "list"
	case ContainerSet:
		return "set"
	case ContainerMap:
		return "map"
	default:
		return "leaf"
	}
}

// ContainerType is one entry of a container chain: the concrete Go type to
// instantiate at that nesting level.
type ContainerType struct {
	Kind ContainerKind
	Type reflect.Type
}

func (c ContainerType) String() string {
	return fmt.Sprintf("%s(%s)", c.Kind, c.Type)
}

// ExtractContainers linearizes the container nesting of t, outermost first.
// The chain always ends with a leaf:
//
//	[][]map[string]float64  ->  list, list, map, leaf(float64)
//	map[string]struct{}     ->  set, leaf(string)
//	[]byte                  ->  leaf([]byte)
//
// Maps must have string keys unless they are sets (map[K]struct{}).
func ExtractContainers(t reflect.Type) ([]ContainerType, error) {
	var chain []ContainerType
	for {
		switch {
		case isBytes(t):
			return append(chain, ContainerType{Kind: ContainerLeaf, Type: t}), nil
		case isSet(t):
			chain = append(chain, ContainerType{Kind: ContainerSet, Type: t})
			t = t.Key()
		case t.Kind() == reflect.Map:
			if t.Key().Kind() != reflect.String {
				return nil, configErrorf(nil, "map key types must be strings, found %s instead", t.Key())
			}
			chain = append(chain, ContainerType{Kind: ContainerMap, Type: t})
			t = t.Elem()
		case t.Kind() == reflect.Slice || t.Kind() == reflect.Array:
			chain = append(chain, ContainerType{Kind: ContainerList, Type: t})
			t = t.Elem()
		default:
			return append(chain, ContainerType{Kind: ContainerLeaf, Type: t}), nil
		}
	}
}

func isBytes(t reflect.Type) bool {
	return (t.Kind() == reflect.Slice || t.Kind() == reflect.Array) && t.Elem().Kind() == reflect.Uint8
}

func isSet(t reflect.Type) bool {
	return t.Kind() == reflect.Map && t.Elem().Kind() == reflect.Struct && t.Elem().NumField() == 0
}
