package codec

import "reflect"

// ShouldSerialize decides whether a field value is written during encode.
type ShouldSerialize func(field *FieldModel, value reflect.Value) bool

// DefaultShouldSerialize skips nil values unless the field stores nulls.
func DefaultShouldSerialize(field *FieldModel, value reflect.Value) bool {
	if IsNil(value) {
		return field.StoreNulls()
	}
	return true
}

// CollectionShouldSerialize additionally skips empty lists and sets unless
// the field stores empties.
func CollectionShouldSerialize(field *FieldModel, value reflect.Value) bool {
	if IsNil(value) {
		return field.StoreNulls()
	}
	if Unwrap(value).Len() == 0 {
		return field.StoreEmpties()
	}
	return true
}

// MapShouldSerialize additionally skips empty maps unless the field stores
// empties.
func MapShouldSerialize(field *FieldModel, value reflect.Value) bool {
	if IsNil(value) {
		return field.StoreNulls()
	}
	if Unwrap(value).Len() == 0 {
		return field.StoreEmpties()
	}
	return true
}

func shouldSerializeFor(kind ContainerKind) ShouldSerialize {
	switch kind {
	case ContainerList, ContainerSet:
		return CollectionShouldSerialize
	case ContainerMap:
		return MapShouldSerialize
	default:
		return DefaultShouldSerialize
	}
}
