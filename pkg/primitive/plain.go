package primitive

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/docmap/pkg/codec"
	"github.com/ssargent/docmap/pkg/document"
)

// IdentifierCandidates encodes text as every identifier type it parses as:
// a ksuid, a uuid and always a plain string, in that order. Stores keyed by
// encoded identifiers can try each until one matches.
func IdentifierCandidates(registry codec.Registry, text string) ([]document.RawValue, error) {
	var values []any
	if id, err := ksuid.Parse(text); err == nil {
		values = append(values, id)
	}
	if id, err := uuid.Parse(text); err == nil {
		values = append(values, id)
	}
	values = append(values, text)

	candidates := make([]document.RawValue, 0, len(values))
	for _, v := range values {
		encoded, err := encodeValue(registry, v)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, encoded)
	}
	return candidates, nil
}

func encodeValue(registry codec.Registry, v any) (document.RawValue, error) {
	c, err := registry.Lookup(reflect.TypeOf(v))
	if err != nil {
		return document.RawValue{}, err
	}
	w := document.NewBinaryWriter()
	if err := w.WriteStartDocument(); err != nil {
		return document.RawValue{}, err
	}
	if err := w.WriteName("v"); err != nil {
		return document.RawValue{}, err
	}
	if err := c.Encode(w, reflect.ValueOf(v)); err != nil {
		return document.RawValue{}, err
	}
	if err := w.WriteEndDocument(); err != nil {
		return document.RawValue{}, err
	}
	raw, err := w.Raw()
	if err != nil {
		return document.RawValue{}, err
	}
	value, _ := raw.Lookup("v")
	return value, nil
}

// ReadPlain reads the pending value of r into plain Go values: documents
// become maps, arrays slices and identifiers their text form. Discriminators
// are kept as ordinary entries, so no entity types are needed.
func ReadPlain(r document.Reader) (any, error) {
	switch t := r.CurrentType(); t {
	case document.TypeDocument:
		if err := r.ReadStartDocument(); err != nil {
			return nil, err
		}
		m := map[string]any{}
		for {
			et, err := r.ReadType()
			if err != nil {
				return nil, err
			}
			if et == document.TypeEndOfDocument {
				return m, r.ReadEndDocument()
			}
			name, err := r.ReadName()
			if err != nil {
				return nil, err
			}
			if m[name], err = ReadPlain(r); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
		}
	case document.TypeArray:
		if err := r.ReadStartArray(); err != nil {
			return nil, err
		}
		list := []any{}
		for {
			et, err := r.ReadType()
			if err != nil {
				return nil, err
			}
			if et == document.TypeEndOfDocument {
				return list, r.ReadEndArray()
			}
			v, err := ReadPlain(r)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", len(list), err)
			}
			list = append(list, v)
		}
	case document.TypeString:
		return r.ReadString()
	case document.TypeInt32:
		return r.ReadInt32()
	case document.TypeInt64:
		return r.ReadInt64()
	case document.TypeDouble:
		return r.ReadDouble()
	case document.TypeBoolean:
		return r.ReadBoolean()
	case document.TypeDateTime:
		ms, err := r.ReadDateTime()
		if err != nil {
			return nil, err
		}
		return time.UnixMilli(ms).UTC(), nil
	case document.TypeNull:
		return nil, r.ReadNull()
	case document.TypeBinary:
		subtype, data, err := r.ReadBinary()
		if err != nil {
			return nil, err
		}
		switch subtype {
		case document.BinaryKSUID:
			if id, err := ksuid.FromBytes(data); err == nil {
				return id.String(), nil
			}
		case document.BinaryUUID:
			if id, err := uuid.FromBytes(data); err == nil {
				return id.String(), nil
			}
		}
		return append([]byte(nil), data...), nil
	default:
		return nil, fmt.Errorf("%w: %s", document.ErrUnexpectedType, t)
	}
}
