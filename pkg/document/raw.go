package document

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// Raw is one complete encoded document.
type Raw []byte

// RawValue is a single encoded value together with its type. Data holds the
// value bytes exactly as they appear inside the enclosing document.
type RawValue struct {
	Type Type
	Data []byte
}

// RawElement is a named value of a document.
type RawElement struct {
	Name  string
	Value RawValue
}

// Validate walks the whole document, including nested containers, and
// reports the first structural problem.
func (d Raw) Validate() error {
	if len(d) < 5 {
		return ErrTruncated
	}
	if size := int(binary.LittleEndian.Uint32(d)); size != len(d) {
		return fmt.Errorf("%w: length prefix %d, have %d bytes", ErrCorrupt, size, len(d))
	}
	return format(io.Discard, TypeDocument, d)
}

// Elements returns the top-level elements in document order.
func (d Raw) Elements() ([]RawElement, error) {
	if len(d) < 5 {
		return nil, ErrTruncated
	}
	end := int(binary.LittleEndian.Uint32(d))
	if end > len(d) || end < 5 {
		return nil, fmt.Errorf("%w: length prefix %d", ErrCorrupt, end)
	}
	var elements []RawElement
	pos := 4
	for {
		if pos >= end {
			return nil, ErrTruncated
		}
		t := Type(d[pos])
		if t == TypeEndOfDocument {
			break
		}
		if !t.Valid() {
			return nil, fmt.Errorf("%w: unknown element type 0x%02x", ErrUnexpectedType, byte(t))
		}
		pos++
		i := bytes.IndexByte(d[pos:end], 0)
		if i < 0 {
			return nil, ErrTruncated
		}
		name := string(d[pos : pos+i])
		pos += i + 1
		size, err := valueSize(t, d[:end], pos)
		if err != nil {
			return nil, err
		}
		elements = append(elements, RawElement{Name: name, Value: RawValue{Type: t, Data: d[pos : pos+size]}})
		pos += size
	}
	return elements, nil
}

// Lookup returns the top-level value stored under name.
func (d Raw) Lookup(name string) (RawValue, bool) {
	elements, err := d.Elements()
	if err != nil {
		return RawValue{}, false
	}
	for _, e := range elements {
		if e.Name == name {
			return e.Value, true
		}
	}
	return RawValue{}, false
}

// String renders the document on one line.
func (d Raw) String() string {
	var b strings.Builder
	if err := format(&b, TypeDocument, d); err != nil {
		return fmt.Sprintf("<invalid document: %v>", err)
	}
	return b.String()
}

// Document returns the value as a document when it is one.
func (v RawValue) Document() (Raw, bool) {
	if v.Type != TypeDocument {
		return nil, false
	}
	return Raw(v.Data), true
}

// StringValue returns the value as a string when it is one.
func (v RawValue) StringValue() (string, bool) {
	if v.Type != TypeString || len(v.Data) < 5 {
		return "", false
	}
	return string(v.Data[4 : len(v.Data)-1]), true
}

// Equal reports whether both values have the same type and bytes.
func (v RawValue) Equal(other RawValue) bool {
	return v.Type == other.Type && bytes.Equal(v.Data, other.Data)
}

func (v RawValue) String() string {
	var b strings.Builder
	if err := format(&b, v.Type, v.Data); err != nil {
		return fmt.Sprintf("<invalid %s: %v>", v.Type, err)
	}
	return b.String()
}

// Dump writes every document found in data, one per line.
func Dump(w io.Writer, data []byte) (int, error) {
	count := 0
	for len(data) > 0 {
		if len(data) < 4 {
			return count, ErrTruncated
		}
		size := int(binary.LittleEndian.Uint32(data))
		if size < 5 || size > len(data) {
			return count, fmt.Errorf("%w: document %d has length %d", ErrCorrupt, count, size)
		}
		if err := format(w, TypeDocument, data[:size]); err != nil {
			return count, fmt.Errorf("document %d: %w", count, err)
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return count, err
		}
		data = data[size:]
		count++
	}
	return count, nil
}

func format(w io.Writer, t Type, data []byte) error {
	switch t {
	case TypeDocument, TypeArray:
		elements, err := Raw(data).Elements()
		if err != nil {
			return err
		}
		open, closing := "{", "}"
		if t == TypeArray {
			open, closing = "[", "]"
		}
		if _, err := io.WriteString(w, open); err != nil {
			return err
		}
		for i, e := range elements {
			if i > 0 {
				if _, err := io.WriteString(w, ", "); err != nil {
					return err
				}
			}
			if t == TypeDocument {
				if _, err := io.WriteString(w, strconv.Quote(e.Name)+": "); err != nil {
					return err
				}
			}
			if err := format(w, e.Value.Type, e.Value.Data); err != nil {
				return err
			}
		}
		_, err = io.WriteString(w, closing)
		return err
	}

	size, err := valueSize(t, data, 0)
	if err != nil {
		return err
	}
	data = data[:size]

	var s string
	switch t {
	case TypeDouble:
		s = strconv.FormatFloat(math.Float64frombits(binary.LittleEndian.Uint64(data)), 'g', -1, 64)
	case TypeString:
		s = strconv.Quote(string(data[4 : len(data)-1]))
	case TypeBinary:
		s = fmt.Sprintf("Binary(0x%02x, %s)", data[4], hex.EncodeToString(data[5:]))
	case TypeBoolean:
		s = strconv.FormatBool(data[0] == 1)
	case TypeDateTime:
		millis := int64(binary.LittleEndian.Uint64(data))
		s = fmt.Sprintf("DateTime(%s)", time.UnixMilli(millis).UTC().Format(time.RFC3339Nano))
	case TypeNull:
		s = "null"
	case TypeInt32:
		s = fmt.Sprintf("Int32(%d)", int32(binary.LittleEndian.Uint32(data)))
	case TypeInt64:
		s = fmt.Sprintf("Int64(%d)", int64(binary.LittleEndian.Uint64(data)))
	default:
		return fmt.Errorf("%w: cannot format %s", ErrUnexpectedType, t)
	}
	_, err = io.WriteString(w, s)
	return err
}
