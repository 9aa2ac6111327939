package primitive

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/ssargent/docmap/pkg/document"
)

// ErrOverflow reports a number that does not fit the target type.
var ErrOverflow = fmt.Errorf("%w: number out of range", document.ErrUnexpectedType)

type stringCodec struct{ typ reflect.Type }

func (c stringCodec) Type() reflect.Type { return c.typ }

func (c stringCodec) Encode(w document.Writer, v reflect.Value) error {
	return w.WriteString(v.String())
}

func (c stringCodec) Decode(r document.Reader) (reflect.Value, error) {
	if r.CurrentType() == document.TypeNull {
		return reflect.Value{}, r.ReadNull()
	}
	s, err := r.ReadString()
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(s).Convert(c.typ), nil
}

type boolCodec struct{ typ reflect.Type }

func (c boolCodec) Type() reflect.Type { return c.typ }

func (c boolCodec) Encode(w document.Writer, v reflect.Value) error {
	return w.WriteBoolean(v.Bool())
}

func (c boolCodec) Decode(r document.Reader) (reflect.Value, error) {
	if r.CurrentType() == document.TypeNull {
		return reflect.Value{}, r.ReadNull()
	}
	b, err := r.ReadBoolean()
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(b).Convert(c.typ), nil
}

// intCodec writes int8 to int32 as int32 and int, int64 as int64.
type intCodec struct{ typ reflect.Type }

func (c intCodec) Type() reflect.Type { return c.typ }

func (c intCodec) Encode(w document.Writer, v reflect.Value) error {
	switch c.typ.Kind() {
	case reflect.Int, reflect.Int64:
		return w.WriteInt64(v.Int())
	default:
		return w.WriteInt32(int32(v.Int()))
	}
}

func (c intCodec) Decode(r document.Reader) (reflect.Value, error) {
	if r.CurrentType() == document.TypeNull {
		return reflect.Value{}, r.ReadNull()
	}
	n, err := readInteger(r)
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.New(c.typ).Elem()
	if out.OverflowInt(n) {
		return reflect.Value{}, fmt.Errorf("%w: %d does not fit %s", ErrOverflow, n, c.typ)
	}
	out.SetInt(n)
	return out, nil
}

// uintCodec writes uint8 and uint16 as int32 and wider unsigned types as
// int64.
type uintCodec struct{ typ reflect.Type }

func (c uintCodec) Type() reflect.Type { return c.typ }

func (c uintCodec) Encode(w document.Writer, v reflect.Value) error {
	n := v.Uint()
	switch c.typ.Kind() {
	case reflect.Uint8, reflect.Uint16:
		return w.WriteInt32(int32(n))
	}
	if n > math.MaxInt64 {
		return fmt.Errorf("%w: %d does not fit int64", ErrOverflow, n)
	}
	return w.WriteInt64(int64(n))
}

func (c uintCodec) Decode(r document.Reader) (reflect.Value, error) {
	if r.CurrentType() == document.TypeNull {
		return reflect.Value{}, r.ReadNull()
	}
	n, err := readInteger(r)
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.New(c.typ).Elem()
	if n < 0 || out.OverflowUint(uint64(n)) {
		return reflect.Value{}, fmt.Errorf("%w: %d does not fit %s", ErrOverflow, n, c.typ)
	}
	out.SetUint(uint64(n))
	return out, nil
}

type floatCodec struct{ typ reflect.Type }

func (c floatCodec) Type() reflect.Type { return c.typ }

func (c floatCodec) Encode(w document.Writer, v reflect.Value) error {
	return w.WriteDouble(v.Float())
}

func (c floatCodec) Decode(r document.Reader) (reflect.Value, error) {
	var f float64
	switch t := r.CurrentType(); t {
	case document.TypeNull:
		return reflect.Value{}, r.ReadNull()
	case document.TypeDouble:
		d, err := r.ReadDouble()
		if err != nil {
			return reflect.Value{}, err
		}
		f = d
	case document.TypeInt32, document.TypeInt64:
		n, err := readInteger(r)
		if err != nil {
			return reflect.Value{}, err
		}
		f = float64(n)
	default:
		return reflect.Value{}, fmt.Errorf("%w: expected a number, found %s", document.ErrUnexpectedType, t)
	}
	out := reflect.New(c.typ).Elem()
	if !math.IsInf(f, 0) && !math.IsNaN(f) && out.OverflowFloat(f) {
		return reflect.Value{}, fmt.Errorf("%w: %g does not fit %s", ErrOverflow, f, c.typ)
	}
	out.SetFloat(f)
	return out, nil
}

// readInteger accepts int32, int64 and integral doubles.
func readInteger(r document.Reader) (int64, error) {
	switch t := r.CurrentType(); t {
	case document.TypeInt32:
		n, err := r.ReadInt32()
		return int64(n), err
	case document.TypeInt64:
		return r.ReadInt64()
	case document.TypeDouble:
		f, err := r.ReadDouble()
		if err != nil {
			return 0, err
		}
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, fmt.Errorf("%w: %g is not an integer", ErrOverflow, f)
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("%w: expected an integer, found %s", document.ErrUnexpectedType, t)
	}
}

// timeCodec stores time.Time as UTC milliseconds.
type timeCodec struct{}

func (timeCodec) Type() reflect.Type { return timeType }

func (timeCodec) Encode(w document.Writer, v reflect.Value) error {
	return w.WriteDateTime(v.Interface().(time.Time).UnixMilli())
}

func (timeCodec) Decode(r document.Reader) (reflect.Value, error) {
	if r.CurrentType() == document.TypeNull {
		return reflect.Value{}, r.ReadNull()
	}
	ms, err := r.ReadDateTime()
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(time.UnixMilli(ms).UTC()), nil
}

type bytesCodec struct{ typ reflect.Type }

func (c bytesCodec) Type() reflect.Type { return c.typ }

func (c bytesCodec) Encode(w document.Writer, v reflect.Value) error {
	if v.IsNil() {
		return w.WriteNull()
	}
	return w.WriteBinary(document.BinaryGeneric, v.Bytes())
}

func (c bytesCodec) Decode(r document.Reader) (reflect.Value, error) {
	if r.CurrentType() == document.TypeNull {
		return reflect.Value{}, r.ReadNull()
	}
	_, data, err := r.ReadBinary()
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(data).Convert(c.typ), nil
}

// byteArrayCodec stores fixed size byte arrays such as ksuid.KSUID and
// uuid.UUID as binary values of a fixed subtype.
type byteArrayCodec struct {
	typ     reflect.Type
	subtype byte
}

func (c byteArrayCodec) Type() reflect.Type { return c.typ }

func (c byteArrayCodec) Encode(w document.Writer, v reflect.Value) error {
	data := make([]byte, v.Len())
	for i := range data {
		data[i] = byte(v.Index(i).Uint())
	}
	return w.WriteBinary(c.subtype, data)
}

func (c byteArrayCodec) Decode(r document.Reader) (reflect.Value, error) {
	if r.CurrentType() == document.TypeNull {
		return reflect.Value{}, r.ReadNull()
	}
	_, data, err := r.ReadBinary()
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.New(c.typ).Elem()
	if len(data) != out.Len() {
		return reflect.Value{}, fmt.Errorf("%w: %s needs %d bytes, found %d", document.ErrCorrupt, c.typ, out.Len(), len(data))
	}
	for i, b := range data {
		out.Index(i).SetUint(uint64(b))
	}
	return out, nil
}

// rawCodec passes embedded documents through undecoded.
type rawCodec struct{}

func (rawCodec) Type() reflect.Type { return rawType }

func (rawCodec) Encode(w document.Writer, v reflect.Value) error {
	raw := v.Bytes()
	if raw == nil {
		return w.WriteNull()
	}
	return document.CopyValue(w, document.NewBinaryReader(raw))
}

func (rawCodec) Decode(r document.Reader) (reflect.Value, error) {
	if r.CurrentType() == document.TypeNull {
		return reflect.Value{}, r.ReadNull()
	}
	if r.CurrentType() != document.TypeDocument {
		return reflect.Value{}, fmt.Errorf("%w: expected a document, found %s", document.ErrUnexpectedType, r.CurrentType())
	}
	w := document.NewBinaryWriter()
	if err := document.CopyValue(w, r); err != nil {
		return reflect.Value{}, err
	}
	raw, err := w.Raw()
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(raw), nil
}
