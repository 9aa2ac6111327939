package document

import "fmt"

// CopyValue consumes the pending value of r and writes it to w. Nested
// documents and arrays are copied element by element.
func CopyValue(w Writer, r Reader) error {
	switch t := r.CurrentType(); t {
	case TypeDocument:
		if err := r.ReadStartDocument(); err != nil {
			return err
		}
		if err := w.WriteStartDocument(); err != nil {
			return err
		}
		if err := copyElements(w, r, false); err != nil {
			return err
		}
		if err := r.ReadEndDocument(); err != nil {
			return err
		}
		return w.WriteEndDocument()
	case TypeArray:
		if err := r.ReadStartArray(); err != nil {
			return err
		}
		if err := w.WriteStartArray(); err != nil {
			return err
		}
		if err := copyElements(w, r, true); err != nil {
			return err
		}
		if err := r.ReadEndArray(); err != nil {
			return err
		}
		return w.WriteEndArray()
	case TypeString:
		s, err := r.ReadString()
		if err != nil {
			return err
		}
		return w.WriteString(s)
	case TypeInt32:
		n, err := r.ReadInt32()
		if err != nil {
			return err
		}
		return w.WriteInt32(n)
	case TypeInt64:
		n, err := r.ReadInt64()
		if err != nil {
			return err
		}
		return w.WriteInt64(n)
	case TypeDouble:
		f, err := r.ReadDouble()
		if err != nil {
			return err
		}
		return w.WriteDouble(f)
	case TypeBoolean:
		b, err := r.ReadBoolean()
		if err != nil {
			return err
		}
		return w.WriteBoolean(b)
	case TypeDateTime:
		ms, err := r.ReadDateTime()
		if err != nil {
			return err
		}
		return w.WriteDateTime(ms)
	case TypeBinary:
		subtype, data, err := r.ReadBinary()
		if err != nil {
			return err
		}
		return w.WriteBinary(subtype, data)
	case TypeNull:
		if err := r.ReadNull(); err != nil {
			return err
		}
		return w.WriteNull()
	default:
		return fmt.Errorf("%w: can not copy %s", ErrUnexpectedType, t)
	}
}

func copyElements(w Writer, r Reader, array bool) error {
	for {
		t, err := r.ReadType()
		if err != nil {
			return err
		}
		if t == TypeEndOfDocument {
			return nil
		}
		if !array {
			name, err := r.ReadName()
			if err != nil {
				return err
			}
			if err := w.WriteName(name); err != nil {
				return err
			}
		}
		if err := CopyValue(w, r); err != nil {
			return err
		}
	}
}
