package document

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Reader is a sequential cursor over encoded documents.
//
// A value is read in two steps: ReadType advances to the next element of the
// current container and reports its type (TypeEndOfDocument once the
// container is exhausted), then exactly one Read*/Skip call consumes it.
// Mark and Reset support a single pending mark, enough to peek ahead inside
// a document and rewind.
type Reader interface {
	CurrentType() Type
	ReadType() (Type, error)
	ReadName() (string, error)
	ReadStartDocument() error
	ReadEndDocument() error
	ReadStartArray() error
	ReadEndArray() error
	ReadString() (string, error)
	ReadInt32() (int32, error)
	ReadInt64() (int64, error)
	ReadDouble() (float64, error)
	ReadBoolean() (bool, error)
	ReadDateTime() (int64, error)
	ReadBinary() (subtype byte, data []byte, err error)
	ReadNull() error
	SkipValue() error
	Mark() error
	Reset() error
}

type phase int

const (
	phaseType  phase = iota // expecting ReadType
	phaseValue              // a value of `current` is pending
	phaseEnd                // positioned on a container terminator
	phaseDone               // input exhausted
)

type readerFrame struct {
	end   int
	array bool
}

type readerState struct {
	pos     int
	current Type
	name    string
	phase   phase
	stack   []readerFrame
}

func (s readerState) clone() readerState {
	s.stack = append([]readerFrame(nil), s.stack...)
	return s
}

// BinaryReader reads the format produced by BinaryWriter. The input may hold
// several concatenated top-level documents.
type BinaryReader struct {
	data []byte
	readerState
	mark *readerState
}

// NewBinaryReader creates a reader positioned on the first top-level document.
func NewBinaryReader(data []byte) *BinaryReader {
	r := &BinaryReader{data: data}
	r.current = TypeDocument
	r.phase = phaseValue
	if len(data) == 0 {
		r.phase = phaseDone
		r.current = TypeEndOfDocument
	}
	return r
}

// Done reports whether every top-level document has been consumed.
func (r *BinaryReader) Done() bool {
	return r.phase == phaseDone
}

// Offset returns the current byte offset into the input.
func (r *BinaryReader) Offset() int {
	return r.pos
}

func (r *BinaryReader) CurrentType() Type {
	return r.current
}

func (r *BinaryReader) ReadType() (Type, error) {
	if r.phase != phaseType {
		return 0, fmt.Errorf("%w: ReadType called while a %s value is pending", ErrInvalidState, r.current)
	}
	top := r.stack[len(r.stack)-1]
	if r.pos >= top.end {
		return 0, ErrTruncated
	}
	b := Type(r.data[r.pos])
	if b == TypeEndOfDocument {
		r.current = TypeEndOfDocument
		r.name = ""
		r.phase = phaseEnd
		return TypeEndOfDocument, nil
	}
	if !b.Valid() {
		return 0, fmt.Errorf("%w: unknown element type 0x%02x at offset %d", ErrUnexpectedType, byte(b), r.pos)
	}
	r.pos++
	name, err := r.cstring()
	if err != nil {
		return 0, err
	}
	r.current = b
	r.name = name
	r.phase = phaseValue
	return b, nil
}

func (r *BinaryReader) ReadName() (string, error) {
	if r.phase != phaseValue || len(r.stack) == 0 {
		return "", fmt.Errorf("%w: no element name available", ErrInvalidState)
	}
	if r.stack[len(r.stack)-1].array {
		return "", fmt.Errorf("%w: array elements have no names", ErrInvalidState)
	}
	return r.name, nil
}

func (r *BinaryReader) ReadStartDocument() error {
	return r.open(TypeDocument, false)
}

func (r *BinaryReader) ReadEndDocument() error {
	return r.close(false)
}

func (r *BinaryReader) ReadStartArray() error {
	return r.open(TypeArray, true)
}

func (r *BinaryReader) ReadEndArray() error {
	return r.close(true)
}

func (r *BinaryReader) ReadString() (string, error) {
	if err := r.begin(TypeString); err != nil {
		return "", err
	}
	n, err := r.int32()
	if err != nil {
		return "", err
	}
	if n < 1 || r.pos+int(n) > len(r.data) {
		return "", fmt.Errorf("%w: string length %d", ErrCorrupt, n)
	}
	end := r.pos + int(n) - 1
	if r.data[end] != 0 {
		return "", fmt.Errorf("%w: string not NUL terminated", ErrCorrupt)
	}
	s := string(r.data[r.pos:end])
	r.pos = end + 1
	r.finish()
	return s, nil
}

func (r *BinaryReader) ReadInt32() (int32, error) {
	if err := r.begin(TypeInt32); err != nil {
		return 0, err
	}
	v, err := r.int32()
	if err != nil {
		return 0, err
	}
	r.finish()
	return v, nil
}

func (r *BinaryReader) ReadInt64() (int64, error) {
	if err := r.begin(TypeInt64); err != nil {
		return 0, err
	}
	v, err := r.uint64()
	if err != nil {
		return 0, err
	}
	r.finish()
	return int64(v), nil
}

func (r *BinaryReader) ReadDouble() (float64, error) {
	if err := r.begin(TypeDouble); err != nil {
		return 0, err
	}
	v, err := r.uint64()
	if err != nil {
		return 0, err
	}
	r.finish()
	return math.Float64frombits(v), nil
}

func (r *BinaryReader) ReadBoolean() (bool, error) {
	if err := r.begin(TypeBoolean); err != nil {
		return false, err
	}
	if r.pos >= len(r.data) {
		return false, ErrTruncated
	}
	b := r.data[r.pos]
	if b > 1 {
		return false, fmt.Errorf("%w: boolean byte 0x%02x", ErrCorrupt, b)
	}
	r.pos++
	r.finish()
	return b == 1, nil
}

func (r *BinaryReader) ReadDateTime() (int64, error) {
	if err := r.begin(TypeDateTime); err != nil {
		return 0, err
	}
	v, err := r.uint64()
	if err != nil {
		return 0, err
	}
	r.finish()
	return int64(v), nil
}

func (r *BinaryReader) ReadBinary() (byte, []byte, error) {
	if err := r.begin(TypeBinary); err != nil {
		return 0, nil, err
	}
	n, err := r.int32()
	if err != nil {
		return 0, nil, err
	}
	if n < 0 || r.pos+1+int(n) > len(r.data) {
		return 0, nil, fmt.Errorf("%w: binary length %d", ErrCorrupt, n)
	}
	subtype := r.data[r.pos]
	data := append([]byte(nil), r.data[r.pos+1:r.pos+1+int(n)]...)
	r.pos += 1 + int(n)
	r.finish()
	return subtype, data, nil
}

// PeekBinarySubtype returns the subtype of the pending binary value without
// consuming it.
func (r *BinaryReader) PeekBinarySubtype() (byte, error) {
	if err := r.begin(TypeBinary); err != nil {
		return 0, err
	}
	if r.pos+5 > len(r.data) {
		return 0, ErrTruncated
	}
	return r.data[r.pos+4], nil
}

func (r *BinaryReader) ReadNull() error {
	if err := r.begin(TypeNull); err != nil {
		return err
	}
	r.finish()
	return nil
}

func (r *BinaryReader) SkipValue() error {
	if r.phase != phaseValue {
		return fmt.Errorf("%w: no value to skip", ErrInvalidState)
	}
	size, err := valueSize(r.current, r.data, r.pos)
	if err != nil {
		return err
	}
	r.pos += size
	r.finish()
	return nil
}

func (r *BinaryReader) Mark() error {
	if r.mark != nil {
		return ErrMarkPending
	}
	saved := r.readerState.clone()
	r.mark = &saved
	return nil
}

func (r *BinaryReader) Reset() error {
	if r.mark == nil {
		return ErrNoMark
	}
	r.readerState = *r.mark
	r.mark = nil
	return nil
}

func (r *BinaryReader) begin(t Type) error {
	if r.phase != phaseValue {
		return fmt.Errorf("%w: no %s value pending", ErrInvalidState, t)
	}
	if r.current != t {
		return fmt.Errorf("%w: expected %s, found %s", ErrUnexpectedType, t, r.current)
	}
	return nil
}

func (r *BinaryReader) open(t Type, array bool) error {
	if err := r.begin(t); err != nil {
		return err
	}
	start := r.pos
	n, err := r.int32()
	if err != nil {
		return err
	}
	if n < 5 || start+int(n) > len(r.data) {
		return fmt.Errorf("%w: %s length %d at offset %d", ErrCorrupt, t, n, start)
	}
	r.stack = append(r.stack, readerFrame{end: start + int(n), array: array})
	r.phase = phaseType
	return nil
}

func (r *BinaryReader) close(array bool) error {
	if r.phase != phaseEnd || len(r.stack) == 0 {
		return fmt.Errorf("%w: not positioned at the end of a container", ErrInvalidState)
	}
	top := r.stack[len(r.stack)-1]
	if top.array != array {
		return fmt.Errorf("%w: mismatched container end", ErrInvalidState)
	}
	r.pos++
	if r.pos != top.end {
		return fmt.Errorf("%w: container ends at %d, length prefix says %d", ErrCorrupt, r.pos, top.end)
	}
	r.stack = r.stack[:len(r.stack)-1]
	r.finish()
	return nil
}

// finish moves the cursor past a fully consumed value.
func (r *BinaryReader) finish() {
	r.name = ""
	if len(r.stack) > 0 {
		r.phase = phaseType
		return
	}
	if r.pos < len(r.data) {
		r.current = TypeDocument
		r.phase = phaseValue
		return
	}
	r.current = TypeEndOfDocument
	r.phase = phaseDone
}

func (r *BinaryReader) cstring() (string, error) {
	i := bytes.IndexByte(r.data[r.pos:], 0)
	if i < 0 {
		return "", ErrTruncated
	}
	s := string(r.data[r.pos : r.pos+i])
	r.pos += i + 1
	return s, nil
}

func (r *BinaryReader) int32() (int32, error) {
	if r.pos+4 > len(r.data) {
		return 0, ErrTruncated
	}
	v := int32(binary.LittleEndian.Uint32(r.data[r.pos:]))
	r.pos += 4
	return v, nil
}

func (r *BinaryReader) uint64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, ErrTruncated
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// valueSize returns the encoded size of a value of type t starting at pos.
func valueSize(t Type, data []byte, pos int) (int, error) {
	var size int
	switch t {
	case TypeNull:
		size = 0
	case TypeBoolean:
		size = 1
	case TypeInt32:
		size = 4
	case TypeDouble, TypeInt64, TypeDateTime:
		size = 8
	case TypeString, TypeBinary, TypeDocument, TypeArray:
		if pos+4 > len(data) {
			return 0, ErrTruncated
		}
		n := int(int32(binary.LittleEndian.Uint32(data[pos:])))
		switch t {
		case TypeString:
			size = 4 + n
			if n < 1 {
				return 0, fmt.Errorf("%w: string length %d", ErrCorrupt, n)
			}
		case TypeBinary:
			size = 5 + n
			if n < 0 {
				return 0, fmt.Errorf("%w: binary length %d", ErrCorrupt, n)
			}
		default:
			size = n
			if n < 5 {
				return 0, fmt.Errorf("%w: %s length %d", ErrCorrupt, t, n)
			}
		}
	default:
		return 0, fmt.Errorf("%w: cannot size %s", ErrUnexpectedType, t)
	}
	if pos+size > len(data) {
		return 0, ErrTruncated
	}
	return size, nil
}
