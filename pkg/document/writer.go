package document

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Writer is a sequential emitter of documents.
type Writer interface {
	WriteStartDocument() error
	WriteEndDocument() error
	WriteStartArray() error
	WriteEndArray() error
	WriteName(name string) error
	WriteString(value string) error
	WriteInt32(value int32) error
	WriteInt64(value int64) error
	WriteDouble(value float64) error
	WriteBoolean(value bool) error
	// WriteDateTime writes milliseconds since the Unix epoch.
	WriteDateTime(millis int64) error
	WriteBinary(subtype byte, data []byte) error
	WriteNull() error
}

type writerFrame struct {
	start int // offset of the length prefix
	array bool
	index int
}

// BinaryWriter encodes documents into an in-memory buffer. Container lengths
// are backpatched when the container is closed. Several top-level documents
// may be written one after another.
type BinaryWriter struct {
	buf     []byte
	stack   []writerFrame
	name    string
	hasName bool
}

// NewBinaryWriter creates an empty writer.
func NewBinaryWriter() *BinaryWriter {
	return &BinaryWriter{buf: make([]byte, 0, 256)}
}

// Bytes returns the encoded bytes. The result is only a complete stream of
// documents once every started container has been ended.
func (w *BinaryWriter) Bytes() []byte {
	return w.buf
}

// Raw returns the first complete document written.
func (w *BinaryWriter) Raw() (Raw, error) {
	if len(w.stack) != 0 {
		return nil, fmt.Errorf("%w: %d containers still open", ErrInvalidState, len(w.stack))
	}
	if len(w.buf) < 5 {
		return nil, fmt.Errorf("%w: nothing written", ErrInvalidState)
	}
	size := int(binary.LittleEndian.Uint32(w.buf))
	return Raw(w.buf[:size]), nil
}

// Reset discards everything written so far.
func (w *BinaryWriter) Reset() {
	w.buf = w.buf[:0]
	w.stack = w.stack[:0]
	w.name = ""
	w.hasName = false
}

// Depth returns the number of open containers.
func (w *BinaryWriter) Depth() int {
	return len(w.stack)
}

func (w *BinaryWriter) WriteStartDocument() error {
	if len(w.stack) == 0 {
		if w.hasName {
			return fmt.Errorf("%w: name written outside a document", ErrInvalidState)
		}
		w.push(false)
		return nil
	}
	if err := w.writeHeader(TypeDocument); err != nil {
		return err
	}
	w.push(false)
	return nil
}

func (w *BinaryWriter) WriteEndDocument() error {
	return w.pop(false)
}

func (w *BinaryWriter) WriteStartArray() error {
	if err := w.writeHeader(TypeArray); err != nil {
		return err
	}
	w.push(true)
	return nil
}

func (w *BinaryWriter) WriteEndArray() error {
	return w.pop(true)
}

func (w *BinaryWriter) WriteName(name string) error {
	if len(w.stack) == 0 || w.stack[len(w.stack)-1].array {
		return fmt.Errorf("%w: names are only allowed inside documents", ErrInvalidState)
	}
	if w.hasName {
		return fmt.Errorf("%w: name %q written twice without a value", ErrInvalidState, w.name)
	}
	if strings.IndexByte(name, 0) >= 0 {
		return fmt.Errorf("%w: name %q contains a NUL byte", ErrInvalidState, name)
	}
	w.name = name
	w.hasName = true
	return nil
}

func (w *BinaryWriter) WriteString(value string) error {
	if err := w.writeHeader(TypeString); err != nil {
		return err
	}
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(len(value)+1))
	w.buf = append(w.buf, value...)
	w.buf = append(w.buf, 0)
	return nil
}

func (w *BinaryWriter) WriteInt32(value int32) error {
	if err := w.writeHeader(TypeInt32); err != nil {
		return err
	}
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(value))
	return nil
}

func (w *BinaryWriter) WriteInt64(value int64) error {
	if err := w.writeHeader(TypeInt64); err != nil {
		return err
	}
	w.buf = binary.LittleEndian.AppendUint64(w.buf, uint64(value))
	return nil
}

func (w *BinaryWriter) WriteDouble(value float64) error {
	if err := w.writeHeader(TypeDouble); err != nil {
		return err
	}
	w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(value))
	return nil
}

func (w *BinaryWriter) WriteBoolean(value bool) error {
	if err := w.writeHeader(TypeBoolean); err != nil {
		return err
	}
	if value {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
	return nil
}

func (w *BinaryWriter) WriteDateTime(millis int64) error {
	if err := w.writeHeader(TypeDateTime); err != nil {
		return err
	}
	w.buf = binary.LittleEndian.AppendUint64(w.buf, uint64(millis))
	return nil
}

func (w *BinaryWriter) WriteBinary(subtype byte, data []byte) error {
	if err := w.writeHeader(TypeBinary); err != nil {
		return err
	}
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(len(data)))
	w.buf = append(w.buf, subtype)
	w.buf = append(w.buf, data...)
	return nil
}

func (w *BinaryWriter) WriteNull() error {
	return w.writeHeader(TypeNull)
}

func (w *BinaryWriter) push(array bool) {
	w.stack = append(w.stack, writerFrame{start: len(w.buf), array: array})
	w.buf = append(w.buf, 0, 0, 0, 0)
}

func (w *BinaryWriter) pop(array bool) error {
	if len(w.stack) == 0 {
		return fmt.Errorf("%w: no open container", ErrInvalidState)
	}
	top := w.stack[len(w.stack)-1]
	if top.array != array {
		return fmt.Errorf("%w: mismatched container end", ErrInvalidState)
	}
	if w.hasName {
		return fmt.Errorf("%w: name %q has no value", ErrInvalidState, w.name)
	}
	w.buf = append(w.buf, 0)
	binary.LittleEndian.PutUint32(w.buf[top.start:], uint32(len(w.buf)-top.start))
	w.stack = w.stack[:len(w.stack)-1]
	return nil
}

func (w *BinaryWriter) writeHeader(t Type) error {
	if len(w.stack) == 0 {
		return fmt.Errorf("%w: top-level value must be a document, got %s", ErrInvalidState, t)
	}
	top := &w.stack[len(w.stack)-1]
	var name string
	if top.array {
		name = strconv.Itoa(top.index)
		top.index++
	} else {
		if !w.hasName {
			return fmt.Errorf("%w: %s value written without a name", ErrInvalidState, t)
		}
		name = w.name
		w.hasName = false
	}
	w.buf = append(w.buf, byte(t))
	w.buf = append(w.buf, name...)
	w.buf = append(w.buf, 0)
	return nil
}
