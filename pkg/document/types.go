package document

import (
	"errors"
	"fmt"
)

// Type identifies the kind of an encoded value. The numbering follows the
// BSON element types so documents can be inspected with BSON tooling.
type Type byte

const (
	TypeEndOfDocument Type = 0x00
	TypeDouble        Type = 0x01
	TypeString        Type = 0x02
	TypeDocument      Type = 0x03
	TypeArray         Type = 0x04
	TypeBinary        Type = 0x05
	TypeBoolean       Type = 0x08
	TypeDateTime      Type = 0x09
	TypeNull          Type = 0x0A
	TypeInt32         Type = 0x10
	TypeInt64         Type = 0x12
)

// Binary subtypes written by the primitive codecs.
const (
	BinaryGeneric byte = 0x00
	BinaryUUID    byte = 0x04
	BinaryKSUID   byte = 0x80
)

// String returns the lower-case name of the type.
func (t Type) String() string {
	switch t {
	case TypeEndOfDocument:
		return "end of document"
	case TypeDouble:
		return "double"
	case TypeString:
		return "string"
	case TypeDocument:
		return "document"
	case TypeArray:
		return "array"
	case TypeBinary:
		return "binary"
	case TypeBoolean:
		return "boolean"
	case TypeDateTime:
		return "datetime"
	case TypeNull:
		return "null"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(t))
	}
}

// Valid reports whether t is a value type this package can read.
func (t Type) Valid() bool {
	switch t {
	case TypeDouble, TypeString, TypeDocument, TypeArray, TypeBinary,
		TypeBoolean, TypeDateTime, TypeNull, TypeInt32, TypeInt64:
		return true
	}
	return false
}

// Errors
var (
	ErrInvalidState   = errors.New("invalid reader/writer state")
	ErrUnexpectedType = errors.New("unexpected value type")
	ErrTruncated      = errors.New("document truncated")
	ErrCorrupt        = errors.New("document corrupt")
	ErrMarkPending    = errors.New("a mark is already pending")
	ErrNoMark         = errors.New("reset called without a pending mark")
)
