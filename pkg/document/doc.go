// Package document implements the binary document format used by docmap.
//
// Documents are self-describing and length-prefixed, with the same layout as
// BSON:
//
//	document := int32(total length) element* 0x00
//	element  := type(1) name(cstring) value
//
// All integers are little-endian. Arrays are documents whose element names
// are the decimal indexes "0", "1", ...
//
// # Value Types
//
//	0x01 double     8 bytes IEEE 754
//	0x02 string     int32 length (including NUL), UTF-8 bytes, 0x00
//	0x03 document   nested document
//	0x04 array      nested document with index names
//	0x05 binary     int32 length, subtype(1), bytes
//	0x08 boolean    0x00 or 0x01
//	0x09 datetime   int64 milliseconds since the Unix epoch, UTC
//	0x0A null       no payload
//	0x10 int32      4 bytes
//	0x12 int64      8 bytes
//
// # Usage
//
// Writing:
//
//	w := document.NewBinaryWriter()
//	_ = w.WriteStartDocument()
//	_ = w.WriteName("name")
//	_ = w.WriteString("ada")
//	_ = w.WriteEndDocument()
//	raw, err := w.Raw()
//
// Reading:
//
//	r := document.NewBinaryReader(raw)
//	_ = r.ReadStartDocument()
//	for {
//	    t, err := r.ReadType()
//	    if err != nil || t == document.TypeEndOfDocument {
//	        break
//	    }
//	    name, _ := r.ReadName()
//	    ...
//	}
//	_ = r.ReadEndDocument()
//
// # Peeking
//
// BinaryReader supports a single pending Mark. Reset rewinds the cursor to the
// marked position, including the container stack. This is what the entity
// codec uses to look for a type discriminator before decoding a document.
//
// # Thread Safety
//
// Readers and writers are not safe for concurrent use. Raw values are
// immutable byte slices and may be shared.
package document
