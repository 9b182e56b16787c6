// Package wire implements the minimal protobuf wire format the bridge
// needs: unsigned varints, tagged varint fields, and length-delimited
// fields, plus gRPC message framing. The vendor's field numbers are not
// known at compile time, so nothing here is schema-aware; callers supply
// field numbers and match on them when scanning.
package wire

import (
	"encoding/binary"
)

// Wire types. Only varint and length-delimited are encoded; fixed64 and
// fixed32 appear in responses and are consumed by width without
// interpretation.
const (
	TypeVarint  = 0
	TypeFixed64 = 1
	TypeBytes   = 2
	TypeFixed32 = 5
)

// maxVarintLen is the longest valid encoding of a 64-bit varint.
const maxVarintLen = 10

// AppendVarint appends v as an unsigned LEB128 varint.
func AppendVarint(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// Varint decodes an unsigned varint from b. It returns the value and the
// number of bytes consumed; n == 0 means b is truncated or overlong.
func Varint(b []byte) (v uint64, n int) {
	var shift uint
	for i, c := range b {
		if i == maxVarintLen {
			return 0, 0
		}
		v |= uint64(c&0x7f) << shift
		if c < 0x80 {
			return v, i + 1
		}
		shift += 7
	}
	return 0, 0
}

// AppendTag appends the tag varint for (field, wireType).
func AppendTag(dst []byte, field uint32, wireType int) []byte {
	return AppendVarint(dst, uint64(field)<<3|uint64(wireType))
}

// AppendVarintField appends a varint-typed field.
func AppendVarintField(dst []byte, field uint32, v uint64) []byte {
	dst = AppendTag(dst, field, TypeVarint)
	return AppendVarint(dst, v)
}

// AppendBytesField appends a length-delimited field.
func AppendBytesField(dst []byte, field uint32, b []byte) []byte {
	dst = AppendTag(dst, field, TypeBytes)
	dst = AppendVarint(dst, uint64(len(b)))
	return append(dst, b...)
}

// AppendStringField appends a length-delimited UTF-8 string field.
func AppendStringField(dst []byte, field uint32, s string) []byte {
	dst = AppendTag(dst, field, TypeBytes)
	dst = AppendVarint(dst, uint64(len(s)))
	return append(dst, s...)
}

// AppendMessageField appends msg as a nested length-delimited message.
func AppendMessageField(dst []byte, field uint32, msg []byte) []byte {
	return AppendBytesField(dst, field, msg)
}

// Field is one element of a scanned message. For TypeVarint fields the
// value is in Varint; for TypeBytes it is in Bytes. Fixed-width fields
// carry their raw bytes.
type Field struct {
	Num    uint32
	Wire   int
	Varint uint64
	Bytes  []byte
}

// Scan walks the fields of a protobuf message. Malformed input stops the
// walk and the fields collected so far are returned; Scan never panics
// and never fails. Bytes values alias the input buffer.
func Scan(b []byte) []Field {
	var fields []Field
	for len(b) > 0 {
		tag, n := Varint(b)
		if n == 0 {
			return fields
		}
		b = b[n:]

		num := uint32(tag >> 3)
		wireType := int(tag & 7)
		if num == 0 {
			return fields
		}

		switch wireType {
		case TypeVarint:
			v, n := Varint(b)
			if n == 0 {
				return fields
			}
			b = b[n:]
			fields = append(fields, Field{Num: num, Wire: wireType, Varint: v})
		case TypeBytes:
			length, n := Varint(b)
			if n == 0 {
				return fields
			}
			b = b[n:]
			if length > uint64(len(b)) {
				return fields
			}
			fields = append(fields, Field{Num: num, Wire: wireType, Bytes: b[:length]})
			b = b[length:]
		case TypeFixed64:
			if len(b) < 8 {
				return fields
			}
			fields = append(fields, Field{Num: num, Wire: wireType, Bytes: b[:8], Varint: binary.LittleEndian.Uint64(b)})
			b = b[8:]
		case TypeFixed32:
			if len(b) < 4 {
				return fields
			}
			fields = append(fields, Field{Num: num, Wire: wireType, Bytes: b[:4], Varint: uint64(binary.LittleEndian.Uint32(b))})
			b = b[4:]
		default:
			return fields
		}
	}
	return fields
}

// FirstString returns the first TypeBytes field with the given number,
// interpreted as a string. Empty when absent.
func FirstString(fields []Field, num uint32) string {
	for _, f := range fields {
		if f.Num == num && f.Wire == TypeBytes {
			return string(f.Bytes)
		}
	}
	return ""
}
