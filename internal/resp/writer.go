package resp

import (
	"bufio"
	"io"
	"maps"
	"slices"
	"strconv"
)

var crlf = []byte("\r\n")

// AppendValue appends the wire form of v to dst and returns the extended buffer
func AppendValue(dst []byte, v Value) []byte {
	switch v.Type {
	case TypeSimpleString, TypeError, TypeDouble, TypeBigNumber:
		dst = append(dst, v.Type)
		dst = append(dst, v.String...)
		return append(dst, crlf...)

	case TypeInteger:
		return appendHeader(dst, TypeInteger, v.Integer)

	case TypeBulkString:
		if v.IsNull {
			return append(dst, "$-1\r\n"...)
		}
		return appendBulk(dst, TypeBulkString, v.String)

	case TypeBulkError:
		return appendBulk(dst, TypeBulkError, v.String)

	case TypeArray:
		if v.IsNull {
			return append(dst, "*-1\r\n"...)
		}
		dst = appendHeader(dst, TypeArray, int64(len(v.Array)))
		for _, el := range v.Array {
			dst = AppendValue(dst, el)
		}
		return dst

	case TypeNull:
		return append(dst, "_\r\n"...)

	case TypeBoolean:
		if v.Boolean {
			return append(dst, "#t\r\n"...)
		}
		return append(dst, "#f\r\n"...)

	case TypeMap:
		dst = appendHeader(dst, TypeMap, int64(len(v.Map)))
		// sorted so the same map always produces the same bytes
		for _, k := range slices.Sorted(maps.Keys(v.Map)) {
			dst = appendLine(dst, k)
			dst = appendLine(dst, v.Map[k])
		}
		return dst

	case TypeSet:
		dst = appendHeader(dst, TypeSet, int64(len(v.Set)))
		for _, m := range slices.Sorted(maps.Keys(v.Set)) {
			dst = appendLine(dst, m)
		}
		return dst
	}

	return dst
}

// Marshal returns the wire form of v
func Marshal(v Value) []byte {
	return AppendValue(nil, v)
}

// appendHeader writes the type prefix, numeric value, and CRLF
func appendHeader(dst []byte, prefix byte, n int64) []byte {
	dst = append(dst, prefix)
	dst = strconv.AppendInt(dst, n, 10)
	return append(dst, crlf...)
}

func appendBulk(dst []byte, prefix byte, b []byte) []byte {
	dst = appendHeader(dst, prefix, int64(len(b)))
	dst = append(dst, b...)
	return append(dst, crlf...)
}

func appendLine(dst []byte, s string) []byte {
	dst = append(dst, s...)
	return append(dst, crlf...)
}

// Encoder handles the serialization of RESP Value objects into an output stream
type Encoder struct {
	writer  *bufio.Writer
	scratch []byte
}

// NewEncoder initializes an Encoder with a buffered writer
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		writer: bufio.NewWriter(w),
	}
}

// Write serializes a RESP Value into the buffer. It may stay buffered until Flush
func (e *Encoder) Write(v Value) error {
	e.scratch = AppendValue(e.scratch[:0], v)
	_, err := e.writer.Write(e.scratch)
	return err
}

// Flush sends all buffered data to the underlying stream
func (e *Encoder) Flush() error {
	return e.writer.Flush()
}
