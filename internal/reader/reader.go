// Package reader implements bounds-checked, endian-aware primitive reads
// over an immutable byte range. It is the lowest layer of the decoding
// pipeline: every other package reads bytes through a Range, never directly
// through a slice index, so an out-of-bounds offset always surfaces as an
// error instead of a panic.
package reader

import (
	"errors"
	"fmt"
)

// ErrOutOfBounds is returned whenever a read would walk off the end of a Range.
var ErrOutOfBounds = errors.New("reader: out of bounds")

// Range is an immutable, random-access view over a contiguous span of bytes.
// It never copies the underlying data and never outlives the slice it was
// built from.
type Range struct {
	data []byte
}

// New wraps b in a Range. b is not copied; the caller must not mutate it
// for the lifetime of the Range.
func New(b []byte) Range {
	return Range{data: b}
}

// Len returns the number of bytes in the range.
func (r Range) Len() int64 { return int64(len(r.data)) }

// Bytes returns the raw underlying bytes. Callers must treat the result as
// read-only.
func (r Range) Bytes() []byte { return r.data }

func (r Range) checkBounds(offset int64, width int) error {
	if offset < 0 || width < 0 {
		return fmt.Errorf("%w: negative offset or width", ErrOutOfBounds)
	}
	if offset+int64(width) > int64(len(r.data)) {
		return fmt.Errorf("%w: offset %d width %d exceeds length %d", ErrOutOfBounds, offset, width, len(r.data))
	}
	return nil
}

// ReadU8 reads a single byte at offset.
func (r Range) ReadU8(offset int64) (uint8, error) {
	if err := r.checkBounds(offset, 1); err != nil {
		return 0, err
	}
	return r.data[offset], nil
}

// ReadU16 reads a uint16 at offset using the given byte order.
func (r Range) ReadU16(offset int64, bo ByteOrder) (uint16, error) {
	if err := r.checkBounds(offset, 2); err != nil {
		return 0, err
	}
	return bo.Uint16(r.data[offset : offset+2]), nil
}

// ReadU32 reads a uint32 at offset using the given byte order.
func (r Range) ReadU32(offset int64, bo ByteOrder) (uint32, error) {
	if err := r.checkBounds(offset, 4); err != nil {
		return 0, err
	}
	return bo.Uint32(r.data[offset : offset+4]), nil
}

// ReadU64 reads a uint64 at offset using the given byte order.
func (r Range) ReadU64(offset int64, bo ByteOrder) (uint64, error) {
	if err := r.checkBounds(offset, 8); err != nil {
		return 0, err
	}
	return bo.Uint64(r.data[offset : offset+8]), nil
}

// ReadI32 reads an int32 at offset using the given byte order.
func (r Range) ReadI32(offset int64, bo ByteOrder) (int32, error) {
	u, err := r.ReadU32(offset, bo)
	if err != nil {
		return 0, err
	}
	return int32(u), nil
}

// ReadBytes returns a sub-slice of length n starting at offset. The returned
// slice aliases the range's backing array and must be treated as read-only.
func (r Range) ReadBytes(offset int64, n int) ([]byte, error) {
	if err := r.checkBounds(offset, n); err != nil {
		return nil, err
	}
	return r.data[offset : offset+int64(n)], nil
}

// ReadFixedASCII reads up to n bytes at offset and strips trailing NUL,
// control, and whitespace characters, the way Mach-O fixed-width name
// fields (segname, sectname) are conventionally rendered.
func (r Range) ReadFixedASCII(offset int64, n int) (string, error) {
	b, err := r.ReadBytes(offset, n)
	if err != nil {
		return "", err
	}
	end := len(b)
	for end > 0 && isTrimmable(b[end-1]) {
		end--
	}
	return string(b[:end]), nil
}

// ReadCString reads a NUL-terminated string starting at offset, stopping at
// the range boundary if no NUL byte is found before it.
func (r Range) ReadCString(offset int64) (string, error) {
	if offset < 0 || offset > int64(len(r.data)) {
		return "", fmt.Errorf("%w: cstring offset %d exceeds length %d", ErrOutOfBounds, offset, len(r.data))
	}
	end := offset
	for end < int64(len(r.data)) && r.data[end] != 0 {
		end++
	}
	return string(r.data[offset:end]), nil
}

func isTrimmable(b byte) bool {
	return b == 0 || b < 0x20 || b == ' '
}

// Subrange returns the byte range [start, end) as a new Range sharing the
// same backing array.
func (r Range) Subrange(start, end int64) (Range, error) {
	if start < 0 || end < start || end > int64(len(r.data)) {
		return Range{}, fmt.Errorf("%w: subrange [%d,%d) out of [0,%d)", ErrOutOfBounds, start, end, len(r.data))
	}
	return Range{data: r.data[start:end]}, nil
}

// ByteOrder is the minimal subset of encoding/binary.ByteOrder the reader needs.
type ByteOrder interface {
	Uint16([]byte) uint16
	Uint32([]byte) uint32
	Uint64([]byte) uint64
}
