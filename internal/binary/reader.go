// Package binary provides bounds-checked byte-arena I/O for fixed binary
// record parsing. A record header is treated as a flat byte arena; every
// access names an explicit [lo, hi) range and byte order, so a field table
// can drive reads and writes symmetrically.
package binary

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrOutOfBounds is returned when a requested byte range falls outside the
// arena.
var ErrOutOfBounds = errors.New("byte range outside buffer")

// ByteOrder re-exports the stdlib interface so callers need only one
// import.
type ByteOrder = binary.ByteOrder

// Big and Little are the two byte orders instrument headers mix freely.
var (
	Big    ByteOrder = binary.BigEndian
	Little ByteOrder = binary.LittleEndian
)

// Reader reads typed values out of a fixed-size byte arena.
type Reader struct {
	buf []byte
}

// NewReader wraps buf. The reader never copies or mutates buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Len returns the arena length.
func (r *Reader) Len() int {
	return len(r.buf)
}

// Bytes returns the raw bytes in [lo, hi).
func (r *Reader) Bytes(lo, hi int) ([]byte, error) {
	if err := r.check(lo, hi); err != nil {
		return nil, err
	}
	return r.buf[lo:hi], nil
}

// Uint8 reads one byte at lo.
func (r *Reader) Uint8(lo int) (uint8, error) {
	if err := r.check(lo, lo+1); err != nil {
		return 0, err
	}
	return r.buf[lo], nil
}

// Uint16 reads an unsigned 16-bit integer at [lo, lo+2).
func (r *Reader) Uint16(order ByteOrder, lo int) (uint16, error) {
	if err := r.check(lo, lo+2); err != nil {
		return 0, err
	}
	return order.Uint16(r.buf[lo : lo+2]), nil
}

// Uint32 reads an unsigned 32-bit integer at [lo, lo+4).
func (r *Reader) Uint32(order ByteOrder, lo int) (uint32, error) {
	if err := r.check(lo, lo+4); err != nil {
		return 0, err
	}
	return order.Uint32(r.buf[lo : lo+4]), nil
}

// Int16 reads a signed 16-bit integer at [lo, lo+2).
func (r *Reader) Int16(order ByteOrder, lo int) (int16, error) {
	v, err := r.Uint16(order, lo)
	return int16(v), err
}

// Int32 reads a signed 32-bit integer at [lo, lo+4).
func (r *Reader) Int32(order ByteOrder, lo int) (int32, error) {
	v, err := r.Uint32(order, lo)
	return int32(v), err
}

// Float32 reads an IEEE-754 single at [lo, lo+4).
func (r *Reader) Float32(order ByteOrder, lo int) (float32, error) {
	v, err := r.Uint32(order, lo)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (r *Reader) check(lo, hi int) error {
	if lo < 0 || hi < lo || hi > len(r.buf) {
		return fmt.Errorf("%w: [%d, %d) of %d", ErrOutOfBounds, lo, hi, len(r.buf))
	}
	return nil
}
