package binary

import (
	"fmt"
	"math"
)

// Writer writes typed values into a fixed-size, zero-initialized byte
// arena.
type Writer struct {
	buf []byte
}

// NewWriter allocates an arena of the given fixed size.
func NewWriter(size int) *Writer {
	return &Writer{buf: make([]byte, size)}
}

// Bytes returns the arena. The slice is owned by the writer until the
// caller takes it; no further Put calls should follow.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the arena length.
func (w *Writer) Len() int {
	return len(w.buf)
}

// PutBytes copies data into [lo, lo+len(data)).
func (w *Writer) PutBytes(lo int, data []byte) error {
	if err := w.check(lo, lo+len(data)); err != nil {
		return err
	}
	copy(w.buf[lo:], data)
	return nil
}

// PutUint8 writes one byte at lo.
func (w *Writer) PutUint8(lo int, v uint8) error {
	if err := w.check(lo, lo+1); err != nil {
		return err
	}
	w.buf[lo] = v
	return nil
}

// PutUint16 writes an unsigned 16-bit integer at [lo, lo+2).
func (w *Writer) PutUint16(order ByteOrder, lo int, v uint16) error {
	if err := w.check(lo, lo+2); err != nil {
		return err
	}
	order.PutUint16(w.buf[lo:lo+2], v)
	return nil
}

// PutUint32 writes an unsigned 32-bit integer at [lo, lo+4).
func (w *Writer) PutUint32(order ByteOrder, lo int, v uint32) error {
	if err := w.check(lo, lo+4); err != nil {
		return err
	}
	order.PutUint32(w.buf[lo:lo+4], v)
	return nil
}

// PutInt16 writes a signed 16-bit integer at [lo, lo+2).
func (w *Writer) PutInt16(order ByteOrder, lo int, v int16) error {
	return w.PutUint16(order, lo, uint16(v))
}

// PutInt32 writes a signed 32-bit integer at [lo, lo+4).
func (w *Writer) PutInt32(order ByteOrder, lo int, v int32) error {
	return w.PutUint32(order, lo, uint32(v))
}

// PutFloat32 writes an IEEE-754 single at [lo, lo+4).
func (w *Writer) PutFloat32(order ByteOrder, lo int, v float32) error {
	return w.PutUint32(order, lo, math.Float32bits(v))
}

func (w *Writer) check(lo, hi int) error {
	if lo < 0 || hi < lo || hi > len(w.buf) {
		return fmt.Errorf("%w: [%d, %d) of %d", ErrOutOfBounds, lo, hi, len(w.buf))
	}
	return nil
}
