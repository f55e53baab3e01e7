package layout

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/robert-malhotra/go-metrology/internal/binary"
	"github.com/robert-malhotra/go-metrology/metrology"
)

// Kind is a field's wire encoding.
type Kind int

const (
	// U8 is an unsigned 8-bit integer.
	U8 Kind = iota
	// U16 is an unsigned 16-bit integer.
	U16
	// U32 is an unsigned 32-bit integer.
	U32
	// I16 is a signed 16-bit integer.
	I16
	// I32 is a signed 32-bit integer.
	I32
	// F32 is an IEEE-754 single.
	F32
	// String is a fixed-width padded single-byte-encoded string.
	String
	// Char is a single character.
	Char
	// Pad is a reserved gap: skipped on decode, zeroed on encode.
	Pad
)

// Field describes one named field of a fixed binary record.
type Field struct {
	Name    string
	Kind    Kind
	Order   binary.ByteOrder
	Lo, Hi  int
	Default interface{}
}

// Width returns the field's byte width.
func (f Field) Width() int {
	return f.Hi - f.Lo
}

// Layout is an immutable descriptor of a fixed binary record: an ordered
// field table plus the record's total length. PadByte is the byte string
// fields are padded with (NUL or space, format-specific).
type Layout struct {
	Fields  []Field
	Size    int
	PadByte byte
}

// Validate checks the table's internal consistency: every range must be
// well formed and lie inside the record, ranges must not overlap, and the
// non-overlapping ranges must jointly cover the record length.
func (l *Layout) Validate() error {
	fields := make([]Field, len(l.Fields))
	copy(fields, l.Fields)
	sort.Slice(fields, func(i, j int) bool { return fields[i].Lo < fields[j].Lo })

	covered := 0
	prevHi := 0
	prevName := ""
	for _, f := range fields {
		if f.Lo < 0 || f.Hi < f.Lo || f.Hi > l.Size {
			return fmt.Errorf("field %s: range [%d, %d) outside record of %d bytes", f.Name, f.Lo, f.Hi, l.Size)
		}
		if f.Lo < prevHi {
			return fmt.Errorf("field %s overlaps %s", f.Name, prevName)
		}
		covered += f.Width()
		prevHi = f.Hi
		prevName = f.Name
	}
	if covered != l.Size {
		return fmt.Errorf("fields cover %d of %d bytes", covered, l.Size)
	}
	return nil
}

// Decode reads every non-pad field of l out of buf, keyed by field name.
// A field whose byte range exceeds the buffer is a metrology.ErrLayout.
func Decode(buf []byte, l *Layout) (map[string]interface{}, error) {
	r := binary.NewReader(buf)
	out := make(map[string]interface{}, len(l.Fields))
	for _, f := range l.Fields {
		if f.Kind == Pad {
			continue
		}
		if f.Hi > r.Len() {
			return nil, fmt.Errorf("%w: field %s needs bytes [%d, %d), buffer has %d",
				metrology.ErrLayout, f.Name, f.Lo, f.Hi, r.Len())
		}
		v, err := decodeField(r, f, l.PadByte)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", metrology.ErrLayout, f.Name, err)
		}
		out[f.Name] = v
	}
	return out, nil
}

func decodeField(r *binary.Reader, f Field, pad byte) (interface{}, error) {
	switch f.Kind {
	case U8:
		return r.Uint8(f.Lo)
	case U16:
		return r.Uint16(f.Order, f.Lo)
	case U32:
		return r.Uint32(f.Order, f.Lo)
	case I16:
		return r.Int16(f.Order, f.Lo)
	case I32:
		return r.Int32(f.Order, f.Lo)
	case F32:
		return r.Float32(f.Order, f.Lo)
	case String, Char:
		raw, err := r.Bytes(f.Lo, f.Hi)
		if err != nil {
			return nil, err
		}
		return decodeString(raw, pad)
	default:
		return nil, fmt.Errorf("unhandled kind %d", f.Kind)
	}
}

// decodeString decodes a fixed-width single-byte string and right-trims
// the pad byte. The trailing NUL region instruments leave after short
// strings is trimmed as well.
func decodeString(raw []byte, pad byte) (string, error) {
	s, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(strings.TrimRight(string(s), "\x00"), string(pad)), nil
}

// Encode builds a record of l's fixed length from values. Fields absent
// from values take their table default. Pad fields stay zeroed. A value
// outside its field's numeric range or string width is a
// metrology.ErrEncoding.
func Encode(values map[string]interface{}, l *Layout) ([]byte, error) {
	w := binary.NewWriter(l.Size)
	for _, f := range l.Fields {
		if f.Kind == Pad {
			continue
		}
		v, ok := values[f.Name]
		if !ok {
			v = f.Default
		}
		if err := encodeField(w, f, v, l.PadByte); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

func encodeField(w *binary.Writer, f Field, v interface{}, pad byte) error {
	switch f.Kind {
	case U8:
		n, err := intInRange(f, v, 0, math.MaxUint8)
		if err != nil {
			return err
		}
		return w.PutUint8(f.Lo, uint8(n))
	case U16:
		n, err := intInRange(f, v, 0, math.MaxUint16)
		if err != nil {
			return err
		}
		return w.PutUint16(f.Order, f.Lo, uint16(n))
	case U32:
		n, err := intInRange(f, v, 0, math.MaxUint32)
		if err != nil {
			return err
		}
		return w.PutUint32(f.Order, f.Lo, uint32(n))
	case I16:
		n, err := intInRange(f, v, math.MinInt16, math.MaxInt16)
		if err != nil {
			return err
		}
		return w.PutInt16(f.Order, f.Lo, int16(n))
	case I32:
		n, err := intInRange(f, v, math.MinInt32, math.MaxInt32)
		if err != nil {
			return err
		}
		return w.PutInt32(f.Order, f.Lo, int32(n))
	case F32:
		x, ok := asFloat(v)
		if !ok {
			return fmt.Errorf("%w: field %s: %T is not numeric", metrology.ErrEncoding, f.Name, v)
		}
		return w.PutFloat32(f.Order, f.Lo, float32(x))
	case String, Char:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: field %s: %T is not a string", metrology.ErrEncoding, f.Name, v)
		}
		raw, err := charmap.Windows1252.NewEncoder().Bytes([]byte(s))
		if err != nil {
			return fmt.Errorf("%w: field %s: %v", metrology.ErrEncoding, f.Name, err)
		}
		if len(raw) > f.Width() {
			return fmt.Errorf("%w: field %s: %d bytes exceeds width %d", metrology.ErrEncoding, f.Name, len(raw), f.Width())
		}
		padded := make([]byte, f.Width())
		copy(padded, raw)
		for i := len(raw); i < len(padded); i++ {
			padded[i] = pad
		}
		return w.PutBytes(f.Lo, padded)
	default:
		return fmt.Errorf("%w: field %s: unhandled kind %d", metrology.ErrEncoding, f.Name, f.Kind)
	}
}

func intInRange(f Field, v interface{}, lo, hi int64) (int64, error) {
	n, ok := asInt(v)
	if !ok {
		return 0, fmt.Errorf("%w: field %s: %T is not an integer", metrology.ErrEncoding, f.Name, v)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%w: field %s: %d outside [%d, %d]", metrology.ErrEncoding, f.Name, n, lo, hi)
	}
	return n, nil
}

func asInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint8:
		return int64(n), true
	default:
		return 0, false
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	default:
		n, ok := asInt(v)
		return float64(n), ok
	}
}
