package zygo

import (
	"fmt"
	"math"
	"os"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/robert-malhotra/go-metrology/internal/binary"
	"github.com/robert-malhotra/go-metrology/internal/layout"
	"github.com/robert-malhotra/go-metrology/metrology"
)

// InvalidPhase is the sentinel phase code meaning "no valid measurement
// at this sample". Codes at or above it decode to NaN.
const InvalidPhase = 2147483640

// PhaseResFactors maps the header's phase_res field to the integer
// resolution divisor. Keys outside this table are a hard failure: the
// format has no self-describing schema, so guessing would corrupt the
// physical units.
var PhaseResFactors = map[uint16]int32{
	0: 4096,   // 12-bit
	1: 32768,  // 15-bit
	2: 131072, // 17-bit
}

// writtenPhaseRes is the phase resolution convention fixed by the writer.
const writtenPhaseRes uint16 = 1 // 15-bit

// DecodeHeader decodes the fixed binary header from the front of
// contents, keyed by vendor field name.
func DecodeHeader(contents []byte) (map[string]interface{}, error) {
	return layout.Decode(contents, HeaderLayout)
}

// ReadDat decodes a complete binary .dat file held in memory. The header
// tells us where the later blocks start, so the input is a finite owned
// buffer rather than a stream.
//
// Multi-bucket intensity acquisitions are reduced to a single frame per
// policy.
func ReadDat(contents []byte, policy metrology.BucketPolicy) (*metrology.Measurement, error) {
	switch policy {
	case metrology.BucketAverage, metrology.BucketFirst, metrology.BucketLast:
	default:
		return nil, fmt.Errorf("%w: bucket policy %d not among average, first, last", metrology.ErrInvalidArgument, policy)
	}

	meta, err := DecodeHeader(contents)
	if err != nil {
		return nil, err
	}

	headerLen := int(meta["header_size"].(uint32))
	iw := int(meta["ac_width"].(uint16))
	ih := int(meta["ac_height"].(uint16))
	ib := int(meta["ac_n_buckets"].(uint16))
	if ib == 0 {
		ib = 1
	}
	pw := int(meta["cn_width"].(uint16))
	ph := int(meta["cn_height"].(uint16))

	ilen := iw * ih * ib
	plen := pw * ph
	need := headerLen + ilen*2 + plen*4
	if len(contents) < need {
		return nil, fmt.Errorf("%w: data blocks need %d bytes, file has %d", metrology.ErrLayout, need, len(contents))
	}

	var intensity *metrology.IntensityFrame
	if ilen > 0 {
		intensity, err = readIntensity(contents[headerLen:headerLen+ilen*2], iw, ih, ib, policy)
		if err != nil {
			return nil, err
		}
	}

	resFactor, ok := PhaseResFactors[meta["phase_res"].(uint16)]
	if !ok {
		return nil, fmt.Errorf("%w: phase_res %d outside the known resolution table", metrology.ErrUnsupportedFormat, meta["phase_res"])
	}

	// code -> nm: code * scale * obliquity * wavelength[m] / resFactor * 1e9
	scale := float64(meta["scale_factor"].(float32))
	obliquity := float64(meta["obliquity_factor"].(float32))
	wavelength := float64(meta["wavelength"].(float32))
	toNM := scale * obliquity * wavelength / float64(resFactor) * 1e9

	phase, err := readPhase(contents[headerLen+ilen*2:], pw, ph, toNM)
	if err != nil {
		return nil, err
	}

	return &metrology.Measurement{Phase: phase, Intensity: intensity, Meta: meta}, nil
}

// ReadDatFile reads and decodes the binary .dat file at path.
func ReadDatFile(path string, policy metrology.BucketPolicy) (*metrology.Measurement, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dat file: %w", err)
	}
	return ReadDat(contents, policy)
}

// readIntensity decodes the little-endian uint16 camera block and reduces
// the bucket axis per policy.
func readIntensity(block []byte, w, h, buckets int, policy metrology.BucketPolicy) (*metrology.IntensityFrame, error) {
	frame := &metrology.IntensityFrame{Rows: h, Cols: w, Counts: make([]uint16, w*h)}
	per := w * h

	bucketAt := func(b, i int) uint16 {
		off := (b*per + i) * 2
		return uint16(block[off]) | uint16(block[off+1])<<8
	}

	switch policy {
	case metrology.BucketFirst:
		for i := range frame.Counts {
			frame.Counts[i] = bucketAt(0, i)
		}
	case metrology.BucketLast:
		for i := range frame.Counts {
			frame.Counts[i] = bucketAt(buckets-1, i)
		}
	case metrology.BucketAverage:
		for i := range frame.Counts {
			var sum uint32
			for b := 0; b < buckets; b++ {
				sum += uint32(bucketAt(b, i))
			}
			frame.Counts[i] = uint16((sum + uint32(buckets)/2) / uint32(buckets))
		}
	}
	return frame, nil
}

// readPhase decodes the big-endian int32 phase block into nanometers,
// mapping sentinel codes to NaN.
func readPhase(block []byte, w, h int, toNM float64) (*mat.Dense, error) {
	r := binary.NewReader(block)
	phase := mat.NewDense(h, w, nil)
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			code, err := r.Int32(binary.Big, (i*w+j)*4)
			if err != nil {
				return nil, fmt.Errorf("%w: phase block: %v", metrology.ErrLayout, err)
			}
			if code >= InvalidPhase {
				phase.Set(i, j, math.NaN())
			} else {
				phase.Set(i, j, float64(code)*toNM)
			}
		}
	}
	return phase, nil
}

// WriteDat encodes phase (nanometers, NaN = invalid) as a binary .dat
// file image. dx is the inter-sample spacing in mm, wavelength is in
// microns.
//
// The writer fixes the 15-bit phase resolution convention and unit scale
// and obliquity factors, giving the full dynamic range with no further
// correction. The round trip is lossy but deterministic: re-reading
// reproduces the phase within one quantization step
// (wavelength/32768 per code) and reproduces NaN cells exactly.
func WriteDat(phase *mat.Dense, dx, wavelength float64) ([]byte, error) {
	rows, cols := phase.Dims()
	resFactor := PhaseResFactors[writtenPhaseRes]

	values := map[string]interface{}{
		"scale_factor":       1.0,
		"obliquity_factor":   1.0,
		"lateral_resolution": dx / 1e3, // mm -> m
		"timestamp":          int64(time.Now().Unix()),
		"cn_width":           cols,
		"cn_height":          rows,
		"cn_n_bytes":         rows * cols * 4,
		"wavelength":         wavelength / 1e6, // um -> m
		"phase_res":          int(writtenPhaseRes),
	}
	header, err := layout.Encode(values, HeaderLayout)
	if err != nil {
		return nil, err
	}

	w := binary.NewWriter(rows * cols * 4)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := phase.At(i, j)
			var code int32
			if math.IsNaN(v) {
				code = InvalidPhase
			} else {
				// nm -> codes: round(phase * 1e-3 * resFactor / wavelength[um])
				code = int32(math.Round(v * 1e-3 * float64(resFactor) / wavelength))
			}
			if err := w.PutInt32(binary.Big, (i*cols+j)*4, code); err != nil {
				return nil, err
			}
		}
	}
	return append(header, w.Bytes()...), nil
}

// WriteDatFile writes phase to a binary .dat file at path. See WriteDat.
func WriteDatFile(path string, phase *mat.Dense, dx, wavelength float64) error {
	buf, err := WriteDat(phase, dx, wavelength)
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o644)
}
