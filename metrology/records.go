package metrology

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Measurement is the canonical decoded form of an interferometer
// acquisition: a phase map in nanometers, optional camera intensity, and
// the instrument metadata that accompanied it.
//
// Phase is row-major with shape (height, width) from the source header.
// Cells the instrument flagged invalid are NaN; NaN never arises from the
// decode arithmetic itself.
type Measurement struct {
	Phase     *mat.Dense
	Intensity *IntensityFrame
	Meta      map[string]interface{}
}

// IntensityFrame holds one frame of camera counts. Multi-bucket
// acquisitions are reduced to a single frame at decode time per the
// caller's BucketPolicy.
type IntensityFrame struct {
	Rows, Cols int
	Counts     []uint16
}

// At returns the count at (row, col).
func (f *IntensityFrame) At(row, col int) uint16 {
	return f.Counts[row*f.Cols+col]
}

// BucketPolicy selects how a multi-bucket intensity acquisition is reduced
// to a single frame.
type BucketPolicy int

const (
	// BucketAverage averages counts across buckets, rounding to nearest.
	BucketAverage BucketPolicy = iota
	// BucketFirst keeps only the first acquired bucket.
	BucketFirst
	// BucketLast keeps only the last acquired bucket.
	BucketLast
)

// ZernikeBasis identifies the ordering/normalization family of a
// coefficient set.
type ZernikeBasis int

const (
	// BasisFringe is the Fringe (University of Arizona) ordering.
	BasisFringe ZernikeBasis = iota
	// BasisNoll is the Noll ordering ("Zemax Standard" in vendor exports).
	BasisNoll
)

func (b ZernikeBasis) String() string {
	if b == BasisNoll {
		return "Noll"
	}
	return "Fringe"
}

// SurfaceZernikes is one surface's modal-coefficient record.
type SurfaceZernikes struct {
	Basis ZernikeBasis
	// Normalized reports whether the modes are orthonormalized (unit RMS)
	// rather than unit amplitude.
	Normalized bool
	// WavelengthUm is the wavelength of light in microns.
	WavelengthUm float64
	// Coefs are the mode coefficients in microns, index 0 = mode 1.
	Coefs []float64
	// NormRadiusMM is the normalization radius in millimeters.
	NormRadiusMM float64
}

// RigidBodyPerturbation is a surface's six-degree-of-freedom displacement
// plus radius-of-curvature change. All values are millimeters.
type RigidBodyPerturbation struct {
	DX, DY, DZ float64
	RX, RY, RZ float64
	DR         float64
}

// MTFField holds tangential and sagittal MTF versus field height.
// Tan and Sag have shape (len(Freqs), len(Fields)).
type MTFField struct {
	// Freqs are spatial frequencies in cycles/mm, in encounter order.
	Freqs []float64
	// Fields are field heights (mm or degrees per the source report).
	Fields []float64
	Tan    *mat.Dense
	Sag    *mat.Dense
	Meta   map[string]interface{}
}

// MTFFrequency holds on-axis MTF versus spatial frequency at a single
// focus position. Tan and Sag parallel Freqs.
type MTFFrequency struct {
	// FocusMM is the focus position in millimeters.
	FocusMM float64
	// Freqs are spatial frequencies in cycles/mm.
	Freqs []float64
	Tan   []float64
	Sag   []float64
	Meta  map[string]interface{}
}

// MTFFocus holds a through-focus MTF cube: Data[field][focus][freq].
type MTFFocus struct {
	Fields  []float64
	Focuses []float64
	Freqs   []float64
	Data    [][][]float64
	// Azimuth is "Tan" or "Sag", selected by the source file's naming
	// convention.
	Azimuth string
}

// NaNAwareMinMax returns the minimum and maximum of the finite entries of
// m. ok is false when every entry is NaN.
func NaNAwareMinMax(m *mat.Dense) (min, max float64, ok bool) {
	rows, cols := m.Dims()
	min, max = math.Inf(1), math.Inf(-1)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			ok = true
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	return min, max, ok
}
