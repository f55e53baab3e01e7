package codev

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/robert-malhotra/go-metrology/metrology"
)

// WriteZernikeInt encodes Fringe Zernike coefficients (nanometers,
// counting from mode 1) as a ZFR INT file. kind selects whether the file
// declares surface figure or wavefront error; FIL has no meaning for
// coefficient files.
//
// The header's WVL 0.001 states the 1e3 nm-to-um unit ratio; SSZ 1 leaves
// the coefficients unscaled.
func WriteZernikeInt(w io.Writer, coefs []float64, kind GridKind, comment string) error {
	switch kind {
	case KindSurface, KindWavefront:
	default:
		return fmt.Errorf("%w: coefficient kind %q not among SUR, WFR", metrology.ErrInvalidArgument, kind)
	}
	if comment == "" {
		comment = "CV Fringe Zernike coefficients"
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, comment)
	fmt.Fprintf(bw, "ZFR %d %s WVL 0.001 SSZ 1\n", len(coefs), kind)
	for _, c := range coefs {
		fmt.Fprintf(bw, "%.9f\n", c)
	}
	return bw.Flush()
}

// WriteZernikeIntFile writes coefs to a ZFR INT file at path. See
// WriteZernikeInt.
func WriteZernikeIntFile(path string, coefs []float64, kind GridKind, comment string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating int file: %w", err)
	}
	if err := WriteZernikeInt(f, coefs, kind, comment); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
