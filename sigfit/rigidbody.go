package sigfit

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/robert-malhotra/go-metrology/metrology"
)

// headerRows is the fixed preamble of a sum1.csv summary; the unit
// system line sits at unitRow within it.
const (
	headerRows = 7
	unitRow    = 4
)

// ReadRigidBody parses a sum1.csv rigid-body perturbation summary,
// keyed by surface ID. All values come back in millimeters; exports in
// the inch unit system are converted.
func ReadRigidBody(contents string) (map[int]*metrology.RigidBodyPerturbation, error) {
	lines := strings.Split(strings.ReplaceAll(contents, "\r\n", "\n"), "\n")
	if len(lines) <= headerRows {
		return nil, fmt.Errorf("%w: summary has only %d lines, want a %d-line preamble", metrology.ErrMalformed, len(lines), headerRows)
	}
	fctr := 1.0
	if strings.Contains(lines[unitRow], "= in") {
		fctr = inToMM
	}

	rd := csv.NewReader(strings.NewReader(strings.Join(lines[headerRows:], "\n")))
	rd.FieldsPerRecord = -1
	records, err := rd.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", metrology.ErrMalformed, err)
	}

	out := make(map[int]*metrology.RigidBodyPerturbation)
	for _, rec := range records {
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}
		// Columns 4..11 hold surface ID, dx..rz, and delta radius.
		if len(rec) < 12 {
			return nil, fmt.Errorf("%w: row has %d columns, want at least 12", metrology.ErrMalformed, len(rec))
		}
		sid, err := strconv.Atoi(strings.TrimSpace(rec[4]))
		if err != nil {
			return nil, fmt.Errorf("%w: surface ID %q: %v", metrology.ErrParse, rec[4], err)
		}
		vals := make([]float64, 7)
		for i := range vals {
			tok := strings.TrimSpace(rec[5+i])
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: perturbation value %q: %v", metrology.ErrParse, tok, err)
			}
			vals[i] = v * fctr
		}
		out[sid] = &metrology.RigidBodyPerturbation{
			DX: vals[0], DY: vals[1], DZ: vals[2],
			RX: vals[3], RY: vals[4], RZ: vals[5],
			DR: vals[6],
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no perturbation rows", metrology.ErrMalformed)
	}
	return out, nil
}

// ReadRigidBodyFile reads the sum1.csv summary at path.
func ReadRigidBodyFile(path string) (map[int]*metrology.RigidBodyPerturbation, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ReadRigidBody(string(raw))
}
