// Package rmf reconstructs dense redistribution matrices from the compact
// run-length encoding used by matrix calibration files.
//
// Each photon-energy row of the on-disk matrix is stored as a count of
// contiguous non-zero channel groups, the start index and span of each
// group, and one flat list of the row's values laid out group after group.
// Decode turns those arrays back into the full photon-row by count-column
// matrix, checking the encoding's invariants as it goes.
package rmf

import (
	"fmt"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/tamarlowe/respkit/internal/axis"
	"github.com/tamarlowe/respkit/internal/resperr"
	"github.com/tamarlowe/respkit/internal/units"
)

// Sparse holds the raw arrays of one redistribution-matrix file, exactly as
// the loader hands them over. FChan, NChan and Values are ragged: row i has
// NGrp[i] real entries in FChan[i]/NChan[i] and a flat Values[i] whose length
// is the sum of NChan[i] over its groups. Integer arrays arrive already
// normalized to native byte order.
type Sparse struct {
	File     string // originating file, for diagnostics
	EnergyLo []float64
	EnergyHi []float64
	NGrp     []int
	FChan    [][]int
	NChan    [][]int
	Values   [][]float64
	Channels int // count columns of the dense matrix
}

// NormalizeRagged pads ragged per-row group arrays into a rectangle of the
// maximum group count, filled with zeros. Row i carries real data in columns
// [0, nGrp[i]) and padding beyond; the padding must never be read as real.
// A row shorter than its own nGrp[i] is a corrupt encoding.
func NormalizeRagged(rows [][]int, nGrp []int, field, file string) ([][]int, error) {
	if len(rows) != len(nGrp) {
		return nil, resperr.NewMalformedMatrixEncoding(file,
			fmt.Sprintf("%s has %d rows but n_grp has %d", field, len(rows), len(nGrp)), nil)
	}
	width := 0
	for i, row := range rows {
		if nGrp[i] < 0 || len(row) < nGrp[i] {
			return nil, resperr.NewMalformedMatrixEncoding(file,
				fmt.Sprintf("%s row %d has %d entries for %d groups", field, i, len(row), nGrp[i]), nil)
		}
		if nGrp[i] > width {
			width = nGrp[i]
		}
	}
	out := make([][]int, len(rows))
	for i, row := range rows {
		padded := make([]int, width)
		copy(padded, row[:nGrp[i]])
		out[i] = padded
	}
	return out, nil
}

// Decode reconstructs the dense matrix from its sparse encoding. For each
// row, group g's values sit at offset sum(NChan[i][0..g)) of Values[i] and
// land at columns [FChan[i][g], FChan[i][g]+NChan[i][g]) of the output. Rows
// with NGrp[i] == 0 stay all-zero. A group running past the channel axis or
// a values list shorter than its groups claim is a corrupt file, never
// clamped. Rows decode independently, in parallel.
func Decode(s Sparse) (*mat.Dense, error) {
	if s.Channels <= 0 {
		return nil, resperr.NewMalformedMatrixEncoding(s.File,
			fmt.Sprintf("matrix has %d count channels", s.Channels), nil)
	}
	fChan, err := NormalizeRagged(s.FChan, s.NGrp, "f_chan", s.File)
	if err != nil {
		return nil, err
	}
	nChan, err := NormalizeRagged(s.NChan, s.NGrp, "n_chan", s.File)
	if err != nil {
		return nil, err
	}
	if len(s.Values) != len(s.NGrp) {
		return nil, resperr.NewMalformedMatrixEncoding(s.File,
			fmt.Sprintf("matrix values have %d rows but n_grp has %d", len(s.Values), len(s.NGrp)), nil)
	}

	nRows := len(s.NGrp)
	dense := mat.NewDense(nRows, s.Channels, nil)

	workers := runtime.GOMAXPROCS(0)
	if workers > nRows {
		workers = nRows
	}
	if workers < 1 {
		workers = 1
	}

	var (
		wg      sync.WaitGroup
		errOnce sync.Once
		decErr  error
	)
	fail := func(err error) { errOnce.Do(func() { decErr = err }) }

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < nRows; i += workers {
				if err := decodeRow(dense, s, fChan[i], nChan[i], i); err != nil {
					fail(err)
					return
				}
			}
		}(w)
	}
	wg.Wait()
	if decErr != nil {
		return nil, decErr
	}
	return dense, nil
}

// decodeRow copies row i's group slices into the dense matrix. Workers own
// disjoint rows, so writes never overlap.
func decodeRow(dense *mat.Dense, s Sparse, fChan, nChan []int, i int) error {
	offset := 0
	row := dense.RawRowView(i)
	for g := 0; g < s.NGrp[i]; g++ {
		start, count := fChan[g], nChan[g]
		if start < 0 || count < 0 || start+count > s.Channels {
			return resperr.NewMalformedMatrixEncoding(s.File,
				fmt.Sprintf("row %d group %d spans channels [%d, %d) of %d", i, g, start, start+count, s.Channels),
				map[string]string{"row": fmt.Sprintf("%d", i), "group": fmt.Sprintf("%d", g)})
		}
		if offset+count > len(s.Values[i]) {
			return resperr.NewMalformedMatrixEncoding(s.File,
				fmt.Sprintf("row %d group %d needs values [%d, %d) but the row holds %d", i, g, offset, offset+count, len(s.Values[i])),
				nil)
		}
		for j, v := range s.Values[i][offset : offset+count] {
			if v < 0 {
				v = 0
			}
			row[start+j] = v
		}
		offset += count
	}
	return nil
}

// EnergyEdges joins the file's per-bin (lo, hi) arrays into the photon-axis
// edge array of length N+1.
func (s Sparse) EnergyEdges(unit units.Unit) (axis.Axis, error) {
	edges, err := axis.EdgesFromLoHi(s.EnergyLo, s.EnergyHi, unit)
	if err != nil {
		return axis.Axis{}, resperr.NewMalformedMatrixEncoding(s.File, err.Error(), nil)
	}
	return edges, nil
}
