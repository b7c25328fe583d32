// Package caldb reads calibration tables off disk: delimited 1D curves,
// whitespace tables with a time axis, and FITS files for effective areas
// and redistribution matrices.
//
// Loaders are deliberately dumb. They hand back native arrays exactly as
// stored; grid resolution, interpolation and validation happen in the
// packages that consume them. A file that cannot be opened or parsed is a
// fatal data-source error, never retried.
package caldb

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tamarlowe/respkit/internal/resperr"
	"github.com/tamarlowe/respkit/internal/units"
)

// Curve is one tabulated calibration curve: values Y sampled at axis points
// X, in the file's native units.
type Curve struct {
	X     []float64
	Y     []float64
	XUnit units.Unit
	YUnit units.Unit
	File  string
}

// TimeTable is a transmission surface sampled on (time, energy): Values[i][j]
// is the transmission at Times[i], Energies[j]. Atmospheric tables use this
// layout, one row per elapsed second of a flight profile.
type TimeTable struct {
	Times    []float64 // seconds
	Energies []float64
	Values   [][]float64
	EUnit    units.Unit
	File     string
}

// LoadCSVCurve reads a two-column CSV of (x, y) pairs. A first row that does
// not parse as numbers is treated as a header and skipped.
func LoadCSVCurve(path string, xUnit, yUnit units.Unit) (Curve, error) {
	f, err := os.Open(path)
	if err != nil {
		return Curve{}, resperr.NewDataSourceUnavailable(path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	c := Curve{XUnit: xUnit, YUnit: yUnit, File: path}
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Curve{}, resperr.NewDataSourceUnavailable(path, err)
		}
		if len(rec) < 2 {
			return Curve{}, resperr.NewDataSourceUnavailable(path,
				fmt.Errorf("row has %d columns, need 2", len(rec)))
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if errX != nil || errY != nil {
			if first {
				first = false
				continue // header row
			}
			return Curve{}, resperr.NewDataSourceUnavailable(path,
				fmt.Errorf("non-numeric row %q", strings.Join(rec, ",")))
		}
		first = false
		c.X = append(c.X, x)
		c.Y = append(c.Y, y)
	}
	if len(c.X) == 0 {
		return Curve{}, resperr.NewDataSourceUnavailable(path, fmt.Errorf("no data rows"))
	}
	return c, nil
}

// LoadColumnsCurve reads a whitespace-separated table and extracts two of
// its columns as a curve. Lines starting with '#' and blank lines are
// skipped.
func LoadColumnsCurve(path string, xCol, yCol int, xUnit, yUnit units.Unit) (Curve, error) {
	rows, err := loadColumns(path)
	if err != nil {
		return Curve{}, err
	}
	c := Curve{XUnit: xUnit, YUnit: yUnit, File: path}
	for i, row := range rows {
		if xCol >= len(row) || yCol >= len(row) {
			return Curve{}, resperr.NewDataSourceUnavailable(path,
				fmt.Errorf("row %d has %d columns, need %d and %d", i, len(row), xCol, yCol))
		}
		c.X = append(c.X, row[xCol])
		c.Y = append(c.Y, row[yCol])
	}
	if len(c.X) == 0 {
		return Curve{}, resperr.NewDataSourceUnavailable(path, fmt.Errorf("no data rows"))
	}
	return c, nil
}

// LoadTimeTable reads an atmospheric-transmission table: a '#'-prefixed
// header line listing the energy grid, then one row per time sample whose
// first column is the time in seconds and the rest are transmissions at the
// header energies.
func LoadTimeTable(path string, eUnit units.Unit) (TimeTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return TimeTable{}, resperr.NewDataSourceUnavailable(path, err)
	}
	defer f.Close()

	t := TimeTable{EUnit: eUnit, File: path}
	sc := newLineScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if t.Energies == nil {
				es, err := parseFields(strings.TrimLeft(line, "# "))
				if err != nil {
					return TimeTable{}, resperr.NewDataSourceUnavailable(path, err)
				}
				t.Energies = es
			}
			continue
		}
		row, err := parseFields(line)
		if err != nil {
			return TimeTable{}, resperr.NewDataSourceUnavailable(path, err)
		}
		if len(row) != len(t.Energies)+1 {
			return TimeTable{}, resperr.NewDataSourceUnavailable(path,
				fmt.Errorf("time row has %d values for %d energies", len(row)-1, len(t.Energies)))
		}
		t.Times = append(t.Times, row[0])
		t.Values = append(t.Values, row[1:])
	}
	if err := sc.Err(); err != nil {
		return TimeTable{}, resperr.NewDataSourceUnavailable(path, err)
	}
	if len(t.Times) == 0 || len(t.Energies) == 0 {
		return TimeTable{}, resperr.NewDataSourceUnavailable(path, fmt.Errorf("no data rows"))
	}
	return t, nil
}

// MeanOver averages the table's transmission rows over the closed time range
// [t0, t1], giving the flight-averaged atmospheric curve.
func (t TimeTable) MeanOver(t0, t1 float64) (Curve, error) {
	if t1 < t0 {
		t0, t1 = t1, t0
	}
	sum := make([]float64, len(t.Energies))
	n := 0
	for i, tv := range t.Times {
		if tv < t0 || tv > t1 {
			continue
		}
		for j, v := range t.Values[i] {
			sum[j] += v
		}
		n++
	}
	if n == 0 {
		return Curve{}, fmt.Errorf("no time samples in [%v, %v] of %s", t0, t1, t.File)
	}
	for j := range sum {
		sum[j] /= float64(n)
	}
	return Curve{X: t.Energies, Y: sum, XUnit: t.EUnit, YUnit: units.Fraction, File: t.File}, nil
}

func loadColumns(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, resperr.NewDataSourceUnavailable(path, err)
	}
	defer f.Close()

	var rows [][]float64
	sc := newLineScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		row, err := parseFields(line)
		if err != nil {
			return nil, resperr.NewDataSourceUnavailable(path, err)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, resperr.NewDataSourceUnavailable(path, err)
	}
	return rows, nil
}

// newLineScanner builds a scanner sized for atmospheric tables, whose rows
// carry one value per energy bin.
func newLineScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return sc
}

func parseFields(line string) ([]float64, error) {
	fields := strings.Fields(line)
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("non-numeric field %q", f)
		}
		out[i] = v
	}
	return out, nil
}
