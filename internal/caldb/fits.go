package caldb

import (
	"fmt"
	"os"

	"github.com/siravan/fits"

	"github.com/tamarlowe/respkit/internal/resperr"
	"github.com/tamarlowe/respkit/internal/rmf"
	"github.com/tamarlowe/respkit/internal/units"
)

// Column names of the matrix and spectral-response extensions.
const (
	colEnergyLo = "ENERG_LO"
	colEnergyHi = "ENERG_HI"
	colNGrp     = "N_GRP"
	colFChan    = "F_CHAN"
	colNChan    = "N_CHAN"
	colMatrix   = "MATRIX"
	colSpecResp = "SPECRESP"
)

// LoadRMF reads the six raw arrays of a redistribution-matrix FITS file.
// The byte-order normalization is done by the FITS layer; the arrays come
// back as native integers and floats ready for rmf.Decode. The number of
// count channels is taken from the DETCHANS key.
func LoadRMF(path string) (rmf.Sparse, error) {
	unit, err := openTable(path, colMatrix)
	if err != nil {
		return rmf.Sparse{}, err
	}

	nRows := tableRows(unit)
	s := rmf.Sparse{
		File:     path,
		EnergyLo: make([]float64, nRows),
		EnergyHi: make([]float64, nRows),
		NGrp:     make([]int, nRows),
		FChan:    make([][]int, nRows),
		NChan:    make([][]int, nRows),
		Values:   make([][]float64, nRows),
	}

	lo := unit.Field(colEnergyLo)
	hi := unit.Field(colEnergyHi)
	nGrp := unit.Field(colNGrp)
	fChan := unit.Field(colFChan)
	nChan := unit.Field(colNChan)
	matrix := unit.Field(colMatrix)

	for i := 0; i < nRows; i++ {
		if s.EnergyLo[i], err = cellFloat(lo(i)); err != nil {
			return rmf.Sparse{}, columnErr(path, colEnergyLo, i, err)
		}
		if s.EnergyHi[i], err = cellFloat(hi(i)); err != nil {
			return rmf.Sparse{}, columnErr(path, colEnergyHi, i, err)
		}
		if s.NGrp[i], err = cellInt(nGrp(i)); err != nil {
			return rmf.Sparse{}, columnErr(path, colNGrp, i, err)
		}
		if s.FChan[i], err = cellInts(fChan(i)); err != nil {
			return rmf.Sparse{}, columnErr(path, colFChan, i, err)
		}
		if s.NChan[i], err = cellInts(nChan(i)); err != nil {
			return rmf.Sparse{}, columnErr(path, colNChan, i, err)
		}
		if s.Values[i], err = cellFloats(matrix(i)); err != nil {
			return rmf.Sparse{}, columnErr(path, colMatrix, i, err)
		}
	}

	channels, ok := keyInt(unit, "DETCHANS")
	if !ok {
		return rmf.Sparse{}, resperr.NewDataSourceUnavailable(path,
			fmt.Errorf("matrix extension has no DETCHANS key"))
	}
	s.Channels = channels
	return s, nil
}

// LoadFITSCurve reads a spectral-response extension as a 1D curve sampled at
// the bin midpoints of its ENERG_LO/ENERG_HI columns.
func LoadFITSCurve(path string, yUnit units.Unit) (Curve, error) {
	unit, err := openTable(path, colSpecResp)
	if err != nil {
		return Curve{}, err
	}

	nRows := tableRows(unit)
	lo := unit.Field(colEnergyLo)
	hi := unit.Field(colEnergyHi)
	resp := unit.Field(colSpecResp)

	c := Curve{
		X:     make([]float64, nRows),
		Y:     make([]float64, nRows),
		XUnit: units.KeV,
		YUnit: yUnit,
		File:  path,
	}
	for i := 0; i < nRows; i++ {
		l, err := cellFloat(lo(i))
		if err != nil {
			return Curve{}, columnErr(path, colEnergyLo, i, err)
		}
		h, err := cellFloat(hi(i))
		if err != nil {
			return Curve{}, columnErr(path, colEnergyHi, i, err)
		}
		c.X[i] = (l + h) / 2
		if c.Y[i], err = cellFloat(resp(i)); err != nil {
			return Curve{}, columnErr(path, colSpecResp, i, err)
		}
	}
	return c, nil
}

// openTable opens a FITS file and returns the first table HDU carrying the
// named column.
func openTable(path, column string) (*fits.Unit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, resperr.NewDataSourceUnavailable(path, err)
	}
	defer f.Close()

	hdus, err := fits.Open(f)
	if err != nil {
		return nil, resperr.NewDataSourceUnavailable(path, err)
	}
	for _, u := range hdus {
		if !u.HasTable() {
			continue
		}
		if u.Field(column)(0) != nil {
			return u, nil
		}
	}
	return nil, resperr.NewDataSourceUnavailable(path,
		fmt.Errorf("no table extension with a %s column", column))
}

// tableRows returns the row count of a table HDU (NAXIS2).
func tableRows(u *fits.Unit) int {
	if len(u.Naxis) < 2 {
		return 0
	}
	return u.Naxis[1]
}

func keyInt(u *fits.Unit, key string) (int, bool) {
	switch v := u.Keys[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func columnErr(path, column string, row int, err error) error {
	return resperr.NewDataSourceUnavailable(path,
		fmt.Errorf("column %s row %d: %w", column, row, err))
}

// The FITS layer types each cell by its TFORM code, so a column that is
// conceptually "an integer" may arrive as a scalar or fixed-repeat slice of
// any integer width. The cell* helpers coerce every shape to one type.

func cellFloat(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case []float64:
		if len(x) == 1 {
			return x[0], nil
		}
	case []float32:
		if len(x) == 1 {
			return float64(x[0]), nil
		}
	}
	return 0, fmt.Errorf("cell %T is not a scalar number", v)
}

func cellInt(v interface{}) (int, error) {
	switch x := v.(type) {
	case int16:
		return int(x), nil
	case int32:
		return int(x), nil
	case int64:
		return int(x), nil
	case uint8:
		return int(x), nil
	case []int16:
		if len(x) == 1 {
			return int(x[0]), nil
		}
	case []int32:
		if len(x) == 1 {
			return int(x[0]), nil
		}
	}
	return 0, fmt.Errorf("cell %T is not a scalar integer", v)
}

func cellInts(v interface{}) ([]int, error) {
	switch x := v.(type) {
	case []int16:
		out := make([]int, len(x))
		for i, e := range x {
			out[i] = int(e)
		}
		return out, nil
	case []int32:
		out := make([]int, len(x))
		for i, e := range x {
			out[i] = int(e)
		}
		return out, nil
	case []int64:
		out := make([]int, len(x))
		for i, e := range x {
			out[i] = int(e)
		}
		return out, nil
	default:
		n, err := cellInt(v)
		if err != nil {
			return nil, err
		}
		return []int{n}, nil
	}
}

func cellFloats(v interface{}) ([]float64, error) {
	switch x := v.(type) {
	case []float64:
		out := make([]float64, len(x))
		copy(out, x)
		return out, nil
	case []float32:
		out := make([]float64, len(x))
		for i, e := range x {
			out[i] = float64(e)
		}
		return out, nil
	default:
		f, err := cellFloat(v)
		if err != nil {
			return nil, err
		}
		return []float64{f}, nil
	}
}
