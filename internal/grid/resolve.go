// Package grid decides which sampling grid a response element is defined on
// and interpolates calibration tables onto it.
//
// Grid resolution and interpolation are deliberately separate: Resolve only
// picks the authoritative axis (the caller's, or the calibration file's
// native one), and the interpolation helpers never decide grids themselves.
package grid

import "github.com/tamarlowe/respkit/internal/axis"

// Resolve picks the grid a response element's output is defined on.
//
// A caller that wants "whatever the calibration file natively provides"
// passes the all-NaN sentinel (axis.Native); Resolve then returns the native
// grid unchanged. Any other request opts into resampling and is returned
// converted to the native grid's unit, so downstream interpolation works in
// one unit. An inconvertible unit is a units.MismatchError before any
// numeric work happens.
func Resolve(native, requested axis.Axis) (axis.Axis, error) {
	if requested.IsNative() {
		return native, nil
	}
	return requested.ConvertTo(native.Unit)
}
