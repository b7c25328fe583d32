// Package resperr defines the structured error type shared by the loaders
// and the composition engine. Every fatal condition carries a Code so
// callers can branch on category with the Is* predicates instead of
// matching message text.
package resperr

import (
	"errors"
	"fmt"
)

// Error represents a fatal condition while loading or composing response
// products.
//
// Fatal conditions include:
//   - Data source unavailable: a calibration file is missing or unreadable
//   - Grid mismatch: products being combined are on different energy grids
//   - Malformed matrix encoding: a sparse matrix's group offsets run past
//     the channel axis
//
// Error includes structured fields for diagnostics.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Product identifies the response product being built, when known.
	Product string

	// File identifies the calibration file involved, when known.
	File string

	// Details contains additional context.
	Details map[string]string
}

// Code categorizes response errors.
type Code string

const (
	// CodeDataSourceUnavailable indicates a calibration file could not be
	// read.
	CodeDataSourceUnavailable Code = "DATA_SOURCE_UNAVAILABLE"

	// CodeGridMismatch indicates two products being combined disagree on
	// their energy grid.
	CodeGridMismatch Code = "GRID_MISMATCH"

	// CodeMalformedMatrixEncoding indicates a sparse matrix encoding whose
	// group offsets exceed the channel axis.
	CodeMalformedMatrixEncoding Code = "MALFORMED_MATRIX_ENCODING"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Product != "" && e.File != "" {
		return fmt.Sprintf("%s: %s (product=%s, file=%s)", e.Code, e.Message, e.Product, e.File)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s (file=%s)", e.Code, e.Message, e.File)
	}
	if e.Product != "" {
		return fmt.Sprintf("%s: %s (product=%s)", e.Code, e.Message, e.Product)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsDataSourceUnavailable returns true if the error reports an unreadable
// calibration file. Uses errors.As to handle wrapped errors.
func IsDataSourceUnavailable(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == CodeDataSourceUnavailable
	}
	return false
}

// IsGridMismatch returns true if the error reports disagreeing energy grids.
// Uses errors.As to handle wrapped errors.
func IsGridMismatch(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == CodeGridMismatch
	}
	return false
}

// IsMalformedMatrixEncoding returns true if the error reports a corrupt
// sparse matrix encoding. Uses errors.As to handle wrapped errors.
func IsMalformedMatrixEncoding(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == CodeMalformedMatrixEncoding
	}
	return false
}

// NewDataSourceUnavailable creates an Error for a missing or unreadable
// calibration file.
func NewDataSourceUnavailable(file string, cause error) *Error {
	return &Error{
		Code:    CodeDataSourceUnavailable,
		Message: fmt.Sprintf("calibration data unavailable: %v", cause),
		File:    file,
	}
}

// NewGridMismatch creates an Error for two products on different grids.
func NewGridMismatch(product, message string, details map[string]string) *Error {
	return &Error{
		Code:    CodeGridMismatch,
		Message: message,
		Product: product,
		Details: details,
	}
}

// NewMalformedMatrixEncoding creates an Error for a sparse encoding whose
// offsets run past the channel axis.
func NewMalformedMatrixEncoding(file, message string, details map[string]string) *Error {
	return &Error{
		Code:    CodeMalformedMatrixEncoding,
		Message: message,
		File:    file,
		Details: details,
	}
}
