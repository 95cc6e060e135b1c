// Package errs defines the sentinel error values returned across mffpy.
//
// Callers match on error kind with errors.Is, not on concrete type:
//
//	_, err := reader.New("rec.mff")
//	if errors.Is(err, errs.ErrNotFound) {
//	    ...
//	}
//
// Every exported function wraps one of these sentinels with call-specific
// detail via fmt.Errorf("...: %w", errs.ErrX) rather than returning it bare,
// so error messages stay specific while errors.Is keeps working.
package errs

import "errors"

var (
	// ErrInvalidFormat signals a decoded block or document that violates a
	// structural invariant: wrong sample depth, wrong XML namespace,
	// mismatched channel count, inconsistent sampling rate across blocks,
	// an empty stream, and similar.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrNotFound signals a requested basename absent from a container.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument signals a caller-supplied parameter that violates a
	// stated precondition: a negative offset, a naive timestamp, a
	// non-integer sampling rate, an unknown unit, an unknown seek whence, an
	// out-of-range window.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrIncompatibleStream signals a writer refusing a (filename, dataType)
	// combination it does not recognize as EGI-compatible.
	ErrIncompatibleStream = errors.New("incompatible stream")

	// ErrMissingHeader signals a reuse-flagged block appearing before any
	// header has been read.
	ErrMissingHeader = errors.New("missing header")

	// ErrBadCalibration signals a requested calibration name that is not
	// present, or whose beginTime is not zero.
	ErrBadCalibration = errors.New("bad calibration")

	// ErrIoError signals an underlying read or write failure.
	ErrIoError = errors.New("io error")
)

// Warning describes a best-effort recovery the library performed instead of
// aborting: an epoch/category count mismatch, a truncated block tail, and
// similar situations the spec calls out as non-fatal.
type Warning struct {
	Kind    string
	Message string
}

func (w Warning) String() string {
	return w.Kind + ": " + w.Message
}

// WarnFunc receives Warnings as they occur. The zero value (nil) means
// warnings are dropped silently, matching the library's default of staying
// quiet unless a caller opts in.
type WarnFunc func(Warning)

// Warn calls fn with w if fn is non-nil. It exists so call sites can write
// errs.Warn(fn, errs.Warning{...}) without a nil check at every use.
func Warn(fn WarnFunc, w Warning) {
	if fn != nil {
		fn(w)
	}
}
