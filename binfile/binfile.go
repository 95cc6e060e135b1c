// Package binfile layers physical-unit calibration on top of rawbin's
// raw sample reads: per-channel calibration factors and a unit/scale
// conversion table, matching BinFile.
package binfile

import (
	"fmt"

	"github.com/BEL-Public/mffpy/container"
	"github.com/BEL-Public/mffpy/errs"
	"github.com/BEL-Public/mffpy/rawbin"
)

// RawUnit is the unit every .mff signal stream is stored in.
const RawUnit = "uV"

// scaleConverter mirrors BinFile._scale_converter: the multiplicative
// factor to go from RawUnit to any of the three units .mff tooling
// recognizes.
var scaleConverter = map[string]float64{
	"VV": 1.0, "mVmV": 1.0, "uVuV": 1.0,
	"VmV": 1.0e3, "mVV": 1.0e-3,
	"VuV": 1.0e6, "uVV": 1.0e-6,
	"mVuV": 1.0e3, "uVmV": 1.0e-3,
}

// Calibration is one named calibration entry from a data-info document:
// a per-channel scale factor and the recording offset it applies from.
type Calibration struct {
	BeginTime float64
	Channels  map[int]float32 // 1-based channel number -> factor
}

// CalibrationSource is the subset of a parsed data-info document
// binfile.Reader needs: its named calibration sets.
type CalibrationSource interface {
	Calibrations() map[string]Calibration
}

// Reader wraps a rawbin.Reader with calibration and unit-scaling logic,
// matching BinFile.
type Reader struct {
	*rawbin.Reader
	info CalibrationSource

	calibrationName string
	calibration     []float64 // per-channel multiplier, len == NumChannels

	unit  string
	scale float64
}

// New wraps stream with info's calibration metadata. If info exposes a
// "GCAL" calibration set, it is selected by default, matching
// BinFile.__init__'s `'GCAL' if 'GCAL' in self.calibrations else None`.
// opts is forwarded to rawbin.New (e.g. rawbin.WithWarnFunc).
func New(stream container.ByteStream, info CalibrationSource, opts ...rawbin.Option) (*Reader, error) {
	r := &Reader{
		Reader: rawbin.New(stream, opts...),
		info:   info,
		unit:   RawUnit,
		scale:  1.0,
	}

	if _, ok := info.Calibrations()["GCAL"]; ok {
		if err := r.SetCalibration("GCAL"); err != nil {
			return nil, err
		}
	} else if err := r.SetCalibration(""); err != nil {
		return nil, err
	}

	return r, nil
}

// Unit returns the unit physical samples are currently scaled to.
func (r *Reader) Unit() string { return r.unit }

// Scale returns the multiplicative factor currently applied on top of
// calibration to reach Unit() from RawUnit.
func (r *Reader) Scale() float64 { return r.scale }

// SetUnit selects the physical unit GetPhysicalSamples scales into. u
// must be one of "V", "mV", "uV".
func (r *Reader) SetUnit(u string) error {
	factor, ok := scaleConverter[RawUnit+u]
	if !ok {
		return fmt.Errorf("unknown unit %q: %w", u, errs.ErrInvalidArgument)
	}
	r.scale = factor
	r.unit = u
	return nil
}

// CalibrationName returns the name of the currently selected
// calibration set, or "" if none is selected (unity calibration).
func (r *Reader) CalibrationName() string { return r.calibrationName }

// SetCalibration selects a named calibration set from info.Calibrations().
// An empty name resets to unity calibration (all channels scaled by 1).
// The calibration's BeginTime must be zero — .mff only supports
// calibrations that apply from the start of the recording.
func (r *Reader) SetCalibration(name string) error {
	cat, err := r.Catalog()
	if err != nil {
		return err
	}
	numChannels := cat.NumChannels()

	calibration := make([]float64, numChannels)
	for i := range calibration {
		calibration[i] = 1.0
	}

	if name != "" {
		cals := r.info.Calibrations()
		cal, ok := cals[name]
		if !ok {
			return fmt.Errorf("calibration %q not available: %w", name, errs.ErrBadCalibration)
		}
		if cal.BeginTime != 0 {
			return fmt.Errorf("calibration %q begins at %v, not at recording start: %w",
				name, cal.BeginTime, errs.ErrBadCalibration)
		}
		for ch, factor := range cal.Channels {
			if ch < 1 || ch > numChannels {
				continue
			}
			calibration[ch-1] = float64(factor)
		}
	}

	r.calibrationName = name
	r.calibration = calibration
	return nil
}

// GetPhysicalSamples returns calibrated, unit-scaled float32 samples and
// the start time of the first returned sample, matching
// BinFile.get_physical_samples. Calibration is applied in float64 and
// the result cast to float32 only at the end, matching the original's
// `(self.calibration*self.scale*samples).astype(dtype)`.
func (r *Reader) GetPhysicalSamples(t0 float64, dt *float64, blockSlice *rawbin.BlockSlice) ([][]float32, float64, error) {
	raw, startTime, err := r.ReadRawSamples(t0, dt, blockSlice)
	if err != nil {
		return nil, 0, err
	}

	out := make([][]float32, len(raw))
	for ch, row := range raw {
		factor := r.scale
		if ch < len(r.calibration) {
			factor *= r.calibration[ch]
		}
		scaled := make([]float32, len(row))
		for i, v := range row {
			scaled[i] = float32(float64(v) * factor)
		}
		out[ch] = scaled
	}

	return out, startTime, nil
}
