package binfile

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BEL-Public/mffpy/errs"
	"github.com/BEL-Public/mffpy/header"
)

type memStream struct{ *bytes.Reader }

func (memStream) Close() error { return nil }

func buildStream(t *testing.T, numChannels, samplesPerBlock int, samplingRate int32) []byte {
	t.Helper()
	var buf bytes.Buffer
	hdr, err := header.New(numChannels, samplesPerBlock, samplingRate, nil)
	require.NoError(t, err)
	buf.Write(hdr.Encode())
	for ch := 0; ch < numChannels; ch++ {
		for s := 0; s < samplesPerBlock; s++ {
			var word [4]byte
			binary.LittleEndian.PutUint32(word[:], math.Float32bits(float32(ch+1)))
			buf.Write(word[:])
		}
	}
	return buf.Bytes()
}

type fakeInfo struct {
	cals map[string]Calibration
}

func (f fakeInfo) Calibrations() map[string]Calibration { return f.cals }

func TestNew_DefaultsToUnityCalibration(t *testing.T) {
	data := buildStream(t, 2, 4, 100)
	r, err := New(memStream{bytes.NewReader(data)}, fakeInfo{})
	require.NoError(t, err)

	assert.Equal(t, "", r.CalibrationName())
	assert.Equal(t, RawUnit, r.Unit())
	assert.Equal(t, 1.0, r.Scale())
}

func TestNew_AutoSelectsGCAL(t *testing.T) {
	data := buildStream(t, 2, 4, 100)
	info := fakeInfo{cals: map[string]Calibration{
		"GCAL": {BeginTime: 0, Channels: map[int]float32{1: 2.0, 2: 0.5}},
	}}
	r, err := New(memStream{bytes.NewReader(data)}, info)
	require.NoError(t, err)

	assert.Equal(t, "GCAL", r.CalibrationName())
}

func TestSetCalibration_RejectsUnknownName(t *testing.T) {
	data := buildStream(t, 1, 4, 100)
	r, err := New(memStream{bytes.NewReader(data)}, fakeInfo{})
	require.NoError(t, err)

	err = r.SetCalibration("missing")
	assert.ErrorIs(t, err, errs.ErrBadCalibration)
}

func TestSetCalibration_RejectsNonZeroBeginTime(t *testing.T) {
	data := buildStream(t, 1, 4, 100)
	info := fakeInfo{cals: map[string]Calibration{
		"DCAL": {BeginTime: 5.0, Channels: map[int]float32{1: 2.0}},
	}}
	r, err := New(memStream{bytes.NewReader(data)}, info)
	require.NoError(t, err)

	err = r.SetCalibration("DCAL")
	assert.ErrorIs(t, err, errs.ErrBadCalibration)
}

func TestSetUnit_RejectsUnknownUnit(t *testing.T) {
	data := buildStream(t, 1, 4, 100)
	r, err := New(memStream{bytes.NewReader(data)}, fakeInfo{})
	require.NoError(t, err)

	err = r.SetUnit("nope")
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestGetPhysicalSamples_AppliesCalibrationAndScale(t *testing.T) {
	data := buildStream(t, 2, 4, 100) // channel 0 raw=1, channel 1 raw=2
	info := fakeInfo{cals: map[string]Calibration{
		"GCAL": {BeginTime: 0, Channels: map[int]float32{1: 10.0, 2: 100.0}},
	}}
	r, err := New(memStream{bytes.NewReader(data)}, info)
	require.NoError(t, err)
	require.NoError(t, r.SetUnit("mV"))

	samples, _, err := r.GetPhysicalSamples(0, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, float32(1*10*1e-3), samples[0][0])
	assert.Equal(t, float32(2*100*1e-3), samples[1][0])
}
