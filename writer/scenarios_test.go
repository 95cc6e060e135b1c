package writer

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BEL-Public/mffpy/binwriter"
	"github.com/BEL-Public/mffpy/errs"
	"github.com/BEL-Public/mffpy/reader"
	"github.com/BEL-Public/mffpy/xmldoc"
)

// Scenario A: minimal encode/decode round trip.
func TestScenarioA_MinimalRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.mff")

	numChannels, numSamples, samplingRate := 256, 128, int32(128)
	rng := rand.New(rand.NewSource(1))
	original := make([][]float32, numChannels)
	for ch := range original {
		row := make([]float32, numSamples)
		for s := range row {
			row[s] = rng.Float32()
		}
		original[ch] = row
	}

	bw, err := binwriter.New(samplingRate, "EEG")
	require.NoError(t, err)
	require.NoError(t, bw.AddBlock(original, nil))

	w, err := New(path, false)
	require.NoError(t, err)
	w.AddXML("", &xmldoc.FileInfo{Version: "3", RecordTime: recordTime()})
	require.NoError(t, w.AddBin(bw, ""))
	require.NoError(t, w.Write())

	r, err := reader.New(path)
	require.NoError(t, err)
	defer r.Close()

	numChans, err := r.NumChannels()
	require.NoError(t, err)
	assert.Equal(t, numChannels, numChans["EEG"])

	durations, err := r.Durations()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, durations["EEG"], 1e-9)

	epochs, err := r.Epochs()
	require.NoError(t, err)
	samples, err := r.GetPhysicalSamplesFromEpoch(epochs[0], 0, nil, nil)
	require.NoError(t, err)
	eeg := samples["EEG"]
	for ch := range original {
		for s := range original[ch] {
			assert.InDelta(t, original[ch][s], eeg.Samples[ch][s], 1e-4)
		}
	}
}

// Scenario C: overwrite semantics.
func TestScenarioC_OverwriteReplacesXMLEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.mff")

	t1 := recordTime()
	bw1, err := binwriter.New(128, "EEG")
	require.NoError(t, err)
	require.NoError(t, bw1.AddBlock(sampleBlock(2, 4), nil))

	w1, err := New(path, false)
	require.NoError(t, err)
	w1.AddXML("", &xmldoc.FileInfo{Version: "3", RecordTime: t1})
	w1.AddXML("", &xmldoc.Subject{Fields: map[string]xmldoc.TypedValue{"handedness": {DataType: "string", Text: "right"}}})
	require.NoError(t, w1.AddBin(bw1, ""))
	require.NoError(t, w1.Write())

	t2 := t1.Add(24 * time.Hour)
	bw2, err := binwriter.New(128, "EEG")
	require.NoError(t, err)
	require.NoError(t, bw2.AddBlock(sampleBlock(2, 4), nil))

	w2, err := New(path, true)
	require.NoError(t, err)
	w2.AddXML("", &xmldoc.FileInfo{Version: "3", RecordTime: t2})
	require.NoError(t, w2.AddBin(bw2, ""))
	require.NoError(t, w2.Write())

	r, err := reader.New(path)
	require.NoError(t, err)
	defer r.Close()

	fi, err := r.FileInfo()
	require.NoError(t, err)
	assert.True(t, t2.Equal(fi.RecordTime))

	_, err = os.Stat(filepath.Join(path, "subject.xml"))
	assert.True(t, os.IsNotExist(err), "subject.xml from the first write must not survive a fresh overwrite")
}

// Scenario E: writer compatibility gate.
func TestScenarioE_CompatibilityGate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.mff")

	bw, err := binwriter.New(1000, "PNSData")
	require.NoError(t, err)
	require.NoError(t, bw.AddBlock(sampleBlock(1, 4), nil))

	w, err := New(path, false)
	require.NoError(t, err)

	err = w.AddBin(bw, "signal1.bin")
	assert.ErrorIs(t, err, errs.ErrIncompatibleStream)

	bwOptOut, err := binwriter.New(1000, "PNSData", binwriter.WithIncompatibleAllowed())
	require.NoError(t, err)
	require.NoError(t, bwOptOut.AddBlock(sampleBlock(1, 4), nil))
	require.NoError(t, w.AddBin(bwOptOut, "signal1.bin"))
}

// Scenario F: discontinuous epochs.
func TestScenarioF_DiscontinuousEpochs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.mff")

	x := sampleBlock(2, 10)
	y := sampleBlock(2, 10)
	for ch := range y {
		for s := range y[ch] {
			y[ch][s] += 5000
		}
	}

	bw, err := binwriter.New(250, "EEG")
	require.NoError(t, err)
	require.NoError(t, bw.AddBlock(x, nil))
	gap := int64(100_000)
	require.NoError(t, bw.AddBlock(y, &gap))

	w, err := New(path, false)
	require.NoError(t, err)
	w.AddXML("", &xmldoc.FileInfo{Version: "3", RecordTime: recordTime()})
	require.NoError(t, w.AddBin(bw, ""))
	require.NoError(t, w.Write())

	r, err := reader.New(path)
	require.NoError(t, err)
	defer r.Close()

	epochs, err := r.Epochs()
	require.NoError(t, err)
	require.Len(t, epochs, 2)
	assert.Equal(t, epochs[0].EndTime+gap, epochs[1].BeginTime)

	xSamples, err := r.GetPhysicalSamplesFromEpoch(epochs[0], 0, nil, nil)
	require.NoError(t, err)
	ySamples, err := r.GetPhysicalSamplesFromEpoch(epochs[1], 0, nil, nil)
	require.NoError(t, err)

	for ch := range x {
		for s := range x[ch] {
			assert.InDelta(t, x[ch][s], xSamples["EEG"].Samples[ch][s], 1e-4)
			assert.InDelta(t, y[ch][s], ySamples["EEG"].Samples[ch][s], 1e-4)
		}
	}
}
