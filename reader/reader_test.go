package reader

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BEL-Public/mffpy/errs"
	"github.com/BEL-Public/mffpy/header"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// buildSignal writes one headered block of numChannels x samplesPerBlock
// float32 samples at samplingRate Hz, matching rawbin's own test helper.
func buildSignal(t *testing.T, numChannels, samplesPerBlock int, samplingRate int32) []byte {
	t.Helper()
	var buf bytes.Buffer

	hdr, err := header.New(numChannels, samplesPerBlock, samplingRate, nil)
	require.NoError(t, err)
	buf.Write(hdr.Encode())

	for ch := 0; ch < numChannels; ch++ {
		for s := 0; s < samplesPerBlock; s++ {
			var word [4]byte
			val := float32(ch*1000 + s)
			binary.LittleEndian.PutUint32(word[:], math.Float32bits(val))
			buf.Write(word[:])
		}
	}
	return buf.Bytes()
}

func buildRecording(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "rec.mff")
	require.NoError(t, os.Mkdir(dir, 0o755))

	writeFile(t, dir, "info.xml", `<fileInfo xmlns="http://www.egi.com/info_mff">
  <mffVersion>3</mffVersion>
  <recordTime>2021-03-04T10:20:30.000000-05:00</recordTime>
</fileInfo>`)

	writeFile(t, dir, "info1.xml", `<dataInfo xmlns="http://www.egi.com/info_n_mff">
  <generalInformation>
    <fileDataType><EEG/></fileDataType>
  </generalInformation>
  <calibrations>
    <calibration>
      <type>GCAL</type>
      <beginTime>0</beginTime>
      <channels>
        <ch n="1">2.0</ch>
        <ch n="2">2.0</ch>
      </channels>
    </calibration>
  </calibrations>
</dataInfo>`)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "signal1.bin"), buildSignal(t, 2, 10, 10), 0o644))

	writeFile(t, dir, "epochs.xml", `<epochs xmlns="http://www.egi.com/epoch_mff">
  <epoch>
    <beginTime>0</beginTime>
    <endTime>1000000</endTime>
    <firstBlock>1</firstBlock>
    <lastBlock>1</lastBlock>
  </epoch>
</epochs>`)

	writeFile(t, dir, "categories.xml", `<categories xmlns="http://www.egi.com/categories_mff">
  <cat>
    <name>trial</name>
    <segments>
      <seg status="good">
        <beginTime>0</beginTime>
        <endTime>1000000</endTime>
      </seg>
    </segments>
  </cat>
</categories>`)

	writeFile(t, dir, "history.xml", `<history xmlns="http://www.egi.com/history_mff">
  <entries>
    <entry>
      <name>Seg</name>
      <method>Segmentation Tool</method>
    </entry>
  </entries>
</history>`)

	return dir
}

func TestReader_OpensAndLoadsFileInfo(t *testing.T) {
	r, err := New(buildRecording(t))
	require.NoError(t, err)
	defer r.Close()

	fi, err := r.FileInfo()
	require.NoError(t, err)
	assert.Equal(t, "3", fi.Version)
}

func TestReader_EpochsAssociatedWithCategories(t *testing.T) {
	r, err := New(buildRecording(t))
	require.NoError(t, err)
	defer r.Close()

	epochs, err := r.Epochs()
	require.NoError(t, err)
	require.Len(t, epochs, 1)
	assert.Equal(t, "trial", epochs[0].Name)
}

func TestReader_EpochsCategoryMismatchWarns(t *testing.T) {
	dir := buildRecording(t)
	// Two segments against epochs.xml's single epoch: count mismatch.
	writeFile(t, dir, "categories.xml", `<categories xmlns="http://www.egi.com/categories_mff">
  <cat>
    <name>trial</name>
    <segments>
      <seg status="good">
        <beginTime>0</beginTime>
        <endTime>500000</endTime>
      </seg>
      <seg status="good">
        <beginTime>500000</beginTime>
        <endTime>1000000</endTime>
      </seg>
    </segments>
  </cat>
</categories>`)

	var warnings []errs.Warning
	r, err := New(dir, WithWarnFunc(func(w errs.Warning) { warnings = append(warnings, w) }))
	require.NoError(t, err)
	defer r.Close()

	epochs, err := r.Epochs()
	require.NoError(t, err)
	require.Len(t, epochs, 1)
	assert.Equal(t, "epoch", epochs[0].Name)
	require.Len(t, warnings, 1)
	assert.Equal(t, "categories/epochs count mismatch", warnings[0].Kind)
}

func TestReader_Flavor(t *testing.T) {
	r, err := New(buildRecording(t))
	require.NoError(t, err)
	defer r.Close()

	flavor, err := r.Flavor()
	require.NoError(t, err)
	assert.Equal(t, "segmented", flavor)
}

func TestReader_ChannelTypesAndSamplingRates(t *testing.T) {
	r, err := New(buildRecording(t))
	require.NoError(t, err)
	defer r.Close()

	types, err := r.ChannelTypes()
	require.NoError(t, err)
	assert.Equal(t, []string{"EEG"}, types)

	rates, err := r.SamplingRates()
	require.NoError(t, err)
	assert.EqualValues(t, 10, rates["EEG"])

	numChannels, err := r.NumChannels()
	require.NoError(t, err)
	assert.Equal(t, 2, numChannels["EEG"])
}

func TestReader_GetPhysicalSamplesFromEpoch(t *testing.T) {
	r, err := New(buildRecording(t))
	require.NoError(t, err)
	defer r.Close()

	epochs, err := r.Epochs()
	require.NoError(t, err)
	require.Len(t, epochs, 1)

	result, err := r.GetPhysicalSamplesFromEpoch(epochs[0], 0, nil, nil)
	require.NoError(t, err)

	eeg, ok := result["EEG"]
	require.True(t, ok)
	require.Len(t, eeg.Samples, 2)
	require.Len(t, eeg.Samples[0], 10)
	// GCAL applies factor 2.0 on top of default unity scale (uV -> uV).
	assert.InDelta(t, 0, eeg.Samples[0][0], 1e-5)
	assert.InDelta(t, 2*1000, eeg.Samples[1][0], 1e-2)
}

func TestReader_GetPhysicalSamplesFromEpoch_RejectsNegativeT0(t *testing.T) {
	r, err := New(buildRecording(t))
	require.NoError(t, err)
	defer r.Close()

	epochs, err := r.Epochs()
	require.NoError(t, err)

	_, err = r.GetPhysicalSamplesFromEpoch(epochs[0], -1, nil, nil)
	assert.Error(t, err)
}

func TestReader_GetPhysicalSamplesFromEpoch_ClampsOutOfRangeDt(t *testing.T) {
	r, err := New(buildRecording(t))
	require.NoError(t, err)
	defer r.Close()

	epochs, err := r.Epochs()
	require.NoError(t, err)

	// epoch duration is 1.0s; requesting the full remainder (dt ==
	// remaining) and a clearly out-of-range dt must both clamp to the
	// remaining duration rather than erroring.
	full := 1.0
	result, err := r.GetPhysicalSamplesFromEpoch(epochs[0], 0, &full, nil)
	require.NoError(t, err)
	assert.Len(t, result["EEG"].Samples[0], 10)

	tooBig := 5.0
	result, err = r.GetPhysicalSamplesFromEpoch(epochs[0], 0, &tooBig, nil)
	require.NoError(t, err)
	assert.Len(t, result["EEG"].Samples[0], 10)
}

func TestReader_SetUnitAndCalibration(t *testing.T) {
	r, err := New(buildRecording(t))
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.SetUnit("EEG", "mV"))
	units, err := r.Units()
	require.NoError(t, err)
	assert.Equal(t, "mV", units["EEG"])

	require.NoError(t, r.SetCalibration("EEG", ""))

	err = r.SetCalibration("EEG", "NOPE")
	assert.Error(t, err)
}

func TestReader_MissingInfoXML(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "rec.mff")
	require.NoError(t, os.Mkdir(dir, 0o755))
	_, err := New(dir)
	assert.Error(t, err)
}
