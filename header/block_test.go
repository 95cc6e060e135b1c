package header

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BEL-Public/mffpy/errs"
)

func TestEncodeDecodeRateDepth(t *testing.T) {
	rate, depth := DecodeRateDepth(EncodeRateDepth(250, SampleDepth))

	assert.EqualValues(t, 250, rate)
	assert.EqualValues(t, SampleDepth, depth)
}

func TestNew_ComputesSizes(t *testing.T) {
	blk, err := New(4, 10, 250, nil)
	require.NoError(t, err)

	assert.EqualValues(t, 4, blk.NumChannels)
	assert.EqualValues(t, 4*10*4, blk.BlockSize)
	assert.Equal(t, 10, blk.NumSamples())
	assert.IsType(t, NoOptional{}, blk.Optional)
}

func TestNew_RejectsNonPositiveChannelsOrSamples(t *testing.T) {
	_, err := New(0, 10, 250, nil)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = New(4, 0, 250, nil)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestEncodeParse_RoundTrip(t *testing.T) {
	blk, err := New(3, 5, 1000, nil)
	require.NoError(t, err)

	encoded := blk.Encode()
	parsed, err := Parse(bytes.NewReader(encoded))
	require.NoError(t, err)
	require.NotNil(t, parsed)

	assert.Equal(t, blk.HeaderSize, parsed.HeaderSize)
	assert.Equal(t, blk.BlockSize, parsed.BlockSize)
	assert.Equal(t, blk.NumChannels, parsed.NumChannels)
	assert.Equal(t, blk.SamplingRate, parsed.SamplingRate)
	assert.IsType(t, NoOptional{}, parsed.Optional)
}

func TestEncodeParse_RoundTrip_Type1Optional(t *testing.T) {
	opt := Type1{TotalNumBlocks: 12, TotalNumSamples: 3000, TotalNumSignals: 3}
	blk, err := New(3, 5, 1000, opt)
	require.NoError(t, err)

	parsed, err := Parse(bytes.NewReader(blk.Encode()))
	require.NoError(t, err)
	require.NotNil(t, parsed)

	got, ok := parsed.Optional.(Type1)
	require.True(t, ok)
	assert.Equal(t, opt, got)
}

func TestParse_ReuseFlagReturnsNil(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0}) // flag = 0: reuse previous header

	blk, err := Parse(&buf)
	require.NoError(t, err)
	assert.Nil(t, blk)
}

func TestParse_RejectsUnsupportedDepth(t *testing.T) {
	blk, err := New(2, 4, 500, nil)
	require.NoError(t, err)
	encoded := blk.Encode()

	// corrupt the first rate/depth word (bytes 24:28, after the two-entry
	// offset table at 16:24) to claim 16-bit depth
	corrupted := append([]byte(nil), encoded...)
	corrupted[24] = 16
	corrupted[25] = 0
	corrupted[26] = 0
	corrupted[27] = 0

	_, err = Parse(bytes.NewReader(corrupted))
	assert.ErrorIs(t, err, errs.ErrInvalidFormat)
}

func TestParse_RejectsZeroChannels(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{1, 0, 0, 0}) // flag = 1
	buf.Write([]byte{40, 0, 0, 0})
	buf.Write([]byte{0, 0, 0, 0})
	buf.Write([]byte{0, 0, 0, 0}) // num_channels = 0

	_, err := Parse(&buf)
	assert.ErrorIs(t, err, errs.ErrInvalidFormat)
}

func TestParse_RejectsUnknownOptionalType(t *testing.T) {
	_, err := parseOptional(newCursor(bytes.NewReader([]byte{
		24, 0, 0, 0, // byte_size = 24
		9, 0, 0, 0, // unknown type
	})))
	assert.True(t, errors.Is(err, errs.ErrInvalidFormat))
}

func TestWithPadding(t *testing.T) {
	blk, err := New(2, 4, 500, nil, WithPadding([]byte{0xde, 0xad}))
	require.NoError(t, err)

	encoded := blk.Encode()
	assert.Equal(t, []byte{0xde, 0xad}, encoded[len(encoded)-2:])
	assert.Equal(t, int(blk.HeaderSize), len(encoded))
}
