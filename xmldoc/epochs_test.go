package xmldoc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEpochs_Parse(t *testing.T) {
	doc := `<?xml version="1.0"?>
<epochs xmlns="http://www.egi.com/epoch_mff">
  <epoch>
    <beginTime>0</beginTime>
    <endTime>1000000</endTime>
    <firstBlock>1</firstBlock>
    <lastBlock>10</lastBlock>
  </epoch>
  <epoch>
    <beginTime>2000000</beginTime>
    <endTime>3000000</endTime>
    <firstBlock>11</firstBlock>
    <lastBlock>20</lastBlock>
  </epoch>
</epochs>`

	parsed, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	e, ok := parsed.(*Epochs)
	require.True(t, ok)
	require.Len(t, e.Epochs, 2)
	assert.Equal(t, int64(0), e.Epochs[0].BeginTime)
	assert.Equal(t, 1, e.Epochs[0].FirstBlock)
	assert.Equal(t, int64(3000000), e.Epochs[1].EndTime)
}

func TestEpochs_MalformedEntry(t *testing.T) {
	doc := `<epochs xmlns="http://www.egi.com/epoch_mff">
  <epoch><beginTime>0</beginTime></epoch>
</epochs>`
	_, err := Parse(strings.NewReader(doc))
	assert.Error(t, err)
}
