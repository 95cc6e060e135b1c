package xmldoc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDipoleSet_Parse(t *testing.T) {
	doc := `<?xml version="1.0"?>
<dipoleSet xmlns="http://www.egi.com/dipoleSet_mff">
  <name>Dipoles1</name>
  <type>ECD</type>
  <dipoles>
    <dipole>
      <computationCoordinate>1.0, 2.0, 3.0</computationCoordinate>
      <visualizationCoordinate>1.5, 2.5, 3.5</visualizationCoordinate>
      <orientationVector>0, 0, 1</orientationVector>
    </dipole>
  </dipoles>
</dipoleSet>`

	parsed, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	ds, ok := parsed.(*DipoleSet)
	require.True(t, ok)
	assert.Equal(t, "Dipoles1", ds.Name)
	require.Len(t, ds.Dipoles, 1)
	assert.Equal(t, [3]float32{1.0, 2.0, 3.0}, ds.Dipoles[0].ComputationCoordinate)
	assert.Equal(t, [3]float32{0, 0, 1}, ds.Dipoles[0].OrientationVector)
}

func TestDipoleSet_BadCoordinateShape(t *testing.T) {
	doc := `<dipoleSet xmlns="http://www.egi.com/dipoleSet_mff">
  <dipoles>
    <dipole>
      <computationCoordinate>1.0, 2.0</computationCoordinate>
      <visualizationCoordinate>1.5, 2.5, 3.5</visualizationCoordinate>
      <orientationVector>0, 0, 1</orientationVector>
    </dipole>
  </dipoles>
</dipoleSet>`
	_, err := Parse(strings.NewReader(doc))
	assert.Error(t, err)
}
