package xmldoc

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileInfo_Parse(t *testing.T) {
	doc := `<?xml version="1.0"?>
<fileInfo xmlns="http://www.egi.com/info_mff">
  <mffVersion>3</mffVersion>
  <recordTime>2021-03-04T10:20:30.000000-05:00</recordTime>
</fileInfo>`

	parsed, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	fi, ok := parsed.(*FileInfo)
	require.True(t, ok)
	assert.Equal(t, "3", fi.Version)
	assert.Equal(t, "info.xml", fi.DefaultFilename())
	assert.False(t, fi.RecordTime.IsZero())
}

func TestFileInfo_MissingRecordTime(t *testing.T) {
	doc := `<fileInfo xmlns="http://www.egi.com/info_mff"><mffVersion>3</mffVersion></fileInfo>`
	_, err := Parse(strings.NewReader(doc))
	assert.Error(t, err)
}

func TestFileInfo_EncodeRoundTrips(t *testing.T) {
	original := &FileInfo{Version: "3", RecordTime: time.Date(2021, 3, 4, 10, 20, 30, 0, time.FixedZone("", -5*3600))}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, original))
	assert.Contains(t, buf.String(), `xmlns="http://www.egi.com/info_mff"`)
	assert.NotContains(t, buf.String(), "ns0:")

	parsed, err := Parse(&buf)
	require.NoError(t, err)
	fi, ok := parsed.(*FileInfo)
	require.True(t, ok)
	assert.Equal(t, original.Version, fi.Version)
	assert.True(t, original.RecordTime.Equal(fi.RecordTime))
}
