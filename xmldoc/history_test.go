package xmldoc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_Parse(t *testing.T) {
	doc := `<?xml version="1.0"?>
<history xmlns="http://www.egi.com/history_mff">
  <entries>
    <entry>
      <name>Segmentation</name>
      <method>Segmentation Tool</method>
      <version>1.0</version>
      <beginTime>0</beginTime>
      <endTime>1.5</endTime>
      <sourceFiles>
        <file>raw.mff</file>
      </sourceFiles>
      <settings>
        <setting>windowSize=1000</setting>
      </settings>
      <results>
        <result>segmented.mff</result>
      </results>
    </entry>
  </entries>
</history>`

	parsed, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	h, ok := parsed.(*History)
	require.True(t, ok)
	require.Len(t, h.Entries, 1)
	e := h.Entries[0]
	assert.Equal(t, "Segmentation Tool", e.Method)
	assert.Equal(t, []string{"raw.mff"}, e.SourceFiles)
	assert.Equal(t, "segmented", h.MffFlavor())
}

func TestHistory_FlavorInference(t *testing.T) {
	averaging := &History{Entries: []HistoryEntry{{Method: "Grand Averaging"}, {Method: "Segmentation"}}}
	assert.Equal(t, "averaged", averaging.MffFlavor())

	segmentedOnly := &History{Entries: []HistoryEntry{{Method: "Segmentation Tool"}}}
	assert.Equal(t, "segmented", segmentedOnly.MffFlavor())

	continuous := &History{}
	assert.Equal(t, "continuous", continuous.MffFlavor())
}

func TestHistory_NoEntriesElement(t *testing.T) {
	doc := `<history xmlns="http://www.egi.com/history_mff"></history>`
	parsed, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	h := parsed.(*History)
	assert.Empty(t, h.Entries)
	assert.Equal(t, "continuous", h.MffFlavor())
}
