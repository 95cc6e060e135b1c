package epoch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEpoch_TimesAndBlockSlice(t *testing.T) {
	e := New(1_000_000, 3_000_000, 2, 5)

	assert.Equal(t, 1.0, e.T0())
	assert.Equal(t, 2.0, e.Dt())
	assert.Equal(t, 3.0, e.T1())

	start, end := e.BlockSlice()
	assert.Equal(t, 1, start)
	assert.Equal(t, 5, end)
	assert.Equal(t, "epoch", e.Name)
}

func TestEpoch_AddBlock(t *testing.T) {
	e := New(0, 1_000_000, 1, 1)
	e.AddBlock(500_000)

	assert.Equal(t, 2, e.LastBlock)
	assert.Equal(t, int64(1_500_000), e.EndTime)
}

func TestAssociateCategories_MatchingCounts(t *testing.T) {
	epochs := []*Epoch{
		New(0, 1_000_000, 1, 1),
		New(1_000_000, 2_000_000, 2, 2),
	}
	categories := []Category{
		{Name: "LRND", Segments: []Segment{{BeginTime: 1_000_000}}},
		{Name: "ULRN", Segments: []Segment{{BeginTime: 0}}},
	}

	ok := AssociateCategories(epochs, categories)

	require.True(t, ok)
	assert.Equal(t, "ULRN", epochs[0].Name)
	assert.Equal(t, "LRND", epochs[1].Name)
}

func TestAssociateCategories_MismatchLeavesNamesUnchanged(t *testing.T) {
	epochs := []*Epoch{New(0, 1_000_000, 1, 1)}
	categories := []Category{
		{Name: "A", Segments: []Segment{{BeginTime: 0}, {BeginTime: 1}}},
	}

	ok := AssociateCategories(epochs, categories)

	assert.False(t, ok)
	assert.Equal(t, "epoch", epochs[0].Name)
}

func TestAssociateCategories_MultipleSegmentsPerCategoryFlattened(t *testing.T) {
	epochs := []*Epoch{
		New(0, 1, 1, 1),
		New(1, 2, 2, 2),
		New(2, 3, 3, 3),
	}
	categories := []Category{
		{Name: "ULRN", Segments: []Segment{{BeginTime: 0}, {BeginTime: 2}}},
		{Name: "LRND", Segments: []Segment{{BeginTime: 1}}},
	}

	ok := AssociateCategories(epochs, categories)

	require.True(t, ok)
	assert.Equal(t, "ULRN", epochs[0].Name)
	assert.Equal(t, "LRND", epochs[1].Name)
	assert.Equal(t, "ULRN", epochs[2].Name)
}
