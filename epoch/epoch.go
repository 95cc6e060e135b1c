// Package epoch models the discontinuous recording segments an .mff
// file can be made of: one Epoch per uninterrupted stretch of blocks,
// plus the logic that names each epoch after the category.xml segment
// at the same position once all segments are sorted by start time.
package epoch

import "sort"

// microsecondsPerSecond converts the microsecond-resolution begin/end
// times stored in epochs.xml into seconds.
const microsecondsPerSecond = 1e-6

// Epoch describes one uninterrupted stretch of recording: a time span
// in microseconds from the start of the recording, and the 1-based
// range of data blocks it spans, matching Epoch.
type Epoch struct {
	Name       string
	BeginTime  int64 // microseconds from recording start
	EndTime    int64 // microseconds from recording start
	FirstBlock int   // 1-based
	LastBlock  int   // 1-based, inclusive
}

// New creates an Epoch named "epoch" by default, matching Epoch's class
// attribute name = 'epoch'.
func New(beginTime, endTime int64, firstBlock, lastBlock int) *Epoch {
	return &Epoch{
		Name:       "epoch",
		BeginTime:  beginTime,
		EndTime:    endTime,
		FirstBlock: firstBlock,
		LastBlock:  lastBlock,
	}
}

// AddBlock extends the epoch by one more block of the given duration
// (in microseconds), matching Epoch.add_block.
func (e *Epoch) AddBlock(durationUs int64) {
	e.LastBlock++
	e.EndTime += durationUs
}

// T0 returns the epoch's start time in seconds.
func (e *Epoch) T0() float64 {
	return float64(e.BeginTime) * microsecondsPerSecond
}

// Dt returns the epoch's duration in seconds.
func (e *Epoch) Dt() float64 {
	return float64(e.EndTime-e.BeginTime) * microsecondsPerSecond
}

// T1 returns the epoch's end time in seconds.
func (e *Epoch) T1() float64 {
	return e.T0() + e.Dt()
}

// BlockSlice returns the 0-based, half-open [start, end) range of data
// blocks this epoch spans, matching Epoch.block_slice.
func (e *Epoch) BlockSlice() (start, end int) {
	return e.FirstBlock - 1, e.LastBlock
}

// Segment is one <seg> entry of a category, carrying the time window a
// category applies to. Only BeginTime is needed for naming epochs;
// richer segment fields (faults, channel status) live in xmldoc.
type Segment struct {
	BeginTime int64
}

// Category is one named group of segments from categories.xml.
type Category struct {
	Name     string
	Segments []Segment
}

// sortedCategoryEntry is one (name, t0) pair produced by flattening every
// category's segments, matching sort_categories_by_starttime's
// `{category: name, t0: starttime}` dicts.
type sortedCategoryEntry struct {
	Name string
	T0   int64
}

// sortByStartTime flattens categories into (name, t0) pairs, one per
// segment, sorted ascending by t0, matching
// Categories.sort_categories_by_starttime.
func sortByStartTime(categories []Category) []sortedCategoryEntry {
	var out []sortedCategoryEntry
	for _, cat := range categories {
		for _, seg := range cat.Segments {
			out = append(out, sortedCategoryEntry{Name: cat.Name, T0: seg.BeginTime})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].T0 < out[j].T0 })
	return out
}

// AssociateCategories names each epoch after its corresponding category
// segment, matching Epochs.associate_categories: categories are
// flattened and sorted by start time, then zipped positionally against
// epochs. If the counts don't match, every epoch's Name is left
// unchanged (= "epoch", unless already set) and ok is false so callers
// can surface a warning instead of mffpy's bare print().
func AssociateCategories(epochs []*Epoch, categories []Category) (ok bool) {
	sorted := sortByStartTime(categories)
	if len(sorted) != len(epochs) {
		return false
	}
	for i, e := range epochs {
		e.Name = sorted[i].Name
	}
	return true
}
