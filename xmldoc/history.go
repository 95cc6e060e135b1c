package xmldoc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BEL-Public/mffpy/errs"
)

const historyNamespace = "http://www.egi.com/history_mff"

// HistoryEntry is one processing step recorded in history.xml: the tool
// or pipeline stage that ran, when, on what inputs, with what settings,
// and what it produced.
type HistoryEntry struct {
	Name        string
	Method      string
	Version     string
	BeginTime   float64
	EndTime     float64
	SourceFiles []string
	Settings    []string
	Results     []string
}

// History is a history.xml document: the ordered processing pipeline
// that produced this recording, from which the "flavor" (continuous,
// segmented, averaged) can be inferred. This document kind has no
// counterpart in mffpy proper; its entries list mirrors the method/
// beginTime/endTime shape the other entry-bearing documents use
// (EventTrack.events, Categories.cat) so it reads like a natural
// extension of the format rather than a bolt-on.
type History struct {
	Entries []HistoryEntry
}

func newHistory() Document { return &History{} }

func init() { register(historyNamespace, "history", newHistory) }

func (*History) Namespace() string       { return historyNamespace }
func (*History) RootTag() string         { return "history" }
func (*History) DefaultFilename() string { return "history.xml" }

func (h *History) ParseElement(root *Element) error {
	entriesEl := root.Find("entries")
	if entriesEl == nil {
		return nil
	}
	for _, el := range entriesEl.FindAll("entry") {
		entry, err := parseHistoryEntry(el)
		if err != nil {
			return err
		}
		h.Entries = append(h.Entries, entry)
	}
	return nil
}

func parseHistoryEntry(el *Element) (HistoryEntry, error) {
	var e HistoryEntry
	if f := el.Find("name"); f != nil {
		e.Name = f.Text
	}
	if f := el.Find("method"); f != nil {
		e.Method = f.Text
	}
	if f := el.Find("version"); f != nil {
		e.Version = f.Text
	}
	if f := el.Find("beginTime"); f != nil {
		n, err := strconv.ParseFloat(f.Text, 64)
		if err != nil {
			return HistoryEntry{}, fmt.Errorf("history entry beginTime %q: %w", f.Text, errs.ErrInvalidFormat)
		}
		e.BeginTime = n
	}
	if f := el.Find("endTime"); f != nil {
		n, err := strconv.ParseFloat(f.Text, 64)
		if err != nil {
			return HistoryEntry{}, fmt.Errorf("history entry endTime %q: %w", f.Text, errs.ErrInvalidFormat)
		}
		e.EndTime = n
	}
	if f := el.Find("sourceFiles"); f != nil {
		for _, item := range f.FindAll("file") {
			e.SourceFiles = append(e.SourceFiles, item.Text)
		}
	}
	if f := el.Find("settings"); f != nil {
		for _, item := range f.FindAll("setting") {
			e.Settings = append(e.Settings, item.Text)
		}
	}
	if f := el.Find("results"); f != nil {
		for _, item := range f.FindAll("result") {
			e.Results = append(e.Results, item.Text)
		}
	}
	return e, nil
}

func (h *History) BuildElement() *Element {
	entriesEl := NewElement("entries")
	for _, e := range h.Entries {
		entriesEl.Children = append(entriesEl.Children, buildHistoryEntryElement(e))
	}
	return NewElement("history", entriesEl)
}

func buildHistoryEntryElement(e HistoryEntry) *Element {
	el := NewElement("entry",
		NewText("name", e.Name),
		NewText("method", e.Method),
		NewText("version", e.Version),
		NewText("beginTime", formatFloat(e.BeginTime)),
		NewText("endTime", formatFloat(e.EndTime)),
	)
	if len(e.SourceFiles) > 0 {
		sf := NewElement("sourceFiles")
		for _, f := range e.SourceFiles {
			sf.Children = append(sf.Children, NewText("file", f))
		}
		el.Children = append(el.Children, sf)
	}
	if len(e.Settings) > 0 {
		s := NewElement("settings")
		for _, v := range e.Settings {
			s.Children = append(s.Children, NewText("setting", v))
		}
		el.Children = append(el.Children, s)
	}
	if len(e.Results) > 0 {
		r := NewElement("results")
		for _, v := range e.Results {
			r.Children = append(r.Children, NewText("result", v))
		}
		el.Children = append(el.Children, r)
	}
	return el
}

// MffFlavor infers the recording's processing flavor from its history
// entries' methods: any "averaging" method wins outright, otherwise any
// "segmentation" method, otherwise the recording is continuous.
func (h *History) MffFlavor() string {
	sawSegmentation := false
	for _, entry := range h.Entries {
		method := strings.ToLower(entry.Method)
		if strings.Contains(method, "averag") {
			return "averaged"
		}
		if strings.Contains(method, "segment") {
			sawSegmentation = true
		}
	}
	if sawSegmentation {
		return "segmented"
	}
	return "continuous"
}
