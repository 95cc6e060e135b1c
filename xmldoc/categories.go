package xmldoc

import (
	"fmt"
	"strconv"

	"github.com/BEL-Public/mffpy/epoch"
	"github.com/BEL-Public/mffpy/errs"
)

const categoriesNamespace = "http://www.egi.com/categories_mff"

// CategorySegment is one <seg> entry: the richer, xmldoc-side view of a
// category segment, including the fields epoch.Segment drops because
// epoch-naming only needs BeginTime.
type CategorySegment struct {
	Status        string
	BeginTime     int64
	EndTime       int64
	EvtBegin      int64
	EvtEnd        int64
	Faults        []string
	ChannelStatus map[string][]int
	Keys          map[string]TypedValue
}

// Category is one <cat> entry of categories.xml.
type Category struct {
	Name     string
	Segments []CategorySegment
}

// Categories is a categories.xml document: named groups of time segments
// used to label recording epochs (e.g. trial conditions).
type Categories struct {
	Categories []Category
}

func newCategories() Document { return &Categories{} }

func init() { register(categoriesNamespace, "categories", newCategories) }

func (*Categories) Namespace() string       { return categoriesNamespace }
func (*Categories) RootTag() string         { return "categories" }
func (*Categories) DefaultFilename() string { return "categories.xml" }

func (c *Categories) ParseElement(root *Element) error {
	for _, catEl := range root.FindAll("cat") {
		nameEl := catEl.Find("name")
		if nameEl == nil {
			return fmt.Errorf("category missing name: %w", errs.ErrInvalidFormat)
		}
		cat := Category{Name: nameEl.Text}

		segmentsEl := catEl.Find("segments")
		if segmentsEl != nil {
			for _, segEl := range segmentsEl.FindAll("seg") {
				seg, err := parseCategorySegment(segEl)
				if err != nil {
					return err
				}
				cat.Segments = append(cat.Segments, seg)
			}
		}

		c.Categories = append(c.Categories, cat)
	}
	return nil
}

func parseCategorySegment(el *Element) (CategorySegment, error) {
	var seg CategorySegment
	seg.Status = el.Attr("status")

	beginTime, err := requiredInt64(el, "beginTime")
	if err != nil {
		return CategorySegment{}, err
	}
	seg.BeginTime = beginTime

	endTime, err := requiredInt64(el, "endTime")
	if err != nil {
		return CategorySegment{}, err
	}
	seg.EndTime = endTime

	if el2 := el.Find("evtBegin"); el2 != nil {
		n, err := strconv.ParseInt(el2.Text, 10, 64)
		if err != nil {
			return CategorySegment{}, fmt.Errorf("segment evtBegin %q: %w", el2.Text, errs.ErrInvalidFormat)
		}
		seg.EvtBegin = n
	}
	if el2 := el.Find("evtEnd"); el2 != nil {
		n, err := strconv.ParseInt(el2.Text, 10, 64)
		if err != nil {
			return CategorySegment{}, fmt.Errorf("segment evtEnd %q: %w", el2.Text, errs.ErrInvalidFormat)
		}
		seg.EvtEnd = n
	}

	if faultsEl := el.Find("faults"); faultsEl != nil {
		for _, f := range faultsEl.FindAll("fault") {
			seg.Faults = append(seg.Faults, f.Text)
		}
	}

	if csEl := el.Find("channelStatus"); csEl != nil {
		seg.ChannelStatus = make(map[string][]int)
		for _, ch := range csEl.FindAll("channels") {
			signalBin := ch.Attr("signalBin")
			nums, err := splitInts(ch.Text, " ")
			if err != nil {
				return CategorySegment{}, err
			}
			seg.ChannelStatus[signalBin] = nums
		}
	}

	if keysEl := el.Find("keys"); keysEl != nil {
		keys, err := parseTypedKeys(keysEl, "key", "keyCode")
		if err != nil {
			return CategorySegment{}, err
		}
		seg.Keys = keys
	}

	return seg, nil
}

func requiredInt64(el *Element, tag string) (int64, error) {
	field := el.Find(tag)
	if field == nil {
		return 0, fmt.Errorf("segment missing %s: %w", tag, errs.ErrInvalidFormat)
	}
	n, err := strconv.ParseInt(field.Text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("segment %s %q: %w", tag, field.Text, errs.ErrInvalidFormat)
	}
	return n, nil
}

func (c *Categories) BuildElement() *Element {
	root := NewElement("categories")
	for _, cat := range c.Categories {
		catEl := NewElement("cat", NewText("name", cat.Name))
		segmentsEl := NewElement("segments")
		for _, seg := range cat.Segments {
			segmentsEl.Children = append(segmentsEl.Children, buildCategorySegmentElement(seg))
		}
		catEl.Children = append(catEl.Children, segmentsEl)
		root.Children = append(root.Children, catEl)
	}
	return root
}

func buildCategorySegmentElement(seg CategorySegment) *Element {
	el := NewElement("seg",
		NewText("beginTime", strconv.FormatInt(seg.BeginTime, 10)),
		NewText("endTime", strconv.FormatInt(seg.EndTime, 10)),
		NewText("evtBegin", strconv.FormatInt(seg.EvtBegin, 10)),
		NewText("evtEnd", strconv.FormatInt(seg.EvtEnd, 10)),
	)
	el.Attrs = map[string]string{"status": seg.Status}

	if len(seg.Faults) > 0 {
		faultsEl := NewElement("faults")
		for _, f := range seg.Faults {
			faultsEl.Children = append(faultsEl.Children, NewText("fault", f))
		}
		el.Children = append(el.Children, faultsEl)
	}

	if len(seg.ChannelStatus) > 0 {
		csEl := NewElement("channelStatus")
		for _, signalBin := range sortedKeys(seg.ChannelStatus) {
			chEl := NewText("channels", joinInts(seg.ChannelStatus[signalBin], " "))
			chEl.Attrs = map[string]string{"signalBin": signalBin}
			csEl.Children = append(csEl.Children, chEl)
		}
		el.Children = append(el.Children, csEl)
	}

	if len(seg.Keys) > 0 {
		el.Children = append(el.Children, buildTypedKeys(seg.Keys, "key", "keyCode"))
	}

	return el
}

// ToEpochCategories projects Categories down to the minimal shape
// epoch.AssociateCategories needs (name + each segment's start time).
func (c *Categories) ToEpochCategories() []epoch.Category {
	out := make([]epoch.Category, 0, len(c.Categories))
	for _, cat := range c.Categories {
		ec := epoch.Category{Name: cat.Name}
		for _, seg := range cat.Segments {
			ec.Segments = append(ec.Segments, epoch.Segment{BeginTime: seg.BeginTime})
		}
		out = append(out, ec)
	}
	return out
}
