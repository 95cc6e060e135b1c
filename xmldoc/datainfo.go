package xmldoc

import (
	"fmt"
	"strconv"

	"github.com/BEL-Public/mffpy/binfile"
	"github.com/BEL-Public/mffpy/errs"
)

const dataInfoNamespace = "http://www.egi.com/info_n_mff"

// Filter describes one signal-processing filter applied before
// recording, one entry of info<N>.xml's <filters>.
type Filter struct {
	BeginTime         float64
	Method            string
	Type              string
	CutoffFrequency   float64
	CutoffFrequencyUnits string
}

// DataInfo is an info<N>.xml document: it describes the channel type
// recorded in the matching signal<N>.bin stream, the filters applied to
// it, and any calibration sets.
type DataInfo struct {
	ChannelType       string
	DataTypeProps     map[string]string
	Filters           []Filter
	CalibrationSets   map[string]binfile.Calibration
}

func newDataInfo() Document { return &DataInfo{} }

func init() { register(dataInfoNamespace, "dataInfo", newDataInfo) }

func (*DataInfo) Namespace() string       { return dataInfoNamespace }
func (*DataInfo) RootTag() string         { return "dataInfo" }
func (*DataInfo) DefaultFilename() string { return "info1.xml" }

// Calibrations satisfies binfile.CalibrationSource.
func (d *DataInfo) Calibrations() map[string]binfile.Calibration { return d.CalibrationSets }

func (d *DataInfo) ParseElement(root *Element) error {
	general := root.Find("generalInformation")
	if general == nil {
		return fmt.Errorf("dataInfo missing generalInformation: %w", errs.ErrInvalidFormat)
	}
	fileDataType := general.Find("fileDataType")
	if fileDataType == nil || len(fileDataType.Children) == 0 {
		return fmt.Errorf("dataInfo missing fileDataType: %w", errs.ErrInvalidFormat)
	}
	channelEl := fileDataType.Children[0]
	d.ChannelType = channelEl.Local
	d.DataTypeProps = make(map[string]string)
	for _, prop := range channelEl.Children {
		d.DataTypeProps[prop.Local] = prop.Text
	}

	if filtersEl := root.Find("filters"); filtersEl != nil {
		for _, f := range filtersEl.FindAll("filter") {
			filter, err := parseFilter(f)
			if err != nil {
				return err
			}
			d.Filters = append(d.Filters, filter)
		}
	}

	d.CalibrationSets = make(map[string]binfile.Calibration)
	if calsEl := root.Find("calibrations"); calsEl != nil {
		for _, cal := range calsEl.FindAll("calibration") {
			name, parsed, err := parseCalibration(cal)
			if err != nil {
				return err
			}
			d.CalibrationSets[name] = parsed
		}
	}

	return nil
}

func parseFilter(f *Element) (Filter, error) {
	beginTimeEl := f.Find("beginTime")
	methodEl := f.Find("method")
	typeEl := f.Find("type")
	cutoffEl := f.Find("cutoffFrequency")
	if beginTimeEl == nil || methodEl == nil || typeEl == nil || cutoffEl == nil {
		return Filter{}, fmt.Errorf("malformed filter entry: %w", errs.ErrInvalidFormat)
	}
	beginTime, err := strconv.ParseFloat(beginTimeEl.Text, 64)
	if err != nil {
		return Filter{}, fmt.Errorf("filter beginTime %q: %w", beginTimeEl.Text, errs.ErrInvalidFormat)
	}
	cutoff, err := strconv.ParseFloat(cutoffEl.Text, 64)
	if err != nil {
		return Filter{}, fmt.Errorf("filter cutoffFrequency %q: %w", cutoffEl.Text, errs.ErrInvalidFormat)
	}
	return Filter{
		BeginTime:             beginTime,
		Method:                methodEl.Text,
		Type:                  typeEl.Text,
		CutoffFrequency:       cutoff,
		CutoffFrequencyUnits:  cutoffEl.Attr("units"),
	}, nil
}

func parseCalibration(cal *Element) (string, binfile.Calibration, error) {
	typeEl := cal.Find("type")
	beginTimeEl := cal.Find("beginTime")
	channelsEl := cal.Find("channels")
	if typeEl == nil || beginTimeEl == nil || channelsEl == nil {
		return "", binfile.Calibration{}, fmt.Errorf("malformed calibration entry: %w", errs.ErrInvalidFormat)
	}
	beginTime, err := strconv.ParseFloat(beginTimeEl.Text, 64)
	if err != nil {
		return "", binfile.Calibration{}, fmt.Errorf("calibration beginTime %q: %w", beginTimeEl.Text, errs.ErrInvalidFormat)
	}

	channels := make(map[int]float32)
	for _, ch := range channelsEl.FindAll("ch") {
		n, err := strconv.Atoi(ch.Attr("n"))
		if err != nil {
			return "", binfile.Calibration{}, fmt.Errorf("calibration channel attribute %q: %w", ch.Attr("n"), errs.ErrInvalidFormat)
		}
		v, err := strconv.ParseFloat(ch.Text, 32)
		if err != nil {
			return "", binfile.Calibration{}, fmt.Errorf("calibration channel value %q: %w", ch.Text, errs.ErrInvalidFormat)
		}
		channels[n] = float32(v)
	}

	return typeEl.Text, binfile.Calibration{BeginTime: beginTime, Channels: channels}, nil
}

func (d *DataInfo) BuildElement() *Element {
	channelEl := NewElement(d.ChannelType)
	for _, name := range sortedKeys(d.DataTypeProps) {
		channelEl.Children = append(channelEl.Children, NewText(name, d.DataTypeProps[name]))
	}

	general := NewElement("generalInformation", NewElement("fileDataType", channelEl))

	root := NewElement("dataInfo", general)

	if len(d.Filters) > 0 {
		filtersEl := NewElement("filters")
		for _, f := range d.Filters {
			cutoffEl := NewText("cutoffFrequency", formatFloat(f.CutoffFrequency))
			cutoffEl.Attrs = map[string]string{"units": f.CutoffFrequencyUnits}
			filtersEl.Children = append(filtersEl.Children, NewElement("filter",
				NewText("beginTime", formatFloat(f.BeginTime)),
				NewText("method", f.Method),
				NewText("type", f.Type),
				cutoffEl,
			))
		}
		root.Children = append(root.Children, filtersEl)
	}

	if len(d.CalibrationSets) > 0 {
		calsEl := NewElement("calibrations")
		for _, name := range sortedKeys(d.CalibrationSets) {
			cal := d.CalibrationSets[name]
			channelsEl := NewElement("channels")
			for _, n := range sortedIntKeys(cal.Channels) {
				chEl := NewText("ch", formatFloat(float64(cal.Channels[n])))
				chEl.Attrs = map[string]string{"n": strconv.Itoa(n)}
				channelsEl.Children = append(channelsEl.Children, chEl)
			}
			calsEl.Children = append(calsEl.Children, NewElement("calibration",
				NewText("type", name),
				NewText("beginTime", formatFloat(cal.BeginTime)),
				channelsEl,
			))
		}
		root.Children = append(root.Children, calsEl)
	}

	return root
}
