// Package reader implements the read-only façade over an open .mff/.mfz
// recording: it composes container, xmldoc, binfile and epoch into the
// single `(epoch, t0, dt, channels) -> samples` query, matching Reader.
package reader

import (
	"fmt"
	"sort"
	"time"

	"github.com/BEL-Public/mffpy/binfile"
	"github.com/BEL-Public/mffpy/container"
	"github.com/BEL-Public/mffpy/epoch"
	"github.com/BEL-Public/mffpy/errs"
	"github.com/BEL-Public/mffpy/internal/options"
	"github.com/BEL-Public/mffpy/rawbin"
	"github.com/BEL-Public/mffpy/xmldoc"
)

// mffVersion is the only fileInfo.mffVersion value this reader accepts,
// matching FileInfo's `mffVersion == "3"` check.
const mffVersion = "3"

// ChannelSamples is one channel type's slice of an epoch query's result:
// a (channels × samples) matrix and the time its first column starts at,
// relative to the epoch's own start.
type ChannelSamples struct {
	Samples [][]float32
	TStart  float64
}

// Reader is the read-only façade over one open recording. Every
// expensive accessor is lazily computed and cached behind a plain bool
// guard: per §5 the scheduling model is single-threaded cooperative, so
// no sync.Once is needed (matching mebo's own unsynchronized lazy-field
// pattern).
type Reader struct {
	dir container.Directory

	fileInfoLoaded bool
	fileInfo       *xmldoc.FileInfo

	epochsLoaded bool
	epochsList   []*epoch.Epoch

	categoriesLoaded   bool
	categories         []epoch.Category
	categoriesApplied  bool

	historyLoaded bool
	history       *xmldoc.History

	subjectLoaded bool
	subject       *xmldoc.Subject

	sensorLayoutLoaded bool
	sensorLayout       *xmldoc.SensorLayout

	coordinatesLoaded bool
	coordinates       *xmldoc.Coordinates

	dipoleSetLoaded bool
	dipoleSet       *xmldoc.DipoleSet

	eventTracksLoaded bool
	eventTracks       []*xmldoc.EventTrack

	blobsLoaded bool
	blobs       map[string]*binfile.Reader
	blobStreams []container.ByteStream

	warnFunc errs.WarnFunc
}

// Option configures a Reader built by New.
type Option = options.Option[*Reader]

// WithWarnFunc attaches fn as the sink for best-effort recoveries the
// Reader performs instead of aborting: a categories/epochs count
// mismatch (Epochs) and a truncated block tail (surfaced from the
// per-stream rawbin.Reader each channel type opens).
func WithWarnFunc(fn errs.WarnFunc) Option {
	return options.NoError(func(r *Reader) { r.warnFunc = fn })
}

// New opens filename (a filesystem directory or an uncompressed archive)
// and parses its required info.xml, matching Reader.__init__.
func New(filename string, opts ...Option) (*Reader, error) {
	dir, err := container.Open(filename)
	if err != nil {
		return nil, err
	}
	r := &Reader{dir: dir}
	if err := options.Apply[*Reader](r, opts...); err != nil {
		dir.Close()
		return nil, err
	}
	if _, err := r.FileInfo(); err != nil {
		dir.Close()
		return nil, err
	}
	return r, nil
}

// Close releases the container and every signal stream opened for the
// per-channel-type blobs.
func (r *Reader) Close() error {
	for _, s := range r.blobStreams {
		s.Close()
	}
	return r.dir.Close()
}

func (r *Reader) parseDocument(basename string) (xmldoc.Document, error) {
	stream, err := r.dir.Open(basename)
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	return xmldoc.Parse(stream)
}

// FileInfo returns the recording's required info.xml document.
func (r *Reader) FileInfo() (*xmldoc.FileInfo, error) {
	if r.fileInfoLoaded {
		return r.fileInfo, nil
	}
	doc, err := r.parseDocument("info")
	if err != nil {
		return nil, fmt.Errorf("reading info.xml: %w", err)
	}
	fi, ok := doc.(*xmldoc.FileInfo)
	if !ok {
		return nil, fmt.Errorf("info.xml is not a file-info document: %w", errs.ErrInvalidFormat)
	}
	if fi.Version != mffVersion {
		return nil, fmt.Errorf("unsupported mffVersion %q: %w", fi.Version, errs.ErrInvalidFormat)
	}
	r.fileInfo = fi
	r.fileInfoLoaded = true
	return fi, nil
}

// StartDateTime returns the recording's wall-clock start time.
func (r *Reader) StartDateTime() (time.Time, error) {
	fi, err := r.FileInfo()
	if err != nil {
		return time.Time{}, err
	}
	return fi.RecordTime, nil
}

// Epochs returns the recording's epoch list, associating category names
// onto it the first time it is computed.
func (r *Reader) Epochs() ([]*epoch.Epoch, error) {
	if !r.epochsLoaded {
		doc, err := r.parseDocument("epochs")
		if err != nil {
			return nil, fmt.Errorf("reading epochs.xml: %w", err)
		}
		parsed, ok := doc.(*xmldoc.Epochs)
		if !ok {
			return nil, fmt.Errorf("epochs.xml is not an epochs document: %w", errs.ErrInvalidFormat)
		}
		r.epochsList = parsed.Epochs
		r.epochsLoaded = true
	}

	if !r.categoriesApplied {
		cats, err := r.Categories()
		if err != nil {
			return nil, err
		}
		if len(cats) > 0 {
			if ok := epoch.AssociateCategories(r.epochsList, cats); !ok {
				errs.Warn(r.warnFunc, errs.Warning{
					Kind:    "categories/epochs count mismatch",
					Message: "categories segments and epochs counts differ; epoch names left unchanged",
				})
			}
		}
		r.categoriesApplied = true
	}

	return r.epochsList, nil
}

// Categories returns the recording's categorized segments, or nil if
// categories.xml is absent (it is optional).
func (r *Reader) Categories() ([]epoch.Category, error) {
	if r.categoriesLoaded {
		return r.categories, nil
	}
	if !r.dir.Has("categories") {
		r.categoriesLoaded = true
		return nil, nil
	}
	doc, err := r.parseDocument("categories")
	if err != nil {
		return nil, fmt.Errorf("reading categories.xml: %w", err)
	}
	parsed, ok := doc.(*xmldoc.Categories)
	if !ok {
		return nil, fmt.Errorf("categories.xml is not a categories document: %w", errs.ErrInvalidFormat)
	}
	r.categories = parsed.ToEpochCategories()
	r.categoriesLoaded = true
	return r.categories, nil
}

// History returns the recording's history.xml document, or nil if absent.
func (r *Reader) History() (*xmldoc.History, error) {
	if r.historyLoaded {
		return r.history, nil
	}
	if !r.dir.Has("history") {
		r.historyLoaded = true
		return nil, nil
	}
	doc, err := r.parseDocument("history")
	if err != nil {
		return nil, fmt.Errorf("reading history.xml: %w", err)
	}
	parsed, ok := doc.(*xmldoc.History)
	if !ok {
		return nil, fmt.Errorf("history.xml is not a history document: %w", errs.ErrInvalidFormat)
	}
	r.history = parsed
	r.historyLoaded = true
	return parsed, nil
}

// Flavor infers the recording's processing flavor from its history
// document, defaulting to "continuous" when no history is present,
// matching the Recording.flavor derivation in §3.6.
func (r *Reader) Flavor() (string, error) {
	h, err := r.History()
	if err != nil {
		return "", err
	}
	if h == nil {
		return "continuous", nil
	}
	return h.MffFlavor(), nil
}

// Subject returns the recording's subject.xml document, or nil if absent.
func (r *Reader) Subject() (*xmldoc.Subject, error) {
	if r.subjectLoaded {
		return r.subject, nil
	}
	if !r.dir.Has("subject") {
		r.subjectLoaded = true
		return nil, nil
	}
	doc, err := r.parseDocument("subject")
	if err != nil {
		return nil, fmt.Errorf("reading subject.xml: %w", err)
	}
	parsed, ok := doc.(*xmldoc.Subject)
	if !ok {
		return nil, fmt.Errorf("subject.xml is not a subject document: %w", errs.ErrInvalidFormat)
	}
	r.subject = parsed
	r.subjectLoaded = true
	return parsed, nil
}

// SensorLayout returns the recording's sensorLayout.xml document, or nil
// if absent.
func (r *Reader) SensorLayout() (*xmldoc.SensorLayout, error) {
	if r.sensorLayoutLoaded {
		return r.sensorLayout, nil
	}
	if !r.dir.Has("sensorLayout") {
		r.sensorLayoutLoaded = true
		return nil, nil
	}
	doc, err := r.parseDocument("sensorLayout")
	if err != nil {
		return nil, fmt.Errorf("reading sensorLayout.xml: %w", err)
	}
	parsed, ok := doc.(*xmldoc.SensorLayout)
	if !ok {
		return nil, fmt.Errorf("sensorLayout.xml is not a sensor-layout document: %w", errs.ErrInvalidFormat)
	}
	r.sensorLayout = parsed
	r.sensorLayoutLoaded = true
	return parsed, nil
}

// Coordinates returns the recording's coordinates.xml document, or nil
// if absent.
func (r *Reader) Coordinates() (*xmldoc.Coordinates, error) {
	if r.coordinatesLoaded {
		return r.coordinates, nil
	}
	if !r.dir.Has("coordinates") {
		r.coordinatesLoaded = true
		return nil, nil
	}
	doc, err := r.parseDocument("coordinates")
	if err != nil {
		return nil, fmt.Errorf("reading coordinates.xml: %w", err)
	}
	parsed, ok := doc.(*xmldoc.Coordinates)
	if !ok {
		return nil, fmt.Errorf("coordinates.xml is not a coordinates document: %w", errs.ErrInvalidFormat)
	}
	r.coordinates = parsed
	r.coordinatesLoaded = true
	return parsed, nil
}

// DipoleSet returns the recording's dipoleSet.xml document, or nil if
// absent.
func (r *Reader) DipoleSet() (*xmldoc.DipoleSet, error) {
	if r.dipoleSetLoaded {
		return r.dipoleSet, nil
	}
	if !r.dir.Has("dipoleSet") {
		r.dipoleSetLoaded = true
		return nil, nil
	}
	doc, err := r.parseDocument("dipoleSet")
	if err != nil {
		return nil, fmt.Errorf("reading dipoleSet.xml: %w", err)
	}
	parsed, ok := doc.(*xmldoc.DipoleSet)
	if !ok {
		return nil, fmt.Errorf("dipoleSet.xml is not a dipole-set document: %w", errs.ErrInvalidFormat)
	}
	r.dipoleSet = parsed
	r.dipoleSetLoaded = true
	return parsed, nil
}

// EventTracks returns every .xml document whose basename starts with
// "Events" (Events.xml and Events_*.xml alike), sorted by
// basename for a deterministic order.
func (r *Reader) EventTracks() ([]*xmldoc.EventTrack, error) {
	if r.eventTracksLoaded {
		return r.eventTracks, nil
	}

	basenames := r.dir.FilesByExtension()[".xml"]
	var eventNames []string
	for _, base := range basenames {
		if len(base) >= 6 && base[:6] == "Events" {
			eventNames = append(eventNames, base)
		}
	}
	sort.Strings(eventNames)

	var tracks []*xmldoc.EventTrack
	for _, base := range eventNames {
		doc, err := r.parseDocument(base)
		if err != nil {
			return nil, fmt.Errorf("reading %s.xml: %w", base, err)
		}
		track, ok := doc.(*xmldoc.EventTrack)
		if !ok {
			return nil, fmt.Errorf("%s.xml is not an event-track document: %w", base, errs.ErrInvalidFormat)
		}
		tracks = append(tracks, track)
	}

	r.eventTracks = tracks
	r.eventTracksLoaded = true
	return tracks, nil
}

// blobMap lazily opens every signal<N>.bin stream and pairs it with its
// info<N>.xml's DataInfo, keyed by channel type, matching
// Reader._blobs.
func (r *Reader) blobMap() (map[string]*binfile.Reader, error) {
	if r.blobsLoaded {
		return r.blobs, nil
	}

	pairs, err := r.dir.SignalsWithInfo()
	if err != nil {
		return nil, err
	}

	blobs := make(map[string]*binfile.Reader, len(pairs))
	for _, pair := range pairs {
		doc, err := r.parseDocument(pair.Info)
		if err != nil {
			return nil, fmt.Errorf("reading %s.xml: %w", pair.Info, err)
		}
		dataInfo, ok := doc.(*xmldoc.DataInfo)
		if !ok {
			return nil, fmt.Errorf("%s.xml is not a data-info document: %w", pair.Info, errs.ErrInvalidFormat)
		}

		stream, err := r.dir.Open(pair.Signal)
		if err != nil {
			return nil, err
		}
		blob, err := binfile.New(stream, dataInfo, rawbin.WithWarnFunc(r.warnFunc))
		if err != nil {
			stream.Close()
			return nil, fmt.Errorf("opening %s: %w", pair.Signal, err)
		}

		r.blobStreams = append(r.blobStreams, stream)
		blobs[dataInfo.ChannelType] = blob
	}

	r.blobs = blobs
	r.blobsLoaded = true
	return blobs, nil
}

// ChannelTypes returns every channel type present in the recording
// (e.g. "EEG", "PNSData").
func (r *Reader) ChannelTypes() ([]string, error) {
	blobs, err := r.blobMap()
	if err != nil {
		return nil, err
	}
	types := make([]string, 0, len(blobs))
	for t := range blobs {
		types = append(types, t)
	}
	sort.Strings(types)
	return types, nil
}

// SamplingRates returns each channel type's sampling rate in Hz.
func (r *Reader) SamplingRates() (map[string]int32, error) {
	blobs, err := r.blobMap()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int32, len(blobs))
	for t, blob := range blobs {
		cat, err := blob.Catalog()
		if err != nil {
			return nil, err
		}
		out[t] = cat.SamplingRate()
	}
	return out, nil
}

// Durations returns each channel type's total recorded duration, in
// seconds.
func (r *Reader) Durations() (map[string]float64, error) {
	blobs, err := r.blobMap()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(blobs))
	for t, blob := range blobs {
		cat, err := blob.Catalog()
		if err != nil {
			return nil, err
		}
		out[t] = cat.Duration()
	}
	return out, nil
}

// NumChannels returns each channel type's channel count.
func (r *Reader) NumChannels() (map[string]int, error) {
	blobs, err := r.blobMap()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(blobs))
	for t, blob := range blobs {
		cat, err := blob.Catalog()
		if err != nil {
			return nil, err
		}
		out[t] = cat.NumChannels()
	}
	return out, nil
}

// Units returns each channel type's currently configured physical unit.
func (r *Reader) Units() (map[string]string, error) {
	blobs, err := r.blobMap()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(blobs))
	for t, blob := range blobs {
		out[t] = blob.Unit()
	}
	return out, nil
}

// SetUnit configures the physical unit get_physical_samples_from_epoch
// scales channelType into.
func (r *Reader) SetUnit(channelType, unit string) error {
	blobs, err := r.blobMap()
	if err != nil {
		return err
	}
	blob, ok := blobs[channelType]
	if !ok {
		return fmt.Errorf("unknown channel type %q: %w", channelType, errs.ErrInvalidArgument)
	}
	return blob.SetUnit(unit)
}

// SetCalibration configures the named calibration set
// get_physical_samples_from_epoch applies to channelType.
func (r *Reader) SetCalibration(channelType, name string) error {
	blobs, err := r.blobMap()
	if err != nil {
		return err
	}
	blob, ok := blobs[channelType]
	if !ok {
		return fmt.Errorf("unknown channel type %q: %w", channelType, errs.ErrInvalidArgument)
	}
	return blob.SetCalibration(name)
}

// GetPhysicalSamplesFromEpoch returns each requested channel type's
// physical-unit samples within [t0, t0+dt) of ep, matching
// Reader.get_physical_samples_from_epoch.
//
// t0 must be non-negative. dt is clamped to the remainder of the epoch
// after t0 whenever it is nil or falls outside 0 < dt < epoch.Dt()-t0,
// matching get_physical_samples_from_epoch's own clamping (it never
// rejects an out-of-range dt, it substitutes the remaining duration).
// channels nil selects every available channel type. The returned
// ChannelSamples.TStart is relative to the start of ep.
func (r *Reader) GetPhysicalSamplesFromEpoch(ep *epoch.Epoch, t0 float64, dt *float64, channels []string) (map[string]ChannelSamples, error) {
	if t0 < 0 {
		return nil, fmt.Errorf("t0 must be non-negative, got %v: %w", t0, errs.ErrInvalidArgument)
	}

	remaining := ep.Dt() - t0
	if dt == nil || *dt <= 0 || *dt >= remaining {
		dt = &remaining
	}

	blobs, err := r.blobMap()
	if err != nil {
		return nil, err
	}

	if channels == nil {
		for t := range blobs {
			channels = append(channels, t)
		}
		sort.Strings(channels)
	}

	start, end := ep.BlockSlice()
	blockSlice := &rawbin.BlockSlice{Start: start, End: end}

	out := make(map[string]ChannelSamples, len(channels))
	for _, ch := range channels {
		blob, ok := blobs[ch]
		if !ok {
			return nil, fmt.Errorf("unknown channel type %q: %w", ch, errs.ErrInvalidArgument)
		}
		samples, tStart, err := blob.GetPhysicalSamples(t0, dt, blockSlice)
		if err != nil {
			return nil, fmt.Errorf("reading %s samples: %w", ch, err)
		}
		out[ch] = ChannelSamples{Samples: samples, TStart: tStart}
	}

	return out, nil
}
