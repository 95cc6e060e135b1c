// Package binwriter assembles a single signal<N>.bin stream block by
// block, tracking epoch boundaries as it goes, matching BinWriter and
// StreamingBinWriter.
package binwriter

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/BEL-Public/mffpy/epoch"
	"github.com/BEL-Public/mffpy/errs"
	"github.com/BEL-Public/mffpy/header"
	"github.com/BEL-Public/mffpy/internal/options"
)

// maxSamplingRate is the largest value header.Block's 24-bit sampling-
// rate field can hold.
const maxSamplingRate = 1 << 24

// typicalType pairs a conventional bin filename with the channel-type
// tag EGI software expects to find there, matching BinWriter.typical_types.
type typicalType struct {
	Filename string
	DataType string
}

var typicalTypes = []typicalType{
	{Filename: "signal1.bin", DataType: "EEG"},
	{Filename: "signal2.bin", DataType: "PNSData"},
}

// Option configures a Writer at construction time.
type Option = options.Option[*Writer]

// WithIncompatibleAllowed disables the (filename, dataType) compatibility
// gate CheckCompatibility otherwise enforces, matching setting
// `BinWriter._compatible = False`.
func WithIncompatibleAllowed() Option {
	return options.NoError(func(w *Writer) { w.compatible = false })
}

// Writer assembles an append-only signal<N>.bin byte stream: an
// in-memory variant (New) buffering in a bytes.Buffer, and a streaming
// variant (NewStreaming) writing each block straight to its final file,
// matching the BinWriter / StreamingBinWriter split.
type Writer struct {
	samplingRate int32
	dataType     string
	compatible   bool

	header      *header.Block
	numChannels int
	hasBlock    bool

	epochs []*epoch.Epoch

	sink   io.Writer
	closer io.Closer
	buf    *bytes.Buffer // non-nil only for the in-memory variant
}

// New creates an in-memory Writer. samplingRate must fit the header
// codec's 24-bit field.
func New(samplingRate int32, dataType string, opts ...Option) (*Writer, error) {
	if samplingRate < 0 || samplingRate >= maxSamplingRate {
		return nil, fmt.Errorf("sampling rate %d does not fit 24 bits: %w", samplingRate, errs.ErrInvalidArgument)
	}

	buf := &bytes.Buffer{}
	w := &Writer{
		samplingRate: samplingRate,
		dataType:     dataType,
		compatible:   true,
		sink:         buf,
		buf:          buf,
	}
	if err := options.Apply[*Writer](w, opts...); err != nil {
		return nil, err
	}
	return w, nil
}

// NewStreaming creates a Writer that streams each block directly to
// path, matching StreamingBinWriter's write-through-to-disk behavior.
// path must already sit inside a created recording directory.
func NewStreaming(samplingRate int32, dataType, path string, opts ...Option) (*Writer, error) {
	if samplingRate < 0 || samplingRate >= maxSamplingRate {
		return nil, fmt.Errorf("sampling rate %d does not fit 24 bits: %w", samplingRate, errs.ErrInvalidArgument)
	}

	w := &Writer{
		samplingRate: samplingRate,
		dataType:     dataType,
		compatible:   true,
	}
	if err := options.Apply[*Writer](w, opts...); err != nil {
		return nil, err
	}

	// StreamingBinWriter always targets the first bin slot; matches the
	// original hardcoding `default_filename_fmt % 1`.
	if err := w.CheckCompatibility("signal1.bin"); err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %q: %w: %v", path, errs.ErrIoError, err)
	}
	w.sink = f
	w.closer = f
	return w, nil
}

// SamplingRate returns the sampling rate every block is recorded at.
func (w *Writer) SamplingRate() int32 { return w.samplingRate }

// DataType returns the channel-type tag this stream is declared as.
func (w *Writer) DataType() string { return w.dataType }

// Epochs returns the epoch boundaries accumulated so far.
func (w *Writer) Epochs() []*epoch.Epoch { return w.epochs }

// CheckCompatibility verifies that (filename, DataType()) is one of the
// combinations EGI software recognizes, unless WithIncompatibleAllowed
// was set at construction.
func (w *Writer) CheckCompatibility(filename string) error {
	if !w.compatible {
		return nil
	}
	for _, tt := range typicalTypes {
		if tt.Filename == filename && tt.DataType == w.dataType {
			return nil
		}
	}
	return fmt.Errorf("writing channel type %q to %q may be incompatible with EGI software: %w",
		w.dataType, filename, errs.ErrIncompatibleStream)
}

// AddBlock appends one (channel × sample) block of float32 data after
// an optional microsecond offset from the previous block, matching
// BinWriter.add_block.
//
// offsetUs semantics: nil extends the current epoch; 0 starts a new
// epoch immediately after the previous one; a positive value starts a
// new epoch with a beginTime gap of offsetUs after the previous epoch's
// end. For the very first block, nil is treated as 0. A negative
// offsetUs is rejected.
func (w *Writer) AddBlock(data [][]float32, offsetUs *int64) error {
	if offsetUs != nil && *offsetUs < 0 {
		return fmt.Errorf("offsetUs cannot be negative, got %d: %w", *offsetUs, errs.ErrInvalidArgument)
	}

	numChannels := len(data)
	numSamples := 0
	if numChannels > 0 {
		numSamples = len(data[0])
	}
	for _, row := range data {
		if len(row) != numSamples {
			return fmt.Errorf("ragged block: channel row lengths differ: %w", errs.ErrInvalidArgument)
		}
	}

	if w.hasBlock && numChannels != w.numChannels {
		return fmt.Errorf("channel count changed from %d to %d: %w", w.numChannels, numChannels, errs.ErrInvalidArgument)
	}

	hdr, err := header.New(numChannels, numSamples, w.samplingRate, nil)
	if err != nil {
		return err
	}
	w.header = hdr
	w.numChannels = numChannels
	w.hasBlock = true

	if _, err := w.sink.Write(hdr.Encode()); err != nil {
		return fmt.Errorf("writing header: %w: %v", errs.ErrIoError, err)
	}
	if err := w.writePayload(data, numChannels, numSamples); err != nil {
		return err
	}

	w.addBlockToEpochs(numSamples, offsetUs)
	return nil
}

func (w *Writer) writePayload(data [][]float32, numChannels, numSamples int) error {
	payload := make([]byte, 4*numChannels*numSamples)
	i := 0
	for ch := 0; ch < numChannels; ch++ {
		for s := 0; s < numSamples; s++ {
			binary.LittleEndian.PutUint32(payload[i:i+4], math.Float32bits(data[ch][s]))
			i += 4
		}
	}
	if _, err := w.sink.Write(payload); err != nil {
		return fmt.Errorf("writing block payload: %w: %v", errs.ErrIoError, err)
	}
	return nil
}

// addBlockToEpochs extends the current epoch or starts a new one,
// matching BinWriter._add_block_to_epochs.
func (w *Writer) addBlockToEpochs(numSamples int, offsetUs *int64) {
	durationUs := int64(1e6 * float64(numSamples) / float64(w.samplingRate))

	switch {
	case len(w.epochs) == 0:
		begin := int64(0)
		if offsetUs != nil {
			begin = *offsetUs
		}
		w.epochs = append(w.epochs, epoch.New(begin, begin+durationUs, 1, 1))
	case offsetUs != nil:
		prev := w.epochs[len(w.epochs)-1]
		begin := prev.EndTime + *offsetUs
		blockIdx := prev.LastBlock + 1
		w.epochs = append(w.epochs, epoch.New(begin, begin+durationUs, blockIdx, blockIdx))
	default:
		w.epochs[len(w.epochs)-1].AddBlock(durationUs)
	}
}

// Bytes returns the encoded stream content, for the in-memory variant
// only; the streaming variant has already written every byte to its
// target file and returns an error instead.
func (w *Writer) Bytes() ([]byte, error) {
	if w.buf == nil {
		return nil, fmt.Errorf("streaming bin writer has no in-memory buffer: %w", errs.ErrInvalidArgument)
	}
	return w.buf.Bytes(), nil
}

// Finalize closes the underlying sink. For the in-memory variant this
// is a no-op; for the streaming variant it closes the target file,
// matching StreamingBinWriter.write (which, once streamed, is just a
// close).
func (w *Writer) Finalize() error {
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}
