// Package rawbin catalogs and reads the blocked binary signal data
// inside one signal<N>.bin stream: a sequence of variable-sized blocks,
// each optionally preceded by a header.Block describing its layout, each
// carrying num_channels rows of little-endian float32 samples.
package rawbin

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/BEL-Public/mffpy/container"
	"github.com/BEL-Public/mffpy/errs"
	"github.com/BEL-Public/mffpy/header"
	"github.com/BEL-Public/mffpy/internal/options"
	"github.com/BEL-Public/mffpy/internal/pool"
)

// dataBlock records one block's position and size within the stream,
// matching raw_bin_files.DataBlock.
type dataBlock struct {
	byteOffset int64
	byteSize   int64
	numSamples int
}

// Catalog is the result of one forward walk over a signal stream:
// per-block positions plus the layout facts that must stay constant
// across every block (channel count, sampling rate).
type Catalog struct {
	blocks         []dataBlock
	blockStartIdx  []int64 // cumulative sum of numSamples, len(blocks)+1
	numChannels    int
	samplingRate   int32
}

// NumChannels returns the channel count shared by every block.
func (c *Catalog) NumChannels() int { return c.numChannels }

// SamplingRate returns the sampling rate shared by every block.
func (c *Catalog) SamplingRate() int32 { return c.samplingRate }

// NumSamples returns the total number of samples per channel across the
// whole stream.
func (c *Catalog) NumSamples() int64 {
	if len(c.blockStartIdx) == 0 {
		return 0
	}
	return c.blockStartIdx[len(c.blockStartIdx)-1]
}

// Duration returns the stream's duration in seconds.
func (c *Catalog) Duration() float64 {
	if c.samplingRate == 0 {
		return 0
	}
	return float64(c.NumSamples()) / float64(c.samplingRate)
}

// NumBlocks returns how many blocks the stream contains.
func (c *Catalog) NumBlocks() int { return len(c.blocks) }

// maxTruncatableExcess is the largest block-payload excess over
// 4*numChannels*numSamples that Catalog tolerates by truncating and
// warning, matching spec's "tolerate a payload that is 1..4 bytes
// longer" buffer-shape robustness rule. Anything beyond it is a genuine
// shape error.
const maxTruncatableExcess = 4

// Reader reads raw (uncalibrated) float32 samples out of a signal
// stream, matching RawBinFile.
type Reader struct {
	stream   container.ByteStream
	catalog  *Catalog
	warnFunc errs.WarnFunc
}

// Option configures a Reader built by New.
type Option = options.Option[*Reader]

// WithWarnFunc attaches fn as the sink for best-effort recoveries Catalog
// performs instead of aborting (a truncated block tail).
func WithWarnFunc(fn errs.WarnFunc) Option {
	return options.NoError(func(r *Reader) { r.warnFunc = fn })
}

// New wraps stream, matching RawBinFile.__init__. The stream is not read
// until Catalog is first called.
func New(stream container.ByteStream, opts ...Option) *Reader {
	r := &Reader{stream: stream}
	_ = options.Apply[*Reader](r, opts...)
	return r
}

// Close releases the underlying stream.
func (r *Reader) Close() error {
	return r.stream.Close()
}

// Catalog walks the stream once, caching the result, matching the
// cached_property signal_blocks. Subsequent calls return the cached
// result without touching the stream again.
func (r *Reader) Catalog() (*Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	size, err := streamSize(r.stream)
	if err != nil {
		return nil, err
	}
	if _, err := r.stream.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("seeking to start of stream: %w: %v", errs.ErrIoError, err)
	}

	var (
		blocks       []dataBlock
		numChannels  int
		samplingRate int32
		cur          *header.Block
		pos          int64
	)

	for pos < size {
		hdr, err := header.Parse(r.stream)
		if err != nil {
			return nil, err
		}
		if hdr != nil {
			cur = hdr
		}
		if cur == nil {
			return nil, fmt.Errorf("first block has no header: %w", errs.ErrMissingHeader)
		}

		if numChannels == 0 {
			numChannels = int(cur.NumChannels)
			samplingRate = cur.SamplingRate
		} else if int(cur.NumChannels) != numChannels {
			return nil, fmt.Errorf("channel count changed across blocks (%d != %d): %w",
				cur.NumChannels, numChannels, errs.ErrInvalidFormat)
		} else if cur.SamplingRate != samplingRate {
			return nil, fmt.Errorf("sampling rate changed across blocks (%d != %d): %w",
				cur.SamplingRate, samplingRate, errs.ErrInvalidFormat)
		}

		offset, err := r.stream.Seek(0, 1)
		if err != nil {
			return nil, fmt.Errorf("locating block data: %w: %v", errs.ErrIoError, err)
		}

		numSamples := cur.NumSamples()
		excess := int64(cur.BlockSize) - 4*int64(numChannels)*int64(numSamples)
		if excess > 0 {
			if excess > maxTruncatableExcess {
				return nil, fmt.Errorf(
					"block at offset %d: payload size %d is not a valid shape for %d channels (%d byte excess): %w",
					offset, cur.BlockSize, numChannels, excess, errs.ErrInvalidFormat)
			}
			errs.Warn(r.warnFunc, errs.Warning{
				Kind: "truncated block tail",
				Message: fmt.Sprintf("block at offset %d: truncating %d extraneous byte(s) (block size %d, %d channels)",
					offset, excess, cur.BlockSize, numChannels),
			})
		}

		blocks = append(blocks, dataBlock{
			byteOffset: offset,
			byteSize:   int64(cur.BlockSize),
			numSamples: numSamples,
		})

		next, err := r.stream.Seek(int64(cur.BlockSize), 1)
		if err != nil {
			return nil, fmt.Errorf("skipping block data: %w: %v", errs.ErrIoError, err)
		}
		pos = next
	}

	if len(blocks) == 0 {
		return nil, fmt.Errorf("no data blocks found in stream: %w", errs.ErrInvalidFormat)
	}

	startIdx := make([]int64, len(blocks)+1)
	for i, b := range blocks {
		startIdx[i+1] = startIdx[i] + int64(b.numSamples)
	}

	r.catalog = &Catalog{
		blocks:        blocks,
		blockStartIdx: startIdx,
		numChannels:   numChannels,
		samplingRate:  samplingRate,
	}
	return r.catalog, nil
}

// BlockSlice selects a contiguous range of blocks [Start, End).
type BlockSlice struct {
	Start, End int
}

// fullSlice returns a BlockSlice covering every block in c.
func (c *Catalog) fullSlice() BlockSlice {
	return BlockSlice{Start: 0, End: len(c.blocks)}
}

// ReadRawSamples returns a (numChannels, numSamples)-shaped, channel-major
// slice of raw float32 samples and the time in seconds (from the start
// of blockSlice) of the first returned sample, matching
// RawBinFile.read_raw_samples.
//
// t0 is the start time in seconds, relative to the beginning of
// blockSlice, to read from; a nil dt reads through the end of
// blockSlice. A nil blockSlice defaults to the whole stream.
func (r *Reader) ReadRawSamples(t0 float64, dt *float64, blockSlice *BlockSlice) ([][]float32, float64, error) {
	cat, err := r.Catalog()
	if err != nil {
		return nil, 0, err
	}

	sl := cat.fullSlice()
	if blockSlice != nil {
		sl = *blockSlice
	}
	if sl.Start < 0 || sl.End > len(cat.blocks) || sl.Start > sl.End {
		return nil, 0, fmt.Errorf("block slice [%d:%d) out of range [0:%d): %w",
			sl.Start, sl.End, len(cat.blocks), errs.ErrInvalidArgument)
	}

	sr := float64(cat.samplingRate)
	var aPtr, bPtr *int64
	a := roundHalfAwayFromZero(t0 * sr)
	aPtr = &a
	timeOfFirstSample := float64(a) / sr

	var b int64
	if dt != nil {
		b = roundHalfAwayFromZero((t0 + *dt) * sr)
		bPtr = &b
	}

	bsi := cat.blockStartIdx[sl.Start : sl.End+1]

	A := searchSortedRight(bsi, bsi[0]+a) - 1
	B := len(bsi) - 1
	if bPtr != nil {
		B = searchSortedLeft(bsi, bsi[0]+b)
	}

	relA := a - (bsi[A] - bsi[0])
	var relB int64 = -1
	hasRelB := false
	if bPtr != nil {
		relB = b - (bsi[A] - bsi[0])
		hasRelB = true
	}

	absA := A + sl.Start
	absB := B + sl.Start

	data, err := r.readBlocks(cat, absA, absB)
	if err != nil {
		return nil, 0, err
	}

	lo := int(relA)
	hi := len(data[0])
	if hasRelB {
		hi = int(relB)
	}
	if lo < 0 {
		lo = 0
	}
	if hi > len(data[0]) {
		hi = len(data[0])
	}
	if lo > hi {
		lo = hi
	}

	out := make([][]float32, len(data))
	for i, row := range data {
		out[i] = row[lo:hi]
	}

	return out, timeOfFirstSample, nil
}

// readBlocks reads and channel-major-reshapes blocks [A, B) (absolute
// indices into cat.blocks), concatenating them along the sample axis,
// matching RawBinFile._read_blocks.
func (r *Reader) readBlocks(cat *Catalog, A, B int) ([][]float32, error) {
	if A < 0 || B > len(cat.blocks) || A > B {
		return nil, fmt.Errorf("block range [%d:%d) out of range [0:%d): %w",
			A, B, len(cat.blocks), errs.ErrInvalidArgument)
	}

	totalSamples := 0
	for _, blk := range cat.blocks[A:B] {
		totalSamples += blk.numSamples
	}

	out := make([][]float32, cat.numChannels)
	for ch := range out {
		out[ch] = make([]float32, totalSamples)
	}

	buf := pool.GetBlockBuffer()
	defer pool.PutBlockBuffer(buf)

	sampleOffset := 0
	for _, blk := range cat.blocks[A:B] {
		if _, err := r.stream.Seek(blk.byteOffset, 0); err != nil {
			return nil, fmt.Errorf("seeking to block: %w: %v", errs.ErrIoError, err)
		}
		buf.SetLength(int(blk.byteSize))
		if _, err := readFull(r.stream, buf.Bytes()); err != nil {
			return nil, fmt.Errorf("reading block data: %w: %v", errs.ErrIoError, err)
		}

		numSamples := blk.numSamples
		raw := buf.Bytes()
		for ch := 0; ch < cat.numChannels; ch++ {
			for s := 0; s < numSamples; s++ {
				idx := (ch*numSamples + s) * 4
				bits := binary.LittleEndian.Uint32(raw[idx : idx+4])
				out[ch][sampleOffset+s] = math.Float32frombits(bits)
			}
		}
		sampleOffset += numSamples
	}

	return out, nil
}

func streamSize(s container.ByteStream) (int64, error) {
	cur, err := s.Seek(0, 1)
	if err != nil {
		return 0, fmt.Errorf("reading stream position: %w: %v", errs.ErrIoError, err)
	}
	end, err := s.Seek(0, 2)
	if err != nil {
		return 0, fmt.Errorf("reading stream size: %w: %v", errs.ErrIoError, err)
	}
	if _, err := s.Seek(cur, 0); err != nil {
		return 0, fmt.Errorf("restoring stream position: %w: %v", errs.ErrIoError, err)
	}
	return end, nil
}

func readFull(s container.ByteStream, p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := s.Read(p[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

// roundHalfAwayFromZero matches numpy.round's banker's-rounding-free
// behavior as used by the original's `np.round(t0*sr).astype(int)`: .5
// always rounds away from zero rather than to even.
func roundHalfAwayFromZero(x float64) int64 {
	if x >= 0 {
		return int64(math.Floor(x + 0.5))
	}
	return int64(math.Ceil(x - 0.5))
}

// searchSortedRight returns the insertion point for v in sorted a, to
// the right of any existing equal entries (numpy searchsorted side='right').
func searchSortedRight(a []int64, v int64) int {
	return sort.Search(len(a), func(i int) bool { return a[i] > v })
}

// searchSortedLeft returns the insertion point for v in sorted a, to the
// left of any existing equal entries (numpy searchsorted side='left').
func searchSortedLeft(a []int64, v int64) int {
	return sort.Search(len(a), func(i int) bool { return a[i] >= v })
}
