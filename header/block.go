// Package header implements the codec for the per-block header that
// precedes (or is skipped in favor of) a raw signal data block in an
// MFF .bin file.
//
// Each block begins with a 4-byte flag: 0 means "reuse the previous
// header unchanged", 1 means a full header follows. When present, the
// header carries the block's byte size, channel count, a per-channel
// byte-offset table into the data block, a per-channel packed
// (sampling rate, depth) word, and an optional trailer of cumulative
// totals. Depth is always 32 bits; .mff does not support any other
// sample width.
package header

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/BEL-Public/mffpy/errs"
	"github.com/BEL-Public/mffpy/internal/options"
)

// headerPresentFlag marks a block as carrying a full header; any other
// leading 4-byte value means "reuse the previous header".
const headerPresentFlag = 1

// SampleDepth is the only sample bit depth .mff data blocks carry.
const SampleDepth = 32

// Block describes one signal data block: its size, channel layout, and
// sampling rate, plus whatever optional summary trailer follows the
// per-channel tables.
type Block struct {
	HeaderSize   int32
	BlockSize    int32
	NumChannels  int32
	SamplingRate int32
	Optional     OptionalHeader

	// PaddingBytes is appended after the optional trailer when Encode
	// writes this header's HeaderSize does not account for it by byte
	// tables alone (e.g. to match an externally observed header_size
	// which includes provenance-specific padding). Defaults to nil,
	// meaning no padding is written.
	PaddingBytes []byte
}

// Option configures a Block built by New.
type Option = options.Option[*Block]

// WithPadding attaches extra trailing bytes written after the optional
// trailer, for parity with archives whose header_size was computed with
// vendor-specific padding this codec does not otherwise reconstruct.
func WithPadding(b []byte) Option {
	return options.NoError(func(blk *Block) { blk.PaddingBytes = b })
}

// New builds a Block for a data block with numChannels channels,
// numSamples samples per channel, and the given sampling rate, deriving
// HeaderSize and BlockSize. optional defaults to NoOptional{} when nil.
func New(numChannels, numSamples int, samplingRate int32, optional OptionalHeader, opts ...Option) (*Block, error) {
	if numChannels <= 0 {
		return nil, fmt.Errorf("num channels %d: %w", numChannels, errs.ErrInvalidArgument)
	}
	if numSamples <= 0 {
		return nil, fmt.Errorf("num samples %d: %w", numSamples, errs.ErrInvalidArgument)
	}
	if optional == nil {
		optional = NoOptional{}
	}

	blk := &Block{
		BlockSize:    int32(numChannels * numSamples * 4),
		NumChannels:  int32(numChannels),
		SamplingRate: samplingRate,
		Optional:     optional,
	}
	if err := options.Apply(blk, opts...); err != nil {
		return nil, err
	}
	blk.HeaderSize = int32(ByteSize(numChannels, optional) + len(blk.PaddingBytes))

	return blk, nil
}

// NumSamples returns the number of samples per channel carried in the
// data block this header precedes, floored to whole samples: a BlockSize
// not an exact multiple of 4*NumChannels drops its trailing partial
// sample. Callers that must distinguish a clean fit from a truncated one
// compare BlockSize against 4*NumChannels*NumSamples() themselves (see
// rawbin.Catalog).
func (b *Block) NumSamples() int {
	if b.NumChannels == 0 {
		return 0
	}
	return int(b.BlockSize) / (4 * int(b.NumChannels))
}

// ByteSize returns the on-disk size of a header (excluding any manually
// attached padding) for numChannels channels and the given optional
// trailer: flag, header_size, block_size, num_channels (4 ints), the
// per-channel offset table, the per-channel rate/depth word table, and
// the trailer itself.
func ByteSize(numChannels int, optional OptionalHeader) int {
	return 4*(4+2*numChannels) + optional.ByteSize()
}

// Parse reads one block header from r. It returns (nil, nil) when the
// leading flag says "reuse the previous header" — callers are expected
// to keep using whatever Block they already have in that case, mirroring
// HeaderBlock.from_file's `return None`.
func Parse(r io.Reader) (*Block, error) {
	c := newCursor(r)

	flag, err := c.readUint32()
	if err != nil {
		return nil, err
	}
	if flag != headerPresentFlag {
		return nil, nil
	}

	headerSize, err := c.readUint32()
	if err != nil {
		return nil, err
	}
	blockSize, err := c.readUint32()
	if err != nil {
		return nil, err
	}
	numChannels, err := c.readUint32()
	if err != nil {
		return nil, err
	}
	if numChannels == 0 {
		return nil, fmt.Errorf("header declares zero channels: %w", errs.ErrInvalidFormat)
	}

	// Per-channel byte offsets are fully determined by block_size and
	// num_channels (each channel occupies an equal share); we skip the
	// table rather than retain it, same as HeaderBlock.from_file.
	if err := c.skip(4 * int(numChannels)); err != nil {
		return nil, err
	}

	rateDepthWord, err := c.readUint32()
	if err != nil {
		return nil, err
	}
	samplingRate, depth := DecodeRateDepth(rateDepthWord)
	if depth != SampleDepth {
		return nil, fmt.Errorf("unsupported sample depth %d: %w", depth, errs.ErrInvalidFormat)
	}
	// Remaining per-channel rate/depth words are identical to the first.
	if err := c.skip(4 * int(numChannels-1)); err != nil {
		return nil, err
	}

	optional, err := parseOptional(c)
	if err != nil {
		return nil, err
	}

	return &Block{
		HeaderSize:   int32(headerSize),
		BlockSize:    int32(blockSize),
		NumChannels:  int32(numChannels),
		SamplingRate: samplingRate,
		Optional:     optional,
	}, nil
}

// Encode serializes b into its on-disk byte representation: the
// header-present flag, the base fields, the per-channel offset table,
// the per-channel packed rate/depth word, the optional trailer, and any
// configured padding.
func (b *Block) Encode() []byte {
	numChannels := int(b.NumChannels)
	numSamples := b.NumSamples()

	dst := make([]byte, 0, ByteSize(numChannels, b.Optional)+len(b.PaddingBytes))
	dst = binary.LittleEndian.AppendUint32(dst, headerPresentFlag)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(b.HeaderSize))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(b.BlockSize))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(b.NumChannels))

	offsetStride := uint32(4 * numSamples)
	for i := 0; i < numChannels; i++ {
		dst = binary.LittleEndian.AppendUint32(dst, offsetStride*uint32(i))
	}

	rateDepthWord := EncodeRateDepth(b.SamplingRate, SampleDepth)
	for i := 0; i < numChannels; i++ {
		dst = binary.LittleEndian.AppendUint32(dst, rateDepthWord)
	}

	dst = b.Optional.Encode(dst)
	dst = append(dst, b.PaddingBytes...)

	return dst
}

// DecodeRateDepth splits a packed rate/depth word into sampling rate and
// sample bit depth: depth occupies the low byte, rate the upper 3 bytes.
func DecodeRateDepth(word uint32) (rate int32, depth int32) {
	return int32(word >> 8), int32(word & 0xff)
}

// EncodeRateDepth packs a sampling rate and sample bit depth into a
// single 4-byte word, the inverse of DecodeRateDepth.
func EncodeRateDepth(rate, depth int32) uint32 {
	return (uint32(rate) << 8) | (uint32(depth) & 0xff)
}
