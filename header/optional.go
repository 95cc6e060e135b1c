package header

import (
	"encoding/binary"
	"fmt"

	"github.com/BEL-Public/mffpy/errs"
)

// OptionalHeader is the trailer that follows a HeaderBlock's per-channel
// tables. Two kinds exist in the wild: an empty NoOptional trailer, and a
// Type1 trailer carrying block/sample/signal totals for the whole stream.
type OptionalHeader interface {
	// ByteSize is the trailer's on-disk size, including its own
	// byte-length prefix.
	ByteSize() int
	// Encode appends the trailer's bytes to dst and returns the result.
	Encode(dst []byte) []byte
}

// NoOptional is the trailer written when no summary totals are present.
// It is a single 4-byte zero length prefix and nothing else.
type NoOptional struct{}

func (NoOptional) ByteSize() int { return 4 }

func (NoOptional) Encode(dst []byte) []byte {
	return binary.LittleEndian.AppendUint32(dst, 0)
}

// Type1 carries cumulative totals for the whole recording: the number of
// blocks written so far, the number of samples per channel written so
// far, and the channel count at the time this trailer was written.
type Type1 struct {
	TotalNumBlocks  int64
	TotalNumSamples int64
	TotalNumSignals int32
}

func (Type1) ByteSize() int { return 4 + 4 + 8 + 8 + 4 }

func (t Type1) Encode(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, 24) // additional byte length
	dst = binary.LittleEndian.AppendUint32(dst, 1)   // trailer type
	dst = binary.LittleEndian.AppendUint64(dst, uint64(t.TotalNumBlocks))
	dst = binary.LittleEndian.AppendUint64(dst, uint64(t.TotalNumSamples))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(t.TotalNumSignals))
	return dst
}

// parseOptional reads an OptionalHeader trailer from r, dispatching on its
// declared byte length and, if nonzero, its type word.
func parseOptional(r *cursor) (OptionalHeader, error) {
	byteLen, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	if byteLen == 0 {
		return NoOptional{}, nil
	}

	typ, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	switch typ {
	case 1:
		totalBlocks, err := r.readInt64()
		if err != nil {
			return nil, err
		}
		totalSamples, err := r.readInt64()
		if err != nil {
			return nil, err
		}
		totalSignals, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		return Type1{
			TotalNumBlocks:  totalBlocks,
			TotalNumSamples: totalSamples,
			TotalNumSignals: int32(totalSignals),
		}, nil
	default:
		return nil, fmt.Errorf("optional header trailer type %d: %w", typ, errs.ErrInvalidFormat)
	}
}
