package header

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/BEL-Public/mffpy/errs"
)

// cursor reads little-endian fixed-width integers off an io.Reader,
// wrapping short reads as errs.ErrIoError so callers never see a bare
// io.ErrUnexpectedEOF.
type cursor struct {
	r   io.Reader
	buf [8]byte
}

func newCursor(r io.Reader) *cursor {
	return &cursor{r: r}
}

func (c *cursor) readUint32() (uint32, error) {
	if _, err := io.ReadFull(c.r, c.buf[:4]); err != nil {
		return 0, fmt.Errorf("reading header field: %w: %v", errs.ErrIoError, err)
	}
	return binary.LittleEndian.Uint32(c.buf[:4]), nil
}

func (c *cursor) readInt64() (int64, error) {
	if _, err := io.ReadFull(c.r, c.buf[:8]); err != nil {
		return 0, fmt.Errorf("reading header field: %w: %v", errs.ErrIoError, err)
	}
	return int64(binary.LittleEndian.Uint64(c.buf[:8])), nil
}

func (c *cursor) skip(n int) error {
	if n <= 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, c.r, int64(n)); err != nil {
		return fmt.Errorf("skipping header bytes: %w: %v", errs.ErrIoError, err)
	}
	return nil
}
