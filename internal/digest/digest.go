// Package digest computes short content fingerprints. writer uses Sum64
// to detect whether a member file already on disk matches the bytes it
// is about to write, without comparing the two byte for byte.
package digest

import (
	"io"

	"github.com/cespare/xxhash/v2"
)

// Sum64 hashes b with xxhash and returns the digest as a fixed-width hex
// string, convenient for log lines and map keys alike.
func Sum64(b []byte) string {
	return formatUint64(xxhash.Sum64(b))
}

// Reader hashes the content read through r as a side effect, without
// buffering it, so content that has to be read once anyway can be
// fingerprinted in the same pass.
type Reader struct {
	r    io.Reader
	hash *xxhash.Digest
}

// NewReader wraps r so that every byte read through the returned Reader
// is folded into a running xxhash digest.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, hash: xxhash.New()}
}

func (d *Reader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if n > 0 {
		d.hash.Write(p[:n])
	}
	return n, err
}

// Sum returns the running digest of everything read so far.
func (d *Reader) Sum() string {
	return formatUint64(d.hash.Sum64())
}

const hexDigits = "0123456789abcdef"

func formatUint64(v uint64) string {
	var buf [16]byte
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[v&0xf]
		v >>= 4
	}
	return string(buf[:])
}
