package container

import (
	"archive/zip"
	"fmt"
	"time"

	"github.com/BEL-Public/mffpy/errs"
)

// ArchiveEntry is one member to pack into a .mfz archive: its flat
// on-disk name (with extension) and its full content.
type ArchiveEntry struct {
	Name string
	Data []byte
}

// Writer is anything WriteArchive can write a ZIP stream to (typically
// an *os.File or a renameio.PendingFile).
type Writer interface {
	Write(p []byte) (int, error)
}

// WriteArchive packs entries into a flat, store-mode ZIP archive written
// to w, matching the "zip -Z store -r -j" layout ZippedMFFDirectory
// expects to read back. Every entry is written uncompressed
// (zip.Store) so NewArchiveDir's DataOffset-based cursors can address it
// directly.
func WriteArchive(w Writer, entries []ArchiveEntry) error {
	zw := zip.NewWriter(w)

	for _, e := range entries {
		hdr := &zip.FileHeader{
			Name:   e.Name,
			Method: zip.Store,
		}
		hdr.SetModTime(time.Now())

		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("creating archive entry %q: %w: %v", e.Name, errs.ErrIoError, err)
		}
		if _, err := fw.Write(e.Data); err != nil {
			return fmt.Errorf("writing archive entry %q: %w: %v", e.Name, errs.ErrIoError, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing archive: %w: %v", errs.ErrIoError, err)
	}
	return nil
}
