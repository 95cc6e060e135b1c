package container

import (
	"archive/zip"
	"fmt"
	"io"
	"os"

	"github.com/BEL-Public/mffpy/errs"
)

// archiveMember records where one ZIP entry's raw (store-mode, so
// uncompressed) bytes live within the archive file.
type archiveMember struct {
	name  string
	start int64
	size  int64
}

// ArchiveDir is a Directory backed by a flat, store-mode .mfz ZIP
// archive, matching ZippedMFFDirectory. Reading uses archive/zip's
// central-directory parsing to locate members, then hands back
// independent FilePart cursors rather than archive/zip's own
// decompressing Reader — archive/zip.File.Open returns a single
// io.ReadCloser over a decompressor chain, not an independently
// seekable, range-bounded cursor, so it cannot serve as ByteStream on
// its own.
type ArchiveDir struct {
	path       string
	byBasename map[string]archiveMember
	filesByExt map[string][]string
}

// NewArchiveDir opens path as a ZIP-backed container. It rejects any
// member compressed with a method other than Store, and any member that
// is not a flat, top-level entry.
func NewArchiveDir(path string) (*ArchiveDir, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %q: %w: %v", path, errs.ErrInvalidFormat, err)
	}
	defer zr.Close()

	d := &ArchiveDir{
		path:       path,
		byBasename: make(map[string]archiveMember),
		filesByExt: make(map[string][]string),
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if f.Method != zip.Store {
			return nil, fmt.Errorf("archive member %q is compressed (method %d), only store-mode archives are supported: %w",
				f.Name, f.Method, errs.ErrInvalidFormat)
		}
		if containsPathSeparator(f.Name) {
			return nil, fmt.Errorf("archive member %q is not a flat top-level entry: %w", f.Name, errs.ErrInvalidFormat)
		}

		offset, err := f.DataOffset()
		if err != nil {
			return nil, fmt.Errorf("locating data for %q: %w: %v", f.Name, errs.ErrInvalidFormat, err)
		}

		base, ext := splitBasenameExt(f.Name)
		d.byBasename[base] = archiveMember{
			name:  f.Name,
			start: offset,
			size:  int64(f.CompressedSize64), // store mode: compressed == raw size
		}
		d.filesByExt[ext] = append(d.filesByExt[ext], base)
	}

	if err := checkCompleteness(d, d.filesByExt); err != nil {
		return nil, err
	}
	return d, nil
}

func containsPathSeparator(name string) bool {
	for _, r := range name {
		if r == '/' || r == '\\' {
			return true
		}
	}
	return false
}

func (d *ArchiveDir) Open(basename string) (ByteStream, error) {
	m, ok := d.byBasename[basename]
	if !ok {
		return nil, fmt.Errorf("%q in %q: %w", basename, d.path, errs.ErrNotFound)
	}
	return newFilePart(d.path, m.start, m.start+m.size)
}

func (d *ArchiveDir) Has(basename string) bool {
	_, ok := d.byBasename[basename]
	return ok
}

func (d *ArchiveDir) FilesByExtension() map[string][]string {
	return d.filesByExt
}

func (d *ArchiveDir) SignalsWithInfo() ([]SignalInfo, error) {
	return signalsWithInfo(d.filesByExt)
}

func (d *ArchiveDir) Close() error { return nil }

// FilePart is an independent cursor over [start, end) of the file at
// path. Every call to ArchiveDir.Open opens its own *os.File handle so
// concurrently-open members never contend on a shared seek position,
// matching zipfile.FilePart's "open a new file pointer per member"
// design.
type FilePart struct {
	f          *os.File
	start, end int64
}

func newFilePart(path string, start, end int64) (*FilePart, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w: %v", path, errs.ErrIoError, err)
	}
	fp := &FilePart{f: f, start: start, end: end}
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("seeking in %q: %w: %v", path, errs.ErrIoError, err)
	}
	return fp, nil
}

func (fp *FilePart) Read(p []byte) (int, error) {
	pos, err := fp.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	remaining := fp.end - pos
	if remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	return fp.f.Read(p)
}

// Seek repositions the cursor within [0, end-start), interpreting
// whence the same way os.File does but relative to this part's own
// window rather than the whole file.
func (fp *FilePart) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = fp.start + offset
	case io.SeekCurrent:
		cur, err := fp.f.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, err
		}
		abs = cur + offset
	case io.SeekEnd:
		abs = fp.end + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d: %w", whence, errs.ErrInvalidArgument)
	}

	if _, err := fp.f.Seek(abs, io.SeekStart); err != nil {
		return 0, err
	}
	return abs - fp.start, nil
}

func (fp *FilePart) Close() error {
	return fp.f.Close()
}
