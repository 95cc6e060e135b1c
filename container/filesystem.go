package container

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BEL-Public/mffpy/errs"
)

// FilesystemDir is a Directory backed by an ordinary .mff directory on
// disk, matching MFFDirectory.
type FilesystemDir struct {
	root       string
	byBasename map[string]string // basename -> filename with extension
	filesByExt map[string][]string
}

// NewFilesystemDir opens root as a filesystem-backed container.
func NewFilesystemDir(root string) (*FilesystemDir, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading directory %q: %w: %v", root, errs.ErrIoError, err)
	}

	d := &FilesystemDir{
		root:       root,
		byBasename: make(map[string]string),
		filesByExt: make(map[string][]string),
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		base, ext := splitBasenameExt(e.Name())
		d.byBasename[base] = e.Name()
		d.filesByExt[ext] = append(d.filesByExt[ext], base)
	}

	if err := checkCompleteness(d, d.filesByExt); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *FilesystemDir) Open(basename string) (ByteStream, error) {
	name, ok := d.byBasename[basename]
	if !ok {
		return nil, fmt.Errorf("%q in %q: %w", basename, d.root, errs.ErrNotFound)
	}
	f, err := os.Open(filepath.Join(d.root, name))
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w: %v", name, errs.ErrIoError, err)
	}
	return f, nil
}

func (d *FilesystemDir) Has(basename string) bool {
	_, ok := d.byBasename[basename]
	return ok
}

func (d *FilesystemDir) FilesByExtension() map[string][]string {
	return d.filesByExt
}

func (d *FilesystemDir) SignalsWithInfo() ([]SignalInfo, error) {
	return signalsWithInfo(d.filesByExt)
}

func (d *FilesystemDir) Close() error { return nil }
