// Package container abstracts the two on-disk shapes an MFF recording
// can take: an ordinary directory of files (.mff) or a flat, store-mode
// ZIP archive of the same files (.mfz). Both expose the same Directory
// interface so the rest of mffpy never needs to know which one it is
// reading from.
package container

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/BEL-Public/mffpy/errs"
)

// recognizedExtensions are the only container extensions mffpy opens.
var recognizedExtensions = map[string]bool{".mff": true, ".mfz": true}

var numberPattern = regexp.MustCompile(`\d+`)

// ByteStream is a seekable, readable cursor over one member's bytes,
// confined to that member's own byte range. *os.File and *FilePart both
// satisfy it.
type ByteStream interface {
	io.Reader
	io.Seeker
	io.Closer
}

// SignalInfo pairs a signal<N>.bin basename with the basename of the
// info<N>.xml document that describes it.
type SignalInfo struct {
	Signal string
	Info   string
}

// Directory gives basename-addressed access to the members of an open
// MFF/MFZ container, without callers needing to know whether it is
// backed by a filesystem directory or a ZIP archive.
type Directory interface {
	// Open returns a fresh, independent stream over the named member
	// (without extension). Each call yields its own cursor so callers
	// can hold several open at once.
	Open(basename string) (ByteStream, error)
	// Has reports whether basename (without extension) exists.
	Has(basename string) bool
	// FilesByExtension returns every basename (without extension)
	// present, grouped by extension.
	FilesByExtension() map[string][]string
	// SignalsWithInfo pairs every signal<N>.bin member with its
	// matching info<N>.xml basename.
	SignalsWithInfo() ([]SignalInfo, error)
	// Close releases any resources the Directory itself holds open.
	Close() error
}

// Open inspects filename and returns a FilesystemDir or ArchiveDir as
// appropriate, matching get_directory's dispatch on isdir/is_zipfile.
func Open(filename string) (Directory, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return nil, fmt.Errorf("opening container %q: %w: %v", filename, errs.ErrIoError, err)
	}

	if !recognizedExtensions[strings.ToLower(filepath.Ext(filename))] {
		return nil, fmt.Errorf("container %q: unknown file type: %w", filename, errs.ErrInvalidFormat)
	}

	if info.IsDir() {
		return NewFilesystemDir(filename)
	}
	return NewArchiveDir(filename)
}

// splitBasenameExt splits an on-disk filename into its extension-free
// basename and extension, e.g. "signal1.bin" -> ("signal1", ".bin").
func splitBasenameExt(name string) (string, string) {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}

// signalsWithInfo derives the signal/info pairing for every ".bin"
// member of a files-by-extension index, matching
// MFFDirBase.signals_with_info.
func signalsWithInfo(filesByExt map[string][]string) ([]SignalInfo, error) {
	var out []SignalInfo
	for _, name := range filesByExt[".bin"] {
		match := numberPattern.FindString(filepath.Base(name))
		if match == "" {
			return nil, fmt.Errorf("signal file %q has no index number: %w", name, errs.ErrInvalidFormat)
		}
		n, err := strconv.Atoi(match)
		if err != nil {
			return nil, fmt.Errorf("signal file %q has invalid index: %w", name, errs.ErrInvalidFormat)
		}
		out = append(out, SignalInfo{Signal: name, Info: "info" + strconv.Itoa(n)})
	}
	return out, nil
}

// checkCompleteness verifies that every signal<N>.bin member has a
// matching info<N>.xml member, matching MFFDirBase._check.
func checkCompleteness(d Directory, filesByExt map[string][]string) error {
	for _, name := range filesByExt[".bin"] {
		if !strings.Contains(strings.ToLower(name), "signal") {
			return fmt.Errorf("unknown bin file %q: %w", name, errs.ErrInvalidFormat)
		}
		match := numberPattern.FindString(filepath.Base(name))
		if match == "" {
			return fmt.Errorf("signal file %q has invalid name: %w", name, errs.ErrInvalidFormat)
		}
		infoName := "info" + match
		if !d.Has(infoName) {
			return fmt.Errorf("no info found for %q: %w", name, errs.ErrNotFound)
		}
	}
	return nil
}
