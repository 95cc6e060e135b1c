// Package writer assembles a complete .mff/.mfz recording: one or more
// XML metadata documents plus one or more binary signal streams,
// written out atomically, matching Writer.
package writer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio"

	"github.com/BEL-Public/mffpy/binwriter"
	"github.com/BEL-Public/mffpy/container"
	"github.com/BEL-Public/mffpy/errs"
	"github.com/BEL-Public/mffpy/internal/digest"
	"github.com/BEL-Public/mffpy/xmldoc"
)

// DeviceResourceProvider supplies the canned coordinates.xml/
// sensorLayout.xml content for a named electrode net. Bundling the
// actual per-device resource files (mffpy's "mffpy/resources/
// coordinates/*.xml") is an out-of-scope external collaborator; writer
// only defines the consumption-side contract, matching devices.py's
// coordinates_and_sensor_layout.
type DeviceResourceProvider interface {
	CoordinatesAndSensorLayout(device string) (coordinates, sensorLayout []byte, err error)
}

type namedDocument struct {
	filename string
	doc      xmldoc.Document
}

type namedBin struct {
	filename string
	writer   *binwriter.Writer
}

// Writer accumulates XML documents and binary streams for one recording
// and serializes them together on Write, matching Writer.
type Writer struct {
	filename  string
	overwrite bool
	mffDir    string
	ext       string

	documents   []namedDocument
	bins        []namedBin
	fileCreated bool
}

// New validates filename's extension and overwrite semantics, matching
// the `filename` property setter: the target must not already exist
// unless overwrite is set, and a .mfz target additionally requires its
// sibling .mff directory not exist.
func New(filename string, overwrite bool) (*Writer, error) {
	base, ext := splitExt(filename)
	switch ext {
	case ".mff", ".mfz", ".json":
	default:
		return nil, fmt.Errorf("unsupported output extension %q: %w", ext, errs.ErrInvalidArgument)
	}

	if !overwrite {
		if _, err := os.Stat(filename); err == nil {
			return nil, fmt.Errorf("file %q already exists: %w", filename, errs.ErrInvalidArgument)
		}
		if ext == ".mfz" {
			if _, err := os.Stat(base + ".mff"); err == nil {
				return nil, fmt.Errorf("sibling directory %q already exists: %w", base+".mff", errs.ErrInvalidArgument)
			}
		}
	}

	return &Writer{
		filename:  filename,
		overwrite: overwrite,
		mffDir:    base + ".mff",
		ext:       ext,
	}, nil
}

func splitExt(filename string) (base, ext string) {
	ext = filepath.Ext(filename)
	return strings.TrimSuffix(filename, ext), ext
}

// CreateDirectory creates the .mff directory a streaming binwriter.Writer
// needs to exist before it is constructed, and returns its path. Calling
// it more than once is a no-op, matching Writer.create_directory.
func (w *Writer) CreateDirectory() (string, error) {
	if w.fileCreated {
		return w.mffDir, nil
	}
	if w.overwrite {
		if err := os.RemoveAll(w.mffDir); err != nil {
			return "", fmt.Errorf("removing existing directory %q: %w: %v", w.mffDir, errs.ErrIoError, err)
		}
	}
	if err := os.Mkdir(w.mffDir, 0o755); err != nil {
		return "", fmt.Errorf("creating directory %q: %w: %v", w.mffDir, errs.ErrIoError, err)
	}
	w.fileCreated = true
	return w.mffDir, nil
}

// StreamingBinPath returns the path a streaming binwriter.Writer for
// filename should be constructed against, creating the recording
// directory first if necessary.
func (w *Writer) StreamingBinPath(filename string) (string, error) {
	dir, err := w.CreateDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filename), nil
}

// AddXML registers an XML document under filename, defaulting to the
// document kind's own DefaultFilename, matching Writer.addxml.
func (w *Writer) AddXML(filename string, doc xmldoc.Document) {
	if filename == "" {
		filename = doc.DefaultFilename()
	}
	w.documents = append(w.documents, namedDocument{filename: filename, doc: doc})
}

// AddBin registers bw as the next signal<N>.bin stream, matching
// Writer.addbin: it checks (filename, DataType) compatibility, derives
// the conventional info<N>.xml companion document, and additionally
// registers epochs.xml the first time a bin stream is added (EGI
// software expects exactly one epochs.xml, describing the first
// stream's epoch boundaries).
func (w *Writer) AddBin(bw *binwriter.Writer, filename string) error {
	n := len(w.bins) + 1
	if filename == "" {
		filename = fmt.Sprintf("signal%d.bin", n)
	}
	if err := bw.CheckCompatibility(filename); err != nil {
		return err
	}

	w.bins = append(w.bins, namedBin{filename: filename, writer: bw})

	infoName := fmt.Sprintf("info%d.xml", n)
	w.AddXML(infoName, &xmldoc.DataInfo{ChannelType: bw.DataType()})

	if n == 1 {
		w.AddXML("epochs.xml", &xmldoc.Epochs{Epochs: bw.Epochs()})
	}
	return nil
}

// AddCoordinatesAndSensorLayout fetches device's coordinates.xml/
// sensorLayout.xml content from provider and registers both documents,
// matching Writer.add_coordinates_and_sensor_layout.
func (w *Writer) AddCoordinatesAndSensorLayout(device string, provider DeviceResourceProvider) error {
	coordBytes, layoutBytes, err := provider.CoordinatesAndSensorLayout(device)
	if err != nil {
		return fmt.Errorf("fetching device resources for %q: %w", device, err)
	}

	coordDoc, err := xmldoc.Parse(bytes.NewReader(coordBytes))
	if err != nil {
		return fmt.Errorf("parsing coordinates resource for %q: %w", device, err)
	}
	layoutDoc, err := xmldoc.Parse(bytes.NewReader(layoutBytes))
	if err != nil {
		return fmt.Errorf("parsing sensorLayout resource for %q: %w", device, err)
	}

	w.AddXML("coordinates.xml", coordDoc)
	w.AddXML("sensorLayout.xml", layoutDoc)
	return nil
}

// Write serializes every registered document and bin stream. A .mff
// target gets one file per document/stream inside the recording
// directory; a .mfz target is packed directly into a flat, store-mode
// ZIP archive without ever touching a loose .mff directory on disk.
// Every file write goes through renameio so a crash mid-Write cannot
// leave a half-written member at its final path.
func (w *Writer) Write() error {
	switch w.ext {
	case ".mfz":
		return w.writeArchive()
	default:
		return w.writeDirectory()
	}
}

func (w *Writer) writeDirectory() error {
	if _, err := w.CreateDirectory(); err != nil {
		return err
	}

	for _, nd := range w.documents {
		var buf bytes.Buffer
		if err := xmldoc.Encode(&buf, nd.doc); err != nil {
			return fmt.Errorf("encoding %q: %w", nd.filename, err)
		}
		if err := writeIfChanged(filepath.Join(w.mffDir, nd.filename), buf.Bytes()); err != nil {
			return err
		}
	}

	for _, nb := range w.bins {
		data, err := nb.writer.Bytes()
		if err == nil {
			if err := writeIfChanged(filepath.Join(w.mffDir, nb.filename), data); err != nil {
				return err
			}
		}
		// A streaming writer has already written its bytes straight to
		// its target file as blocks were added; Bytes() errors for it,
		// and there is nothing left to do here but finalize it.
		if err := nb.writer.Finalize(); err != nil {
			return fmt.Errorf("finalizing %q: %w", nb.filename, err)
		}
	}
	return nil
}

func (w *Writer) writeArchive() error {
	var entries []container.ArchiveEntry

	for _, nd := range w.documents {
		var buf bytes.Buffer
		if err := xmldoc.Encode(&buf, nd.doc); err != nil {
			return fmt.Errorf("encoding %q: %w", nd.filename, err)
		}
		entries = append(entries, container.ArchiveEntry{Name: nd.filename, Data: buf.Bytes()})
	}

	for _, nb := range w.bins {
		data, err := nb.writer.Bytes()
		if err != nil {
			return fmt.Errorf("packing %q into archive: %w", nb.filename, err)
		}
		entries = append(entries, container.ArchiveEntry{Name: nb.filename, Data: data})
		if err := nb.writer.Finalize(); err != nil {
			return fmt.Errorf("finalizing %q: %w", nb.filename, err)
		}
	}

	var archiveBuf bytes.Buffer
	if err := container.WriteArchive(&archiveBuf, entries); err != nil {
		return fmt.Errorf("packing archive: %w", err)
	}

	if err := renameio.WriteFile(w.filename, archiveBuf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing archive %q: %w: %v", w.filename, errs.ErrIoError, err)
	}
	return nil
}

// writeIfChanged skips the atomic rewrite when path already holds
// exactly this content, comparing the digest.Sum64 of the on-disk bytes
// (read whole into memory) with that of data.
func writeIfChanged(path string, data []byte) error {
	if existing, err := os.ReadFile(path); err == nil {
		if digest.Sum64(existing) == digest.Sum64(data) {
			return nil
		}
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %q: %w: %v", path, errs.ErrIoError, err)
	}
	return nil
}

// ExportToJSON writes data as indented JSON to the Writer's target
// filename (which must have been constructed with a .json extension),
// matching Writer.export_to_json.
func (w *Writer) ExportToJSON(data any) error {
	if w.ext != ".json" {
		return fmt.Errorf("ExportToJSON requires a .json target, got %q: %w", w.ext, errs.ErrInvalidArgument)
	}
	buf, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return fmt.Errorf("marshaling json: %w", err)
	}
	if err := renameio.WriteFile(w.filename, buf, 0o644); err != nil {
		return fmt.Errorf("writing %q: %w: %v", w.filename, errs.ErrIoError, err)
	}
	return nil
}
