package xmldoc

import (
	"fmt"
	"time"

	"github.com/BEL-Public/mffpy/errs"
)

const fileInfoNamespace = "http://www.egi.com/info_mff"

// FileInfo is the top-level info.xml document: the .mff schema version
// and the recording's wall-clock start time.
type FileInfo struct {
	Version    string
	RecordTime time.Time
}

func newFileInfo() Document { return &FileInfo{} }

func init() { register(fileInfoNamespace, "fileInfo", newFileInfo) }

func (*FileInfo) Namespace() string        { return fileInfoNamespace }
func (*FileInfo) RootTag() string          { return "fileInfo" }
func (*FileInfo) DefaultFilename() string  { return "info.xml" }

func (f *FileInfo) ParseElement(root *Element) error {
	if el := root.Find("mffVersion"); el != nil {
		f.Version = el.Text
	}
	if el := root.Find("recordTime"); el != nil {
		t, err := parseTime(el.Text)
		if err != nil {
			return err
		}
		f.RecordTime = t
	} else {
		return fmt.Errorf("fileInfo missing recordTime: %w", errs.ErrInvalidFormat)
	}
	return nil
}

func (f *FileInfo) BuildElement() *Element {
	return NewElement("fileInfo",
		NewText("mffVersion", f.Version),
		NewText("recordTime", formatTime(f.RecordTime)),
	)
}
