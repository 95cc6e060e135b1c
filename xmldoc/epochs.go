package xmldoc

import (
	"fmt"
	"strconv"

	"github.com/BEL-Public/mffpy/epoch"
	"github.com/BEL-Public/mffpy/errs"
)

const epochsNamespace = "http://www.egi.com/epoch_mff"

// Epochs is an epochs.xml document: the list of recording epochs, each
// a contiguous run of blocks with its own begin/end time.
type Epochs struct {
	Epochs []*epoch.Epoch
}

func newEpochs() Document { return &Epochs{} }

func init() { register(epochsNamespace, "epochs", newEpochs) }

func (*Epochs) Namespace() string       { return epochsNamespace }
func (*Epochs) RootTag() string         { return "epochs" }
func (*Epochs) DefaultFilename() string { return "epochs.xml" }

func (e *Epochs) ParseElement(root *Element) error {
	for _, el := range root.FindAll("epoch") {
		beginTime, err := parseEpochField(el, "beginTime")
		if err != nil {
			return err
		}
		endTime, err := parseEpochField(el, "endTime")
		if err != nil {
			return err
		}
		firstBlock, err := parseEpochField(el, "firstBlock")
		if err != nil {
			return err
		}
		lastBlock, err := parseEpochField(el, "lastBlock")
		if err != nil {
			return err
		}
		e.Epochs = append(e.Epochs, epoch.New(beginTime, endTime, int(firstBlock), int(lastBlock)))
	}
	return nil
}

func (e *Epochs) BuildElement() *Element {
	root := NewElement("epochs")
	for _, ep := range e.Epochs {
		root.Children = append(root.Children, NewElement("epoch",
			NewText("beginTime", strconv.FormatInt(ep.BeginTime, 10)),
			NewText("endTime", strconv.FormatInt(ep.EndTime, 10)),
			NewText("firstBlock", strconv.Itoa(ep.FirstBlock)),
			NewText("lastBlock", strconv.Itoa(ep.LastBlock)),
		))
	}
	return root
}

func parseEpochField(el *Element, tag string) (int64, error) {
	field := el.Find(tag)
	if field == nil {
		return 0, fmt.Errorf("epoch missing %s: %w", tag, errs.ErrInvalidFormat)
	}
	n, err := strconv.ParseInt(field.Text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("epoch %s %q: %w", tag, field.Text, errs.ErrInvalidFormat)
	}
	return n, nil
}
