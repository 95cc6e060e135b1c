package xmldoc

import (
	"fmt"

	"github.com/BEL-Public/mffpy/errs"
)

const subjectNamespace = "http://www.egi.com/subject_mff"

// Subject is a subject.xml document: an open bag of named, typed fields
// describing the recorded subject (e.g. handedness, age), matching
// Patient.
type Subject struct {
	Fields map[string]TypedValue
}

func newSubject() Document { return &Subject{} }

func init() { register(subjectNamespace, "patient", newSubject) }

func (*Subject) Namespace() string       { return subjectNamespace }
func (*Subject) RootTag() string         { return "patient" }
func (*Subject) DefaultFilename() string { return "subject.xml" }

func (s *Subject) ParseElement(root *Element) error {
	fieldsEl := root.Find("fields")
	if fieldsEl == nil {
		return fmt.Errorf("subject document missing fields: %w", errs.ErrInvalidFormat)
	}

	fields := make(map[string]TypedValue)
	for _, field := range fieldsEl.FindAll("field") {
		nameEl := field.Find("name")
		dataEl := field.Find("data")
		if nameEl == nil || dataEl == nil {
			return fmt.Errorf("malformed subject field entry: %w", errs.ErrInvalidFormat)
		}
		fields[nameEl.Text] = parseTypedValue(dataEl)
	}

	s.Fields = fields
	return nil
}

func (s *Subject) BuildElement() *Element {
	fieldsEl := NewElement("fields")
	for _, name := range sortedKeys(s.Fields) {
		v := s.Fields[name]
		dataEl := NewText("data", v.Text)
		dataEl.Attrs = map[string]string{"dataType": v.DataType}
		fieldsEl.Children = append(fieldsEl.Children, NewElement("field",
			NewText("name", name),
			dataEl,
		))
	}
	return NewElement("patient", fieldsEl)
}
