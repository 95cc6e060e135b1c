package xmldoc

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/BEL-Public/mffpy/errs"
)

// Element is a minimal, namespace-resolved DOM node built from one XML
// document. Unprefixed child elements all inherit the default namespace
// declared on an ancestor (exactly as Python's ElementTree resolves
// `xmlns="..."`), so matching by Local name alone is enough once the
// document's own root namespace has been checked.
type Element struct {
	Space    string
	Local    string
	Attrs    map[string]string
	Text     string
	Children []*Element
}

// Find returns the first direct child named tag, or nil.
func (e *Element) Find(tag string) *Element {
	for _, c := range e.Children {
		if c.Local == tag {
			return c
		}
	}
	return nil
}

// FindAll returns every direct child named tag.
func (e *Element) FindAll(tag string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Local == tag {
			out = append(out, c)
		}
	}
	return out
}

// Attr returns the named attribute's value, or "" if absent.
func (e *Element) Attr(name string) string {
	return e.Attrs[name]
}

// parseTree reads r as an XML document and builds an Element tree for
// its root, resolving namespaces the way encoding/xml already does for
// every token.
func parseTree(r io.Reader) (*Element, error) {
	dec := xml.NewDecoder(r)

	var stack []*Element
	var root *Element

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing xml: %w: %v", errs.ErrInvalidFormat, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{
				Space: t.Name.Space,
				Local: t.Name.Local,
				Attrs: make(map[string]string, len(t.Attr)),
			}
			for _, a := range t.Attr {
				el.Attrs[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)
		case xml.CharData:
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				top.Text += string(t)
			}
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unbalanced xml document: %w", errs.ErrInvalidFormat)
			}
			top := stack[len(stack)-1]
			top.Text = strings.TrimSpace(top.Text)
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				root = top
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("empty xml document: %w", errs.ErrInvalidFormat)
	}
	return root, nil
}
