// Package xmldoc implements typed parsers and emitters for the ten XML
// document kinds an .mff/.mfz recording can carry: file-info, data-info,
// subject, sensor-layout, coordinates, epochs, event-track, categories,
// dipole-set, and history. Each kind is dispatched on its XML namespace
// plus root tag, mirroring the original XMLType metaclass registry with
// a plain init()-populated map instead.
package xmldoc

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/BEL-Public/mffpy/errs"
)

// Document is one parsed .mff metadata file.
type Document interface {
	// Namespace is the document kind's XML namespace URI, without the
	// "{" "}" wrapping ElementTree uses internally.
	Namespace() string
	// RootTag is the document kind's root element name.
	RootTag() string
	// DefaultFilename is the basename (with extension) this kind is
	// conventionally stored under.
	DefaultFilename() string
	// ParseElement populates the document from its already-parsed root
	// element.
	ParseElement(root *Element) error
	// BuildElement renders the document's current state as an Element
	// tree rooted at RootTag(), for Encode to serialize.
	BuildElement() *Element
}

// NewElement builds a leaf or container element, for use by each
// document kind's BuildElement implementation.
func NewElement(local string, children ...*Element) *Element {
	return &Element{Local: local, Children: children}
}

// NewText builds a leaf element carrying text content.
func NewText(local, text string) *Element {
	return &Element{Local: local, Text: text}
}

// Encode serializes d as a complete XML document, with the document's
// namespace written as a plain `xmlns="..."` attribute on the root
// element rather than relying on encoding/xml's automatic `ns0:`
// prefixing, matching `ET.register_namespace('', typ._xmlns[1:-1])` in
// writer.py.
func Encode(w io.Writer, d Document) error {
	root := d.BuildElement()
	if root.Attrs == nil {
		root.Attrs = make(map[string]string)
	}
	root.Attrs["xmlns"] = d.Namespace()

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("writing xml header: %w: %v", errs.ErrIoError, err)
	}

	enc := xml.NewEncoder(w)
	if err := writeElement(enc, root); err != nil {
		return err
	}
	return enc.Flush()
}

func writeElement(enc *xml.Encoder, el *Element) error {
	start := xml.StartElement{Name: xml.Name{Local: el.Local}}
	for k, v := range el.Attrs {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: k}, Value: v})
	}
	if err := enc.EncodeToken(start); err != nil {
		return fmt.Errorf("writing xml element %q: %w: %v", el.Local, errs.ErrIoError, err)
	}
	if el.Text != "" {
		if err := enc.EncodeToken(xml.CharData(el.Text)); err != nil {
			return fmt.Errorf("writing xml text for %q: %w: %v", el.Local, errs.ErrIoError, err)
		}
	}
	for _, child := range el.Children {
		if err := writeElement(enc, child); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(xml.EndElement{Name: start.Name}); err != nil {
		return fmt.Errorf("closing xml element %q: %w: %v", el.Local, errs.ErrIoError, err)
	}
	return nil
}

type registryEntry struct {
	namespace string
	rootTag   string
	new       func() Document
}

var registry = make(map[string]registryEntry) // keyed by namespace+roottag
var tagRegistry = make(map[string]func() Document) // keyed by roottag alone

// register adds a document kind to both registries, matching
// XMLType.register's dual `_registry`/`_tag_registry` bookkeeping.
func register(namespace, rootTag string, ctor func() Document) {
	registry[namespace+rootTag] = registryEntry{namespace: namespace, rootTag: rootTag, new: ctor}
	tagRegistry[rootTag] = ctor
}

// Parse reads r as an XML document and returns the typed Document whose
// namespace and root tag match, dispatching the way XMLType.from_file
// dispatches on `xml_root.tag`.
func Parse(r io.Reader) (Document, error) {
	root, err := parseTree(r)
	if err != nil {
		return nil, err
	}

	entry, ok := registry[root.Space+root.Local]
	if !ok {
		return nil, fmt.Errorf("unrecognized xml document <%s> in namespace %q: %w",
			root.Local, root.Space, errs.ErrInvalidFormat)
	}

	doc := entry.new()
	if err := doc.ParseElement(root); err != nil {
		return nil, err
	}
	return doc, nil
}

// NewByRootTag constructs an empty Document of the kind registered under
// rootTag alone, for callers that know which kind they want to build
// without parsing anything first.
func NewByRootTag(rootTag string) (Document, error) {
	ctor, ok := tagRegistry[rootTag]
	if !ok {
		return nil, fmt.Errorf("unknown document root tag %q: %w", rootTag, errs.ErrInvalidArgument)
	}
	return ctor(), nil
}
