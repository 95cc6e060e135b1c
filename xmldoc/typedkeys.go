package xmldoc

import (
	"fmt"
	"strconv"

	"github.com/BEL-Public/mffpy/errs"
)

// TypedValue is one typed value out of a <data dataType="..."> element:
// Patient's <field>, EventTrack's <key> and Categories' segment <key>
// all use this same shape, just with different surrounding tags.
type TypedValue struct {
	DataType string
	Text     string
}

// String returns the value as a string regardless of DataType.
func (v TypedValue) String() string { return v.Text }

// Int returns the value parsed as a base-10 integer, erroring if Text
// does not parse as one. DataType is not consulted.
func (v TypedValue) Int() (int64, error) {
	n, err := strconv.ParseInt(v.Text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("typed value %q is not an integer: %w", v.Text, errs.ErrInvalidFormat)
	}
	return n, nil
}

// parseTypedValue reads a <data dataType="..."> (or <key>'s nested
// <data>) element into a TypedValue, defaulting DataType to "string"
// when the attribute is absent, matching Patient's
// `_type_converter[None] = lambda x: x`.
func parseTypedValue(dataEl *Element) TypedValue {
	dataType := dataEl.Attr("dataType")
	if dataType == "" {
		dataType = "string"
	}
	return TypedValue{DataType: dataType, Text: dataEl.Text}
}

// parseTypedKeys walks container, expecting each direct child to carry
// a `name`/`keyCode` child (nameTag) and a `data` child, and returns a
// map from that name/code to its TypedValue. This is the shape shared
// by Patient.fields (name/data) and EventTrack's per-event keys
// (keyCode/data).
func parseTypedKeys(container *Element, itemTag, nameTag string) (map[string]TypedValue, error) {
	out := make(map[string]TypedValue)
	for _, item := range container.FindAll(itemTag) {
		nameEl := item.Find(nameTag)
		dataEl := item.Find("data")
		if nameEl == nil || dataEl == nil {
			return nil, fmt.Errorf("malformed %s entry, missing %s or data: %w", itemTag, nameTag, errs.ErrInvalidFormat)
		}
		out[nameEl.Text] = parseTypedValue(dataEl)
	}
	return out, nil
}

// buildTypedKeys is parseTypedKeys' inverse: it renders a name/data map
// back into a <keys> (or <fields>-shaped) container element.
func buildTypedKeys(keys map[string]TypedValue, itemTag, nameTag string) *Element {
	container := NewElement(itemTag + "s")
	for _, name := range sortedKeys(keys) {
		v := keys[name]
		dataEl := NewText("data", v.Text)
		dataEl.Attrs = map[string]string{"dataType": v.DataType}
		container.Children = append(container.Children, NewElement(itemTag,
			NewText(nameTag, name),
			dataEl,
		))
	}
	return container
}
