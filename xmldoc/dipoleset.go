package xmldoc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BEL-Public/mffpy/errs"
)

const dipoleSetNamespace = "http://www.egi.com/dipoleSet_mff"

// Dipole is one source dipole's computed location and orientation, one
// entry of dipoleSet.xml's <dipoles>.
type Dipole struct {
	ComputationCoordinate   [3]float32
	VisualizationCoordinate [3]float32
	OrientationVector       [3]float32
}

// DipoleSet is a dipoleSet.xml document: a named set of fitted source
// dipoles, each carrying two coordinate frames and an orientation.
type DipoleSet struct {
	Name    string
	Type    string
	Dipoles []Dipole
}

func newDipoleSet() Document { return &DipoleSet{} }

func init() { register(dipoleSetNamespace, "dipoleSet", newDipoleSet) }

func (*DipoleSet) Namespace() string       { return dipoleSetNamespace }
func (*DipoleSet) RootTag() string         { return "dipoleSet" }
func (*DipoleSet) DefaultFilename() string { return "dipoleSet.xml" }

func (d *DipoleSet) ParseElement(root *Element) error {
	if el := root.Find("name"); el != nil {
		d.Name = el.Text
	}
	if el := root.Find("type"); el != nil {
		d.Type = el.Text
	}

	dipolesEl := root.Find("dipoles")
	if dipolesEl == nil {
		return fmt.Errorf("dipoleSet missing dipoles: %w", errs.ErrInvalidFormat)
	}

	for _, dipEl := range dipolesEl.FindAll("dipole") {
		dip, err := parseDipole(dipEl)
		if err != nil {
			return err
		}
		d.Dipoles = append(d.Dipoles, dip)
	}
	return nil
}

func parseDipole(el *Element) (Dipole, error) {
	var d Dipole

	computation := el.Find("computationCoordinate")
	visualization := el.Find("visualizationCoordinate")
	orientation := el.Find("orientationVector")
	if computation == nil || visualization == nil || orientation == nil {
		return Dipole{}, fmt.Errorf("malformed dipole entry: %w", errs.ErrInvalidFormat)
	}

	var err error
	if d.ComputationCoordinate, err = parseVec3(computation.Text); err != nil {
		return Dipole{}, err
	}
	if d.VisualizationCoordinate, err = parseVec3(visualization.Text); err != nil {
		return Dipole{}, err
	}
	if d.OrientationVector, err = parseVec3(orientation.Text); err != nil {
		return Dipole{}, err
	}
	return d, nil
}

func (d *DipoleSet) BuildElement() *Element {
	dipolesEl := NewElement("dipoles")
	for _, dip := range d.Dipoles {
		dipolesEl.Children = append(dipolesEl.Children, NewElement("dipole",
			NewText("computationCoordinate", formatVec3(dip.ComputationCoordinate)),
			NewText("visualizationCoordinate", formatVec3(dip.VisualizationCoordinate)),
			NewText("orientationVector", formatVec3(dip.OrientationVector)),
		))
	}
	return NewElement("dipoleSet", NewText("name", d.Name), NewText("type", d.Type), dipolesEl)
}

func formatVec3(v [3]float32) string {
	parts := make([]string, 3)
	for i, c := range v {
		parts[i] = formatFloat(float64(c))
	}
	return strings.Join(parts, ",")
}

func parseVec3(text string) ([3]float32, error) {
	var v [3]float32
	fields := strings.Split(strings.TrimSpace(text), ",")
	if len(fields) != 3 {
		return v, fmt.Errorf("coordinate %q does not have 3 components: %w", text, errs.ErrInvalidFormat)
	}
	for i, f := range fields {
		n, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return v, fmt.Errorf("coordinate component %q: %w", f, errs.ErrInvalidFormat)
		}
		v[i] = float32(n)
	}
	return v, nil
}
