package xmldoc

import (
	"fmt"
	"time"

	"github.com/BEL-Public/mffpy/errs"
)

const coordinatesNamespace = "http://www.egi.com/coordinates_mff"

// Coordinates is a coordinates.xml document: a digitized sensor-position
// capture, distinct from sensorLayout.xml's nominal net geometry.
type Coordinates struct {
	AcqTime        time.Time
	AcqMethod      string
	Name           string
	DefaultSubject bool
	Sensors        map[int]Sensor
}

func newCoordinates() Document { return &Coordinates{} }

func init() { register(coordinatesNamespace, "coordinates", newCoordinates) }

func (*Coordinates) Namespace() string       { return coordinatesNamespace }
func (*Coordinates) RootTag() string         { return "coordinates" }
func (*Coordinates) DefaultFilename() string { return "coordinates.xml" }

func (c *Coordinates) ParseElement(root *Element) error {
	if el := root.Find("acqTime"); el != nil {
		t, err := parseTime(el.Text)
		if err != nil {
			return err
		}
		c.AcqTime = t
	}
	if el := root.Find("acqMethod"); el != nil {
		c.AcqMethod = el.Text
	}
	if el := root.Find("defaultSubject"); el != nil {
		c.DefaultSubject = el.Text == "true" || el.Text == "1"
	}

	layoutEl := root.Find("sensorLayout")
	if layoutEl == nil {
		return fmt.Errorf("coordinates missing sensorLayout: %w", errs.ErrInvalidFormat)
	}
	if nameEl := layoutEl.Find("name"); nameEl != nil {
		c.Name = nameEl.Text
	}
	sensorsEl := layoutEl.Find("sensors")
	if sensorsEl == nil {
		return fmt.Errorf("coordinates sensorLayout missing sensors: %w", errs.ErrInvalidFormat)
	}
	sensors, err := parseSensors(sensorsEl)
	if err != nil {
		return err
	}
	c.Sensors = sensors

	return nil
}

func (c *Coordinates) BuildElement() *Element {
	layout := NewElement("sensorLayout", NewText("name", c.Name), buildSensorsElement(c.Sensors))

	children := []*Element{}
	if !c.AcqTime.IsZero() {
		children = append(children, NewText("acqTime", formatTime(c.AcqTime)))
	}
	if c.AcqMethod != "" {
		children = append(children, NewText("acqMethod", c.AcqMethod))
	}
	defaultSubject := "false"
	if c.DefaultSubject {
		defaultSubject = "true"
	}
	children = append(children, NewText("defaultSubject", defaultSubject), layout)

	return NewElement("coordinates", children...)
}
