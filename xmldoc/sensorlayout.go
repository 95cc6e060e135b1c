package xmldoc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BEL-Public/mffpy/errs"
)

const sensorLayoutNamespace = "http://www.egi.com/sensorLayout_mff"

// Sensor is one electrode's position and identity, shared by
// sensorLayout.xml and coordinates.xml.
type Sensor struct {
	Name           string
	Number         int
	Type           int
	Identifier     int
	X, Y, Z        float32
	OriginalNumber int
	HasOriginal    bool
}

// SensorLayout is a sensorLayout.xml document: the electrode net's name,
// its sensor positions, and the thread/tiling/neighbor topology used to
// render it.
type SensorLayout struct {
	Name       string
	Sensors    map[int]Sensor
	Threads    [][]int
	TilingSets [][]int
	Neighbors  map[int][]int
}

func newSensorLayout() Document { return &SensorLayout{} }

func init() { register(sensorLayoutNamespace, "sensorLayout", newSensorLayout) }

func (*SensorLayout) Namespace() string       { return sensorLayoutNamespace }
func (*SensorLayout) RootTag() string         { return "sensorLayout" }
func (*SensorLayout) DefaultFilename() string { return "sensorLayout.xml" }

func (s *SensorLayout) ParseElement(root *Element) error {
	s.Name = "UNK"
	if el := root.Find("name"); el != nil {
		s.Name = el.Text
	}

	sensorsEl := root.Find("sensors")
	if sensorsEl == nil {
		return fmt.Errorf("sensorLayout missing sensors: %w", errs.ErrInvalidFormat)
	}
	sensors, err := parseSensors(sensorsEl)
	if err != nil {
		return err
	}
	s.Sensors = sensors

	if threadsEl := root.Find("threads"); threadsEl != nil {
		for _, thread := range threadsEl.FindAll("thread") {
			nums, err := splitInts(thread.Text, ",")
			if err != nil {
				return err
			}
			s.Threads = append(s.Threads, nums)
		}
	}

	if tilingEl := root.Find("tilingSets"); tilingEl != nil {
		for _, ts := range tilingEl.FindAll("tilingSet") {
			nums, err := splitInts(ts.Text, " ")
			if err != nil {
				return err
			}
			s.TilingSets = append(s.TilingSets, nums)
		}
	}

	if neighborsEl := root.Find("neighbors"); neighborsEl != nil {
		s.Neighbors = make(map[int][]int)
		for _, ch := range neighborsEl.FindAll("ch") {
			n, err := strconv.Atoi(ch.Attr("n"))
			if err != nil {
				return fmt.Errorf("neighbors channel attribute %q: %w", ch.Attr("n"), errs.ErrInvalidFormat)
			}
			nums, err := splitInts(ch.Text, " ")
			if err != nil {
				return err
			}
			s.Neighbors[n] = nums
		}
	}

	return nil
}

// parseSensors parses the shared <sensors><sensor>...</sensor></sensors>
// block used by both sensorLayout.xml and coordinates.xml's nested
// sensorLayout.
func parseSensors(sensorsEl *Element) (map[int]Sensor, error) {
	out := make(map[int]Sensor)
	for _, el := range sensorsEl.FindAll("sensor") {
		sensor, err := parseSensor(el)
		if err != nil {
			return nil, err
		}
		out[sensor.Number] = sensor
	}
	return out, nil
}

func parseSensor(el *Element) (Sensor, error) {
	var s Sensor
	for _, field := range el.Children {
		var err error
		switch field.Local {
		case "name":
			s.Name = field.Text
		case "number":
			s.Number, err = strconv.Atoi(field.Text)
		case "type":
			s.Type, err = strconv.Atoi(field.Text)
		case "identifier":
			s.Identifier, err = strconv.Atoi(field.Text)
		case "x":
			s.X, err = parseFloat32(field.Text)
		case "y":
			s.Y, err = parseFloat32(field.Text)
		case "z":
			s.Z, err = parseFloat32(field.Text)
		case "originalNumber":
			s.OriginalNumber, err = strconv.Atoi(field.Text)
			s.HasOriginal = true
		default:
			continue
		}
		if err != nil {
			return Sensor{}, fmt.Errorf("sensor field %q value %q: %w", field.Local, field.Text, errs.ErrInvalidFormat)
		}
	}
	return s, nil
}

func parseFloat32(s string) (float32, error) {
	v, err := strconv.ParseFloat(s, 32)
	return float32(v), err
}

func (s *SensorLayout) BuildElement() *Element {
	root := NewElement("sensorLayout", NewText("name", s.Name), buildSensorsElement(s.Sensors))

	if len(s.Threads) > 0 {
		threadsEl := NewElement("threads")
		for _, t := range s.Threads {
			threadsEl.Children = append(threadsEl.Children, NewText("thread", joinInts(t, ",")))
		}
		root.Children = append(root.Children, threadsEl)
	}
	if len(s.TilingSets) > 0 {
		tilingEl := NewElement("tilingSets")
		for _, ts := range s.TilingSets {
			tilingEl.Children = append(tilingEl.Children, NewText("tilingSet", joinInts(ts, " ")))
		}
		root.Children = append(root.Children, tilingEl)
	}
	if len(s.Neighbors) > 0 {
		neighborsEl := NewElement("neighbors")
		for _, n := range sortedIntKeys(s.Neighbors) {
			chEl := NewText("ch", joinInts(s.Neighbors[n], " "))
			chEl.Attrs = map[string]string{"n": strconv.Itoa(n)}
			neighborsEl.Children = append(neighborsEl.Children, chEl)
		}
		root.Children = append(root.Children, neighborsEl)
	}
	return root
}

// buildSensorsElement renders the shared <sensors> block used by both
// sensorLayout.xml and coordinates.xml's nested sensorLayout.
func buildSensorsElement(sensors map[int]Sensor) *Element {
	sensorsEl := NewElement("sensors")
	for _, n := range sortedIntKeys(sensors) {
		sensorsEl.Children = append(sensorsEl.Children, buildSensorElement(sensors[n]))
	}
	return sensorsEl
}

func buildSensorElement(s Sensor) *Element {
	el := NewElement("sensor",
		NewText("name", s.Name),
		NewText("number", strconv.Itoa(s.Number)),
		NewText("type", strconv.Itoa(s.Type)),
		NewText("identifier", strconv.Itoa(s.Identifier)),
		NewText("x", formatFloat(float64(s.X))),
		NewText("y", formatFloat(float64(s.Y))),
		NewText("z", formatFloat(float64(s.Z))),
	)
	if s.HasOriginal {
		el.Children = append(el.Children, NewText("originalNumber", strconv.Itoa(s.OriginalNumber)))
	}
	return el
}

func splitInts(text, sep string) ([]int, error) {
	fields := strings.Split(strings.TrimSpace(text), sep)
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("integer list entry %q: %w", f, errs.ErrInvalidFormat)
		}
		out = append(out, n)
	}
	return out, nil
}
