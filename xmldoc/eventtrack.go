package xmldoc

import (
	"fmt"
	"strconv"
	"time"

	"github.com/BEL-Public/mffpy/errs"
)

const eventTrackNamespace = "http://www.egi.com/event_mff"

// Event is one logged event out of an EventTrack's <event> list.
type Event struct {
	BeginTime time.Time
	Duration  int64
	Code      string
	Label     string
	Description string
	SourceDevice string
	Keys      map[string]TypedValue
}

// EventTrack is an Events_*.xml document: a named track of timestamped
// events (e.g. stimulus markers, keypresses) recorded alongside the
// signal.
type EventTrack struct {
	Name      string
	TrackType string
	Events    []Event
}

func newEventTrack() Document { return &EventTrack{} }

func init() { register(eventTrackNamespace, "eventTrack", newEventTrack) }

func (*EventTrack) Namespace() string       { return eventTrackNamespace }
func (*EventTrack) RootTag() string         { return "eventTrack" }
func (*EventTrack) DefaultFilename() string { return "Events.xml" }

func (t *EventTrack) ParseElement(root *Element) error {
	if el := root.Find("name"); el != nil {
		t.Name = el.Text
	}
	if el := root.Find("trackType"); el != nil {
		t.TrackType = el.Text
	}

	for _, evEl := range root.FindAll("event") {
		ev, err := parseEvent(evEl)
		if err != nil {
			return err
		}
		t.Events = append(t.Events, ev)
	}
	return nil
}

func parseEvent(el *Element) (Event, error) {
	var ev Event

	beginTimeEl := el.Find("beginTime")
	if beginTimeEl == nil {
		return Event{}, fmt.Errorf("event missing beginTime: %w", errs.ErrInvalidFormat)
	}
	t, err := parseTime(beginTimeEl.Text)
	if err != nil {
		return Event{}, err
	}
	ev.BeginTime = t

	if el2 := el.Find("duration"); el2 != nil {
		n, err := strconv.ParseInt(el2.Text, 10, 64)
		if err != nil {
			return Event{}, fmt.Errorf("event duration %q: %w", el2.Text, errs.ErrInvalidFormat)
		}
		ev.Duration = n
	}
	if el2 := el.Find("code"); el2 != nil {
		ev.Code = el2.Text
	}
	if el2 := el.Find("label"); el2 != nil {
		ev.Label = el2.Text
	}
	if el2 := el.Find("description"); el2 != nil {
		ev.Description = el2.Text
	}
	if el2 := el.Find("sourceDevice"); el2 != nil {
		ev.SourceDevice = el2.Text
	}

	if keysEl := el.Find("keys"); keysEl != nil {
		keys, err := parseTypedKeys(keysEl, "key", "keyCode")
		if err != nil {
			return Event{}, err
		}
		ev.Keys = keys
	}

	return ev, nil
}

func (t *EventTrack) BuildElement() *Element {
	root := NewElement("eventTrack", NewText("name", t.Name), NewText("trackType", t.TrackType))
	for _, ev := range t.Events {
		root.Children = append(root.Children, buildEventElement(ev))
	}
	return root
}

func buildEventElement(ev Event) *Element {
	el := NewElement("event",
		NewText("beginTime", formatTime(ev.BeginTime)),
		NewText("duration", strconv.FormatInt(ev.Duration, 10)),
		NewText("code", ev.Code),
		NewText("label", ev.Label),
		NewText("description", ev.Description),
		NewText("sourceDevice", ev.SourceDevice),
	)
	if len(ev.Keys) > 0 {
		el.Children = append(el.Children, buildTypedKeys(ev.Keys, "key", "keyCode"))
	}
	return el
}
