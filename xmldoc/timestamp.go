package xmldoc

import (
	"fmt"
	"strings"
	"time"

	"github.com/BEL-Public/mffpy/errs"
)

// timeLayout matches the original's "%Y-%m-%dT%H:%M:%S.%f%z", with the
// timezone's colon written explicitly ("-08:00" rather than "-0800").
const timeLayout = "2006-01-02T15:04:05.000000-07:00"

// timeLayoutNoColon is the same layout without the timezone colon,
// accepted on read because some producers omit it.
const timeLayoutNoColon = "2006-01-02T15:04:05.000000-0700"

// parseTime parses a recordTime/acqTime/beginTime timestamp, accepting
// the timezone offset with or without a colon, matching
// XML._parse_time_str's "strip one colon if there are three" trick.
func parseTime(txt string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, txt); err == nil {
		return t, nil
	}
	if t, err := time.Parse(timeLayoutNoColon, txt); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", txt, errs.ErrInvalidFormat)
}

// formatTime renders t using the mandatory-colon layout .mff documents
// are written with, matching XML._dump_datetime. t must carry a
// non-UTC-unaware location (a zero/UTC location is still valid; the
// original only requires tzinfo be set at all).
func formatTime(t time.Time) string {
	s := t.Format(timeLayout)
	return s
}

// hasColonOffset reports whether a formatted timestamp's timezone
// segment already contains a colon, as the mandatory-colon write
// format produces. Nothing in the package calls it.
func hasColonOffset(s string) bool {
	idx := strings.LastIndexAny(s, "+-")
	if idx < 0 {
		return false
	}
	return strings.Contains(s[idx:], ":")
}
