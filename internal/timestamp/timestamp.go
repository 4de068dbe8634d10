// Package timestamp reduces repository timestamps to calendar dates.
//
// Artifactory timestamps look like 2020-01-01T10:11:12.345-05:00. The UTC
// offset is cut off and ignored, so the date is the server's local calendar
// day. Retention decisions depend on that day boundary staying stable.
package timestamp

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrMalformed is returned when a string has no recognizable date.
var ErrMalformed = errors.New("malformed timestamp")

// Format selects the accepted input layout.
type Format string

const (
	// FormatArtifactory is the storage API layout with an offset suffix.
	FormatArtifactory Format = "artifactory"
	// FormatOS is the ctime-style layout, e.g. "Mon Jan  2 15:04:05 2006".
	FormatOS Format = "os"
)

const (
	artifactoryLayout = "2006-01-02T15:04:05.999999999"
	osLayout          = "Mon Jan 2 15:04:05 2006"
)

// offsetSuffix matches the trailing zone designator.
var offsetSuffix = regexp.MustCompile(`(?:[-+]\d{2,}:\d{2,}|Z)$`)

// Date is a calendar day with no time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in its own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// DaysSince returns the whole days from earlier to d.
func (d Date) DaysSince(earlier Date) int {
	return int(d.Time().Sub(earlier.Time()).Hours() / 24)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Normalizer parses timestamps of one Format.
type Normalizer struct {
	format Format
}

// New creates a Normalizer. An empty format means FormatArtifactory.
func New(format Format) *Normalizer {
	if format == "" {
		format = FormatArtifactory
	}
	return &Normalizer{format: format}
}

// Format returns the layout family the normalizer accepts.
func (n *Normalizer) Format() Format {
	return n.format
}

// Normalize converts raw into a Date. Errors wrap ErrMalformed.
func (n *Normalizer) Normalize(raw string) (Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Date{}, fmt.Errorf("%w: empty", ErrMalformed)
	}

	var (
		t   time.Time
		err error
	)
	switch n.format {
	case FormatOS:
		t, err = time.Parse(osLayout, strings.Join(strings.Fields(raw), " "))
	default:
		local := offsetSuffix.ReplaceAllString(raw, "")
		t, err = time.Parse(artifactoryLayout, local)
	}
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}

	return DateOf(t), nil
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatArtifactory, FormatOS:
		return Format(s), nil
	case "":
		return FormatArtifactory, nil
	default:
		return "", fmt.Errorf("unknown timestamp format %q", s)
	}
}
