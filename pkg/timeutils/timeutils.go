package timeutils

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

const (
	// DateTimeLayout es el formato usado en notificaciones ("02/01/2006 15:04")
	DateTimeLayout = "02/01/2006 15:04"
	ClockLayout    = "15:04"
)

// LoadLocation resolves an IANA zone name. Unknown or empty names fall back to UTC.
func LoadLocation(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logrus.WithError(err).Warnf("[TIME] Unknown timezone %q, using UTC", name)
		return time.UTC
	}
	return loc
}

// FormatDateTime prints t in loc, or "No date" for the zero time.
func FormatDateTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "No date"
	}
	return t.In(orUTC(loc)).Format(DateTimeLayout)
}

// FormatClock prints only the hour and minute of t in loc.
func FormatClock(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(orUTC(loc)).Format(ClockLayout)
}

// Relative describes t against now ("3 hours ago", "2 days from now").
func Relative(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	if d := t.Sub(now); d < time.Second && d > -time.Second {
		return "now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
