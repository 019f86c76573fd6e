package ledger

import (
	"fmt"
	"time"
)

// =============================================================================
// SERVICE DAY - Canonical calendar key (the uniqueness partition)
// =============================================================================

// ServiceDayLayout is the ISO date format. Lexical order equals chronological order.
const ServiceDayLayout = "2006-01-02"

// ServiceDay is a date-only key such as "2025-03-10".
type ServiceDay string

// ParseServiceDay validates and canonicalizes a YYYY-MM-DD string.
func ParseServiceDay(s string) (ServiceDay, error) {
	t, err := time.Parse(ServiceDayLayout, s)
	if err != nil {
		return "", &ValidationError{Field: "service_day", Value: s, Reason: "must be YYYY-MM-DD"}
	}
	return ServiceDay(t.Format(ServiceDayLayout)), nil
}

func (d ServiceDay) String() string { return string(d) }

// =============================================================================
// CALENDAR - Fixed time-zone policy chosen at deployment
// =============================================================================

// Calendar derives service days using one location for every caller.
// Client-local time is never consulted. The zero value uses UTC.
type Calendar struct {
	loc *time.Location
}

func NewCalendar(loc *time.Location) Calendar {
	return Calendar{loc: loc}
}

// UTCCalendar matches the date part of an ISO-8601 UTC timestamp.
func UTCCalendar() Calendar { return Calendar{loc: time.UTC} }

// LoadCalendar resolves an IANA zone name such as "Asia/Kolkata".
func LoadCalendar(name string) (Calendar, error) {
	if name == "" {
		return UTCCalendar(), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Calendar{}, fmt.Errorf("load service timezone %q: %w", name, err)
	}
	return Calendar{loc: loc}, nil
}

func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Day returns the service day containing t.
func (c Calendar) Day(t time.Time) ServiceDay {
	return ServiceDay(t.In(c.Location()).Format(ServiceDayLayout))
}

// DayOfMillis returns the service day containing the epoch-millisecond instant.
func (c Calendar) DayOfMillis(ms int64) ServiceDay {
	return c.Day(time.UnixMilli(ms))
}
