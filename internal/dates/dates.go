// Package dates computes business dates in a fixed timezone.
//
// Every date used as a request parameter or compared for equality goes through
// the same Calendar so that "today" never depends on the host's local zone.
package dates

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

const (
	// APILayout is the YYYY-MM-DD form used in backend query strings.
	APILayout = "2006-01-02"
	// DisplayLayout is the human-readable label form, e.g. "Jan 15, 2025".
	DisplayLayout = "Jan 02, 2006"
	// DefaultTimezone is the business timezone.
	DefaultTimezone = "Asia/Kolkata"
	// DefaultWindow is the number of dates in the fallback window, today included.
	DefaultWindow = 7
)

// Calendar answers date questions in a business timezone.
type Calendar struct {
	loc    *time.Location
	now    func() time.Time
	window int
}

// NewCalendar returns a Calendar for the named IANA zone (DefaultTimezone when empty).
func NewCalendar(timezone string) (*Calendar, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", timezone, err)
	}
	return &Calendar{loc: loc, now: time.Now, window: DefaultWindow}, nil
}

// WithClock returns a copy of c that reads the current instant from now.
func (c *Calendar) WithClock(now func() time.Time) *Calendar {
	out := *c
	out.now = now
	return &out
}

// WithWindow returns a copy of c whose fallback window holds n dates (n >= 1).
func (c *Calendar) WithWindow(n int) *Calendar {
	out := *c
	if n >= 1 {
		out.window = n
	}
	return &out
}

// Location returns the business timezone.
func (c *Calendar) Location() *time.Location { return c.loc }

// Now returns the current instant in the business timezone.
func (c *Calendar) Now() time.Time { return c.now().In(c.loc) }

// Today returns the current business date as YYYY-MM-DD.
func (c *Calendar) Today() string {
	return c.FormatAPIDate(c.now())
}

// IsToday reports whether d denotes the current business date.
func (c *Calendar) IsToday(d string) bool {
	t, err := c.ParseISO(d)
	if err != nil {
		return false
	}
	return c.FormatAPIDate(t) == c.Today()
}

// FallbackWindow returns today followed by the preceding days, most recent first.
func (c *Calendar) FallbackWindow() []string {
	return c.Window(c.window)
}

// Window returns n business dates ending today, most recent first.
func (c *Calendar) Window(n int) []string {
	if n <= 0 {
		return nil
	}
	y, m, d := c.Now().Date()
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		// Noon keeps the arithmetic clear of DST transitions.
		out = append(out, time.Date(y, m, d-i, 12, 0, 0, 0, c.loc).Format(APILayout))
	}
	return out
}

// DaysAgo returns the calendar-day difference between today and d.
func (c *Calendar) DaysAgo(d string) (int, error) {
	t, err := c.ParseISO(d)
	if err != nil {
		return 0, err
	}
	return DaysBetween(t, c.now(), c.loc), nil
}

// DaysAgoLabel renders d relative to today: "Today", "Yesterday" or "<n> days ago".
// Unparseable input is returned unchanged.
func (c *Calendar) DaysAgoLabel(d string) string {
	n, err := c.DaysAgo(d)
	if err != nil {
		return d
	}
	switch n {
	case 0:
		return "Today"
	case 1:
		return "Yesterday"
	}
	return fmt.Sprintf("%d days ago", n)
}

// DisplayFormat renders a date or RFC3339 timestamp as "Jan 02, 2006" in the business timezone.
// It is for labels only. Unparseable input is returned unchanged.
func (c *Calendar) DisplayFormat(d string) string {
	t, err := c.ParseISO(d)
	if err != nil {
		return d
	}
	return t.In(c.loc).Format(DisplayLayout)
}

// FormatAPIDate formats an instant as the business date it falls on.
func (c *Calendar) FormatAPIDate(t time.Time) string {
	return t.In(c.loc).Format(APILayout)
}

// ParseISO parses YYYY-MM-DD as midnight in the business timezone, or an RFC3339 timestamp.
func (c *Calendar) ParseISO(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(APILayout, s, c.loc); err == nil {
		return t, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, c.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
}

// ValidDate reports whether s is a YYYY-MM-DD date.
func ValidDate(s string) bool {
	_, err := time.Parse(APILayout, s)
	return err == nil
}

// DaysBetween returns the number of calendar days from a to b, both read in loc.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
