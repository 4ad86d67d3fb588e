package series

import "time"

// BinsPerDay is the number of five-minute minute-of-day buckets.
const BinsPerDay = 288

// Calendar decomposes instants into local-time components for a fixed named
// timezone. A named location (not a fixed offset) keeps bucketing correct
// across DST transitions.
type Calendar struct {
	loc *time.Location
}

func NewCalendar(name string) (*Calendar, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	return &Calendar{loc: loc}, nil
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

// DayKey returns the local calendar day as YYYY-MM-DD.
func (c *Calendar) DayKey(t time.Time) string {
	return t.In(c.loc).Format("2006-01-02")
}

// Hour returns the local hour of day, 0..23.
func (c *Calendar) Hour(t time.Time) int {
	return t.In(c.loc).Hour()
}

// MinutesIntoDay returns minutes since local midnight.
func (c *Calendar) MinutesIntoDay(t time.Time) int {
	lt := t.In(c.loc)
	return lt.Hour()*60 + lt.Minute()
}

// Bin maps an instant onto its five-minute minute-of-day bucket, clamped to
// [0, BinsPerDay-1].
func (c *Calendar) Bin(t time.Time) int {
	idx := c.MinutesIntoDay(t) / 5
	if idx < 0 {
		return 0
	}
	if idx > BinsPerDay-1 {
		return BinsPerDay - 1
	}
	return idx
}

func (c *Calendar) Weekday(t time.Time) time.Weekday {
	return t.In(c.loc).Weekday()
}

func (c *Calendar) IsWeekday(t time.Time) bool {
	wd := c.Weekday(t)
	return wd != time.Saturday && wd != time.Sunday
}
