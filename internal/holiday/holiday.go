// Package holiday provides public-holiday lookups for the countries the
// scheduler supports (United States and Colombia). Fixed-date holidays are
// table-driven; floating US holidays are derived from nth-weekday rules and
// the Colombian religious holidays from the date of Easter.
package holiday

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// Info is the result of a holiday lookup.
type Info struct {
	IsHoliday bool   `json:"is_holiday"`
	Name      string `json:"holiday_name,omitempty"`
}

// Calendar answers whether a calendar date is a public holiday in a country.
// Implementations may be remote; callers treat lookup errors as "not a
// holiday" so an unavailable calendar never blocks task creation.
type Calendar interface {
	IsHoliday(date time.Time, country string) (Info, error)
}

type fixedHoliday struct {
	month time.Month
	day   int
	name  string
}

var fixedUS = []fixedHoliday{
	{time.January, 1, "New Year's Day"},
	{time.July, 4, "Independence Day"},
	{time.November, 11, "Veterans Day"},
	{time.December, 25, "Christmas Day"},
}

var fixedCO = []fixedHoliday{
	{time.January, 1, "Año Nuevo"},
	{time.May, 1, "Día del Trabajo"},
	{time.July, 20, "Día de la Independencia"},
	{time.August, 7, "Batalla de Boyacá"},
	{time.December, 8, "Día de la Inmaculada Concepción"},
	{time.December, 25, "Navidad"},
}

// computed is the built-in Calendar implementation. Holiday sets are
// computed per year on demand and memoized; one instance is shared by
// every request, so the cache is mutex-guarded.
type computed struct {
	mu    sync.RWMutex
	cache map[string]map[string]string // country/year -> "yyyy-mm-dd" -> name
}

// NewCalendar returns the built-in US/CO holiday calendar. The returned
// Calendar is safe for concurrent use.
func NewCalendar() Calendar {
	return &computed{cache: make(map[string]map[string]string)}
}

// IsHoliday reports whether date falls on a public holiday. Country "US"
// checks United States holidays, "CO" Colombian ones; any other value
// checks both sets.
func (c *computed) IsHoliday(date time.Time, country string) (Info, error) {
	country = strings.ToUpper(strings.TrimSpace(country))
	key := country + "/" + strconv.Itoa(date.Year())

	c.mu.RLock()
	set, ok := c.cache[key]
	c.mu.RUnlock()

	if !ok {
		set = holidaySet(country, date.Year())
		c.mu.Lock()
		if cached, raced := c.cache[key]; raced {
			set = cached
		} else {
			c.cache[key] = set
		}
		c.mu.Unlock()
	}

	if name, ok := set[dateKey(date)]; ok {
		return Info{IsHoliday: true, Name: name}, nil
	}
	return Info{}, nil
}

func holidaySet(country string, year int) map[string]string {
	set := make(map[string]string)
	switch country {
	case "US":
		addHolidays(set, usHolidays(year))
	case "CO":
		addHolidays(set, colombianHolidays(year))
	default:
		addHolidays(set, usHolidays(year))
		addHolidays(set, colombianHolidays(year))
	}
	return set
}

type holiday struct {
	date time.Time
	name string
}

func addHolidays(set map[string]string, hs []holiday) {
	for _, h := range hs {
		set[dateKey(h.date)] = h.name
	}
}

func usHolidays(year int) []holiday {
	hs := fixedDates(year, fixedUS)
	hs = append(hs,
		holiday{nthWeekday(year, time.January, 3, time.Monday), "Martin Luther King Jr. Day"},
		holiday{nthWeekday(year, time.February, 3, time.Monday), "Presidents Day"},
		holiday{lastWeekday(year, time.May, time.Monday), "Memorial Day"},
		holiday{nthWeekday(year, time.September, 1, time.Monday), "Labor Day"},
		holiday{nthWeekday(year, time.October, 2, time.Monday), "Columbus Day"},
		holiday{nthWeekday(year, time.November, 4, time.Thursday), "Thanksgiving Day"},
	)
	return hs
}

func colombianHolidays(year int) []holiday {
	hs := fixedDates(year, fixedCO)
	easter := easterSunday(year)
	hs = append(hs,
		holiday{easter.AddDate(0, 0, -3), "Jueves Santo"},
		holiday{easter.AddDate(0, 0, -2), "Viernes Santo"},
		holiday{easter.AddDate(0, 0, 39), "Ascensión del Señor"},
		holiday{easter.AddDate(0, 0, 60), "Corpus Christi"},
		holiday{easter.AddDate(0, 0, 68), "Sagrado Corazón"},
	)
	return hs
}

func fixedDates(year int, fixed []fixedHoliday) []holiday {
	hs := make([]holiday, 0, len(fixed))
	for _, f := range fixed {
		hs = append(hs, holiday{time.Date(year, f.month, f.day, 0, 0, 0, 0, time.UTC), f.name})
	}
	return hs
}

// easterSunday computes Easter for a year with the anonymous Gregorian
// (Butcher) algorithm.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// nthWeekday returns the nth occurrence (1-based) of a weekday in a month.
func nthWeekday(year int, month time.Month, nth int, weekday time.Weekday) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != weekday {
		d = d.AddDate(0, 0, 1)
	}
	return d.AddDate(0, 0, (nth-1)*7)
}

// lastWeekday returns the last occurrence of a weekday in a month.
func lastWeekday(year int, month time.Month, weekday time.Weekday) time.Time {
	d := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != weekday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
