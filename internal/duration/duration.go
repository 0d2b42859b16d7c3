// Package duration parses the compact worklog duration grammar: sequences of
// <quantity><unit> pairs such as "1h30m", "0.5d" or "1,5h", optionally
// prefixed with a weekday anchor as in "Fri:1d".
package duration

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Working-time conversion constants. A day is the organizational workday, not
// a calendar day, and a week is five of them.
const (
	SecondsPerHour = 3600
	HoursPerDay    = 7.5
	DaysPerWeek    = 5

	SecondsPerDay  = int(HoursPerDay * SecondsPerHour)
	SecondsPerWeek = DaysPerWeek * SecondsPerDay
)

// AnchorHour is the local clock hour at which weekday-anchored entries start.
const AnchorHour = 8

// Spec is one expanded entry: a duration in seconds plus, for
// weekday-anchored tokens, the concrete start instant. Start is the zero time
// when the token carried no anchor.
type Spec struct {
	Seconds int
	Start   time.Time
}

var weekdays = map[string]time.Weekday{
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
	"sun": time.Sunday,
}

// ParseWeekday parses a three-letter weekday abbreviation, case-insensitively.
func ParseWeekday(s string) (time.Weekday, error) {
	if wd, ok := weekdays[strings.ToLower(s)]; ok {
		return wd, nil
	}
	return 0, fmt.Errorf("unknown weekday %q: expected Mon, Tue, Wed, Thu, Fri, Sat or Sun", s)
}

// ParseSeconds converts a duration expression like "1w2d3h30m" into whole
// seconds. Units are w (weeks), d (days), h (hours) and m or min (minutes);
// each may appear at most once, in any order. Quantities accept either '.' or
// ',' as the decimal separator, except minutes, which must be whole numbers.
func ParseSeconds(expr string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(expr))
	if s == "" {
		return 0, fmt.Errorf("empty duration expression")
	}

	seen := map[byte]bool{}
	var total float64

	for i := 0; i < len(s); {
		// Quantity: digits with an optional fractional part.
		start := i
		for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.' || s[i] == ',') {
			i++
		}
		quantity := s[start:i]
		if quantity == "" {
			return 0, fmt.Errorf("malformed duration %q: expected a number before %q", expr, s[i:])
		}

		// Unit: "min" or a single letter.
		var unit byte
		switch {
		case strings.HasPrefix(s[i:], "min"):
			unit = 'm'
			i += 3
		case i < len(s):
			unit = s[i]
			i++
		default:
			return 0, fmt.Errorf("malformed duration %q: missing unit after %q", expr, quantity)
		}

		if seen[unit] {
			return 0, fmt.Errorf("malformed duration %q: unit %q given more than once", expr, string(unit))
		}
		seen[unit] = true

		fractional := strings.ContainsAny(quantity, ".,")
		value, err := strconv.ParseFloat(strings.Replace(quantity, ",", ".", 1), 64)
		if err != nil {
			return 0, fmt.Errorf("malformed number %q in duration %q", quantity, expr)
		}

		switch unit {
		case 'w':
			total += value * float64(SecondsPerWeek)
		case 'd':
			total += value * float64(SecondsPerDay)
		case 'h':
			total += value * SecondsPerHour
		case 'm':
			if fractional {
				return 0, fmt.Errorf("fractional minutes %q not allowed in duration %q: use whole minutes", quantity, expr)
			}
			total += value * 60
		default:
			return 0, fmt.Errorf("unknown unit %q in duration %q: expected w, d, h or m", string(unit), expr)
		}
	}

	return int(math.Round(total)), nil
}

// Expand turns the duration tokens of one invocation into independent entry
// specs. A token with a weekday prefix ("Fri:1d") anchors its start to the
// most recent occurrence of that weekday at 08:00 local time; tokens without
// a prefix leave Start zero so the caller decides (explicit start, or "now
// minus duration").
func Expand(tokens []string, now time.Time) ([]Spec, error) {
	specs := make([]Spec, 0, len(tokens))
	for _, token := range tokens {
		day, expr, anchored := strings.Cut(token, ":")
		if !anchored {
			seconds, err := ParseSeconds(token)
			if err != nil {
				return nil, err
			}
			specs = append(specs, Spec{Seconds: seconds})
			continue
		}

		wd, err := ParseWeekday(day)
		if err != nil {
			return nil, err
		}
		seconds, err := ParseSeconds(expr)
		if err != nil {
			return nil, err
		}
		specs = append(specs, Spec{Seconds: seconds, Start: LastWeekday(now, wd)})
	}
	return specs, nil
}

// LastWeekday returns the most recent occurrence of wd at 08:00 local time,
// counting today as a candidate.
func LastWeekday(now time.Time, wd time.Weekday) time.Time {
	d := now
	for d.Weekday() != wd {
		d = d.AddDate(0, 0, -1)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), AnchorHour, 0, 0, 0, now.Location())
}

// ParseDateTime parses an explicit start point, supplied as "15:04" (today),
// "2006-01-02" (08:00 that day) or "2006-01-02T15:04".
func ParseDateTime(s string, now time.Time) (time.Time, error) {
	loc := now.Location()

	if t, err := time.ParseInLocation("15:04", s, loc); err == nil {
		return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), AnchorHour, 0, 0, 0, loc), nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04", s, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a start time: expected HH:MM, YYYY-MM-DD or YYYY-MM-DDTHH:MM", s)
}

// CalculateStart resolves the start instant for an entry. With no explicit
// start the entry ends now, so the start is now minus the duration. An
// explicit start is used as-is, but the entry must not extend past now.
func CalculateStart(explicit time.Time, seconds int, now time.Time) (time.Time, error) {
	d := time.Duration(seconds) * time.Second
	if explicit.IsZero() {
		return now.Add(-d), nil
	}
	if end := explicit.Add(d); end.After(now) {
		return time.Time{}, fmt.Errorf("start %s plus duration %s ends at %s, which is in the future",
			explicit.Format("2006-01-02 15:04"), d, end.Format("2006-01-02 15:04"))
	}
	return explicit, nil
}
