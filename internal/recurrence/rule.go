// Package recurrence holds the typed weekly recurrence rule shared by the
// booking worker's expansion loop and the calendar client.
package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultCount is the number of occurrences assumed when a rule carries
// neither COUNT nor a parseable UNTIL.
const DefaultCount = 12

// maxOccurrences bounds expansion for far-future UNTIL values.
const maxOccurrences = 104

// Rule is a parsed recurrence rule. Exactly one of Count/Until is
// effective: Count > 0 wins, otherwise Until (date-key comparison,
// inclusive) limits the series.
type Rule struct {
	Interval int       // weeks between occurrences, >= 1
	Count    int       // total occurrences including the first
	Until    time.Time // zero when unset; only the date part is significant
}

// Parse reads an RRULE-style string ("RRULE:FREQ=WEEKLY;COUNT=4" or just
// "FREQ=WEEKLY;UNTIL=20240715T000000Z"). Parsing never fails: malformed or
// missing COUNT/UNTIL falls back to DefaultCount weekly occurrences.
func Parse(raw string) Rule {
	rule := Rule{Interval: 1}

	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "RRULE:")

	for _, part := range strings.Split(s, ";") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "COUNT":
			if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
				rule.Count = n
			}
		case "UNTIL":
			if t, ok := parseUntil(strings.TrimSpace(value)); ok {
				rule.Until = t
			}
		case "INTERVAL":
			if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
				rule.Interval = n
			}
		}
	}

	if rule.Count == 0 && rule.Until.IsZero() {
		rule.Count = DefaultCount
	}
	return rule
}

// parseUntil normalizes the compact UNTIL forms to a time value. Accepted:
// YYYYMMDDThhmmssZ, YYYYMMDD, and full ISO-8601.
func parseUntil(value string) (time.Time, bool) {
	for _, layout := range []string{
		"20060102T150405Z",
		"20060102",
		time.RFC3339,
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Times expands the rule into concrete occurrence times, starting at and
// including start. Occurrence math is wall-clock +7d arithmetic in start's
// location; UNTIL is compared by date key only, inclusive.
func (r Rule) Times(start time.Time) []time.Time {
	interval := r.Interval
	if interval < 1 {
		interval = 1
	}

	var times []time.Time
	for i := 0; i < maxOccurrences; i++ {
		t := start.AddDate(0, 0, 7*interval*i)
		if r.Count > 0 {
			if i >= r.Count {
				break
			}
		} else if dateKey(t) > dateKey(r.Until) {
			break
		}
		times = append(times, t)
	}
	return times
}

// RRule renders the rule in the calendar service's RRULE form.
func (r Rule) RRule() string {
	var b strings.Builder
	b.WriteString("RRULE:FREQ=WEEKLY")
	if r.Interval > 1 {
		fmt.Fprintf(&b, ";INTERVAL=%d", r.Interval)
	}
	if r.Count > 0 {
		fmt.Fprintf(&b, ";COUNT=%d", r.Count)
	} else if !r.Until.IsZero() {
		fmt.Fprintf(&b, ";UNTIL=%s", r.Until.UTC().Format("20060102T150405Z"))
	}
	return b.String()
}

// WithUntil rewrites an RRULE string to end at the given time, stripping
// any existing UNTIL or COUNT clause first.
func WithUntil(rrule string, until time.Time) string {
	prefix := ""
	s := rrule
	if strings.HasPrefix(s, "RRULE:") {
		prefix = "RRULE:"
		s = strings.TrimPrefix(s, "RRULE:")
	}

	var parts []string
	for _, part := range strings.Split(s, ";") {
		key, _, _ := strings.Cut(part, "=")
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "UNTIL", "COUNT", "":
			continue
		}
		parts = append(parts, part)
	}
	parts = append(parts, "UNTIL="+until.UTC().Format("20060102T150405Z"))

	return prefix + strings.Join(parts, ";")
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
