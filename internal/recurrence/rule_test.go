package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCount(t *testing.T) {
	rule := Parse("RRULE:FREQ=WEEKLY;COUNT=4")
	assert.Equal(t, 4, rule.Count)
	assert.True(t, rule.Until.IsZero())
	assert.Equal(t, 1, rule.Interval)
}

func TestParseUntilCompact(t *testing.T) {
	rule := Parse("FREQ=WEEKLY;UNTIL=20240715T000000Z")
	assert.Equal(t, 0, rule.Count)
	assert.Equal(t, "2024-07-15", rule.Until.Format("2006-01-02"))
}

func TestParseUntilISO(t *testing.T) {
	rule := Parse("FREQ=WEEKLY;UNTIL=2024-07-15T00:00:00Z")
	assert.Equal(t, "2024-07-15", rule.Until.Format("2006-01-02"))
}

func TestParseDefaultsToTwelveWeekly(t *testing.T) {
	for _, raw := range []string{
		"",
		"FREQ=WEEKLY",
		"RRULE:FREQ=WEEKLY;UNTIL=garbage",
		"COUNT=notanumber",
	} {
		rule := Parse(raw)
		assert.Equal(t, DefaultCount, rule.Count, "raw=%q", raw)
	}
}

func TestTimesCount(t *testing.T) {
	start := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	times := Parse("RRULE:FREQ=WEEKLY;COUNT=4").Times(start)

	require.Len(t, times, 4)
	assert.Equal(t, start, times[0])
	assert.Equal(t, start.AddDate(0, 0, 21), times[3])
}

func TestTimesUntilInclusive(t *testing.T) {
	// 2024-06-03 is a Monday; UNTIL lands exactly on the fourth Monday.
	// The occurrence on the UNTIL date is included regardless of its time.
	start := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	times := Parse("FREQ=WEEKLY;UNTIL=20240624T000000Z").Times(start)

	require.Len(t, times, 4)
	assert.Equal(t, "2024-06-24", times[3].Format("2006-01-02"))
}

func TestTimesUntilExcludesLater(t *testing.T) {
	start := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	times := Parse("FREQ=WEEKLY;UNTIL=20240620T000000Z").Times(start)

	require.Len(t, times, 3)
	assert.Equal(t, "2024-06-17", times[2].Format("2006-01-02"))
}

func TestTimesInterval(t *testing.T) {
	start := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	times := Parse("FREQ=WEEKLY;INTERVAL=2;COUNT=3").Times(start)

	require.Len(t, times, 3)
	assert.Equal(t, start.AddDate(0, 0, 28), times[2])
}

func TestRRuleRoundTrip(t *testing.T) {
	assert.Equal(t, "RRULE:FREQ=WEEKLY;COUNT=4", Parse("RRULE:FREQ=WEEKLY;COUNT=4").RRule())
	assert.Equal(t, "RRULE:FREQ=WEEKLY;UNTIL=20240715T000000Z", Parse("FREQ=WEEKLY;UNTIL=20240715T000000Z").RRule())
}

func TestWithUntil(t *testing.T) {
	until := time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC)

	got := WithUntil("RRULE:FREQ=WEEKLY;UNTIL=20240715T000000Z", until)
	assert.Equal(t, "RRULE:FREQ=WEEKLY;UNTIL=20240930T000000Z", got)

	// COUNT is replaced too; UNTIL and COUNT are mutually exclusive.
	got = WithUntil("RRULE:FREQ=WEEKLY;COUNT=12", until)
	assert.Equal(t, "RRULE:FREQ=WEEKLY;UNTIL=20240930T000000Z", got)
}
