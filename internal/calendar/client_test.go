package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchInstanceExact(t *testing.T) {
	target := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	instances := []Instance{
		{ID: "a", Start: "2024-06-03T08:30:00Z"},
		{ID: "b", Start: "2024-06-03T09:00:00Z"},
	}

	match := MatchInstance(instances, target)
	require.NotNil(t, match)
	assert.Equal(t, "b", match.ID)
}

func TestMatchInstancePrefix(t *testing.T) {
	// Same wall-clock minute, different offset rendering.
	target := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	instances := []Instance{
		{ID: "a", Start: "2024-06-03T09:00:00+00:00"},
	}

	match := MatchInstance(instances, target)
	require.NotNil(t, match)
	assert.Equal(t, "a", match.ID)
}

func TestMatchInstanceDateFallback(t *testing.T) {
	target := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	instances := []Instance{
		{ID: "allday", Start: "2024-06-03"},
	}

	match := MatchInstance(instances, target)
	require.NotNil(t, match)
	assert.Equal(t, "allday", match.ID)
}

func TestMatchInstanceNone(t *testing.T) {
	target := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	instances := []Instance{
		{ID: "a", Start: "2024-06-10T09:00:00Z"},
	}

	assert.Nil(t, MatchInstance(instances, target))
}
