package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clock(h, m int) time.Time {
	return time.Date(2024, 1, 15, h, m, 0, 0, time.UTC)
}

func TestInterval_Overlaps(t *testing.T) {
	base := Interval{Start: clock(9, 0), End: clock(10, 0)}

	testCases := []struct {
		name     string
		other    Interval
		expected bool
	}{
		{"identical", base, true},
		{"starts inside", Interval{Start: clock(9, 30), End: clock(10, 30)}, true},
		{"ends inside", Interval{Start: clock(8, 30), End: clock(9, 30)}, true},
		{"encloses", Interval{Start: clock(8, 0), End: clock(11, 0)}, true},
		{"nested", Interval{Start: clock(9, 15), End: clock(9, 45)}, true},
		{"touches at end", Interval{Start: clock(10, 0), End: clock(10, 30)}, false},
		{"touches at start", Interval{Start: clock(8, 30), End: clock(9, 0)}, false},
		{"disjoint", Interval{Start: clock(12, 0), End: clock(13, 0)}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, base.Overlaps(tc.other))
			assert.Equal(t, tc.expected, tc.other.Overlaps(base))
		})
	}
}

func TestInterval_ContainsAndValid(t *testing.T) {
	window := Interval{Start: clock(8, 0), End: clock(12, 0)}

	assert.True(t, window.Contains(window))
	assert.True(t, window.Contains(Interval{Start: clock(8, 0), End: clock(8, 30)}))
	assert.True(t, window.Contains(Interval{Start: clock(11, 30), End: clock(12, 0)}))
	assert.False(t, window.Contains(Interval{Start: clock(7, 59), End: clock(8, 30)}))
	assert.False(t, window.Contains(Interval{Start: clock(11, 30), End: clock(12, 1)}))

	assert.True(t, window.Valid())
	assert.False(t, Interval{Start: clock(9, 0), End: clock(9, 0)}.Valid())
	assert.False(t, Interval{Start: clock(10, 0), End: clock(9, 0)}.Valid())
}
