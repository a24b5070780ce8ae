package validity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	// Behavior must hold for arbitrary reference times, so a few very
	// different ones are used for the whole table.
	nows := []time.Time{
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 15, 13, 45, 30, 0, time.UTC),
		time.Date(2031, 12, 31, 23, 59, 59, 0, time.UTC),
	}

	tests := []struct {
		name   string
		offset *time.Duration
		want   State
	}{
		{name: "absent valid_until", offset: nil, want: NoExpiry},
		{name: "one second in the past", offset: dur(-time.Second), want: Expired},
		{name: "one second in the future", offset: dur(time.Second), want: ExpiringSoon},
		{name: "just inside the window", offset: dur(ExpiringSoonWindow - time.Second), want: ExpiringSoon},
		{name: "31 days ahead", offset: dur(31 * 24 * time.Hour), want: Valid},
		{name: "exactly now", offset: dur(0), want: ExpiringSoon},
	}

	for _, now := range nows {
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				var validUntil *time.Time
				if tc.offset != nil {
					v := now.Add(*tc.offset)
					validUntil = &v
				}
				assert.Equal(t, tc.want, Evaluate(now, validUntil))
			})
		}
	}
}

func dur(d time.Duration) *time.Duration { return &d }
