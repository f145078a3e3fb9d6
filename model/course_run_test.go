package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(month time.Month, d int) time.Time {
	return time.Date(2024, month, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func TestApplicationWindowFallback(t *testing.T) {
	tests := []struct {
		name      string
		run       CourseRun
		wantStart time.Time
		wantEnd   *time.Time
	}{
		{
			name:      "explicit application dates",
			run:       CourseRun{AccessStart: day(1, 1), AccessEnd: ptr(day(6, 1)), ApplicationStart: ptr(day(1, 2)), ApplicationEnd: ptr(day(1, 15))},
			wantStart: day(1, 2),
			wantEnd:   ptr(day(1, 15)),
		},
		{
			name:      "falls back to access dates",
			run:       CourseRun{AccessStart: day(1, 1), AccessEnd: ptr(day(6, 1))},
			wantStart: day(1, 1),
			wantEnd:   ptr(day(6, 1)),
		},
		{
			name:      "open ended when both ends are missing",
			run:       CourseRun{AccessStart: day(1, 1)},
			wantStart: day(1, 1),
		},
		{
			name:      "application end without access end",
			run:       CourseRun{AccessStart: day(1, 1), ApplicationEnd: ptr(day(2, 1))},
			wantStart: day(1, 1),
			wantEnd:   ptr(day(2, 1)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tt.run.ApplicationWindow()
			assert.Equal(t, tt.wantStart, w.Start)
			if tt.wantEnd == nil {
				assert.Nil(t, w.End)
			} else {
				assert.Equal(t, *tt.wantEnd, *w.End)
			}
		})
	}
}

func TestWindowContains(t *testing.T) {
	w := Window{Start: day(1, 1), End: ptr(day(1, 31))}
	assert.True(t, w.Contains(day(1, 1)))
	assert.True(t, w.Contains(day(1, 31)))
	assert.False(t, w.Contains(day(1, 31).Add(time.Second)))
	assert.False(t, w.Contains(day(1, 1).Add(-time.Second)))

	open := Window{Start: day(1, 1)}
	assert.True(t, open.Contains(day(12, 31)))
}

func TestEnrollmentStatusIsActive(t *testing.T) {
	assert.True(t, EnrollmentRequested.IsActive())
	assert.True(t, EnrollmentApproved.IsActive())
	assert.False(t, EnrollmentRejected.IsActive())
}
