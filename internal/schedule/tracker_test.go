package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock pins the tracker to a known Tuesday morning.
func fixedClock() (Clock, time.Time) {
	now := time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)
	return func() time.Time { return now }, now
}

func TestTwoStepScheduling(t *testing.T) {
	clock, now := fixedClock()
	tr := NewTracker(clock, 0)

	req, resp := tr.Process("remind me to call mom")
	require.Nil(t, req)
	assert.Contains(t, resp, "I'll remind you to call mom")
	assert.True(t, tr.HasPending())

	req, resp = tr.Process("at 5 pm")
	require.NotNil(t, req)
	assert.Empty(t, resp)
	assert.Equal(t, "call mom", req.Task)
	assert.Equal(t, time.Date(now.Year(), now.Month(), now.Day(), 17, 0, 0, 0, time.UTC), req.When)

	// Pending state is consumed: the next turn is free again.
	assert.False(t, tr.HasPending())
}

func TestPendingRePromptOnBadTime(t *testing.T) {
	clock, _ := fixedClock()
	tr := NewTracker(clock, 0)

	tr.Process("remind me to water the plants")
	req, resp := tr.Process("whenever you feel like it")
	assert.Nil(t, req)
	assert.Contains(t, resp, "I didn't understand that time")
	// The parked task survives the failed parse.
	assert.True(t, tr.HasPending())

	req, _ = tr.Process("in 30 minutes")
	require.NotNil(t, req)
	assert.Equal(t, "water the plants", req.Task)
}

func TestPendingCancelWord(t *testing.T) {
	clock, _ := fixedClock()
	tr := NewTracker(clock, 0)

	tr.Process("remind me to call mom")
	req, resp := tr.Process("never mind")
	assert.Nil(t, req)
	assert.Contains(t, resp, "dropped the reminder")
	assert.False(t, tr.HasPending())
}

func TestPendingExpiresAfterTTL(t *testing.T) {
	now := time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)
	tr := NewTracker(func() time.Time { return now }, 5*time.Minute)

	tr.Process("remind me to call mom")
	require.True(t, tr.HasPending())

	now = now.Add(6 * time.Minute)
	assert.False(t, tr.HasPending())
}

func TestOneShotScheduleWithTime(t *testing.T) {
	clock, now := fixedClock()
	tr := NewTracker(clock, 0)

	req, resp := tr.Process("remind me to stretch in 2 hours")
	require.NotNil(t, req)
	assert.Empty(t, resp)
	assert.Equal(t, "stretch", req.Task)
	assert.Equal(t, now.Add(2*time.Hour), req.When)
	assert.False(t, tr.HasPending())
}

func TestTimedAppLaunchKeepsVerb(t *testing.T) {
	clock, now := fixedClock()
	tr := NewTracker(clock, 0)

	req, _ := tr.Process("open notepad in 10 seconds")
	require.NotNil(t, req)
	assert.Equal(t, "open notepad", req.Task)
	assert.Equal(t, now.Add(10*time.Second), req.When)
}

func TestExtractTimeTable(t *testing.T) {
	clock, now := fixedClock()
	tr := NewTracker(clock, 0)

	cases := []struct {
		in   string
		want time.Time
	}{
		{"at 5 pm", time.Date(2025, 3, 4, 17, 0, 0, 0, time.UTC)},
		{"at 5:30 pm", time.Date(2025, 3, 4, 17, 30, 0, 0, time.UTC)},
		{"at 12 am", time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)}, // midnight passed, rolls over
		{"at 17:30", time.Date(2025, 3, 4, 17, 30, 0, 0, time.UTC)},
		{"at 9 am", time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)}, // already past 9, tomorrow
		{"in 45 minutes", now.Add(45 * time.Minute)},
		{"in 1 hour", now.Add(time.Hour)},
		{"tomorrow", time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, ok := tr.extractTime(tc.in)
		require.True(t, ok, "input: %q", tc.in)
		assert.Equal(t, tc.want, got, "input: %q", tc.in)
	}

	_, ok := tr.extractTime("no time here")
	assert.False(t, ok)
}

func TestScheduleWithoutTaskOrTime(t *testing.T) {
	clock, _ := fixedClock()
	tr := NewTracker(clock, 0)

	req, resp := tr.Process("schedule something nice")
	assert.Nil(t, req)
	assert.Contains(t, resp, "couldn't determine when")

	req, resp = tr.Process("at 5 pm")
	assert.Nil(t, req)
	assert.Contains(t, resp, "couldn't understand")
}
