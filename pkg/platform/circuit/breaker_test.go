package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// step is one recorded outcome: 'f' failure, 's' success, 'r' reset.
func replay(b *Breaker, steps string) (StateChange, bool) {
	change, primary := StateChange{}, true
	for _, step := range steps {
		switch step {
		case 'f':
			var fallback bool
			fallback, change = b.RecordFailure()
			primary = !fallback
		case 's':
			primary, change = b.RecordSuccess()
		case 'r':
			b.Reset()
			change, primary = StateChange{}, true
		}
	}
	return change, primary
}

func TestBreakerTransitions(t *testing.T) {
	tests := []struct {
		name        string
		opts        []Option
		steps       string
		wantState   State
		wantChange  StateChange
		wantPrimary bool
	}{
		{name: "new breaker is closed", steps: "", wantState: StateClosed, wantPrimary: true},
		{name: "below failure threshold", opts: []Option{WithFailureThreshold(3)}, steps: "ff", wantState: StateClosed, wantPrimary: true},
		{name: "opens at threshold", opts: []Option{WithFailureThreshold(3)}, steps: "fff", wantState: StateOpen, wantChange: StateChange{Opened: true}},
		{name: "already open reports no change", opts: []Option{WithFailureThreshold(1)}, steps: "ff", wantState: StateOpen},
		{name: "success clears failure streak", opts: []Option{WithFailureThreshold(3)}, steps: "ffsff", wantState: StateClosed, wantPrimary: true},
		{name: "needs success streak to close", opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(2)}, steps: "fs", wantState: StateOpen},
		{name: "closes after success streak", opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(2)}, steps: "fss", wantState: StateClosed, wantChange: StateChange{Closed: true}, wantPrimary: true},
		{name: "failure restarts success streak", opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(3)}, steps: "fssfss", wantState: StateOpen},
		{name: "reset closes", opts: []Option{WithFailureThreshold(1)}, steps: "fr", wantState: StateClosed, wantPrimary: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("override-cache", tt.opts...)
			change, primary := replay(b, tt.steps)
			assert.Equal(t, tt.wantState, b.State())
			assert.Equal(t, tt.wantChange, change)
			assert.Equal(t, tt.wantPrimary, primary)
		})
	}
}

func TestBreakerStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "override-cache", New("override-cache").Name())
}

func TestBreakerAllowProbesAfterCooldown(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	b := New("override-cache", WithFailureThreshold(1), WithCooldown(time.Second))
	b.now = func() time.Time { return now }

	assert.True(t, b.Allow())
	b.RecordFailure()
	assert.False(t, b.Allow())

	now = now.Add(2 * time.Second)
	assert.True(t, b.Allow(), "one probe after cooldown")
	assert.False(t, b.Allow(), "second probe waits for the next period")

	b.RecordFailure()
	now = now.Add(500 * time.Millisecond)
	assert.False(t, b.Allow(), "a failed probe restarts the cooldown")
}
