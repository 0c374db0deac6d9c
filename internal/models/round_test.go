package models

import "testing"

func TestTimerStateTransitions(t *testing.T) {
	tests := []struct {
		name    string
		timer   TimerState
		started bool
		running bool
		paused  bool
	}{
		{
			name:  "not started",
			timer: TimerState{DurationMs: 60000},
		},
		{
			name:    "running",
			timer:   TimerState{DurationMs: 60000, StartedAt: 1000},
			started: true,
			running: true,
		},
		{
			name:    "paused",
			timer:   TimerState{DurationMs: 60000, StartedAt: 1000, PausedAt: 5000},
			started: true,
			paused:  true,
		},
		{
			name:    "resumed with banked time",
			timer:   TimerState{DurationMs: 60000, StartedAt: 9000, AccumulatedMs: 4000},
			started: true,
			running: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.timer.Started(); got != tt.started {
				t.Errorf("Started() = %v, want %v", got, tt.started)
			}
			if got := tt.timer.Running(); got != tt.running {
				t.Errorf("Running() = %v, want %v", got, tt.running)
			}
			if got := tt.timer.Paused(); got != tt.paused {
				t.Errorf("Paused() = %v, want %v", got, tt.paused)
			}
		})
	}
}
