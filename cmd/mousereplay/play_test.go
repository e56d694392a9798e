package main

import (
	"errors"
	"testing"

	"mousereplay/internal/input"
	"mousereplay/internal/replay"
)

func TestSummary(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		out  replay.Outcome
		want string
	}{
		{replay.Outcome{Status: replay.StatusCompleted, Index: 3, Total: 3}, "completed at 3/3"},
		{
			replay.Outcome{
				Status: replay.StatusCompleted, Index: 4, Total: 4, Fallbacks: 1,
				Failures: []replay.Failure{{Index: 2, Event: input.Move(1, 1, 0), Err: boom}},
			},
			"completed at 4/4, 1 unknown buttons played as left, 1 events failed",
		},
	}
	for _, tt := range tests {
		if got := summary(tt.out); got != tt.want {
			t.Errorf("summary() = %q, want %q", got, tt.want)
		}
	}
}

func TestFailureErrors(t *testing.T) {
	failures := []replay.Failure{{Index: 0, Err: errors.New("a")}, {Index: 5, Err: errors.New("b")}}
	errs := failureErrors(failures)
	if len(errs) != 2 {
		t.Fatalf("Expected 2 errors, got %d", len(errs))
	}
	if errs[1].Error() != failures[1].Error() {
		t.Errorf("Expected %q, got %q", failures[1].Error(), errs[1].Error())
	}
}
