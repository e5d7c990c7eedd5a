package models

import "testing"

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Happy path
		{RequestStatusOpen, RequestStatusFulfilled, true},
		{RequestStatusOpen, RequestStatusReclaimed, true},

		// Terminal states never transition
		{RequestStatusFulfilled, RequestStatusReclaimed, false},
		{RequestStatusFulfilled, RequestStatusOpen, false},
		{RequestStatusReclaimed, RequestStatusFulfilled, false},
		{RequestStatusReclaimed, RequestStatusOpen, false},
		{RequestStatusFulfilled, RequestStatusFulfilled, false},
		{RequestStatusReclaimed, RequestStatusReclaimed, false},

		// Unknown statuses
		{"nonexistent", RequestStatusFulfilled, false},
		{RequestStatusOpen, "nonexistent", false},
		{RequestStatusOpen, RequestStatusOpen, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestAllStatusesHaveTransitionEntry(t *testing.T) {
	allStatuses := []string{RequestStatusOpen, RequestStatusFulfilled, RequestStatusReclaimed}

	for _, status := range allStatuses {
		if _, ok := ValidRequestTransitions[status]; !ok {
			t.Errorf("status %q missing from ValidRequestTransitions map", status)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	if IsTerminalStatus(RequestStatusOpen) {
		t.Error("open must not be terminal")
	}
	for _, status := range []string{RequestStatusFulfilled, RequestStatusReclaimed} {
		if !IsTerminalStatus(status) {
			t.Errorf("status %q should be terminal", status)
		}
	}
	if IsTerminalStatus("nonexistent") {
		t.Error("unknown status must not report as terminal")
	}
}
