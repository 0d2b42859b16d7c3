package model

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeIssueKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"time-94", "TIME-94"},
		{" TIME-94 ", "TIME-94"},
		{"Time-94", "TIME-94"},
		{"A1B-2", "A1B-2"},
	}
	for _, tt := range tests {
		if got := NormalizeIssueKey(tt.in); got != tt.want {
			t.Errorf("NormalizeIssueKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateIssueKey(t *testing.T) {
	valid := []string{"TIME-94", "PROJ-1", "LONGPROJECT-9999", "X2-1"}
	for _, key := range valid {
		if err := ValidateIssueKey(key); err != nil {
			t.Errorf("ValidateIssueKey(%q) = %v, want nil", key, err)
		}
	}

	invalid := []string{"", "TIME", "TIME-", "-94", "time-94", "94-TIME", "TIME 94"}
	for _, key := range invalid {
		if err := ValidateIssueKey(key); !errors.Is(err, ErrInvalidIssueKey) {
			t.Errorf("ValidateIssueKey(%q) = %v, want ErrInvalidIssueKey", key, err)
		}
	}
}

func TestTimerElapsed(t *testing.T) {
	start := time.Date(2024, 11, 4, 8, 0, 0, 0, time.UTC)
	timer := &Timer{IssueKey: "TIME-94", StartedAt: start}

	elapsed := timer.Elapsed(start.Add(90 * time.Minute))
	if elapsed != 90*time.Minute {
		t.Errorf("Elapsed = %v, want 90m", elapsed)
	}
}
