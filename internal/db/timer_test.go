package db

import (
	"errors"
	"testing"
	"time"

	"github.com/punchcard-cli/punchcard/internal/model"
)

func TestCreateTimerConflict(t *testing.T) {
	conn := mustOpen(t)

	first := &model.Timer{
		IssueKey:  "TIME-94",
		StartedAt: time.Date(2024, 11, 4, 8, 0, 0, 0, time.UTC),
		Comment:   "original",
	}
	if err := CreateTimer(conn, first); err != nil {
		t.Fatalf("CreateTimer: %v", err)
	}

	second := &model.Timer{
		IssueKey:  "TIME-40",
		StartedAt: time.Date(2024, 11, 4, 9, 0, 0, 0, time.UTC),
	}
	if err := CreateTimer(conn, second); !errors.Is(err, ErrTimerExists) {
		t.Fatalf("second CreateTimer = %v, want ErrTimerExists", err)
	}

	// The original timer is unchanged.
	got, err := GetTimer(conn)
	if err != nil {
		t.Fatalf("GetTimer: %v", err)
	}
	if got.IssueKey != "TIME-94" || got.Comment != "original" {
		t.Errorf("timer = %+v, want the original TIME-94 timer", got)
	}
	if !got.StartedAt.Equal(first.StartedAt) {
		t.Errorf("started_at = %v, want %v", got.StartedAt, first.StartedAt)
	}
}

func TestGetTimerWhenIdle(t *testing.T) {
	conn := mustOpen(t)

	if _, err := GetTimer(conn); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTimer on empty store = %v, want ErrNotFound", err)
	}
}

func TestDeleteTimerAllowsRestart(t *testing.T) {
	conn := mustOpen(t)

	timer := &model.Timer{IssueKey: "TIME-94", StartedAt: time.Now().UTC()}
	if err := CreateTimer(conn, timer); err != nil {
		t.Fatalf("CreateTimer: %v", err)
	}
	if err := DeleteTimer(conn); err != nil {
		t.Fatalf("DeleteTimer: %v", err)
	}
	if err := CreateTimer(conn, timer); err != nil {
		t.Fatalf("CreateTimer after delete: %v", err)
	}
}

func TestDeleteTimerWhenIdleIsNoop(t *testing.T) {
	conn := mustOpen(t)

	if err := DeleteTimer(conn); err != nil {
		t.Errorf("DeleteTimer on empty store = %v, want nil", err)
	}
}
