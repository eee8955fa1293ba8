package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxTitleLen bounds task titles and folder names.
	MaxTitleLen = 200
	// DefaultPriority is used when a new task does not set one.
	DefaultPriority = 3
	MinPriority     = 1
	MaxPriority     = 5
)

// Task represents a single task as served by the backend.
type Task struct {
	ID          int      `json:"id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Deadline    Deadline `json:"deadline"`
	Priority    int      `json:"priority"`
	Completed   bool     `json:"completed,omitempty"`
	FolderID    *int     `json:"folder_id,omitempty"`
	AssignedTo  int      `json:"assigned_to,omitempty"`
}

// RecordID implements Record.
func (t Task) RecordID() int { return t.ID }

// Validate checks a task received from the backend.
func (t Task) Validate() error {
	if t.ID <= 0 {
		return fmt.Errorf("%w: task id %d", ErrInvalidRecord, t.ID)
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: task %d has no title", ErrInvalidRecord, t.ID)
	}
	if t.Priority < MinPriority || t.Priority > MaxPriority {
		return fmt.Errorf("%w: task %d priority %d", ErrInvalidRecord, t.ID, t.Priority)
	}
	return nil
}

// ValidateInput checks a task before it is submitted to the backend.
// A deadline on an earlier day is rejected; on the current day the time of
// day must not already have passed.
func (t Task) ValidateInput(now time.Time) error {
	if t.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if utf8.RuneCountInString(t.Title) > MaxTitleLen {
		return fmt.Errorf("%w: title exceeds %d characters", ErrValidation, MaxTitleLen)
	}
	if t.Description == "" {
		return fmt.Errorf("%w: description is required", ErrValidation)
	}
	if t.Priority < MinPriority || t.Priority > MaxPriority {
		return fmt.Errorf("%w: priority must be between %d and %d", ErrValidation, MinPriority, MaxPriority)
	}
	if t.Deadline.IsZero() {
		return fmt.Errorf("%w: deadline is required", ErrValidation)
	}

	deadline := t.Deadline.In(now.Location())
	day := startOfDay(deadline)
	today := startOfDay(now)
	if day.Before(today) {
		return fmt.Errorf("%w: deadline is already past", ErrValidation)
	}
	if day.Equal(today) && deadline.Truncate(time.Minute).Before(now.Truncate(time.Minute)) {
		return fmt.Errorf("%w: deadline time is already past", ErrValidation)
	}
	return nil
}

// SameContent reports whether submitting t as an edit of other would change nothing.
func (t Task) SameContent(other Task) bool {
	return t.Title == other.Title &&
		t.Description == other.Description &&
		t.Priority == other.Priority &&
		t.Deadline.Truncate(time.Minute).Equal(other.Deadline.Truncate(time.Minute))
}

// IsOverdue returns true if the task is past its deadline and not completed.
func (t Task) IsOverdue() bool {
	if t.Deadline.IsZero() || t.Completed {
		return false
	}
	return t.Deadline.Before(time.Now())
}

// IsDueToday returns true if the task's deadline falls on the current day.
func (t Task) IsDueToday() bool {
	if t.Deadline.IsZero() {
		return false
	}
	now := time.Now()
	return startOfDay(t.Deadline.In(now.Location())).Equal(startOfDay(now))
}

// InFolder reports whether the task belongs to folder id.
func (t Task) InFolder(id int) bool {
	return t.FolderID != nil && *t.FolderID == id
}

// PriorityLabel returns a human label for a priority value.
func PriorityLabel(p int) string {
	switch p {
	case 1:
		return "very low"
	case 2:
		return "low"
	case 3:
		return "normal"
	case 4:
		return "high"
	case 5:
		return "very high"
	}
	return "unknown"
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
