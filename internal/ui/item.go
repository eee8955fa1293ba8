package ui

import (
	"fmt"

	"github.com/nissyi-gh/remind/internal/model"
)

// TaskItem wraps model.Task to satisfy the list.DefaultItem interface.
type TaskItem struct {
	Task model.Task
}

func (i TaskItem) Title() string {
	check := "[ ]"
	if i.Task.Completed {
		check = "[x]"
	}
	dueMark := ""
	if i.Task.IsOverdue() {
		dueMark = "! "
	} else if i.Task.IsDueToday() {
		dueMark = "* "
	}
	return fmt.Sprintf("%s %s%s %s", check, dueMark, priorityMark(i.Task.Priority), i.Task.Title)
}

func (i TaskItem) Description() string {
	if i.Task.Deadline.IsZero() {
		return ""
	}
	return "due " + i.Task.Deadline.Local().Format("2006-01-02 15:04")
}

func (i TaskItem) FilterValue() string {
	return i.Task.Title
}

// priorityMark renders 1..5 as a five-cell bar.
func priorityMark(p int) string {
	if p < model.MinPriority || p > model.MaxPriority {
		return "     "
	}
	bar := []rune("·····")
	for i := 0; i < p; i++ {
		bar[i] = '▮'
	}
	return string(bar)
}

// FolderItem is one row of the folder sidebar.
type FolderItem struct {
	// ID 0 is the "All tasks" scope.
	ID     int
	Name   string
	Prefix string
	// Pending marks a folder the backend has not confirmed yet.
	Pending bool
}

func (f FolderItem) Label() string {
	name := f.Name
	if f.Pending {
		name += " …"
	}
	return f.Prefix + name
}
