package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nissyi-gh/remind/internal/model"
)

const (
	formTitle = iota
	formDescription
	formPriority
	formDeadline
	formFieldCount
)

// errNoChanges rejects an edit that would not change the task.
var errNoChanges = errors.New("no changes to save")

// taskForm adds or edits one task.
type taskForm struct {
	editing  *model.Task
	title    textinput.Model
	desc     textarea.Model
	priority int
	deadline dateInput
	focus    int
	err      error
}

func newTaskForm(editing *model.Task) taskForm {
	ti := textinput.New()
	ti.Placeholder = "Task title..."
	ti.CharLimit = model.MaxTitleLen

	ta := textarea.New()
	ta.Placeholder = "Task description..."
	ta.CharLimit = 4096
	ta.ShowLineNumbers = false
	ta.SetHeight(4)

	f := taskForm{
		editing:  editing,
		title:    ti,
		desc:     ta,
		priority: model.DefaultPriority,
		deadline: newDateInput(),
	}
	if editing != nil {
		f.title.SetValue(editing.Title)
		f.desc.SetValue(editing.Description)
		f.priority = editing.Priority
		f.deadline.SetTime(editing.Deadline.Time)
	}
	return f
}

func (f *taskForm) SetWidth(w int) {
	if w <= 0 {
		return
	}
	f.title.Width = w - 4
	f.desc.SetWidth(w)
}

func (f *taskForm) Focus() tea.Cmd {
	return f.focusField(formTitle)
}

func (f *taskForm) focusField(idx int) tea.Cmd {
	f.focus = idx
	f.title.Blur()
	f.desc.Blur()
	f.deadline.Blur()
	switch idx {
	case formTitle:
		return f.title.Focus()
	case formDescription:
		return f.desc.Focus()
	case formDeadline:
		return f.deadline.Focus()
	}
	return nil
}

// Task builds the task to submit. It does not set folder or assignee.
func (f *taskForm) Task(now time.Time) (model.Task, error) {
	t := model.Task{
		Title:       strings.TrimSpace(f.title.Value()),
		Description: strings.TrimSpace(f.desc.Value()),
		Priority:    f.priority,
	}
	if !f.deadline.IsEmpty() {
		at, err := f.deadline.Value(now)
		if err != nil {
			return model.Task{}, fmt.Errorf("%w: %v", model.ErrValidation, err)
		}
		t.Deadline = model.NewDeadline(at)
	}
	if err := t.ValidateInput(now); err != nil {
		return model.Task{}, err
	}
	if f.editing != nil {
		if t.SameContent(*f.editing) {
			return model.Task{}, errNoChanges
		}
		t.Completed = f.editing.Completed
		t.FolderID = f.editing.FolderID
		t.AssignedTo = f.editing.AssignedTo
	}
	return t, nil
}

// Update handles navigation between fields; submit and cancel are handled
// by the caller.
func (f taskForm) Update(msg tea.Msg) (taskForm, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "tab":
			cmd := f.focusField((f.focus + 1) % formFieldCount)
			return f, cmd
		case "shift+tab":
			cmd := f.focusField((f.focus + formFieldCount - 1) % formFieldCount)
			return f, cmd
		}
		if f.focus == formPriority {
			switch keyMsg.String() {
			case "left", "h", "-":
				if f.priority > model.MinPriority {
					f.priority--
				}
			case "right", "l", "+":
				if f.priority < model.MaxPriority {
					f.priority++
				}
			case "1", "2", "3", "4", "5":
				f.priority = int(keyMsg.String()[0] - '0')
			}
			return f, nil
		}
	}

	var cmd tea.Cmd
	switch f.focus {
	case formTitle:
		f.title, cmd = f.title.Update(msg)
	case formDescription:
		f.desc, cmd = f.desc.Update(msg)
	case formDeadline:
		f.deadline, cmd = f.deadline.Update(msg)
	}
	return f, cmd
}

func (f taskForm) View(pending bool) string {
	header := "New Task"
	if f.editing != nil {
		header = "Edit Task"
	}
	label := func(idx int, s string) string {
		if idx == f.focus {
			return focusedLabelStyle.Render("> " + s)
		}
		return statusStyle.Render("  " + s)
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(header) + "\n\n")
	sb.WriteString(label(formTitle, "Title") + "\n" + f.title.View() + "\n\n")
	sb.WriteString(label(formDescription, "Description") + "\n" + f.desc.View() + "\n\n")
	sb.WriteString(label(formPriority, "Priority") + "\n  " +
		fmt.Sprintf("%s  %d (%s)", priorityMark(f.priority), f.priority, model.PriorityLabel(f.priority)) + "\n\n")
	sb.WriteString(label(formDeadline, "Deadline") + "\n  " + f.deadline.View() + "\n\n")

	if f.err != nil {
		sb.WriteString(errorStyle.Render(f.err.Error()) + "\n\n")
	}
	submit := "ctrl+s: save"
	if pending {
		submit = "saving…"
	}
	sb.WriteString(statusStyle.Render("tab/shift+tab: field • ←/→: priority, date part • " + submit + " • esc: cancel"))
	return sb.String()
}
