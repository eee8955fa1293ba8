package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/nissyi-gh/remind/internal/model"
)

const yamlFormat = `Reply with a single YAML code block in the format below and nothing else.

` + "```yaml" + `
folder: "Folder name"
tasks:
  - title: "Task title"
    description: "What needs to be done"
    deadline: "YYYY-MM-DD HH:MM"
    priority: 3
` + "```" + `

Fields:
- folder: (optional) folder to put every task in; created if missing
- title: (required) up to 200 characters
- description: (optional) details; defaults to the title
- deadline: (required) local date and time, not in the past; a bare YYYY-MM-DD means the end of that day
- priority: (optional) 1 (very low) to 5 (very high), default 3`

// GenerateNew returns a prompt for planning new tasks from scratch.
func GenerateNew(now time.Time) string {
	return fmt.Sprintf(`You are a task planning assistant.
Break the user's request down into concrete tasks with realistic deadlines.
The current date and time is %s.

%s
`, now.Format("2006-01-02 15:04 (Monday)"), yamlFormat)
}

// GenerateFromTasks returns a prompt that asks for follow-up tasks, given
// the tasks currently in scope. folder may be empty.
func GenerateFromTasks(now time.Time, folder string, tasks []model.Task) string {
	var sb strings.Builder

	sb.WriteString("You are a task planning assistant.\n")
	sb.WriteString("Review the task list below and propose the tasks that are still missing.\n")
	sb.WriteString(fmt.Sprintf("The current date and time is %s.\n\n", now.Format("2006-01-02 15:04 (Monday)")))

	if folder != "" {
		sb.WriteString(fmt.Sprintf("## Folder\n%s\n\n", folder))
	}

	sb.WriteString("## Current tasks\n")
	if len(tasks) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, t := range tasks {
		status := "open"
		switch {
		case t.Completed:
			status = "done"
		case t.IsOverdue():
			status = "overdue"
		}
		sb.WriteString(fmt.Sprintf("- %s (%s, priority %d", t.Title, status, t.Priority))
		if !t.Deadline.IsZero() {
			sb.WriteString(fmt.Sprintf(", due %s", t.Deadline.Local().Format("2006-01-02 15:04")))
		}
		sb.WriteString(")\n")
		if t.Description != "" && t.Description != t.Title {
			sb.WriteString(fmt.Sprintf("  %s\n", t.Description))
		}
	}
	sb.WriteString("\nDo not repeat tasks that already exist.\n\n")

	sb.WriteString(yamlFormat)
	sb.WriteString("\n")

	return sb.String()
}
