package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nissyi-gh/remind/internal/model"
)

// DeadlineLayout is the deadline format used in YAML documents, in local time.
const DeadlineLayout = "2006-01-02 15:04"

// YAMLTask represents a single task in the YAML input.
type YAMLTask struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
	Deadline    string `yaml:"deadline"`
	Priority    int    `yaml:"priority,omitempty"`
	Completed   bool   `yaml:"completed,omitempty"`
}

// YAMLInput represents the root structure of the YAML input.
type YAMLInput struct {
	Folder string     `yaml:"folder,omitempty"`
	Tasks  []YAMLTask `yaml:"tasks"`
}

// TaskCreator creates one task on the backend.
type TaskCreator interface {
	Create(ctx context.Context, t model.Task) (model.Task, error)
}

// FolderCreator lists known folders and creates missing ones.
type FolderCreator interface {
	Snapshot() model.Collection[model.Folder]
	Create(ctx context.Context, f model.Folder) (model.Folder, error)
}

// Options controls where imported tasks land.
type Options struct {
	// UserID is sent as assigned_to.
	UserID int
	// FolderID is used when the document names no folder; 0 means none.
	FolderID int
	Now      func() time.Time
}

// Parse reads a YAML document and converts every entry, failing on the
// first invalid one so that nothing is created from a broken document.
func Parse(yamlStr string, now time.Time) (YAMLInput, []model.Task, error) {
	var input YAMLInput
	if err := yaml.Unmarshal([]byte(yamlStr), &input); err != nil {
		return YAMLInput{}, nil, fmt.Errorf("YAML parse error: %w", err)
	}

	if len(input.Tasks) == 0 {
		return YAMLInput{}, nil, fmt.Errorf("no tasks found in YAML")
	}

	tasks := make([]model.Task, 0, len(input.Tasks))
	for i, yt := range input.Tasks {
		t, err := yt.toTask(now.Location())
		if err != nil {
			return YAMLInput{}, nil, fmt.Errorf("task %d: %w", i+1, err)
		}
		if err := t.ValidateInput(now); err != nil {
			return YAMLInput{}, nil, fmt.Errorf("task %d (%q): %w", i+1, yt.Title, err)
		}
		tasks = append(tasks, t)
	}
	return input, tasks, nil
}

func (yt YAMLTask) toTask(loc *time.Location) (model.Task, error) {
	title := strings.TrimSpace(yt.Title)
	if title == "" {
		return model.Task{}, fmt.Errorf("%w: task title is required", model.ErrValidation)
	}
	desc := strings.TrimSpace(yt.Description)
	if desc == "" {
		desc = title
	}
	priority := yt.Priority
	if priority == 0 {
		priority = model.DefaultPriority
	}
	deadline, err := ParseDeadline(yt.Deadline, loc)
	if err != nil {
		return model.Task{}, err
	}
	return model.Task{
		Title:       title,
		Description: desc,
		Deadline:    deadline,
		Priority:    priority,
		Completed:   yt.Completed,
	}, nil
}

// ParseDeadline accepts "YYYY-MM-DD HH:MM", a bare date meaning the end of
// that day, or any wire layout.
func ParseDeadline(s string, loc *time.Location) (model.Deadline, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.Deadline{}, fmt.Errorf("%w: deadline is required", model.ErrValidation)
	}
	if t, err := time.ParseInLocation(DeadlineLayout, s, loc); err == nil {
		return model.NewDeadline(t), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return model.NewDeadline(t.Add(24*time.Hour - time.Minute)), nil
	}
	d, err := model.ParseDeadline(s)
	if err != nil {
		return model.Deadline{}, fmt.Errorf("%w: deadline %q: use YYYY-MM-DD HH:MM", model.ErrValidation, s)
	}
	return d, nil
}

// Import parses a YAML string and creates its tasks through dst.
// The named folder is created if it does not exist yet.
// Returns the number of tasks created.
func Import(ctx context.Context, dst TaskCreator, folders FolderCreator, yamlStr string, opts Options) (int, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	input, tasks, err := Parse(yamlStr, now())
	if err != nil {
		return 0, err
	}

	folderID := opts.FolderID
	if input.Folder != "" {
		if folders == nil {
			return 0, errors.New("document names a folder but no folder source was given")
		}
		folderID, err = resolveFolder(ctx, folders, input.Folder, opts.UserID)
		if err != nil {
			return 0, err
		}
	}

	count := 0
	for _, t := range tasks {
		t.AssignedTo = opts.UserID
		if folderID != 0 {
			id := folderID
			t.FolderID = &id
		}
		if _, err := dst.Create(ctx, t); err != nil {
			return count, fmt.Errorf("add task %q: %w", t.Title, err)
		}
		count++
	}
	return count, nil
}

func resolveFolder(ctx context.Context, folders FolderCreator, name string, userID int) (int, error) {
	name, err := model.NormalizeFolderName(name)
	if err != nil {
		return 0, err
	}
	for _, f := range folders.Snapshot().Results {
		if strings.EqualFold(f.Name, name) {
			return f.ID, nil
		}
	}
	f, err := folders.Create(ctx, model.Folder{Name: name, AssignedTo: userID})
	if err != nil {
		return 0, fmt.Errorf("create folder %q: %w", name, err)
	}
	return f.ID, nil
}

// Export renders tasks in the import format. folder may be empty.
func Export(folder string, tasks []model.Task) (string, error) {
	out := YAMLInput{Folder: folder, Tasks: make([]YAMLTask, 0, len(tasks))}
	for _, t := range tasks {
		yt := YAMLTask{
			Title:       t.Title,
			Description: t.Description,
			Priority:    t.Priority,
			Completed:   t.Completed,
		}
		if !t.Deadline.IsZero() {
			yt.Deadline = t.Deadline.Local().Format(DeadlineLayout)
		}
		out.Tasks = append(out.Tasks, yt)
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("marshal YAML: %w", err)
	}
	return string(data), nil
}
