package collection

import (
	"context"

	"github.com/nissyi-gh/remind/internal/model"
)

// TaskGateway is the task API: the common gateway plus completion toggling.
type TaskGateway interface {
	Gateway[model.Task]
	ToggleComplete(ctx context.Context, id int) error
}

// Tasks synchronizes a task list.
type Tasks struct {
	*Synchronizer[model.Task]
	gw TaskGateway
}

// NewTasks creates a task synchronizer.
func NewTasks(gw TaskGateway, opts Options) *Tasks {
	if opts.Noun == "" {
		opts.Noun = "task"
	}
	return &Tasks{Synchronizer: New[model.Task](gw, opts), gw: gw}
}

// ToggleComplete flips the completed flag remotely, then flips only that
// field of the local record.
func (t *Tasks) ToggleComplete(ctx context.Context, id int) error {
	return t.mutate(ctx, "toggle",
		func(ctx context.Context) error { return t.gw.ToggleComplete(ctx, id) },
		func(c *model.Collection[model.Task]) error {
			i, err := indexOf(c.Results, id)
			if err != nil {
				return err
			}
			c.Results[i].Completed = !c.Results[i].Completed
			return nil
		},
	)
}

// Folders synchronizes the current user's folders. Its selection is the
// folder whose tasks are in scope.
type Folders = Synchronizer[model.Folder]

// NewFolders creates a folder synchronizer.
func NewFolders(gw Gateway[model.Folder], opts Options) *Folders {
	if opts.Noun == "" {
		opts.Noun = "folder"
	}
	return New[model.Folder](gw, opts)
}
