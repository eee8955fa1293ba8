package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nissyi-gh/remind/internal/collection"
	"github.com/nissyi-gh/remind/internal/config"
	"github.com/nissyi-gh/remind/internal/importer"
	"github.com/nissyi-gh/remind/internal/model"
	"github.com/nissyi-gh/remind/internal/query"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// queryFlags are the list filters shared by tasks, export and prompt.
type queryFlags struct {
	search    string
	completed string
	status    string
	ordering  string
	limit     int
	page      int
	folder    string
	all       bool
}

func (q *queryFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&q.search, "search", "s", "", "match title or description")
	fs.StringVar(&q.completed, "completed", "", "completion filter: all, pending or completed (default from config)")
	fs.StringVar(&q.status, "status", "", "deadline filter: upcoming or any (default from config)")
	fs.StringVarP(&q.ordering, "ordering", "o", "", "title, priority or deadline; prefix - for descending")
	fs.IntVarP(&q.limit, "limit", "n", 0, "tasks per page, -1 for all (default from config)")
	fs.IntVar(&q.page, "page", 1, "page number")
	fs.StringVarP(&q.folder, "folder", "f", "", "folder name or id")
	fs.BoolVarP(&q.all, "all", "a", false, "ignore the completion and deadline filters")
}

// inputs overlays the flags on the configured defaults.
func (q *queryFlags) inputs(cfg *config.Config, folderID int) (query.Inputs, error) {
	in := cfg.QueryInputs()
	in.Search = q.search
	in.Page = q.page
	in.FolderID = folderID
	if q.all {
		in.Completed = query.CompletedAny
		in.Status = query.StatusAny
	}
	if q.completed != "" {
		c, err := query.ParseCompleted(q.completed)
		if err != nil {
			return query.Inputs{}, err
		}
		in.Completed = c
	}
	switch q.status {
	case "":
	case "any", "all":
		in.Status = query.StatusAny
	case string(query.StatusUpcoming):
		in.Status = query.StatusUpcoming
	default:
		return query.Inputs{}, fmt.Errorf("unknown status filter %q", q.status)
	}
	if q.ordering != "" {
		o, err := query.ParseOrdering(q.ordering)
		if err != nil {
			return query.Inputs{}, err
		}
		in.Ordering = o
	}
	if q.limit != 0 {
		in.Limit = q.limit
	}
	return in, nil
}

// resolveFolder finds a folder by id or case-insensitive name. An empty ref
// is the "all tasks" scope.
func resolveFolder(folders *collection.Folders, ref string) (model.Folder, error) {
	if ref == "" {
		return model.Folder{}, nil
	}
	if id, err := strconv.Atoi(ref); err == nil {
		if f, ok := folders.Find(id); ok {
			return f, nil
		}
		return model.Folder{}, fmt.Errorf("no folder with id %d", id)
	}
	for _, f := range folders.Snapshot().Results {
		if strings.EqualFold(f.Name, strings.TrimSpace(ref)) {
			return f, nil
		}
	}
	return model.Folder{}, fmt.Errorf("no folder named %q", ref)
}

// loadScope loads the folders and the tasks matching q.
func (a *app) loadScope(ctx context.Context, out io.Writer, q *queryFlags) (*collection.Tasks, *collection.Folders, model.Folder, query.Descriptor, error) {
	opts := a.syncOptions(out)
	folders := collection.NewFolders(a.client.Folders(), opts)
	tasks := collection.NewTasks(a.client.Tasks(), opts)
	if err := folders.Load(ctx, query.Descriptor{}); err != nil {
		return nil, nil, model.Folder{}, query.Descriptor{}, describe(err)
	}
	scope, err := resolveFolder(folders, q.folder)
	if err != nil {
		return nil, nil, model.Folder{}, query.Descriptor{}, err
	}
	folders.Select(scope.ID)
	in, err := q.inputs(a.cfg, scope.ID)
	if err != nil {
		return nil, nil, model.Folder{}, query.Descriptor{}, err
	}
	d := query.Build(in)
	if err := tasks.Load(ctx, d); err != nil {
		return nil, nil, model.Folder{}, query.Descriptor{}, describe(err)
	}
	return tasks, folders, scope, d, nil
}

// loadEverything loads every task so that mutations can find their record.
func (a *app) loadEverything(ctx context.Context, out io.Writer) (*collection.Tasks, error) {
	tasks := collection.NewTasks(a.client.Tasks(), a.syncOptions(out))
	if err := tasks.Load(ctx, query.Build(query.Inputs{Limit: query.Unbounded})); err != nil {
		return nil, describe(err)
	}
	return tasks, nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(s, "#"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func (a *app) tasksCmd() *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			tasks, folders, _, d, err := a.loadScope(cmd.Context(), out, &q)
			if err != nil {
				return err
			}
			snap := tasks.Snapshot()
			if len(snap.Results) == 0 {
				fmt.Fprintln(out, "No tasks.")
				return nil
			}
			fmt.Fprintln(out, renderTasks(snap.Results, folders.Snapshot().Results))
			fmt.Fprintf(out, "page %d/%d, %d tasks, ordered by %s\n",
				q.page, max(query.PageCount(snap.Count, d.Limit), 1), snap.Count, d.Ordering)
			return nil
		},
	}
	q.register(cmd.Flags())
	cmd.AddCommand(a.taskAddCmd(), a.taskEditCmd(), a.taskDoneCmd(), a.taskRemoveCmd())
	return cmd
}

func renderTasks(tasks []model.Task, folders []model.Folder) string {
	names := make(map[int]string, len(folders))
	for _, f := range folders {
		names[f.ID] = f.Name
	}
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		done := " "
		if t.Completed {
			done = "x"
		} else if t.IsOverdue() {
			done = "!"
		}
		folder := ""
		if t.FolderID != nil {
			folder = names[*t.FolderID]
		}
		due := ""
		if !t.Deadline.IsZero() {
			due = t.Deadline.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{strconv.Itoa(t.ID), done, t.Title, model.PriorityLabel(t.Priority), due, folder})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "", "TITLE", "PRIORITY", "DUE", "FOLDER").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Render()
}

type taskFields struct {
	title       string
	description string
	deadline    string
	priority    int
}

func (f *taskFields) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.title, "title", "t", "", "title")
	fs.StringVarP(&f.description, "description", "d", "", "description (defaults to the title)")
	fs.StringVar(&f.deadline, "deadline", "", `deadline as "YYYY-MM-DD HH:MM", or a date for the end of that day`)
	fs.IntVarP(&f.priority, "priority", "p", model.DefaultPriority, "priority 1 (very low) to 5 (very high)")
}

func (a *app) taskAddCmd() *cobra.Command {
	var f taskFields
	var folder string
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Create a task",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			if len(args) == 1 {
				f.title = args[0]
			}
			now := a.now()
			t := model.Task{
				Title:       strings.TrimSpace(f.title),
				Description: strings.TrimSpace(f.description),
				Priority:    f.priority,
				AssignedTo:  a.session.User().ID,
			}
			if t.Description == "" {
				t.Description = t.Title
			}
			if f.deadline != "" {
				d, err := importer.ParseDeadline(f.deadline, now.Location())
				if err != nil {
					return err
				}
				t.Deadline = d
			}
			if err := t.ValidateInput(now); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if folder != "" {
				folders := collection.NewFolders(a.client.Folders(), a.syncOptions(out))
				if err := folders.Load(cmd.Context(), query.Descriptor{}); err != nil {
					return describe(err)
				}
				scope, err := resolveFolder(folders, folder)
				if err != nil {
					return err
				}
				t.FolderID = &scope.ID
			}

			tasks := collection.NewTasks(a.client.Tasks(), a.syncOptions(out))
			created, err := tasks.Create(cmd.Context(), t)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(out, "#%d %s\n", created.ID, created.Title)
			return nil
		},
	}
	f.register(cmd.Flags())
	cmd.Flags().StringVarP(&folder, "folder", "f", "", "folder name or id")
	return cmd
}

func (a *app) taskEditCmd() *cobra.Command {
	var f taskFields
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			tasks, err := a.loadEverything(cmd.Context(), out)
			if err != nil {
				return err
			}
			current, ok := tasks.Find(id)
			if !ok {
				return fmt.Errorf("no task with id %d", id)
			}

			now := a.now()
			next := current
			flags := cmd.Flags()
			if flags.Changed("title") {
				next.Title = strings.TrimSpace(f.title)
			}
			if flags.Changed("description") {
				next.Description = strings.TrimSpace(f.description)
			}
			if flags.Changed("priority") {
				next.Priority = f.priority
			}
			if flags.Changed("deadline") {
				d, err := importer.ParseDeadline(f.deadline, now.Location())
				if err != nil {
					return err
				}
				next.Deadline = d
			}
			if next.SameContent(current) {
				return errors.New("nothing to change")
			}
			if err := next.ValidateInput(now); err != nil {
				return err
			}
			if _, err := tasks.Update(cmd.Context(), id, next); err != nil {
				return describe(err)
			}
			return nil
		},
	}
	f.register(cmd.Flags())
	return cmd
}

func (a *app) taskDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle whether a task is completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			tasks, err := a.loadEverything(cmd.Context(), out)
			if err != nil {
				return err
			}
			if _, ok := tasks.Find(id); !ok {
				return fmt.Errorf("no task with id %d", id)
			}
			if err := tasks.ToggleComplete(cmd.Context(), id); err != nil {
				return describe(err)
			}
			t, _ := tasks.Find(id)
			state := "reopened"
			if t.Completed {
				state = "completed"
			}
			fmt.Fprintf(out, "#%d %s %s.\n", t.ID, t.Title, state)
			return nil
		},
	}
}

func (a *app) taskRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"delete"},
		Short:   "Delete tasks",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			ids := make([]int, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			tasks, err := a.loadEverything(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			for _, id := range ids {
				if _, ok := tasks.Find(id); !ok {
					return fmt.Errorf("no task with id %d", id)
				}
				if err := tasks.Delete(cmd.Context(), id); err != nil {
					return describe(err)
				}
			}
			return nil
		},
	}
}
