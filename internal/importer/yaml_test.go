package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nissyi-gh/remind/internal/model"
)

var now = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

type fakeTasks struct {
	created []model.Task
	failAt  int
}

func (f *fakeTasks) Create(_ context.Context, t model.Task) (model.Task, error) {
	if f.failAt > 0 && len(f.created)+1 == f.failAt {
		return model.Task{}, errors.New("backend down")
	}
	t.ID = len(f.created) + 1
	f.created = append(f.created, t)
	return t, nil
}

type fakeFolders struct {
	folders []model.Folder
}

func (f *fakeFolders) Snapshot() model.Collection[model.Folder] {
	return model.Collection[model.Folder]{Count: len(f.folders), Results: f.folders}
}

func (f *fakeFolders) Create(_ context.Context, folder model.Folder) (model.Folder, error) {
	folder.ID = 100 + len(f.folders)
	f.folders = append(f.folders, folder)
	return folder, nil
}

func opts() Options {
	return Options{UserID: 7, Now: func() time.Time { return now }}
}

func TestImportCreatesTasks(t *testing.T) {
	doc := `
tasks:
  - title: Buy milk
    description: Two litres
    deadline: "2026-05-04 18:30"
    priority: 2
  - title: File taxes
    deadline: "2026-05-10"
`
	dst := &fakeTasks{}
	n, err := Import(context.Background(), dst, &fakeFolders{}, doc, opts())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, dst.created, 2)
	first := dst.created[0]
	assert.Equal(t, "Buy milk", first.Title)
	assert.Equal(t, 2, first.Priority)
	assert.Equal(t, 7, first.AssignedTo)
	assert.Nil(t, first.FolderID)
	assert.True(t, time.Date(2026, 5, 4, 18, 30, 0, 0, time.UTC).Equal(first.Deadline.Time))

	second := dst.created[1]
	assert.Equal(t, "File taxes", second.Description)
	assert.Equal(t, model.DefaultPriority, second.Priority)
	assert.Equal(t, 23, second.Deadline.Hour())
}

func TestImportIntoNamedFolder(t *testing.T) {
	doc := `
folder: Groceries
tasks:
  - title: Eggs
    deadline: "2026-05-05 09:00"
`
	folders := &fakeFolders{folders: []model.Folder{{ID: 3, Name: "groceries"}}}
	dst := &fakeTasks{}
	_, err := Import(context.Background(), dst, folders, doc, opts())
	require.NoError(t, err)
	require.NotNil(t, dst.created[0].FolderID)
	assert.Equal(t, 3, *dst.created[0].FolderID)
	assert.Len(t, folders.folders, 1)

	doc = `
folder: Garden
tasks:
  - title: Mow
    deadline: "2026-05-05 09:00"
`
	_, err = Import(context.Background(), dst, folders, doc, opts())
	require.NoError(t, err)
	require.Len(t, folders.folders, 2)
	assert.Equal(t, 7, folders.folders[1].AssignedTo)
	assert.Equal(t, folders.folders[1].ID, *dst.created[1].FolderID)
}

func TestImportUsesScopeFolder(t *testing.T) {
	doc := "tasks:\n  - title: Call mum\n    deadline: \"2026-06-01 10:00\"\n"
	dst := &fakeTasks{}
	o := opts()
	o.FolderID = 9
	_, err := Import(context.Background(), dst, nil, doc, o)
	require.NoError(t, err)
	assert.Equal(t, 9, *dst.created[0].FolderID)
}

func TestImportRejectsWholeDocumentOnInvalidEntry(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"broken yaml", "tasks: [\n"},
		{"empty", "tasks: []\n"},
		{"missing title", "tasks:\n  - deadline: \"2026-06-01 10:00\"\n"},
		{"missing deadline", "tasks:\n  - title: A\n"},
		{"past deadline", "tasks:\n  - title: A\n    deadline: \"2026-05-03 10:00\"\n"},
		{"earlier today", "tasks:\n  - title: A\n    deadline: \"2026-05-04 11:59\"\n"},
		{"bad priority", "tasks:\n  - title: A\n    deadline: \"2026-06-01 10:00\"\n    priority: 9\n"},
		{"bad deadline", "tasks:\n  - title: A\n    deadline: tomorrow\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := &fakeTasks{}
			n, err := Import(context.Background(), dst, &fakeFolders{}, tt.doc, opts())
			assert.Error(t, err)
			assert.Zero(t, n)
			assert.Empty(t, dst.created)
		})
	}
}

func TestImportStopsOnBackendError(t *testing.T) {
	doc := `
tasks:
  - title: A
    deadline: "2026-06-01 10:00"
  - title: B
    deadline: "2026-06-01 10:00"
  - title: C
    deadline: "2026-06-01 10:00"
`
	dst := &fakeTasks{failAt: 2}
	n, err := Import(context.Background(), dst, nil, doc, opts())
	assert.Error(t, err)
	assert.Equal(t, 1, n)
}

func TestExportRoundTrips(t *testing.T) {
	deadline := model.NewDeadline(time.Date(2026, 6, 1, 10, 0, 0, 0, time.Local))
	tasks := []model.Task{
		{ID: 1, Title: "A", Description: "first", Deadline: deadline, Priority: 4},
		{ID: 2, Title: "B", Description: "second", Deadline: deadline, Priority: 1, Completed: true},
	}
	out, err := Export("Work", tasks)
	require.NoError(t, err)
	assert.Contains(t, out, "folder: Work")
	assert.Contains(t, out, "2026-06-01 10:00")

	input, parsed, err := Parse(out, time.Date(2026, 5, 1, 0, 0, 0, 0, time.Local))
	require.NoError(t, err)
	assert.Equal(t, "Work", input.Folder)
	require.Len(t, parsed, 2)
	assert.Equal(t, 4, parsed[0].Priority)
	assert.True(t, parsed[1].Completed)
	assert.True(t, deadline.Equal(parsed[0].Deadline.Time))
}
