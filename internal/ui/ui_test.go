package ui

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nissyi-gh/remind/internal/api"
	"github.com/nissyi-gh/remind/internal/api/apitest"
	"github.com/nissyi-gh/remind/internal/config"
	"github.com/nissyi-gh/remind/internal/model"
	"github.com/nissyi-gh/remind/internal/query"
	"github.com/nissyi-gh/remind/internal/session"
	"github.com/nissyi-gh/remind/internal/store"
)

var future = model.NewDeadline(time.Date(2099, 12, 31, 18, 0, 0, 0, time.Local))

// inbox collects messages sent to the program from outside Update.
type inbox struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (i *inbox) send(msg tea.Msg) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.msgs = append(i.msgs, msg)
}

func (i *inbox) take() []tea.Msg {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.msgs
	i.msgs = nil
	return out
}

type manualTimer struct{ stopped bool }

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// manualClock fires debounced callbacks only on Fire.
type manualClock struct {
	mu      sync.Mutex
	pending []func()
	timers  []*manualTimer
}

func (c *manualClock) AfterFunc(_ time.Duration, f func()) query.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{}
	c.timers = append(c.timers, t)
	c.pending = append(c.pending, f)
	return t
}

func (c *manualClock) Fire() {
	c.mu.Lock()
	var due []func()
	for i, f := range c.pending {
		if !c.timers[i].stopped {
			c.timers[i].stopped = true
			due = append(due, f)
		}
	}
	c.mu.Unlock()
	for _, f := range due {
		f()
	}
}

type harness struct {
	t       *testing.T
	backend *apitest.Backend
	session *session.Session
	clock   *manualClock
	inbox   *inbox
	copied  string
	paste   string
	m       Model
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	b := apitest.NewBackend(t)
	b.AddUser("alice", "secret")

	st, err := store.Open(":memory:", "")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	sess, err := session.New(st)
	require.NoError(t, err)

	client, err := api.NewClient(api.Options{BaseURL: b.URL, Tokens: sess})
	require.NoError(t, err)

	cfg := config.Default()
	h := &harness{t: t, backend: b, session: sess, clock: &manualClock{}, inbox: &inbox{}}
	h.m = New(Deps{
		Auth:      client,
		Tasks:     client.Tasks(),
		Folders:   client.Folders(),
		Session:   sess,
		Config:    cfg,
		CopyText:  func(s string) error { h.copied = s; return nil },
		PasteText: func() (string, error) { return h.paste, nil },
		AfterFunc: h.clock.AfterFunc,
	})
	h.m.Attach(h.inbox.send)
	return h
}

// drain runs cmd and everything it leads to. Commands that block past a
// short deadline, like cursor blinks and toasts expiring, are dropped.
func (h *harness) drain(cmd tea.Cmd) {
	h.t.Helper()
	queue := []tea.Cmd{cmd}
	for round := 0; round < 50; round++ {
		var msgs []tea.Msg
		results := make([]chan tea.Msg, 0, len(queue))
		for _, c := range queue {
			if c == nil {
				continue
			}
			ch := make(chan tea.Msg, 1)
			go func(c tea.Cmd) { ch <- c() }(c)
			results = append(results, ch)
		}
		deadline := time.After(300 * time.Millisecond)
	collect:
		for _, ch := range results {
			select {
			case msg := <-ch:
				msgs = append(msgs, msg)
			case <-deadline:
				break collect
			}
		}
		// Notifications are sent before the command that caused them returns.
		msgs = append(h.inbox.take(), msgs...)

		queue = nil
		for len(msgs) > 0 {
			msg := msgs[0]
			msgs = msgs[1:]
			switch msg := msg.(type) {
			case nil, spinner.TickMsg:
				continue
			case tea.BatchMsg:
				queue = append(queue, msg...)
				continue
			}
			next, c := h.m.Update(msg)
			h.m = next.(Model)
			queue = append(queue, c)
			msgs = append(msgs, h.inbox.take()...)
		}
		if len(queue) == 0 {
			return
		}
	}
}

func (h *harness) press(keys ...string) {
	h.t.Helper()
	for _, k := range keys {
		next, cmd := h.m.Update(keyMsg(k))
		h.m = next.(Model)
		h.drain(cmd)
	}
}

// typeText feeds runes one by one. Typing only yields cursor commands, so
// they are not run.
func (h *harness) typeText(s string) {
	h.t.Helper()
	for _, r := range s {
		next, _ := h.m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		h.m = next.(Model)
	}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// login authenticates through the login screen.
func (h *harness) login() {
	h.t.Helper()
	h.typeText("alice")
	h.press("enter")
	h.typeText("secret")
	h.press("enter")
	require.Equal(h.t, screenList, h.m.screen, "login failed: %v", h.m.login.err)
}

func (h *harness) titles() []string {
	var out []string
	for _, it := range h.m.list.Items() {
		out = append(out, it.(TaskItem).Task.Title)
	}
	return out
}

func TestLoginLoadsTasksAndFolders(t *testing.T) {
	h := newHarness(t)
	work := h.backend.SeedFolder(model.Folder{Name: "Work", AssignedTo: 1})
	h.backend.SeedTask(model.Task{Title: "Write report", Description: "q3", Deadline: future, AssignedTo: 1, FolderID: &work.ID})
	h.backend.SeedTask(model.Task{Title: "Buy milk", Description: "2l", Deadline: future, AssignedTo: 1})
	h.backend.SeedTask(model.Task{Title: "Done already", Description: "x", Deadline: future, AssignedTo: 1, Completed: true})

	assert.Equal(t, screenLogin, h.m.screen)
	h.login()

	assert.True(t, h.session.Authenticated())
	assert.Equal(t, "alice", h.session.User().Username)
	assert.Equal(t, []string{"Buy milk", "Write report"}, h.titles())
	require.Len(t, h.m.folderItems, 2)
	assert.Equal(t, AllTasksLabel, h.m.folderItems[0].Name)
	assert.Equal(t, "Work", h.m.folderItems[1].Name)
	assert.Zero(t, h.m.inflight)
}

func TestLoginShowsBadCredentials(t *testing.T) {
	h := newHarness(t)
	h.typeText("alice")
	h.press("enter")
	h.typeText("wrong")
	h.press("enter")

	assert.Equal(t, screenLogin, h.m.screen)
	require.Error(t, h.m.login.err)
	assert.Equal(t, "invalid username or password", h.m.login.err.Error())
	assert.False(t, h.session.Authenticated())
}

func TestRegisterReturnsToLogin(t *testing.T) {
	h := newHarness(t)
	h.press("ctrl+r")
	require.True(t, h.m.login.register)

	h.typeText("bob")
	h.press("enter")
	h.typeText("bob@example.com")
	h.press("enter")
	h.typeText("hunter22")
	h.press("enter")
	h.typeText("hunter22")
	h.press("enter")

	require.NoError(t, h.m.login.err)
	assert.False(t, h.m.login.register)
	assert.Equal(t, "bob", h.m.login.value(loginUsername))
	assert.Equal(t, "Account created. Log in to continue.", h.m.note.Message)
}

func TestRestoredSessionSkipsLogin(t *testing.T) {
	h := newHarness(t)
	h.backend.SeedTask(model.Task{Title: "Buy milk", Description: "2l", Deadline: future, AssignedTo: 1})
	require.NoError(t, h.session.Establish(model.AuthToken{Access: h.backend.Token("alice")}))

	h.drain(h.m.Init())

	assert.Equal(t, screenList, h.m.screen)
	assert.Equal(t, []string{"Buy milk"}, h.titles())
}

func TestAddTask(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.press("a")
	require.Equal(t, screenTaskForm, h.m.screen)
	h.typeText("Call mom")
	h.press("tab")
	h.typeText("Sunday")
	h.press("tab", "5", "tab")
	h.typeText("20991231")
	h.press("ctrl+s")

	require.Equal(t, screenList, h.m.screen, "form error: %v", h.m.form.err)
	assert.Equal(t, []string{"Call mom"}, h.titles())
	tasks := h.backend.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, 5, tasks[0].Priority)
	assert.Equal(t, 1, tasks[0].AssignedTo)
	assert.Equal(t, 23, tasks[0].Deadline.Local().Hour())
	assert.Equal(t, "Task created.", h.m.note.Message)
}

func TestAddTaskRejectsMissingDeadline(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.press("a")
	h.typeText("Call mom")
	h.press("tab")
	h.typeText("Sunday")
	h.press("ctrl+s")

	assert.Equal(t, screenTaskForm, h.m.screen)
	assert.ErrorIs(t, h.m.form.err, model.ErrValidation)
	assert.Empty(t, h.backend.Tasks())
}

func TestEditWithoutChangesIsRejected(t *testing.T) {
	h := newHarness(t)
	h.backend.SeedTask(model.Task{Title: "Buy milk", Description: "2l", Deadline: future, AssignedTo: 1})
	h.login()

	h.press("e")
	require.Equal(t, screenTaskForm, h.m.screen)
	h.press("ctrl+s")
	assert.ErrorIs(t, h.m.form.err, errNoChanges)

	h.typeText(" today")
	h.press("ctrl+s")
	assert.Equal(t, screenList, h.m.screen)
	assert.Equal(t, []string{"Buy milk today"}, h.titles())
}

func TestToggleHidesTaskUnderIncompleteFilter(t *testing.T) {
	h := newHarness(t)
	task := h.backend.SeedTask(model.Task{Title: "Buy milk", Description: "2l", Deadline: future, AssignedTo: 1})
	h.login()

	h.press("x")

	assert.Empty(t, h.titles())
	done := h.backend.Tasks()
	require.Len(t, done, 1)
	assert.Equal(t, task.ID, done[0].ID)
	assert.True(t, done[0].Completed)

	// all -> the task is back, completed
	h.press("c", "c")
	require.Len(t, h.m.list.Items(), 1)
	assert.True(t, h.m.list.Items()[0].(TaskItem).Task.Completed)
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	h := newHarness(t)
	h.backend.SeedTask(model.Task{Title: "Buy milk", Description: "2l", Deadline: future, AssignedTo: 1})
	h.login()

	h.press("d")
	require.Equal(t, screenConfirm, h.m.screen)
	h.press("n")
	assert.Equal(t, screenList, h.m.screen)
	assert.Len(t, h.backend.Tasks(), 1)

	h.press("d", "y")
	assert.Empty(t, h.titles())
	assert.Empty(t, h.backend.Tasks())
	assert.Equal(t, "Task deleted.", h.m.note.Message)
}

func TestSearchWaitsForDebounce(t *testing.T) {
	h := newHarness(t)
	h.backend.SeedTask(model.Task{Title: "Buy milk", Description: "2l", Deadline: future, AssignedTo: 1})
	h.backend.SeedTask(model.Task{Title: "Walk dog", Description: "park", Deadline: future, AssignedTo: 1})
	h.login()
	before := h.backend.Requests()

	h.press("/")
	h.typeText("milk")
	assert.Equal(t, before, h.backend.Requests())
	assert.True(t, h.m.builder.SearchPending())
	assert.Len(t, h.titles(), 2)

	h.clock.Fire()
	h.drain(nil)

	assert.Equal(t, before+1, h.backend.Requests())
	assert.Equal(t, []string{"Buy milk"}, h.titles())

	// keys go to the search box until enter
	h.press("enter", "x")
	for _, tk := range h.backend.Tasks() {
		assert.Equal(t, tk.Title == "Buy milk", tk.Completed, tk.Title)
	}
}

func TestSelectingFolderScopesTasks(t *testing.T) {
	h := newHarness(t)
	work := h.backend.SeedFolder(model.Folder{Name: "Work", AssignedTo: 1})
	h.backend.SeedTask(model.Task{Title: "Write report", Description: "q3", Deadline: future, AssignedTo: 1, FolderID: &work.ID})
	h.backend.SeedTask(model.Task{Title: "Buy milk", Description: "2l", Deadline: future, AssignedTo: 1})
	h.login()

	h.press("tab", "down", "enter")

	assert.Equal(t, paneTasks, h.m.pane)
	assert.Equal(t, work.ID, h.m.folders.Selected())
	assert.Equal(t, work.ID, h.m.builder.Inputs().FolderID)
	assert.Equal(t, []string{"Write report"}, h.titles())

	// new tasks land in the scoped folder
	h.press("a")
	h.typeText("Slides")
	h.press("tab")
	h.typeText("deck")
	h.press("tab", "tab")
	h.typeText("20991231")
	h.press("ctrl+s")
	var slides model.Task
	for _, tk := range h.backend.Tasks() {
		if tk.Title == "Slides" {
			slides = tk
		}
	}
	require.NotNil(t, slides.FolderID)
	assert.Equal(t, work.ID, *slides.FolderID)
}

func TestFolderLifecycle(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.press("N")
	require.Equal(t, screenFolderInput, h.m.screen)
	h.typeText("Home")
	h.press("enter")
	assert.Equal(t, screenList, h.m.screen)
	require.Len(t, h.backend.Folders(), 1)
	require.Len(t, h.m.folderItems, 2)

	h.press("tab", "down", "R")
	require.Equal(t, screenFolderInput, h.m.screen)
	h.typeText("work")
	h.press("enter")
	assert.Equal(t, "Homework", h.backend.Folders()[0].Name)
	assert.Equal(t, "Homework", h.m.folderItems[1].Name)

	h.press("D")
	require.Equal(t, screenConfirm, h.m.screen)
	h.press("y")
	assert.Empty(t, h.backend.Folders())
	assert.Len(t, h.m.folderItems, 1)
}

func TestUnauthorizedReturnsToLogin(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.backend.Revoke()
	h.press("ctrl+r")

	assert.Equal(t, screenLogin, h.m.screen)
	assert.False(t, h.session.Authenticated())
	assert.Nil(t, h.m.tasks)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.press("L")

	assert.Equal(t, screenLogin, h.m.screen)
	assert.False(t, h.session.Authenticated())
	assert.Equal(t, "Logged out.", h.m.note.Message)
}

func TestServerErrorKeepsList(t *testing.T) {
	h := newHarness(t)
	h.backend.SeedTask(model.Task{Title: "Buy milk", Description: "2l", Deadline: future, AssignedTo: 1})
	h.login()

	h.backend.FailNext("DELETE /tasks/", 1)
	h.press("d", "y")

	assert.Equal(t, []string{"Buy milk"}, h.titles())
	assert.Equal(t, "Could not delete task.", h.m.note.Message)
}

func TestCopyYAMLAndPrompt(t *testing.T) {
	h := newHarness(t)
	h.backend.SeedTask(model.Task{Title: "Buy milk", Description: "2l", Deadline: future, AssignedTo: 1})
	h.login()

	h.press("y")
	assert.Contains(t, h.copied, "title: Buy milk")
	assert.Equal(t, "Copied YAML to clipboard.", h.m.note.Message)

	h.press("p")
	assert.Contains(t, h.copied, "Buy milk")
	assert.Equal(t, "Copied prompt to clipboard.", h.m.note.Message)
}

func TestCopyFailureIsReported(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.m.deps.CopyText = func(string) error { return errors.New("no clipboard") }

	h.press("y")
	assert.Equal(t, "Could not copy to clipboard.", h.m.note.Message)
}

func TestImportFromClipboard(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.paste = strings.Join([]string{
		"folder: Errands",
		"tasks:",
		"  - title: Buy milk",
		"    deadline: 2099-12-31 18:00",
		"  - title: Post letter",
		"    deadline: 2099-12-30",
		"    priority: 1",
	}, "\n")

	h.press("i")

	assert.Equal(t, "Imported 2 tasks.", h.m.note.Message)
	require.Len(t, h.backend.Folders(), 1)
	assert.Equal(t, "Errands", h.backend.Folders()[0].Name)
	assert.Len(t, h.backend.Tasks(), 2)
	assert.ElementsMatch(t, []string{"Buy milk", "Post letter"}, h.titles())
	assert.Len(t, h.m.folderItems, 2)
}

func TestImportRejectsInvalidDocument(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.paste = "tasks:\n  - title: ''\n"

	h.press("i")

	assert.True(t, strings.HasPrefix(h.m.note.Message, "Import failed:"))
	assert.Empty(t, h.backend.Tasks())
}

func TestLateResultsAfterLogoutAreDropped(t *testing.T) {
	h := newHarness(t)
	h.login()
	stale := tasksLoadedMsg{sess: h.m.sess}

	h.press("L")
	next, _ := h.m.Update(stale)
	h.m = next.(Model)

	assert.Equal(t, screenLogin, h.m.screen)
	assert.Zero(t, h.m.inflight)
}

func TestPagingFollowsPageSize(t *testing.T) {
	h := newHarness(t)
	for _, title := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		h.backend.SeedTask(model.Task{Title: title, Description: title, Deadline: future, AssignedTo: 1})
	}
	h.login()
	require.Len(t, h.titles(), 7)

	h.press("l") // 5 per page
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, h.titles())
	assert.Equal(t, 2, h.m.pager.TotalPages)

	h.press("]")
	assert.Equal(t, []string{"f", "g"}, h.titles())
	h.press("]")
	assert.Equal(t, 2, h.m.builder.Inputs().Page)

	h.press("r")
	assert.Equal(t, 2, h.m.builder.Inputs().Page)
	assert.Equal(t, []string{"b", "a"}, h.titles())

	h.press("[")
	assert.Equal(t, []string{"g", "f", "e", "d", "c"}, h.titles())
}

func TestBuildFolderTree(t *testing.T) {
	items := BuildFolderTree([]model.Folder{{ID: 3, Name: "Work"}, {Name: "Home"}})

	require.Len(t, items, 3)
	assert.Equal(t, AllTasksLabel, items[0].Label())
	assert.Equal(t, " ├─ Work", items[1].Label())
	assert.Equal(t, " └─ Home …", items[2].Label())
	assert.Equal(t, 1, folderIndex(items, 3))
	assert.Equal(t, 0, folderIndex(items, 42))
}

func TestTaskItemMarksState(t *testing.T) {
	now := time.Now()
	overdue := TaskItem{Task: model.Task{Title: "Late", Deadline: model.NewDeadline(now.Add(-48 * time.Hour)), Priority: 2}}
	done := TaskItem{Task: model.Task{Title: "Done", Deadline: future, Completed: true, Priority: 2}}

	assert.True(t, strings.HasPrefix(overdue.Title(), "[ ] ! "))
	assert.True(t, strings.HasSuffix(overdue.Title(), " Late"))
	assert.True(t, strings.HasPrefix(done.Title(), "[x] "))
	assert.NotContains(t, done.Title(), "!")
	assert.Contains(t, done.Description(), "due ")
}
