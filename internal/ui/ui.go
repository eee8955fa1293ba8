package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/nissyi-gh/remind/internal/api"
	"github.com/nissyi-gh/remind/internal/collection"
	"github.com/nissyi-gh/remind/internal/config"
	"github.com/nissyi-gh/remind/internal/importer"
	"github.com/nissyi-gh/remind/internal/model"
	"github.com/nissyi-gh/remind/internal/prompt"
	"github.com/nissyi-gh/remind/internal/query"
	"github.com/nissyi-gh/remind/internal/session"
)

type screen int

const (
	screenLogin screen = iota
	screenList
	screenTaskForm
	screenFolderInput
	screenConfirm
)

type pane int

const (
	paneTasks pane = iota
	paneFolders
)

const (
	sidebarWidth = 26
	noteTTL      = 4 * time.Second
)

var (
	appStyle          = lipgloss.NewStyle().Padding(1, 2)
	titleStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true)
	statusStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	confirmStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	focusedLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	selectedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true)
	sidebarStyle      = lipgloss.NewStyle().
				Width(sidebarWidth).
				PaddingRight(1).
				BorderRight(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("241"))
)

// Authenticator is the unauthenticated part of the backend API.
type Authenticator interface {
	Login(ctx context.Context, creds model.Credentials) (model.AuthToken, error)
	Register(ctx context.Context, reg model.Registration) (model.User, error)
}

// Deps are the collaborators of the TUI.
type Deps struct {
	Auth    Authenticator
	Tasks   collection.TaskGateway
	Folders collection.Gateway[model.Folder]
	Session *session.Session
	Config  *config.Config
	Logger  *slog.Logger

	// CopyText and PasteText default to the system clipboard.
	CopyText  func(string) error
	PasteText func() (string, error)
	Now       func() time.Time
	// AfterFunc drives the search debounce; tests inject a fake clock.
	AfterFunc query.AfterFunc
}

// bus delivers messages produced outside the update loop: notifications,
// settled searches and session teardown.
type bus struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

func (b *bus) Send(msg tea.Msg) {
	b.mu.Lock()
	send := b.send
	b.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

func (b *bus) attach(send func(tea.Msg)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.send = send
}

type (
	notificationMsg collection.Notification
	clearNoteMsg    struct{ seq int }
	searchMsg       query.Descriptor
	loggedOutMsg    struct{}
	sessionMsg      struct{}
)

type loginMsg struct {
	tok model.AuthToken
	err error
}

type registerMsg struct {
	user model.User
	err  error
}

// Results of background work carry the session they were issued in so
// that a logout drops them.
type tasksLoadedMsg struct {
	sess int
	err  error
}

type foldersLoadedMsg struct {
	sess int
	err  error
}

type mutationMsg struct {
	sess int
	kind string
	op   string
	err  error
}

type importedMsg struct {
	sess int
	n    int
	err  error
}

type copiedMsg struct {
	what string
	err  error
}

// confirmTarget is what the delete dialog removes.
type confirmTarget struct {
	kind  string
	id    int
	label string
}

// Model is the top-level BubbleTea model for the remind TUI.
type Model struct {
	deps Deps
	bus  *bus
	log  *slog.Logger

	screen screen
	pane   pane
	keys   keyMap
	help   help.Model

	login        loginForm
	form         taskForm
	folderInput  textinput.Model
	renamingID   int
	renamingName string
	confirm      confirmTarget
	search       textinput.Model
	searching    bool

	list         list.Model
	folderItems  []FolderItem
	folderCursor int
	spinner      spinner.Model
	pager        paginator.Model

	sess    int
	ctx     context.Context
	cancel  context.CancelFunc
	tasks   *collection.Tasks
	folders *collection.Folders
	builder *query.Builder

	inflight    int
	authPending bool
	submitting  bool
	note        collection.Notification
	noteSeq     int
	width       int
	height      int
}

// New creates the TUI model. The caller must pass the tea.Program's Send
// to Attach before running it.
func New(deps Deps) Model {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Config == nil {
		deps.Config = config.Default()
	}
	if deps.CopyText == nil {
		deps.CopyText = clipboard.WriteAll
	}
	if deps.PasteText == nil {
		deps.PasteText = clipboard.ReadAll
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	keys := newKeyMap()
	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)
	l := list.New(nil, delegate, 0, 0)
	l.Title = "Tasks"
	l.Styles.Title = titleStyle
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	l.SetStatusBarItemName("task", "tasks")
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.NextPage = key.NewBinding(key.WithKeys("right", "pgdown"))
	l.KeyMap.PrevPage = key.NewBinding(key.WithKeys("left", "pgup"))

	search := textinput.New()
	search.Prompt = "search: "
	search.Placeholder = "title or description"
	search.CharLimit = 200

	folderIn := textinput.New()
	folderIn.Placeholder = "Folder name..."
	folderIn.CharLimit = model.MaxTitleLen

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	pg := paginator.New()
	pg.Type = paginator.Arabic

	b := &bus{}
	m := Model{
		deps:        deps,
		bus:         b,
		log:         deps.Logger.With("component", "ui"),
		screen:      screenLogin,
		keys:        keys,
		help:        help.New(),
		login:       newLoginForm(),
		folderInput: folderIn,
		search:      search,
		list:        l,
		folderItems: BuildFolderTree(nil),
		spinner:     sp,
		pager:       pg,
	}
	m.login.Focus()
	deps.Session.OnTeardown(func() { b.Send(loggedOutMsg{}) })
	return m
}

// Attach connects the model to the running program.
func (m Model) Attach(send func(tea.Msg)) {
	m.bus.attach(send)
}

// Run starts the TUI and blocks until it exits.
func Run(deps Deps) error {
	m := New(deps)
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.Attach(p.Send)
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.endSession()
	}
	return err
}

func (m Model) Init() tea.Cmd {
	if m.deps.Session.Authenticated() {
		return tea.Batch(m.spinner.Tick, func() tea.Msg { return sessionMsg{} })
	}
	return tea.Batch(m.spinner.Tick, textinput.Blink)
}

// startSession builds fresh synchronizers for the logged-in user.
func (m *Model) startSession() tea.Cmd {
	m.endSession()
	m.sess++

	b := m.bus
	notifier := collection.NotifierFunc(func(n collection.Notification) {
		b.Send(notificationMsg(n))
	})
	opts := collection.Options{
		Notifier: notifier,
		Teardown: m.deps.Session.Teardown,
		Logger:   m.deps.Logger,
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.tasks = collection.NewTasks(m.deps.Tasks, opts)
	m.folders = collection.NewFolders(m.deps.Folders, opts)

	builderOpts := []query.Option{
		query.WithSearchDebounce(m.deps.Config.SearchDebounce),
		query.WithSearchSettled(func(d query.Descriptor) { b.Send(searchMsg(d)) }),
	}
	if m.deps.AfterFunc != nil {
		builderOpts = append(builderOpts, query.WithAfterFunc(m.deps.AfterFunc))
	}
	m.builder = query.NewBuilder(m.deps.Config.QueryInputs(), builderOpts...)

	m.screen = screenList
	m.pane = paneTasks
	m.searching = false
	m.search.SetValue("")
	m.folderCursor = 0
	m.list.SetItems(nil)
	m.folderItems = BuildFolderTree(nil)
	m.log.Info("session started", "user", m.deps.Session.User().Username)
	return m.initialLoad()
}

// endSession detaches the current synchronizers; late results are dropped.
func (m *Model) endSession() {
	if m.cancel != nil {
		m.cancel()
	}
	if m.tasks != nil {
		m.tasks.Close()
	}
	if m.folders != nil {
		m.folders.Close()
	}
	if m.builder != nil {
		m.builder.Close()
	}
	m.tasks, m.folders, m.builder, m.cancel = nil, nil, nil, nil
	m.inflight = 0
	m.submitting = false
}

// initialLoad fetches folders and tasks in parallel.
func (m *Model) initialLoad() tea.Cmd {
	m.inflight++
	sess, ctx, tasks, folders, d := m.sess, m.ctx, m.tasks, m.folders, m.builder.Descriptor()
	return func() tea.Msg {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return folders.Load(gctx, query.Descriptor{}) })
		g.Go(func() error { return tasks.Load(gctx, d) })
		return tasksLoadedMsg{sess: sess, err: g.Wait()}
	}
}

func (m *Model) loadTasks(d query.Descriptor) tea.Cmd {
	if m.tasks == nil {
		return nil
	}
	m.inflight++
	sess, ctx, tasks := m.sess, m.ctx, m.tasks
	return func() tea.Msg {
		return tasksLoadedMsg{sess: sess, err: tasks.Load(ctx, d)}
	}
}

func (m *Model) loadFolders() tea.Cmd {
	if m.folders == nil {
		return nil
	}
	m.inflight++
	sess, ctx, folders := m.sess, m.ctx, m.folders
	return func() tea.Msg {
		return foldersLoadedMsg{sess: sess, err: folders.Load(ctx, query.Descriptor{})}
	}
}

// mutate runs fn against the current session in the background.
func (m *Model) mutate(kind, op string, fn func(ctx context.Context) error) tea.Cmd {
	if m.tasks == nil {
		return nil
	}
	m.inflight++
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		return mutationMsg{sess: sess, kind: kind, op: op, err: fn(ctx)}
	}
}

func (m Model) busy() bool {
	return m.inflight > 0 || m.authPending
}

func (m *Model) setNote(level collection.Level, msg string) tea.Cmd {
	m.noteSeq++
	m.note = collection.Notification{Level: level, Message: msg}
	seq := m.noteSeq
	return tea.Tick(noteTTL, func(time.Time) tea.Msg { return clearNoteMsg{seq: seq} })
}

func (m *Model) refreshTasks() {
	snap := m.tasks.Snapshot()
	items := make([]list.Item, len(snap.Results))
	for i, t := range snap.Results {
		items[i] = TaskItem{Task: t}
	}
	m.list.SetItems(items)

	in := m.builder.Inputs()
	pages := query.PageCount(snap.Count, m.builder.Descriptor().Limit)
	if pages < 1 {
		pages = 1
	}
	m.pager.SetTotalPages(pages)
	m.pager.Page = in.Page - 1
	if m.pager.Page >= pages {
		m.pager.Page = pages - 1
	}
}

func (m *Model) refreshFolders() {
	snap := m.folders.Snapshot()
	m.folderItems = BuildFolderTree(snap.Results)
	if m.folderCursor >= len(m.folderItems) {
		m.folderCursor = folderIndex(m.folderItems, m.folders.Selected())
	}
}

func (m Model) scopeName() string {
	if m.folders == nil {
		return ""
	}
	if f, ok := m.folders.Find(m.folders.Selected()); ok {
		return f.Name
	}
	return ""
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h, v := appStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h-sidebarWidth-2, msg.Height-v-6)
		m.form.SetWidth(msg.Width - h)
		m.help.Width = msg.Width - h
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case notificationMsg:
		cmd := m.setNote(msg.Level, msg.Message)
		return m, cmd

	case clearNoteMsg:
		if msg.seq == m.noteSeq {
			m.note = collection.Notification{}
		}
		return m, nil

	case loggedOutMsg:
		m.endSession()
		m.screen = screenLogin
		m.login = newLoginForm()
		m.authPending = false
		cmd := tea.Batch(m.login.Focus(), m.setNote(collection.LevelInfo, "Logged out."))
		return m, cmd

	case sessionMsg:
		cmd := m.startSession()
		return m, cmd

	case loginMsg:
		m.authPending = false
		if msg.err != nil {
			m.login.err = authError(msg.err)
			return m, nil
		}
		if err := m.deps.Session.Establish(msg.tok); err != nil {
			m.login.err = err
			return m, nil
		}
		cmd := m.startSession()
		return m, cmd

	case registerMsg:
		m.authPending = false
		if msg.err != nil {
			m.login.err = authError(msg.err)
			return m, nil
		}
		username := m.login.value(loginUsername)
		m.login = newLoginForm()
		m.login.fields[loginUsername].SetValue(username)
		cmd := m.login.focusField(loginPassword)
		cmd = tea.Batch(cmd, m.setNote(collection.LevelSuccess, "Account created. Log in to continue."))
		return m, cmd

	case searchMsg:
		if m.tasks == nil {
			return m, nil
		}
		cmd := m.loadTasks(query.Descriptor(msg))
		return m, cmd

	case tasksLoadedMsg:
		if msg.sess != m.sess || m.tasks == nil {
			return m, nil
		}
		m.inflight--
		m.refreshTasks()
		m.refreshFolders()
		return m, nil

	case foldersLoadedMsg:
		if msg.sess != m.sess || m.folders == nil {
			return m, nil
		}
		m.inflight--
		m.refreshFolders()
		return m, nil

	case mutationMsg:
		return m.afterMutation(msg)

	case importedMsg:
		if msg.sess != m.sess || m.tasks == nil {
			return m, nil
		}
		m.inflight--
		var note tea.Cmd
		if msg.err != nil {
			note = m.setNote(collection.LevelError, "Import failed: "+msg.err.Error())
		} else {
			note = m.setNote(collection.LevelSuccess, fmt.Sprintf("Imported %d tasks.", msg.n))
		}
		cmd := tea.Batch(note, m.loadFolders(), m.loadTasks(m.builder.Descriptor()))
		return m, cmd

	case copiedMsg:
		if msg.err != nil {
			cmd := m.setNote(collection.LevelError, "Could not copy to clipboard.")
			return m, cmd
		}
		cmd := m.setNote(collection.LevelInfo, "Copied "+msg.what+" to clipboard.")
		return m, cmd
	}

	switch m.screen {
	case screenLogin:
		return m.updateLogin(msg)
	case screenTaskForm:
		return m.updateForm(msg)
	case screenFolderInput:
		return m.updateFolderInput(msg)
	case screenConfirm:
		return m.updateConfirm(msg)
	}
	return m.updateList(msg)
}

// afterMutation refreshes local views once a mutation resolves. A result
// that could not be applied locally triggers a reload.
func (m Model) afterMutation(msg mutationMsg) (tea.Model, tea.Cmd) {
	if msg.sess != m.sess || m.tasks == nil {
		return m, nil
	}
	m.inflight--
	if msg.kind == "task" && (msg.op == "create" || msg.op == "update") {
		m.submitting = false
		if msg.err == nil {
			m.screen = screenList
		} else if !errors.Is(msg.err, collection.ErrStale) && !errors.Is(msg.err, collection.ErrConsistency) {
			m.form.err = msg.err
		} else {
			m.screen = screenList
		}
	}
	if msg.kind == "folder" && m.screen == screenFolderInput {
		m.submitting = false
		if msg.err == nil || errors.Is(msg.err, collection.ErrStale) || errors.Is(msg.err, collection.ErrConsistency) {
			m.screen = screenList
		}
	}

	m.refreshTasks()
	m.refreshFolders()

	var cmds []tea.Cmd
	if errors.Is(msg.err, collection.ErrStale) || errors.Is(msg.err, collection.ErrConsistency) {
		m.log.Info("reloading after unapplied result", "kind", msg.kind, "op", msg.op, "err", msg.err)
		d := m.builder.Descriptor()
		if msg.kind == "folder" && msg.op == "delete" {
			d = m.builder.SetFolder(m.folders.Selected())
		}
		cmds = append(cmds, m.loadTasks(d))
		if msg.kind == "folder" {
			cmds = append(cmds, m.loadFolders())
		}
		return m, tea.Batch(cmds...)
	}
	if msg.err != nil {
		return m, nil
	}

	switch {
	case msg.kind == "folder" && msg.op == "delete":
		// The backend deletes the folder's tasks with it, and the folder
		// may have been the scope.
		cmds = append(cmds, m.loadTasks(m.builder.SetFolder(m.folders.Selected())))
	case msg.kind == "task" && msg.op == "toggle":
		// The completed filter may now exclude the task.
		if m.builder.Inputs().Completed != query.CompletedAny {
			cmds = append(cmds, m.loadTasks(m.builder.Descriptor()))
		}
	}
	return m, tea.Batch(cmds...)
}

func authError(err error) error {
	var verr *api.ValidationError
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		return errors.New("invalid username or password")
	case errors.As(err, &verr):
		return errors.New(verr.Detail())
	case errors.Is(err, model.ErrValidation):
		return err
	}
	var nerr *api.NetworkError
	if errors.As(err, &nerr) {
		return errors.New("cannot reach the server")
	}
	return err
}

func (m Model) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.login, cmd = m.login.Update(msg)
		return m, cmd
	}
	switch keyMsg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "ctrl+r":
		cmd := m.login.ToggleMode()
		return m, cmd
	case "enter":
		if !m.login.onLastField() {
			cmd := m.login.move(1)
			return m, cmd
		}
		if m.authPending {
			return m, nil
		}
		return m.submitLogin()
	}
	var cmd tea.Cmd
	m.login, cmd = m.login.Update(msg)
	return m, cmd
}

func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	m.login.err = nil
	auth := m.deps.Auth
	if m.login.register {
		reg := m.login.Registration()
		if err := reg.Validate(); err != nil {
			m.login.err = err
			return m, nil
		}
		m.authPending = true
		return m, func() tea.Msg {
			u, err := auth.Register(context.Background(), reg)
			return registerMsg{user: u, err: err}
		}
	}
	creds := m.login.Credentials()
	if err := creds.Validate(); err != nil {
		m.login.err = err
		return m, nil
	}
	m.authPending = true
	return m, func() tea.Msg {
		tok, err := auth.Login(context.Background(), creds)
		return loginMsg{tok: tok, err: err}
	}
}

func (m Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	if m.searching {
		switch keyMsg.String() {
		case "enter":
			m.searching = false
			m.search.Blur()
			return m, nil
		case "esc":
			m.searching = false
			m.search.Blur()
			m.search.SetValue("")
			m.builder.SetSearch("")
			return m, nil
		}
		before := m.search.Value()
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		if m.search.Value() != before {
			m.builder.SetSearch(m.search.Value())
		}
		return m, cmd
	}

	switch {
	case key.Matches(keyMsg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.SwitchPane):
		if m.pane == paneTasks {
			m.pane = paneFolders
		} else {
			m.pane = paneTasks
		}
		return m, nil
	case key.Matches(keyMsg, m.keys.Search):
		m.searching = true
		cmd := m.search.Focus()
		return m, cmd
	case key.Matches(keyMsg, m.keys.Ordering):
		cmd := m.loadTasks(m.builder.NextOrderingField())
		return m, cmd
	case key.Matches(keyMsg, m.keys.Reverse):
		cmd := m.loadTasks(m.builder.ReverseOrder())
		return m, cmd
	case key.Matches(keyMsg, m.keys.Completed):
		cmd := m.loadTasks(m.builder.SetCompleted(m.builder.Inputs().Completed.Next()))
		return m, cmd
	case key.Matches(keyMsg, m.keys.Upcoming):
		status := query.StatusUpcoming
		if m.builder.Inputs().Status == query.StatusUpcoming {
			status = query.StatusAny
		}
		cmd := m.loadTasks(m.builder.SetStatus(status))
		return m, cmd
	case key.Matches(keyMsg, m.keys.Limit):
		cmd := m.loadTasks(m.builder.NextLimit())
		return m, cmd
	case key.Matches(keyMsg, m.keys.PrevPage):
		page := m.builder.Inputs().Page
		if page <= 1 {
			return m, nil
		}
		cmd := m.loadTasks(m.builder.SetPage(page - 1))
		return m, cmd
	case key.Matches(keyMsg, m.keys.NextPage):
		page := m.builder.Inputs().Page
		if page >= m.pager.TotalPages {
			return m, nil
		}
		cmd := m.loadTasks(m.builder.SetPage(page + 1))
		return m, cmd
	case key.Matches(keyMsg, m.keys.Reload):
		cmd := tea.Batch(m.loadFolders(), m.loadTasks(m.builder.Descriptor()))
		return m, cmd
	case key.Matches(keyMsg, m.keys.NewFolder):
		return m.openFolderInput(0, "")
	case key.Matches(keyMsg, m.keys.Rename):
		if it := m.folderItems[m.folderCursor]; it.ID != 0 && !it.Pending {
			return m.openFolderInput(it.ID, it.Name)
		}
		return m, nil
	case key.Matches(keyMsg, m.keys.DropFolder):
		if it := m.folderItems[m.folderCursor]; it.ID != 0 && !it.Pending {
			m.confirm = confirmTarget{kind: "folder", id: it.ID, label: it.Name}
			m.screen = screenConfirm
		}
		return m, nil
	case key.Matches(keyMsg, m.keys.CopyYAML):
		return m, m.copyYAML()
	case key.Matches(keyMsg, m.keys.CopyPrompt):
		return m, m.copyPrompt()
	case key.Matches(keyMsg, m.keys.Import):
		cmd := m.importClipboard()
		return m, cmd
	case key.Matches(keyMsg, m.keys.Logout):
		teardown := m.deps.Session.Teardown
		return m, func() tea.Msg {
			teardown()
			return nil
		}
	}

	if m.pane == paneFolders {
		return m.updateFolders(keyMsg)
	}
	return m.updateTasks(keyMsg)
}

func (m Model) updateFolders(keyMsg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch keyMsg.String() {
	case "j", "down":
		if m.folderCursor < len(m.folderItems)-1 {
			m.folderCursor++
		}
	case "k", "up":
		if m.folderCursor > 0 {
			m.folderCursor--
		}
	case "enter":
		it := m.folderItems[m.folderCursor]
		if it.Pending {
			return m, nil
		}
		m.folders.Select(it.ID)
		m.pane = paneTasks
		cmd := m.loadTasks(m.builder.SetFolder(it.ID))
		return m, cmd
	}
	return m, nil
}

func (m Model) selectedTask() (model.Task, bool) {
	item, ok := m.list.SelectedItem().(TaskItem)
	return item.Task, ok
}

func (m Model) updateTasks(keyMsg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(keyMsg, m.keys.Add):
		m.form = newTaskForm(nil)
		m.form.SetWidth(m.width - 4)
		m.screen = screenTaskForm
		cmd := m.form.Focus()
		return m, cmd
	case key.Matches(keyMsg, m.keys.Edit):
		if t, ok := m.selectedTask(); ok {
			m.form = newTaskForm(&t)
			m.form.SetWidth(m.width - 4)
			m.screen = screenTaskForm
			cmd := m.form.Focus()
			return m, cmd
		}
		return m, nil
	case key.Matches(keyMsg, m.keys.Toggle):
		if t, ok := m.selectedTask(); ok {
			tasks := m.tasks
			cmd := m.mutate("task", "toggle", func(ctx context.Context) error {
				return tasks.ToggleComplete(ctx, t.ID)
			})
			return m, cmd
		}
		return m, nil
	case key.Matches(keyMsg, m.keys.Delete):
		if t, ok := m.selectedTask(); ok {
			m.confirm = confirmTarget{kind: "task", id: t.ID, label: t.Title}
			m.screen = screenConfirm
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(keyMsg)
	return m, cmd
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			m.screen = screenList
			return m, nil
		case "ctrl+c":
			return m, tea.Quit
		case "ctrl+s":
			if m.submitting {
				return m, nil
			}
			return m.submitForm()
		}
	}
	var cmd tea.Cmd
	m.form, cmd = m.form.Update(msg)
	return m, cmd
}

func (m Model) submitForm() (tea.Model, tea.Cmd) {
	t, err := m.form.Task(m.deps.Now())
	if err != nil {
		m.form.err = err
		return m, nil
	}
	m.form.err = nil
	m.submitting = true
	tasks := m.tasks

	if m.form.editing != nil {
		id := m.form.editing.ID
		cmd := m.mutate("task", "update", func(ctx context.Context) error {
			_, err := tasks.Update(ctx, id, t)
			return err
		})
		return m, cmd
	}

	t.AssignedTo = m.deps.Session.User().ID
	if scope := m.builder.Inputs().FolderID; scope != 0 {
		t.FolderID = &scope
	}
	cmd := m.mutate("task", "create", func(ctx context.Context) error {
		_, err := tasks.Create(ctx, t)
		return err
	})
	return m, cmd
}

func (m Model) openFolderInput(id int, name string) (tea.Model, tea.Cmd) {
	m.renamingID = id
	m.renamingName = name
	m.folderInput.SetValue(name)
	m.folderInput.CursorEnd()
	m.screen = screenFolderInput
	cmd := m.folderInput.Focus()
	return m, cmd
}

func (m Model) updateFolderInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			m.screen = screenList
			return m, nil
		case "enter":
			if m.submitting {
				return m, nil
			}
			name, err := model.NormalizeFolderName(m.folderInput.Value())
			if err != nil {
				cmd := m.setNote(collection.LevelError, err.Error())
				return m, cmd
			}
			folders := m.folders
			if m.renamingID == 0 {
				m.submitting = true
				f := model.Folder{Name: name, AssignedTo: m.deps.Session.User().ID}
				cmd := m.mutate("folder", "create", func(ctx context.Context) error {
					_, err := folders.Create(ctx, f)
					return err
				})
				return m, cmd
			}
			if name == m.renamingName {
				m.screen = screenList
				return m, nil
			}
			m.submitting = true
			id := m.renamingID
			f := model.Folder{Name: name, AssignedTo: m.deps.Session.User().ID}
			cmd := m.mutate("folder", "update", func(ctx context.Context) error {
				_, err := folders.Update(ctx, id, f)
				return err
			})
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.folderInput, cmd = m.folderInput.Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "y":
		m.screen = screenList
		target := m.confirm
		if target.kind == "folder" {
			folders := m.folders
			cmd := m.mutate("folder", "delete", func(ctx context.Context) error {
				return folders.Delete(ctx, target.id)
			})
			return m, cmd
		}
		tasks := m.tasks
		cmd := m.mutate("task", "delete", func(ctx context.Context) error {
			return tasks.Delete(ctx, target.id)
		})
		return m, cmd
	case "n", "esc":
		m.screen = screenList
	}
	return m, nil
}

func (m Model) copyYAML() tea.Cmd {
	snap := m.tasks.Snapshot()
	folder := m.scopeName()
	copyText := m.deps.CopyText
	return func() tea.Msg {
		out, err := importer.Export(folder, snap.Results)
		if err == nil {
			err = copyText(out)
		}
		return copiedMsg{what: "YAML", err: err}
	}
}

func (m Model) copyPrompt() tea.Cmd {
	text := prompt.GenerateFromTasks(m.deps.Now(), m.scopeName(), m.tasks.Snapshot().Results)
	copyText := m.deps.CopyText
	return func() tea.Msg {
		return copiedMsg{what: "prompt", err: copyText(text)}
	}
}

func (m *Model) importClipboard() tea.Cmd {
	m.inflight++
	sess, ctx, tasks, folders := m.sess, m.ctx, m.tasks, m.folders
	paste := m.deps.PasteText
	opts := importer.Options{
		UserID:   m.deps.Session.User().ID,
		FolderID: m.builder.Inputs().FolderID,
		Now:      m.deps.Now,
	}
	return func() tea.Msg {
		text, err := paste()
		if err != nil {
			return importedMsg{sess: sess, err: fmt.Errorf("read clipboard: %w", err)}
		}
		n, err := importer.Import(ctx, tasks, folders, text, opts)
		return importedMsg{sess: sess, n: n, err: err}
	}
}

func (m Model) filterSummary() string {
	in := m.builder.Inputs()
	d := m.builder.Descriptor()
	dir := "↑"
	if d.Ordering.Desc {
		dir = "↓"
	}
	limit := "all"
	if d.Limit != query.Unbounded {
		limit = fmt.Sprint(d.Limit)
	}
	status := "any"
	if in.Status != query.StatusAny {
		status = string(in.Status)
	}
	parts := []string{
		fmt.Sprintf("order: %s %s", d.Ordering.Field, dir),
		"show: " + in.Completed.String(),
		"due: " + status,
		"per page: " + limit,
	}
	if in.Search != "" {
		parts = append(parts, fmt.Sprintf("search: %q", in.Search))
	}
	return strings.Join(parts, " │ ")
}

func (m Model) renderSidebar() string {
	var lines []string
	header := "Folders"
	if m.pane == paneFolders {
		header = focusedLabelStyle.Render("▸ Folders")
	} else {
		header = titleStyle.Render(header)
	}
	lines = append(lines, header, "")
	selected := 0
	if m.folders != nil {
		selected = m.folders.Selected()
	}
	for i, it := range m.folderItems {
		cursor := "  "
		if i == m.folderCursor && m.pane == paneFolders {
			cursor = "> "
		}
		label := it.Label()
		if it.ID == selected {
			label = selectedStyle.Render(label)
		}
		lines = append(lines, cursor+label)
	}
	return sidebarStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderNote() string {
	if m.note.Message == "" {
		return ""
	}
	switch m.note.Level {
	case collection.LevelError:
		return errorStyle.Render(m.note.Message)
	case collection.LevelSuccess:
		return successStyle.Render(m.note.Message)
	}
	return statusStyle.Render(m.note.Message)
}

func (m Model) View() string {
	note := m.renderNote()
	if note != "" {
		note = "\n" + note
	}

	switch m.screen {
	case screenLogin:
		return appStyle.Render(m.login.View(m.authPending, m.spinner.View()) + note)
	case screenTaskForm:
		return appStyle.Render(m.form.View(m.submitting) + note)
	case screenFolderInput:
		header := "New Folder"
		if m.renamingID != 0 {
			header = "Rename Folder"
		}
		return appStyle.Render(
			titleStyle.Render(header) + "\n\n" +
				m.folderInput.View() + "\n\n" +
				statusStyle.Render("enter: save • esc: cancel") +
				note,
		)
	case screenConfirm:
		what := "Delete Task?"
		extra := ""
		if m.confirm.kind == "folder" {
			what = "Delete Folder?"
			extra = "\n  " + statusStyle.Render("(its tasks are deleted too)")
		}
		return appStyle.Render(
			confirmStyle.Render(what) + "\n\n" +
				"  " + m.confirm.label + extra + "\n\n" +
				statusStyle.Render("y: delete • n/esc: cancel") +
				note,
		)
	}

	if m.builder == nil {
		return appStyle.Render(m.spinner.View() + " loading…")
	}

	user := m.deps.Session.User().Username
	header := titleStyle.Render("remind") + "  " + statusStyle.Render(user) + "\n" +
		statusStyle.Render(m.filterSummary())
	if m.searching || m.search.Value() != "" {
		header += "\n" + m.search.View()
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), " ", m.list.View())

	status := fmt.Sprintf("page %s", m.pager.View())
	if m.busy() || m.builder.SearchPending() {
		status = m.spinner.View() + " " + status
	}
	footer := status + note + "\n" + m.help.ShortHelpView(m.keys.short()) + "\n" + m.help.ShortHelpView(m.keys.full())

	return appStyle.Render(header + "\n\n" + body + "\n" + footer)
}
