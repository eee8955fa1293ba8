// Package apitest runs an in-memory task backend for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"github.com/nissyi-gh/remind/internal/model"
)

var signingKey = []byte("apitest")

// Backend is a fake of the REST backend. It keeps users, tasks and folders
// in memory and issues real JWTs.
type Backend struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]account
	tokens   map[string]int
	tasks    map[int]model.Task
	folders  map[int]model.Folder
	nextID   int
	now      func() time.Time
	fail     map[string]int
	requests atomic.Int64
	lastReq  http.Header
}

type account struct {
	user     model.User
	password string
}

// NewBackend starts a backend; it is closed when the test ends.
func NewBackend(t interface {
	Helper()
	Cleanup(func())
}) *Backend {
	t.Helper()
	b := &Backend{
		users:   map[string]account{},
		tokens:  map[string]int{},
		tasks:   map[int]model.Task{},
		folders: map[int]model.Folder{},
		nextID:  1,
		now:     time.Now,
		fail:    map[string]int{},
	}
	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Close)
	return b
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(b.count)

	r.Post("/auth/login/", b.login)
	r.Post("/auth/register/", b.register)

	r.Group(func(r chi.Router) {
		r.Use(b.authenticate)
		r.Get("/tasks/", b.listTasks)
		r.Post("/tasks/", b.createTask)
		r.Put("/tasks/{id}/", b.updateTask)
		r.Delete("/tasks/{id}", b.deleteTask)
		r.Put("/tasks/{id}/complete/", b.completeTask)

		r.Get("/folders/", b.listFolders)
		r.Post("/folders/", b.createFolder)
		r.Put("/folders/{id}/", b.updateFolder)
		r.Delete("/folders/{id}", b.deleteFolder)
	})
	return r
}

// AddUser registers an account directly.
func (b *Backend) AddUser(username, password string) model.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(username, "", password)
}

func (b *Backend) addUserLocked(username, email, password string) model.User {
	u := model.User{ID: len(b.users) + 1, Username: username, Email: email}
	b.users[username] = account{user: u, password: password}
	return u
}

// Token issues a valid access token for an existing user.
func (b *Backend) Token(username string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueLocked(b.users[username].user, time.Hour)
}

// ExpiredToken issues a token whose exp has passed.
func (b *Backend) ExpiredToken(username string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueLocked(b.users[username].user, -time.Hour)
}

func (b *Backend) issueLocked(u model.User, ttl time.Duration) string {
	claims := jwt.MapClaims{
		"user_id":  u.ID,
		"username": u.Username,
		"exp":      jwt.NewNumericDate(b.now().Add(ttl)),
		"iat":      jwt.NewNumericDate(b.now()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	b.tokens[signed] = u.ID
	return signed
}

// Revoke invalidates every issued token.
func (b *Backend) Revoke() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = map[string]int{}
}

// SeedTask stores t as-is, assigning an id when t has none.
func (b *Backend) SeedTask(t model.Task) model.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t.ID == 0 {
		t.ID = b.allocLocked()
	}
	if t.Priority == 0 {
		t.Priority = model.DefaultPriority
	}
	b.tasks[t.ID] = t
	return t
}

// SeedFolder stores f, assigning an id.
func (b *Backend) SeedFolder(f model.Folder) model.Folder {
	b.mu.Lock()
	defer b.mu.Unlock()
	f.ID = b.allocLocked()
	b.folders[f.ID] = f
	return f
}

// Tasks returns the stored tasks ordered by id.
func (b *Backend) Tasks() []model.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Folders returns the stored folders ordered by id.
func (b *Backend) Folders() []model.Folder {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Folder, 0, len(b.folders))
	for _, f := range b.folders {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FailNext makes the next n requests whose "METHOD path" starts with route
// answer with status 500.
func (b *Backend) FailNext(route string, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail[route] = n
}

// Requests reports how many requests the backend has served.
func (b *Backend) Requests() int64 { return b.requests.Load() }

// LastHeader returns the headers of the most recent request.
func (b *Backend) LastHeader() http.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastReq.Clone()
}

func (b *Backend) allocLocked() int {
	id := b.nextID
	b.nextID++
	return id
}

func (b *Backend) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.requests.Add(1)
		key := r.Method + " " + r.URL.Path
		b.mu.Lock()
		b.lastReq = r.Header.Clone()
		failing := ""
		for route, n := range b.fail {
			if n > 0 && strings.HasPrefix(key, route) {
				b.fail[route] = n - 1
				failing = route
				break
			}
		}
		b.mu.Unlock()
		if failing != "" {
			http.Error(w, "injected failure", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		b.mu.Lock()
		_, ok := b.tokens[token]
		b.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid for any token type"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.users[creds.Username]
	if !ok || acc.password != creds.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
		return
	}
	writeJSON(w, http.StatusOK, model.AuthToken{Access: b.issueLocked(acc.user, time.Hour), User: acc.user})
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var reg model.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, taken := b.users[reg.Username]; taken {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"username": {"A user with that username already exists."}})
		return
	}
	if reg.Password != reg.Password2 {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"password": {"Password fields didn't match."}})
		return
	}
	writeJSON(w, http.StatusCreated, b.addUserLocked(reg.Username, reg.Email, reg.Password))
}

func (b *Backend) listTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	b.mu.Lock()
	var out []model.Task
	today := startOfDay(b.now())
	for _, t := range b.tasks {
		if c := q.Get("completed"); c != "" && strconv.FormatBool(t.Completed) != c {
			continue
		}
		if q.Get("status") == "upcoming" && (t.Deadline.IsZero() || t.Deadline.Before(today)) {
			continue
		}
		if s := strings.ToLower(q.Get("search")); s != "" &&
			!strings.Contains(strings.ToLower(t.Title), s) && !strings.Contains(strings.ToLower(t.Description), s) {
			continue
		}
		if f := q.Get("folder_id"); f != "" && (t.FolderID == nil || strconv.Itoa(*t.FolderID) != f) {
			continue
		}
		out = append(out, t)
	}
	b.mu.Unlock()

	sortTasks(out, q.Get("ordering"))
	total := len(out)
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil {
		limit = -1
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit >= 0 && limit < len(out) {
		out = out[:limit]
	}
	if out == nil {
		out = []model.Task{}
	}
	writeJSON(w, http.StatusOK, model.Collection[model.Task]{Count: total, Results: out})
}

func sortTasks(tasks []model.Task, ordering string) {
	desc := strings.HasPrefix(ordering, "-")
	field := strings.TrimPrefix(ordering, "-")
	less := func(a, b model.Task) bool {
		switch field {
		case "priority":
			if a.Priority != b.Priority {
				return a.Priority < b.Priority
			}
		case "deadline":
			if !a.Deadline.Equal(b.Deadline.Time) {
				return a.Deadline.Before(b.Deadline.Time)
			}
		default:
			if a.Title != b.Title {
				return a.Title < b.Title
			}
		}
		return a.ID < b.ID
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if desc {
			return less(tasks[j], tasks[i])
		}
		return less(tasks[i], tasks[j])
	})
}

func (b *Backend) createTask(w http.ResponseWriter, r *http.Request) {
	var t model.Task
	if !decodeTask(w, r, &t) {
		return
	}
	b.mu.Lock()
	t.ID = b.allocLocked()
	b.tasks[t.ID] = t
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, t)
}

func (b *Backend) updateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := b.taskID(w, r)
	if !ok {
		return
	}
	var t model.Task
	if !decodeTask(w, r, &t) {
		return
	}
	b.mu.Lock()
	t.ID = id
	t.Completed = b.tasks[id].Completed
	b.tasks[id] = t
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, t)
}

func (b *Backend) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := b.taskID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	delete(b.tasks, id)
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) completeTask(w http.ResponseWriter, r *http.Request) {
	id, ok := b.taskID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	t := b.tasks[id]
	t.Completed = !t.Completed
	b.tasks[id] = t
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, t)
}

func (b *Backend) taskID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	b.mu.Lock()
	_, exists := b.tasks[id]
	b.mu.Unlock()
	if err != nil || !exists {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return 0, false
	}
	return id, true
}

func decodeTask(w http.ResponseWriter, r *http.Request, t *model.Task) bool {
	if err := json.NewDecoder(r.Body).Decode(t); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return false
	}
	if strings.TrimSpace(t.Title) == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"title": {"This field may not be blank."}})
		return false
	}
	if t.Priority == 0 {
		t.Priority = model.DefaultPriority
	}
	return true
}

func (b *Backend) listFolders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, b.Folders())
}

func (b *Backend) createFolder(w http.ResponseWriter, r *http.Request) {
	var f model.Folder
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil || strings.TrimSpace(f.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"name": {"This field may not be blank."}})
		return
	}
	b.mu.Lock()
	f.ID = b.allocLocked()
	b.folders[f.ID] = f
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, f)
}

func (b *Backend) updateFolder(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	var f model.Folder
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.folders[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	f.ID = id
	b.folders[id] = f
	writeJSON(w, http.StatusOK, f)
}

func (b *Backend) deleteFolder(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.folders[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	delete(b.folders, id)
	for tid, t := range b.tasks {
		if t.FolderID != nil && *t.FolderID == id {
			delete(b.tasks, tid)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(fmt.Sprintf("apitest: encode response: %v", err))
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
