package collection

import (
	"context"
	"sync"

	"github.com/nissyi-gh/remind/internal/model"
	"github.com/nissyi-gh/remind/internal/query"
)

// fakeTaskGateway answers from scripted values. A call whose op has an entry
// in gates blocks until that channel yields or is closed.
type fakeTaskGateway struct {
	mu        sync.Mutex
	list      model.Collection[model.Task]
	listErr   error
	onList    func(call int) (model.Collection[model.Task], error)
	created   model.Task
	updated   model.Task
	err       error
	gates     map[string]chan struct{}
	calls     []string
	lastQuery query.Descriptor
}

func (f *fakeTaskGateway) block(op string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gates == nil {
		f.gates = map[string]chan struct{}{}
	}
	gate := make(chan struct{})
	f.gates[op] = gate
	return gate
}

func (f *fakeTaskGateway) wait(op string) int {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	n := len(f.calls)
	gate := f.gates[op]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return n
}

func (f *fakeTaskGateway) List(_ context.Context, d query.Descriptor) (model.Collection[model.Task], error) {
	f.mu.Lock()
	onList := f.onList
	f.mu.Unlock()
	if onList != nil {
		f.mu.Lock()
		f.calls = append(f.calls, "list")
		n := len(f.calls)
		f.mu.Unlock()
		return onList(n)
	}
	f.wait("list")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = d
	if f.listErr != nil {
		return model.Collection[model.Task]{}, f.listErr
	}
	return f.list.Clone(), nil
}

func (f *fakeTaskGateway) Create(_ context.Context, _ model.Task) (model.Task, error) {
	f.wait("create")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created, f.err
}

func (f *fakeTaskGateway) Update(_ context.Context, _ int, _ model.Task) (model.Task, error) {
	f.wait("update")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updated, f.err
}

func (f *fakeTaskGateway) Delete(_ context.Context, _ int) error {
	f.wait("delete")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeTaskGateway) ToggleComplete(_ context.Context, _ int) error {
	f.wait("toggle")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

type fakeFolderGateway struct {
	list model.Collection[model.Folder]
	err  error
	// deleteGate, when set, holds Delete until it yields or is closed.
	deleteGate chan struct{}
}

func (f *fakeFolderGateway) List(context.Context, query.Descriptor) (model.Collection[model.Folder], error) {
	return f.list.Clone(), f.err
}

func (f *fakeFolderGateway) Create(_ context.Context, rec model.Folder) (model.Folder, error) {
	rec.ID = 100
	return rec, f.err
}

func (f *fakeFolderGateway) Update(_ context.Context, id int, rec model.Folder) (model.Folder, error) {
	rec.ID = id
	return rec, f.err
}

func (f *fakeFolderGateway) Delete(context.Context, int) error {
	if f.deleteGate != nil {
		<-f.deleteGate
	}
	return f.err
}

// recorder collects notifications.
type recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *recorder) levels() []Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Level, len(r.items))
	for i, n := range r.items {
		out[i] = n.Level
	}
	return out
}
