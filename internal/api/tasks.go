package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/nissyi-gh/remind/internal/model"
	"github.com/nissyi-gh/remind/internal/query"
)

// TaskService is the /tasks/ resource.
type TaskService struct {
	c     *Client
	group singleflight.Group
}

// List fetches one page of tasks. Identical concurrent queries share a
// single request. The shared request is not cancelled by any one caller;
// each caller stops waiting when its own ctx is done, and the client
// timeout bounds the request itself.
func (s *TaskService) List(ctx context.Context, d query.Descriptor) (model.Collection[model.Task], error) {
	reqCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(d.Encode(), func() (any, error) {
		var coll model.Collection[model.Task]
		if err := s.c.do(reqCtx, "list tasks", http.MethodGet, tasksPath, d.Values(), nil, &coll); err != nil {
			return nil, err
		}
		for _, t := range coll.Results {
			if err := t.Validate(); err != nil {
				return nil, err
			}
		}
		return coll, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return model.Collection[model.Task]{}, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return model.Collection[model.Task]{}, res.Err
	}
	coll := res.Val.(model.Collection[model.Task])
	if res.Shared {
		coll = coll.Clone()
	}
	return coll, nil
}

func (s *TaskService) Create(ctx context.Context, t model.Task) (model.Task, error) {
	var out model.Task
	if err := s.c.do(ctx, "create task", http.MethodPost, tasksPath, nil, t, &out); err != nil {
		return model.Task{}, err
	}
	return out, out.Validate()
}

func (s *TaskService) Update(ctx context.Context, id int, t model.Task) (model.Task, error) {
	t.ID = 0
	var out model.Task
	if err := s.c.do(ctx, "update task", http.MethodPut, taskPath(id)+"/", nil, t, &out); err != nil {
		return model.Task{}, err
	}
	return out, out.Validate()
}

func (s *TaskService) Delete(ctx context.Context, id int) error {
	return s.c.do(ctx, "delete task", http.MethodDelete, taskPath(id), nil, nil, nil)
}

// ToggleComplete flips the completed flag on the backend.
func (s *TaskService) ToggleComplete(ctx context.Context, id int) error {
	return s.c.do(ctx, "complete task", http.MethodPut, taskPath(id)+"/complete/", nil, struct{}{}, nil)
}

func taskPath(id int) string {
	return fmt.Sprintf("%s%s", tasksPath, strconv.Itoa(id))
}
