// Package collection keeps a local copy of a remote record list in step with
// the backend. Local effects are applied only after the backend confirms.
package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nissyi-gh/remind/internal/api"
	"github.com/nissyi-gh/remind/internal/model"
	"github.com/nissyi-gh/remind/internal/query"
)

// Gateway is the slice of the remote API a Synchronizer consumes.
type Gateway[T model.Record] interface {
	List(ctx context.Context, d query.Descriptor) (model.Collection[T], error)
	Create(ctx context.Context, rec T) (T, error)
	Update(ctx context.Context, id int, rec T) (T, error)
	Delete(ctx context.Context, id int) error
}

// Options configures a Synchronizer.
type Options struct {
	// Noun names one record in notifications, e.g. "task".
	Noun     string
	Notifier Notifier
	// Teardown is called when the backend rejects the session.
	Teardown func()
	Logger   *slog.Logger
}

// Synchronizer owns one Collection and patches it after each confirmed mutation.
//
// Every successful Load bumps the generation. A mutation remembers the
// generation it was issued against and its local effect is dropped if a Load
// replaced the collection in the meantime.
type Synchronizer[T model.Record] struct {
	gw       Gateway[T]
	noun     string
	notifier Notifier
	teardown func()
	logger   *slog.Logger

	mu         sync.Mutex
	coll       model.Collection[T]
	generation uint64
	loadSeq    uint64
	loading    int
	pending    int
	selected   int
	closed     bool
}

// New creates a Synchronizer over gw.
func New[T model.Record](gw Gateway[T], opts Options) *Synchronizer[T] {
	s := &Synchronizer[T]{
		gw:       gw,
		noun:     opts.Noun,
		notifier: opts.Notifier,
		teardown: opts.Teardown,
		logger:   opts.Logger,
	}
	if s.noun == "" {
		s.noun = "record"
	}
	if s.notifier == nil {
		s.notifier = discardNotifier{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("collection", s.noun)
	return s
}

// Snapshot returns a copy of the current collection.
func (s *Synchronizer[T]) Snapshot() model.Collection[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coll.Clone()
}

// Generation returns the number of loads applied so far.
func (s *Synchronizer[T]) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Loading reports whether a Load is in flight.
func (s *Synchronizer[T]) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading > 0
}

// Pending reports whether any operation is in flight.
func (s *Synchronizer[T]) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading > 0 || s.pending > 0
}

// Select marks id as the active selection; 0 is the default scope.
func (s *Synchronizer[T]) Select(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = id
}

// Selected returns the active selection.
func (s *Synchronizer[T]) Selected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Find returns the record with id, if present exactly once.
func (s *Synchronizer[T]) Find(id int) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := indexOf(s.coll.Results, id)
	if err != nil {
		var zero T
		return zero, false
	}
	return s.coll.Results[i], true
}

// Close detaches the synchronizer. Operations resolving afterwards are no-ops.
func (s *Synchronizer[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Load fetches the collection for d and replaces local state. On failure
// the previous collection is kept. When several loads overlap only the
// most recently issued one is applied.
func (s *Synchronizer[T]) Load(ctx context.Context, d query.Descriptor) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.loadSeq++
	seq := s.loadSeq
	s.loading++
	s.mu.Unlock()

	coll, err := s.gw.List(ctx, d)

	s.mu.Lock()
	s.loading--
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if seq != s.loadSeq {
		s.mu.Unlock()
		if errors.Is(err, api.ErrUnauthorized) {
			return s.fail("load", err)
		}
		s.logger.Debug("dropping superseded load", "seq", seq, "err", err)
		return ErrStale
	}
	if err != nil {
		s.mu.Unlock()
		return s.fail("load", err)
	}
	s.coll = coll.Clone()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	s.logger.Debug("collection loaded", "generation", gen, "count", coll.Count, "results", len(coll.Results))
	return nil
}

// Create sends rec to the backend and appends the record it returns.
func (s *Synchronizer[T]) Create(ctx context.Context, rec T) (T, error) {
	var created T
	err := s.mutate(ctx, "create",
		func(ctx context.Context) error {
			var err error
			created, err = s.gw.Create(ctx, rec)
			return err
		},
		func(c *model.Collection[T]) error {
			c.Results = append(c.Results, created)
			c.Count++
			return nil
		},
	)
	return created, err
}

// Update sends rec for id and replaces the local record with the backend's
// representation of it.
func (s *Synchronizer[T]) Update(ctx context.Context, id int, rec T) (T, error) {
	var updated T
	err := s.mutate(ctx, "update",
		func(ctx context.Context) error {
			var err error
			updated, err = s.gw.Update(ctx, id, rec)
			return err
		},
		func(c *model.Collection[T]) error {
			if updated.RecordID() != id {
				return fmt.Errorf("%w: update of %d returned %d", ErrConsistency, id, updated.RecordID())
			}
			i, err := indexOf(c.Results, id)
			if err != nil {
				return err
			}
			c.Results[i] = updated
			return nil
		},
	)
	return updated, err
}

// Delete removes id remotely and then locally. Once the backend confirms,
// a selection of id resets to 0 even if the local removal is dropped.
func (s *Synchronizer[T]) Delete(ctx context.Context, id int) error {
	return s.mutate(ctx, "delete",
		func(ctx context.Context) error {
			if err := s.gw.Delete(ctx, id); err != nil {
				return err
			}
			s.mu.Lock()
			if s.selected == id {
				s.selected = 0
			}
			s.mu.Unlock()
			return nil
		},
		func(c *model.Collection[T]) error {
			i, err := indexOf(c.Results, id)
			if err != nil {
				return err
			}
			c.Results = append(c.Results[:i], c.Results[i+1:]...)
			if c.Count > 0 {
				c.Count--
			}
			return nil
		},
	)
}

// mutate runs call and, once it succeeds, applies apply to a copy of the
// collection which replaces the original only if apply succeeds.
// apply runs with s.mu held.
func (s *Synchronizer[T]) mutate(ctx context.Context, op string, call func(context.Context) error, apply func(*model.Collection[T]) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	gen := s.generation
	s.pending++
	s.mu.Unlock()

	err := call(ctx)

	s.mu.Lock()
	s.pending--
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		s.mu.Unlock()
		return s.fail(op, err)
	}
	if gen != s.generation {
		current := s.generation
		s.mu.Unlock()
		s.logger.Info("dropping local effect for replaced snapshot", "op", op, "issued", gen, "current", current)
		s.notify(LevelSuccess, successMessage(op, s.noun))
		return ErrStale
	}

	candidate := s.coll.Clone()
	if err := apply(&candidate); err != nil {
		s.mu.Unlock()
		s.logger.Error("local collection left unchanged", "op", op, "generation", gen, "err", err)
		s.notify(LevelSuccess, successMessage(op, s.noun))
		return err
	}
	s.coll = candidate
	s.mu.Unlock()

	s.notify(LevelSuccess, successMessage(op, s.noun))
	return nil
}

func (s *Synchronizer[T]) fail(op string, err error) error {
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		s.logger.Warn("session rejected", "op", op)
		if s.teardown != nil {
			s.teardown()
		}
		return err
	case errors.Is(err, context.Canceled):
		return err
	}

	s.logger.Warn("operation failed", "op", op, "err", err)
	msg := failureMessage(op, s.noun)
	var verr *api.ValidationError
	if errors.As(err, &verr) {
		msg = fmt.Sprintf("%s %s", msg, verr.Detail())
	}
	s.notify(LevelError, msg)
	return fmt.Errorf("%s %s: %w", op, s.noun, err)
}

func (s *Synchronizer[T]) notify(level Level, msg string) {
	if msg == "" {
		return
	}
	s.notifier.Notify(Notification{Level: level, Message: msg})
}

// indexOf finds the single record with id.
func indexOf[T model.Record](records []T, id int) (int, error) {
	found := -1
	for i, r := range records {
		if r.RecordID() != id {
			continue
		}
		if found >= 0 {
			return -1, fmt.Errorf("%w: id %d matches more than one record", ErrConsistency, id)
		}
		found = i
	}
	if found < 0 {
		return -1, fmt.Errorf("%w: id %d not found", ErrConsistency, id)
	}
	return found, nil
}

func successMessage(op, noun string) string {
	switch op {
	case "create":
		return fmt.Sprintf("%s created.", capitalize(noun))
	case "update":
		return fmt.Sprintf("%s updated.", capitalize(noun))
	case "delete":
		return fmt.Sprintf("%s deleted.", capitalize(noun))
	}
	return ""
}

func failureMessage(op, noun string) string {
	switch op {
	case "load":
		return fmt.Sprintf("Could not load %ss.", noun)
	case "toggle":
		return fmt.Sprintf("Could not complete %s.", noun)
	}
	return fmt.Sprintf("Could not %s %s.", op, noun)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
