package query

import (
	"sync"
	"time"
)

// DefaultSearchDebounce is the quiet interval after the last keystroke.
const DefaultSearchDebounce = 500 * time.Millisecond

// Inputs are the independent view values a descriptor is derived from.
type Inputs struct {
	Ordering  Ordering
	Limit     int
	Page      int
	Completed Completed
	Status    Status
	Search    string
	FolderID  int
}

// Build derives a descriptor from in. It is total: unset values take their
// unfiltered defaults and out-of-range ones are clamped.
func Build(in Inputs) Descriptor {
	limit := in.Limit
	if limit == 0 || limit < Unbounded {
		limit = Unbounded
	}
	page := in.Page
	if page < 1 {
		page = 1
	}
	ordering := in.Ordering
	if ordering.Field == "" {
		ordering.Field = FieldTitle
	}

	offset := 0
	if limit != Unbounded {
		offset = (page - 1) * limit
	}

	return Descriptor{
		Ordering:  ordering,
		Limit:     limit,
		Offset:    offset,
		Completed: in.Completed,
		Status:    in.Status,
		Search:    in.Search,
		FolderID:  in.FolderID,
	}
}

// Option configures a Builder.
type Option func(*Builder)

// WithSearchDebounce overrides the quiet interval for search text.
func WithSearchDebounce(d time.Duration) Option {
	return func(b *Builder) { b.interval = d }
}

// WithAfterFunc replaces the timer source, used by tests to drive time.
func WithAfterFunc(f AfterFunc) Option {
	return func(b *Builder) { b.afterFunc = f }
}

// WithSearchSettled registers fn to receive the recomputed descriptor once
// search input has been quiet for the debounce interval.
func WithSearchSettled(fn func(Descriptor)) Option {
	return func(b *Builder) { b.onSearch = fn }
}

// Builder holds the current view inputs. Setters return the recomputed
// descriptor; search text is debounced and delivered through the
// WithSearchSettled callback instead.
type Builder struct {
	mu        sync.Mutex
	in        Inputs
	interval  time.Duration
	afterFunc AfterFunc
	debounce  *Debouncer
	onSearch  func(Descriptor)
}

// NewBuilder creates a builder starting from initial.
func NewBuilder(initial Inputs, opts ...Option) *Builder {
	b := &Builder{
		in:        initial,
		interval:  DefaultSearchDebounce,
		afterFunc: SystemAfterFunc,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.debounce = NewDebouncer(b.interval, b.afterFunc)
	return b
}

// Descriptor returns the descriptor for the current inputs.
func (b *Builder) Descriptor() Descriptor {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Build(b.in)
}

// Inputs returns a copy of the current inputs.
func (b *Builder) Inputs() Inputs {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.in
}

func (b *Builder) update(fn func(in *Inputs)) Descriptor {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&b.in)
	return Build(b.in)
}

// SetOrderingField switches the field using its default direction.
func (b *Builder) SetOrderingField(f Field) Descriptor {
	return b.update(func(in *Inputs) { in.Ordering = DefaultOrdering(f) })
}

// SetOrdering replaces field and direction.
func (b *Builder) SetOrdering(o Ordering) Descriptor {
	return b.update(func(in *Inputs) { in.Ordering = o })
}

// ReverseOrder flips the direction of the current field.
func (b *Builder) ReverseOrder() Descriptor {
	return b.update(func(in *Inputs) {
		if in.Ordering.Field == "" {
			in.Ordering.Field = FieldTitle
		}
		in.Ordering = in.Ordering.Reverse()
	})
}

// NextOrderingField cycles through Fields.
func (b *Builder) NextOrderingField() Descriptor {
	return b.update(func(in *Inputs) {
		next := Fields[0]
		for i, f := range Fields {
			if f == in.Ordering.Field {
				next = Fields[(i+1)%len(Fields)]
				break
			}
		}
		in.Ordering = DefaultOrdering(next)
	})
}

// SetLimit changes the page size and returns to the first page.
func (b *Builder) SetLimit(limit int) Descriptor {
	return b.update(func(in *Inputs) {
		in.Limit = limit
		in.Page = 1
	})
}

// NextLimit cycles through LimitOptions.
func (b *Builder) NextLimit() Descriptor {
	return b.update(func(in *Inputs) {
		next := LimitOptions[0]
		for i, l := range LimitOptions {
			if l == Build(*in).Limit {
				next = LimitOptions[(i+1)%len(LimitOptions)]
				break
			}
		}
		in.Limit = next
		in.Page = 1
	})
}

// SetPage moves to page p (1-based).
func (b *Builder) SetPage(p int) Descriptor {
	return b.update(func(in *Inputs) { in.Page = p })
}

// SetCompleted changes the completion filter and returns to the first page.
func (b *Builder) SetCompleted(c Completed) Descriptor {
	return b.update(func(in *Inputs) {
		in.Completed = c
		in.Page = 1
	})
}

// SetStatus changes the status filter and returns to the first page.
func (b *Builder) SetStatus(s Status) Descriptor {
	return b.update(func(in *Inputs) {
		in.Status = s
		in.Page = 1
	})
}

// SetFolder narrows the scope to folder id (0 for all) and returns to the first page.
func (b *Builder) SetFolder(id int) Descriptor {
	return b.update(func(in *Inputs) {
		in.FolderID = id
		in.Page = 1
	})
}

// SetSearch schedules text to become the search term once input has been
// quiet for the debounce interval. Each call restarts the interval.
func (b *Builder) SetSearch(text string) {
	b.debounce.Trigger(func() {
		d := b.update(func(in *Inputs) {
			in.Search = text
			in.Page = 1
		})
		if b.onSearch != nil {
			b.onSearch(d)
		}
	})
}

// SearchPending reports whether a search recomputation is scheduled.
func (b *Builder) SearchPending() bool {
	return b.debounce.Pending()
}

// Close drops any scheduled search recomputation.
func (b *Builder) Close() {
	b.debounce.Cancel()
}
