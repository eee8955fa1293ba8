// Package query derives the list-query descriptor sent to the backend from
// independent pieces of view state.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Field is a sortable task attribute.
type Field string

const (
	FieldTitle    Field = "title"
	FieldPriority Field = "priority"
	FieldDeadline Field = "deadline"
)

// Fields lists the orderable fields in menu order.
var Fields = []Field{FieldTitle, FieldPriority, FieldDeadline}

// Unbounded is the limit sentinel meaning "return every match".
const Unbounded = -1

// LimitOptions are the page sizes offered to the user.
var LimitOptions = []int{Unbounded, 5, 10, 20}

// Ordering is a field plus direction. On the wire a leading "-" means descending.
type Ordering struct {
	Field Field
	Desc  bool
}

// DefaultOrdering returns the ordering used when f is picked from the menu.
// Priority sorts highest first; the other fields ascend.
func DefaultOrdering(f Field) Ordering {
	return Ordering{Field: f, Desc: f == FieldPriority}
}

// ParseOrdering parses "title" or "-priority".
func ParseOrdering(s string) (Ordering, error) {
	desc := strings.HasPrefix(s, "-")
	f := Field(strings.TrimPrefix(s, "-"))
	for _, known := range Fields {
		if f == known {
			return Ordering{Field: f, Desc: desc}, nil
		}
	}
	return Ordering{}, fmt.Errorf("unknown ordering field %q", f)
}

// Reverse flips the direction and keeps the field.
func (o Ordering) Reverse() Ordering {
	o.Desc = !o.Desc
	return o
}

func (o Ordering) String() string {
	f := o.Field
	if f == "" {
		f = FieldTitle
	}
	if o.Desc {
		return "-" + string(f)
	}
	return string(f)
}

// Completed is the tri-state completion filter.
type Completed int

const (
	CompletedAny Completed = iota
	CompletedOnly
	IncompleteOnly
)

// Param returns the query-string value; the unfiltered state is "".
func (c Completed) Param() string {
	switch c {
	case CompletedOnly:
		return "true"
	case IncompleteOnly:
		return "false"
	}
	return ""
}

// Next cycles any -> incomplete -> completed -> any.
func (c Completed) Next() Completed {
	switch c {
	case CompletedAny:
		return IncompleteOnly
	case IncompleteOnly:
		return CompletedOnly
	}
	return CompletedAny
}

func (c Completed) String() string {
	switch c {
	case CompletedOnly:
		return "completed"
	case IncompleteOnly:
		return "pending"
	}
	return "all"
}

// ParseCompleted accepts "", "true" and "false".
func ParseCompleted(s string) (Completed, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "any":
		return CompletedAny, nil
	case "true", "completed":
		return CompletedOnly, nil
	case "false", "pending", "incomplete":
		return IncompleteOnly, nil
	}
	return CompletedAny, fmt.Errorf("unknown completed filter %q", s)
}

// Status is the deadline-status filter; empty means unfiltered.
type Status string

const (
	StatusAny      Status = ""
	StatusUpcoming Status = "upcoming"
)

// Descriptor is the complete, explicit parameter set of a list query.
type Descriptor struct {
	Ordering  Ordering
	Limit     int
	Offset    int
	Completed Completed
	Status    Status
	Search    string
	// FolderID 0 means every folder.
	FolderID int
}

// Values encodes every parameter, including the unfiltered ones.
func (d Descriptor) Values() url.Values {
	v := url.Values{}
	v.Set("ordering", d.Ordering.String())
	v.Set("limit", strconv.Itoa(d.Limit))
	v.Set("offset", strconv.Itoa(d.Offset))
	v.Set("completed", d.Completed.Param())
	v.Set("status", string(d.Status))
	v.Set("search", d.Search)
	folder := ""
	if d.FolderID != 0 {
		folder = strconv.Itoa(d.FolderID)
	}
	v.Set("folder_id", folder)
	return v
}

// Encode returns the canonical query string. Equal descriptors encode equally.
func (d Descriptor) Encode() string {
	return d.Values().Encode()
}

// PageCount returns how many pages total matches span at limit.
func PageCount(total, limit int) int {
	if total <= 0 {
		return 0
	}
	if limit <= 0 {
		return 1
	}
	return (total + limit - 1) / limit
}
