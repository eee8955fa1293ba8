package model

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Folder groups tasks. A folder with ID 0 has not been created yet.
type Folder struct {
	ID         int    `json:"id,omitempty"`
	Name       string `json:"name"`
	AssignedTo int    `json:"assigned_to,omitempty"`
}

// RecordID implements Record.
func (f Folder) RecordID() int { return f.ID }

// IsPending reports whether the folder is still being created.
func (f Folder) IsPending() bool { return f.ID == 0 }

// Validate checks a folder received from the backend.
func (f Folder) Validate() error {
	if f.ID <= 0 {
		return fmt.Errorf("%w: folder id %d", ErrInvalidRecord, f.ID)
	}
	return nil
}

// NormalizeFolderName trims name and checks it is usable.
func NormalizeFolderName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("%w: folder name is required", ErrValidation)
	}
	if utf8.RuneCountInString(trimmed) > MaxTitleLen {
		return "", fmt.Errorf("%w: folder name exceeds %d characters", ErrValidation, MaxTitleLen)
	}
	return trimmed, nil
}
