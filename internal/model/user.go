package model

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxUsernameLen bounds registration usernames.
const MaxUsernameLen = 64

// User is the authenticated account as returned on login.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	IsAdmin  bool   `json:"isAdmin,omitempty"`
}

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c Credentials) Validate() error {
	if c.Username == "" || c.Password == "" {
		return fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	return nil
}

// Registration is the sign-up request body.
type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

func (r Registration) Validate() error {
	if r.Username == "" || r.Email == "" || r.Password == "" || r.Password2 == "" {
		return fmt.Errorf("%w: all fields are required", ErrValidation)
	}
	if utf8.RuneCountInString(r.Username) > MaxUsernameLen {
		return fmt.Errorf("%w: username exceeds %d characters", ErrValidation, MaxUsernameLen)
	}
	if !strings.Contains(r.Email, "@") {
		return fmt.Errorf("%w: email %q is not valid", ErrValidation, r.Email)
	}
	if r.Password != r.Password2 {
		return fmt.Errorf("%w: passwords do not match", ErrValidation)
	}
	return nil
}

// AuthToken is the login response.
type AuthToken struct {
	Access string `json:"access"`
	User   User   `json:"user"`
}
