package domain

import (
	"errors"
	"strings"
)

// Status enumerates the user account lifecycle.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusClosed    Status = "closed"
)

var (
	ErrEmptyEmail    = errors.New("email is required")
	ErrInvalidEmail  = errors.New("email must contain '@'")
	ErrEmptyFullName = errors.New("full name is required")
	ErrInvalidStatus = errors.New("user status is invalid")
)

// User is the account aggregate owned by the users service. Other services
// reference it by ID only.
type User struct {
	ID       string
	Email    string
	FullName string
	Phone    string
	Status   Status
}

// NewUser builds a user ensuring required invariants. The ID is assigned by
// the repository on first save when empty.
func NewUser(email, fullName string) (*User, error) {
	user := &User{Status: StatusActive}
	if err := user.SetEmail(email); err != nil {
		return nil, err
	}
	if err := user.Rename(fullName); err != nil {
		return nil, err
	}
	return user, nil
}

// SetEmail trims and validates the email address.
func (u *User) SetEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmptyEmail
	}
	if !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	u.Email = email
	return nil
}

// Rename trims and validates the display name.
func (u *User) Rename(fullName string) error {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return ErrEmptyFullName
	}
	u.FullName = fullName
	return nil
}

// UpdateStatus ensures only known states are accepted and defaults to active.
func (u *User) UpdateStatus(status Status) error {
	if status == "" {
		status = StatusActive
	}
	if !isValidStatus(status) {
		return ErrInvalidStatus
	}
	u.Status = status
	return nil
}

// Active reports whether the account may participate in new orders.
func (u *User) Active() bool {
	return u.Status == StatusActive
}

// Validate re-applies core invariants for persistence.
func (u *User) Validate() error {
	if err := u.SetEmail(u.Email); err != nil {
		return err
	}
	if err := u.Rename(u.FullName); err != nil {
		return err
	}
	return u.UpdateStatus(u.Status)
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusActive, StatusSuspended, StatusClosed:
		return true
	default:
		return false
	}
}
