package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrRoleNotFound    = errors.New("role not found")
	ErrRoleNameTaken   = errors.New("role name already exists")
	ErrRoleInUse       = errors.New("role is assigned to users")
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrUserInUse       = errors.New("user owns projects or tasks")
	ErrUserInactive    = errors.New("user is inactive")
	ErrProjectNotFound = errors.New("project not found")
	ErrAlreadyMember   = errors.New("user is already a member of this project")
	ErrNotMember       = errors.New("user is not a member of this project")
)

// notBlank trims v and rejects it when nothing is left.
func notBlank(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("%w: %s must not be blank", ErrInvalidInput, field)
	}
	return v, nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
