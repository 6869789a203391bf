package authz

import (
	"errors"
	"fmt"
	"strings"
)

// RoleName is one of the fixed role names understood by the access checks.
type RoleName string

const (
	RoleAdmin       RoleName = "Admin"
	RoleTaskCreator RoleName = "Task Creator"
	RoleReadOnly    RoleName = "Read-Only"
)

// AllRoles in display order.
var AllRoles = []RoleName{RoleAdmin, RoleTaskCreator, RoleReadOnly}

var ErrUnknownRole = errors.New("unknown role")

func (r RoleName) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// RoleSet is an unordered set of role names.
type RoleSet map[RoleName]struct{}

func NewRoleSet(roles ...RoleName) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

func (s RoleSet) Has(r RoleName) bool {
	_, ok := s[r]
	return ok
}

// Intersects reports whether any of roles is in s.
func (s RoleSet) Intersects(roles []RoleName) bool {
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Names returns the set's members in AllRoles order.
func (s RoleSet) Names() []string {
	names := make([]string, 0, len(s))
	for _, r := range AllRoles {
		if s.Has(r) {
			names = append(names, string(r))
		}
	}
	return names
}

// ParseRoles builds a RoleSet from raw names. Blank entries are skipped;
// any other name outside AllRoles is rejected with ErrUnknownRole.
func ParseRoles(values []string) (RoleSet, error) {
	s := make(RoleSet, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		r := RoleName(v)
		if !r.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRole, v)
		}
		s[r] = struct{}{}
	}
	return s, nil
}

// ParseRoleList parses a comma-separated role header value.
func ParseRoleList(header string) (RoleSet, error) {
	if strings.TrimSpace(header) == "" {
		return RoleSet{}, nil
	}
	return ParseRoles(strings.Split(header, ","))
}
