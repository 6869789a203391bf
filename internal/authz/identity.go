package authz

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/taskwise/backend/internal/utils"
)

const (
	HeaderUserEmail = "X-User-Email"
	HeaderUserRoles = "X-User-Roles"
)

// Identity is the caller as seen by the access checks. An empty Email means
// the request is anonymous. UserID is uuid.Nil until it has been resolved
// against the users table.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Roles  RoleSet
}

func Anonymous() Identity {
	return Identity{Roles: RoleSet{}}
}

func (i Identity) Authenticated() bool { return i.Email != "" }

func (i Identity) IsAdmin() bool { return i.Roles.Has(RoleAdmin) }

// HasUser reports whether the identity resolved to a user row.
func (i Identity) HasUser() bool { return i.UserID != uuid.Nil }

// Is reports whether the identity resolved to userID. An unresolved identity
// is never anyone.
func (i Identity) Is(userID uuid.UUID) bool {
	return i.HasUser() && i.UserID == userID
}

// Strategy reads an identity from one kind of request credential. applied is
// false when the request carries no credential of that kind.
type Strategy interface {
	Extract(r *http.Request) (id Identity, applied bool, err error)
}

// Extractor runs its strategies in order; the first that applies decides.
type Extractor struct {
	strategies []Strategy
}

func NewExtractor(strategies ...Strategy) *Extractor {
	return &Extractor{strategies: strategies}
}

// Extract never fails for a missing identity. The only error is
// ErrUnknownRole for credentials naming roles outside AllRoles.
func (e *Extractor) Extract(r *http.Request) (Identity, error) {
	for _, s := range e.strategies {
		id, applied, err := s.Extract(r)
		if err != nil {
			return Anonymous(), err
		}
		if applied {
			return id, nil
		}
	}
	return Anonymous(), nil
}

// TokenStrategy reads a signed bearer token. A token that fails verification
// yields the anonymous identity; later strategies are not consulted.
type TokenStrategy struct {
	Verifier *utils.TokenVerifier
}

func (s TokenStrategy) Extract(r *http.Request) (Identity, bool, error) {
	raw, ok := utils.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return Identity{}, false, nil
	}
	claims, err := s.Verifier.Verify(raw)
	if err != nil {
		return Anonymous(), true, nil
	}
	roles, err := ParseRoles(claims.Roles)
	if err != nil {
		return Anonymous(), true, err
	}
	id := Identity{Email: strings.TrimSpace(claims.Email), Roles: roles}
	if claims.Subject != "" {
		if uid, err := uuid.Parse(claims.Subject); err == nil {
			id.UserID = uid
		}
	}
	if !id.Authenticated() {
		return Anonymous(), true, nil
	}
	return id, true, nil
}

// HeaderStrategy trusts plain identity headers. Development only.
type HeaderStrategy struct{}

func (HeaderStrategy) Extract(r *http.Request) (Identity, bool, error) {
	email := strings.TrimSpace(r.Header.Get(HeaderUserEmail))
	if email == "" {
		return Identity{}, false, nil
	}
	roles, err := ParseRoleList(r.Header.Get(HeaderUserRoles))
	if err != nil {
		return Anonymous(), true, err
	}
	return Identity{Email: email, Roles: roles}, true, nil
}
