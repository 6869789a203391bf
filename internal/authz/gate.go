package authz

import (
	"github.com/taskwise/backend/pkg/response"
)

// RequireRoles is the role gate. An empty allowed list admits any
// authenticated caller.
func RequireRoles(id Identity, allowed ...RoleName) error {
	if !id.Authenticated() {
		return response.NewUnauthorized("not authenticated")
	}
	if len(allowed) > 0 && !id.Roles.Intersects(allowed) {
		return response.NewForbidden("insufficient role")
	}
	return nil
}
