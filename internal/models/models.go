package models

import (
	"github.com/google/uuid"
)

// ensureID assigns a fresh UUIDv4 to an unset primary key. Called from the
// BeforeCreate hooks so ids never depend on a database-side generator.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All returns every model managed by AutoMigrate, parents first.
func All() []interface{} {
	return []interface{}{
		&Role{},
		&User{},
		&Project{},
		&ProjectMember{},
		&Task{},
		&AuditLog{},
	}
}
