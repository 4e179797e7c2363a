package model

import "time"

type BaseModel struct {
	ID        string    `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Actor identifies who performed a mutation. Type is "user" or "system".
type Actor struct {
	ID   string
	Type string
	Role string
}

const (
	ActorTypeUser   = "user"
	ActorTypeSystem = "system"

	RoleOwner = "owner"
	RoleAdmin = "admin"
)

// IsPrivileged reports whether the actor may correct ledger history.
func (a Actor) IsPrivileged() bool {
	return a.Role == RoleOwner || a.Role == RoleAdmin
}
