package profile

import (
	"time"

	"github.com/google/uuid"
)

// Profile is what a field worker registers about themselves after signing in.
// IsLeader is granted out of band and never set through registration.
type Profile struct {
	ID        uuid.UUID
	UID       string // Firebase user ID
	Email     string
	Name      string
	Phone     string
	Reference string
	IsLeader  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Registration carries the fields a user may set on their own profile.
type Registration struct {
	Name      string
	Phone     string
	Reference string
}
