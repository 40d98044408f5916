package model

import (
	"strings"
	"time"

	"github.com/soc-lab/kestrel/pkg/domain/types"
)

// adminEmail is the single account granted the admin role. Kept as an
// explicit constant so the derivation happens exactly once, at sign-in.
const adminEmail = "admin@admin.com"

// User represents an authenticated user of the dashboard
type User struct {
	ID        types.UserID `json:"id"`
	Email     string       `json:"email"`
	Name      string       `json:"name"`
	Role      types.Role   `json:"role"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewUser creates a new User instance with the role derived from the email
func NewUser(id types.UserID, email, name string) *User {
	now := time.Now()
	return &User{
		ID:        id,
		Email:     email,
		Name:      name,
		Role:      RoleForEmail(email),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RoleForEmail derives the authorization role from an account email.
// The role is attached to the session as an explicit claim; callers must
// not re-derive it ad hoc.
func RoleForEmail(email string) types.Role {
	if strings.EqualFold(strings.TrimSpace(email), adminEmail) {
		return types.RoleAdmin
	}
	return types.RoleUser
}

// IsReservedEmail reports whether the email is reserved and may not be used
// for self-service signup.
func IsReservedEmail(email string) bool {
	return strings.EqualFold(strings.TrimSpace(email), adminEmail)
}
