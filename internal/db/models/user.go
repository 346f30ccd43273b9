package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

// Role represents the application role of a user account.
type Role string

const (
	// RoleAdmin bypasses every permission and field lock check.
	RoleAdmin Role = "admin"
	// RoleUser is the default role, subject to group permissions.
	RoleUser Role = "user"
)

// User represents a user account in the system.
// A user optionally belongs to one group; permissions and field locks are
// derived from that group. Users without a group receive no group-granted
// rights. Accounts are soft deleted only.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey"`
	// Active indicates whether the user account is active and can log in.
	Active bool
	// Username is the unique username for login.
	Username string `gorm:"unique;size:100;not null"`
	// Name is the display name shown in notifications and the change log.
	Name string `gorm:"size:150"`
	// Email is the user's email address.
	Email string `gorm:"size:255"`
	// Password is the Argon2id hashed password.
	Password string `gorm:"size:255"`
	// Role is the application role (admin or user).
	Role Role `gorm:"type:varchar(20);not null;default:'user'"`
	// GroupID is the group this user belongs to, nil for ungrouped users.
	GroupID *uint `gorm:"index"`
	// Group is the associated group (loaded via foreign key).
	Group *Group `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time
	// DeletedAt is the soft delete timestamp (nil if not deleted).
	DeletedAt *time.Time
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the account holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
// This function should be used when creating or updating user passwords.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}

// VerifyPassword verifies a plaintext password against the user's stored hashed password.
// It uses constant-time comparison to prevent timing attacks.
// Returns true if the password matches, false otherwise.
func (u *User) VerifyPassword(password string) bool {
	match, err := argon2id.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}
