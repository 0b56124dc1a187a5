package account

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bloodbank/bloodbank/internal/domain/bloodgroup"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrDuplicate          = errors.New("username or email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidInput       = errors.New("invalid input")
)

const MinPasswordLen = 6

var validGenders = map[string]bool{"male": true, "female": true, "other": true}

// User maps to the app_user table.
type User struct {
	ID           uuid.UUID        `db:"id" json:"id"`
	Username     string           `db:"username" json:"username"`
	Email        string           `db:"email" json:"email"`
	PasswordHash string           `db:"password_hash" json:"-"`
	Role         string           `db:"role" json:"role"`
	FullName     string           `db:"full_name" json:"full_name"`
	Phone        *string          `db:"phone" json:"phone,omitempty"`
	Address      *string          `db:"address" json:"address,omitempty"`
	BloodGroup   bloodgroup.Group `db:"blood_group" json:"blood_group,omitempty"`
	DateOfBirth  *time.Time       `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender       *string          `db:"gender" json:"gender,omitempty"`
	Active       bool             `db:"active" json:"active"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// RegisterInput is the body of POST /auth/register.
type RegisterInput struct {
	Username    string           `json:"username"`
	Email       string           `json:"email"`
	Password    string           `json:"password"`
	Role        string           `json:"role"`
	FullName    string           `json:"full_name"`
	Phone       string           `json:"phone"`
	Address     string           `json:"address"`
	BloodGroup  bloodgroup.Group `json:"blood_group"`
	DateOfBirth string           `json:"date_of_birth"`
	Gender      string           `json:"gender"`
}

// ProfileUpdate carries the fields a user may change on their own profile.
type ProfileUpdate struct {
	FullName   string           `json:"full_name"`
	Email      string           `json:"email"`
	Phone      string           `json:"phone"`
	Address    string           `json:"address"`
	BloodGroup bloodgroup.Group `json:"blood_group"`
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
