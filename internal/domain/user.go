package domain

import (
	"strings"
	"time"
)

// DefaultRole is assigned when registration omits a role.
const DefaultRole = "student"

// User is the persisted account record. OTPCode and OTPExpires are either
// both set or both nil, and a verified user never carries a pending code.
type User struct {
	ID           string
	Email        string
	FullName     string
	Role         string
	PasswordHash string
	IsVerified   bool
	OTPCode      *string
	OTPExpires   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserView is the sanitized projection returned to callers.
type UserView struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	Role       string    `json:"role"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// NormalizeEmail returns the lookup key for an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasPendingChallenge reports whether both OTP fields are present.
func (u *User) HasPendingChallenge() bool {
	return u.OTPCode != nil && u.OTPExpires != nil
}

// SetChallenge stores a fresh code and its expiry together.
func (u *User) SetChallenge(code string, expires time.Time) {
	u.OTPCode = &code
	u.OTPExpires = &expires
}

// MarkVerified flips the account to verified and consumes the pending code.
func (u *User) MarkVerified() {
	u.IsVerified = true
	u.OTPCode = nil
	u.OTPExpires = nil
}

// View strips credentials and challenge state.
func (u *User) View() UserView {
	return UserView{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		Role:       u.Role,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
	}
}

// Clone returns a deep copy, including the OTP pointers.
func (u *User) Clone() *User {
	c := *u
	if u.OTPCode != nil {
		code := *u.OTPCode
		c.OTPCode = &code
	}
	if u.OTPExpires != nil {
		exp := *u.OTPExpires
		c.OTPExpires = &exp
	}
	return &c
}
