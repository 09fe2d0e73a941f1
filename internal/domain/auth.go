package domain

import "time"

// TokenTypeBearer is reported alongside issued access tokens.
const TokenTypeBearer = "bearer"

// AccessToken is the sole artifact of a successful verify or login.
type AccessToken struct {
	Token     string
	Subject   string
	ExpiresAt time.Time
}
