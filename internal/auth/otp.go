package auth

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"
)

const otpDigits = 6

var otpSpace = big.NewInt(1_000_000)

// OTPGenerator produces zero-padded six digit codes with a fixed validity window.
type OTPGenerator struct {
	ttl    time.Duration
	random io.Reader
}

// NewOTPGenerator builds a generator; a non-positive ttl falls back to ten minutes.
func NewOTPGenerator(ttlMinutes int) *OTPGenerator {
	if ttlMinutes <= 0 {
		ttlMinutes = 10
	}
	return &OTPGenerator{ttl: time.Duration(ttlMinutes) * time.Minute, random: rand.Reader}
}

// TTL reports the validity window of generated codes.
func (g *OTPGenerator) TTL() time.Duration {
	return g.ttl
}

// Generate returns a uniformly random code and the instant it stops being valid.
func (g *OTPGenerator) Generate(now time.Time) (string, time.Time, error) {
	n, err := rand.Int(g.random, otpSpace)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), now.Add(g.ttl), nil
}
