package auth

import (
	"bytes"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

func TestOTPGenerator_Format(t *testing.T) {
	g := NewOTPGenerator(10)
	now := time.Now()

	for i := 0; i < 200; i++ {
		code, expires, err := g.Generate(now)
		require.NoError(t, err)
		assert.Regexp(t, sixDigits, code)
		assert.Equal(t, now.Add(10*time.Minute), expires)
	}
}

func TestOTPGenerator_ZeroPads(t *testing.T) {
	g := NewOTPGenerator(10)
	g.random = bytes.NewReader(make([]byte, 8))

	code, _, err := g.Generate(time.Now())
	require.NoError(t, err)
	assert.Equal(t, "000000", code)
}

func TestOTPGenerator_ReaderFailure(t *testing.T) {
	g := NewOTPGenerator(10)
	g.random = bytes.NewReader(nil)

	_, _, err := g.Generate(time.Now())
	require.Error(t, err)
}

func TestOTPGenerator_DefaultTTL(t *testing.T) {
	assert.Equal(t, 10*time.Minute, NewOTPGenerator(0).TTL())
	assert.Equal(t, 3*time.Minute, NewOTPGenerator(3).TTL())
}
