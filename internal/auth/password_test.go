package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("Passw0rd!", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, "Passw0rd!", hash)
	assert.True(t, CheckPassword(hash, "Passw0rd!"))
	assert.False(t, CheckPassword(hash, "Passw0rd?"))
	assert.False(t, CheckPassword("not-a-hash", "Passw0rd!"))
}

func TestPasswordPolicyViolations(t *testing.T) {
	tests := []struct {
		name     string
		password string
		expected string
	}{
		{name: "too short", password: "Pa0!", expected: "at least 8 characters"},
		{name: "too long", password: "Aa0!" + strings.Repeat("x", 80), expected: "must not exceed"},
		{name: "no lowercase", password: "PASSW0RD!", expected: "lowercase"},
		{name: "no uppercase", password: "passw0rd!", expected: "uppercase"},
		{name: "no digit", password: "Password!", expected: "number"},
		{name: "no special", password: "Passw0rdX", expected: "special character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := PasswordPolicyViolations(tt.password)
			require.NotEmpty(t, violations)
			assert.Contains(t, strings.Join(violations, "; "), tt.expected)
		})
	}

	assert.Empty(t, PasswordPolicyViolations("Passw0rd!"))
	assert.Empty(t, PasswordPolicyViolations("Passw0rd with spaces"))
}
