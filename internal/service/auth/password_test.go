package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptVerifier(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	v := NewBcryptVerifier()
	assert.NoError(t, v.Compare(string(hash), "correct-horse"))
	assert.Error(t, v.Compare(string(hash), "wrong-horse"))
}
