package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	mgr := NewJWTManager("test-secret", time.Hour)

	token, err := mgr.Generate("ops@nilelink", []string{RoleGovernance})
	require.NoError(t, err)

	claims, err := mgr.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@nilelink", claims.Subject)

	caller := claims.Caller()
	assert.True(t, caller.Governance)
	assert.False(t, caller.Valuation)
	assert.Equal(t, "ops@nilelink", caller.ID)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-a", time.Hour).Generate("x", nil)
	require.NoError(t, err)

	_, err = NewJWTManager("secret-b", time.Hour).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	mgr := NewJWTManager("secret", -time.Minute)
	token, err := mgr.Generate("x", []string{RoleValuation})
	require.NoError(t, err)

	_, err = mgr.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
