package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "custodia/pkg/domain-errors"
)

func TestTokenRoundTrip(t *testing.T) {
	service := NewJWTService("test-signing-key", "custodia", "custodia-api")

	token, err := service.GenerateAccessToken(42, 3, []string{"view_evidence", "add_evidence"}, time.Hour)
	require.NoError(t, err)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.UserID)
	assert.EqualValues(t, 3, claims.DivisionID)
	assert.Equal(t, []string{"view_evidence", "add_evidence"}, claims.Permissions)
}

func TestValidateToken(t *testing.T) {
	service := NewJWTService("test-signing-key", "custodia", "custodia-api")

	t.Run("expired token is unauthorized", func(t *testing.T) {
		token, err := service.GenerateAccessToken(1, 1, nil, -time.Minute)
		require.NoError(t, err)

		_, err = service.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("token signed with another key is rejected", func(t *testing.T) {
		other := NewJWTService("different-key", "custodia", "custodia-api")
		token, err := other.GenerateAccessToken(1, 1, nil, time.Hour)
		require.NoError(t, err)

		_, err = service.ValidateToken(token)
		assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := service.ValidateToken("not-a-token")
		assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
	})
}
