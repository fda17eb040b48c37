package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/order-desk/internal/core/domain"
)

func TestPrincipal(t *testing.T) {
	tokens := NewTokenIssuer(testSecret)
	token, err := tokens.Issue("u-1", time.Hour)
	require.NoError(t, err)

	id, err := tokens.Principal("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", id)

	id, err = tokens.Principal(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", id)

	_, err = tokens.Principal("")
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)

	expired, err := tokens.Issue("u-1", -time.Minute)
	require.NoError(t, err)
	_, err = tokens.Principal(expired)
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)
}

func TestPrincipal_EmptySecretRejectsEverything(t *testing.T) {
	tokens := NewTokenIssuer("")
	token, err := tokens.Issue("u-admin", time.Hour)
	require.NoError(t, err)

	_, err = tokens.Principal("Bearer " + token)
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)
}
