package auth_test

import (
	"testing"

	"github.com/aussiebroadwan/congregation/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestRateLimitLogin runs with the production limits: five credential
// attempts per minute per IP and email.
func TestRateLimitLogin(t *testing.T) {
	c := setupAuthContainer(t, withEnv(map[string]string{
		"RATELIMIT_STRICT_REQUESTS":   "5",
		"RATELIMIT_STRICT_WINDOW_SEC": "60",
		"RATELIMIT_STRICT_BURST":      "5",
	}))
	client := c.client()
	ctx := t.Context()

	for i := range 5 {
		_, err := client.Login(ctx, "target@example.com", "Wr0ng!password")
		require.Error(t, err)
		require.NotErrorIs(t, err, authsdk.ErrRateLimited, "request %d", i+1)
	}

	_, err := client.Login(ctx, "target@example.com", "Wr0ng!password")
	require.ErrorIs(t, err, authsdk.ErrRateLimited)

	// A different email has its own bucket.
	_, err = client.Login(ctx, "someone-else@example.com", "Wr0ng!password")
	require.NotErrorIs(t, err, authsdk.ErrRateLimited)
}
