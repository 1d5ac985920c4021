package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/presstronic/kalsumed/pkg/authsdk"
)

func TestHealthEndpoints(t *testing.T) {
	h := startService(t)
	ctx := context.Background()

	live, err := h.client.Livez(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	ready, err := h.client.Readyz(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.Redis)
}

func TestReadyzDegradesWithoutRedis(t *testing.T) {
	h := startService(t)
	ctx := context.Background()

	h.redis.Close()

	ready, err := h.client.Readyz(ctx)
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 503, apiErr.StatusCode)
	require.Equal(t, "degraded", ready.Status)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Contains(t, ready.Checks.Redis, "error")

	// Liveness is unaffected.
	live, err := h.client.Livez(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
}
