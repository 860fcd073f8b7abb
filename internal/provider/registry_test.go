package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFromEnv(t *testing.T) {
	t.Setenv("PROVIDER_GAMEBRAIN_V1_BASE_URL", "https://api.gamebrain.test")
	t.Setenv("PROVIDER_GAMEBRAIN_V1_API_KEY", "secret")

	p, err := Resolve("gamebrain_v1")
	require.NoError(t, err)
	assert.Equal(t, "https://api.gamebrain.test", p.BaseURL)
	assert.Equal(t, "secret", p.APIKey)
}

func TestResolveMissingBaseURL(t *testing.T) {
	_, err := Resolve("unknown_v9")
	assert.ErrorContains(t, err, "missing provider config")
}

func TestResolvePublicProviderNeedsNoKey(t *testing.T) {
	p, err := Resolve("halara_v1")
	require.NoError(t, err)
	assert.Equal(t, "https://api-proxy.ca.halara.com", p.BaseURL)
	assert.Empty(t, p.APIKey)
}
