package provider

import (
	"fmt"
	"os"
	"strings"

	"octivary-engine/internal/secrets"
)

type Provider struct {
	BaseURL string
	APIKey  string
}

// publicProviders need no API key.
var publicProviders = map[string]struct{}{
	"halara_v1": {},
}

var defaultBaseURLs = map[string]string{
	"halara_v1": "https://api-proxy.ca.halara.com",
}

// Resolve builds provider credentials from the environment, with the OS
// keychain as an API-key fallback:
//
//	PROVIDER_<KEY>_BASE_URL
//	PROVIDER_<KEY>_API_KEY
func Resolve(providerKey string) (Provider, error) {
	envKey := strings.ToUpper(strings.TrimSpace(providerKey))
	key := strings.ToLower(strings.TrimSpace(providerKey))

	baseURL := os.Getenv("PROVIDER_" + envKey + "_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURLs[key]
	}
	if baseURL == "" {
		return Provider{}, fmt.Errorf("missing provider config for %s", providerKey)
	}

	apiKey := os.Getenv("PROVIDER_" + envKey + "_API_KEY")
	if apiKey == "" {
		if fromKeyring, err := secrets.GetProviderAPIKey(key); err == nil {
			apiKey = fromKeyring
		}
	}
	if apiKey == "" {
		if _, public := publicProviders[key]; !public {
			return Provider{}, fmt.Errorf("missing provider config for %s", providerKey)
		}
	}

	return Provider{BaseURL: baseURL, APIKey: apiKey}, nil
}
