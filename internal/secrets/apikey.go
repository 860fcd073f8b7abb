package secrets

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService groups the app's secrets in the OS keychain.
	KeyringService = "octivary"
)

// GetProviderAPIKey looks up a provider API key in the OS keychain.
// Env vars take precedence over the keychain; that check lives in the
// provider registry, not here.
func GetProviderAPIKey(providerKey string) (string, error) {
	account := keyringAccount(providerKey)
	if account == "" {
		return "", errors.New("provider key is empty")
	}
	key, err := keyring.Get(KeyringService, account)
	if err != nil || strings.TrimSpace(key) == "" {
		return "", errors.New("provider API key not found (set it in keychain or via env)")
	}
	return key, nil
}

func SetProviderAPIKey(providerKey, apiKey string) error {
	account := keyringAccount(providerKey)
	if account == "" {
		return errors.New("provider key is empty")
	}
	if strings.TrimSpace(apiKey) == "" {
		return errors.New("API key is empty")
	}
	return keyring.Set(KeyringService, account, apiKey)
}

func DeleteProviderAPIKey(providerKey string) error {
	account := keyringAccount(providerKey)
	if account == "" {
		return errors.New("provider key is empty")
	}
	return keyring.Delete(KeyringService, account)
}

func keyringAccount(providerKey string) string {
	providerKey = strings.ToLower(strings.TrimSpace(providerKey))
	if providerKey == "" {
		return ""
	}
	return "octivary:provider:" + providerKey
}
