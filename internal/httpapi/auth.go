package httpapi

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"octivary-engine/internal/config"
)

const fallbackUserID = "demo-user"

var (
	errAuthUnavailable = errors.New("unable to load auth keys")
	errInvalidToken    = errors.New("invalid auth token")
	errMissingToken    = errors.New("missing auth token")
	errAuthNotConfig   = errors.New("auth not configured")
)

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

// JWKSCache fetches and holds a user pool's signing keys for an hour.
// Constructed in main() and injected through Deps, like the response
// cache and the limiter.
type JWKSCache struct {
	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	expiresAt time.Time
	client    *http.Client
	baseURL   string // overrides the Cognito endpoint in tests
}

func NewJWKSCache() *JWKSCache {
	return &JWKSCache{client: &http.Client{Timeout: 6 * time.Second}}
}

func (c *JWKSCache) url(region, poolID string) string {
	if c.baseURL != "" {
		return c.baseURL + "/.well-known/jwks.json"
	}
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s/.well-known/jwks.json", region, poolID)
}

func (c *JWKSCache) get(region, poolID, kid string) (*rsa.PublicKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.keys != nil && time.Now().Before(c.expiresAt) {
		if key, ok := c.keys[kid]; ok {
			return key, nil
		}
	}

	resp, err := c.client.Get(c.url(region, poolID))
	if err != nil {
		return nil, errAuthUnavailable
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errAuthUnavailable
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, errAuthUnavailable
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, entry := range doc.Keys {
		if entry.Kty != "RSA" {
			continue
		}
		pub, err := rsaKeyFromJWK(entry)
		if err != nil {
			continue
		}
		keys[entry.Kid] = pub
	}
	c.keys = keys
	c.expiresAt = time.Now().Add(time.Hour)

	key, ok := keys[kid]
	if !ok {
		return nil, errInvalidToken
	}
	return key, nil
}

func rsaKeyFromJWK(entry jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(entry.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(entry.E)
	if err != nil {
		return nil, err
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func headerUserID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-User-Id")); id != "" {
		return id
	}
	return fallbackUserID
}

// requireUser resolves the caller's identity. With a configured Cognito
// pool it verifies the bearer token against the pool's JWKS; otherwise
// it falls back to the X-User-Id header unless auth is required.
func requireUser(jwks *JWKSCache, authCfg config.Auth, r *http.Request) (string, error) {
	token := bearerToken(r)

	if authCfg.CognitoUserPoolID == "" || authCfg.CognitoRegion == "" {
		if authCfg.Required {
			return "", errAuthNotConfig
		}
		return headerUserID(r), nil
	}

	if token == "" {
		if authCfg.Required {
			return "", errMissingToken
		}
		return headerUserID(r), nil
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s",
			authCfg.CognitoRegion, authCfg.CognitoUserPoolID)),
	)

	claims := jwt.MapClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if jwks == nil {
			return nil, errAuthUnavailable
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errInvalidToken
		}
		return jwks.get(authCfg.CognitoRegion, authCfg.CognitoUserPoolID, kid)
	})
	if err != nil || !parsed.Valid {
		if errors.Is(err, errAuthUnavailable) {
			return "", errAuthUnavailable
		}
		return "", errInvalidToken
	}

	if authCfg.CognitoClientID != "" {
		aud, _ := claims["aud"].(string)
		clientID, _ := claims["client_id"].(string)
		if aud != authCfg.CognitoClientID && clientID != authCfg.CognitoClientID {
			return "", errInvalidToken
		}
	}

	if sub, _ := claims["sub"].(string); sub != "" {
		return sub, nil
	}
	if username, _ := claims["username"].(string); username != "" {
		return username, nil
	}
	return headerUserID(r), nil
}

// authenticate wraps requireUser with the standard error responses. The
// empty string return means the response has been written.
func authenticate(d Deps, w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := requireUser(d.JWKS, d.Cfg().Auth, r)
	if err != nil {
		if errors.Is(err, errAuthUnavailable) {
			WriteError(w, r, http.StatusServiceUnavailable, "auth_unavailable", "Unable to load auth keys.")
		} else {
			WriteError(w, r, http.StatusUnauthorized, "unauthorized", err.Error())
		}
		return "", false
	}
	return userID, true
}
