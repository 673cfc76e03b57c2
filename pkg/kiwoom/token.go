package kiwoom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mlstock/kiwoom-connector/pkg/common"
	"github.com/mlstock/kiwoom-connector/pkg/logging"
	"github.com/mlstock/kiwoom-connector/pkg/settings"
)

// expiryMargin is the safety margin against clock skew and in-flight
// latency: a token expiring within this window counts as expired.
const expiryMargin = 60 * time.Second

// defaultTokenTTL applies when the auth response carries no usable expiry.
const defaultTokenTTL = 3600 * time.Second

// tokenFieldNames are the response fields tried, in order, for the access
// token. The vendor has shipped both spellings.
var tokenFieldNames = []string{"token", "access_token"}

// tokenManager owns the access token lifecycle: acquisition, caching with an
// expiry margin, forced refresh, credential rotation, and revocation.
//
// The mutex guards the token fields for memory safety only. It is not held
// across network calls, so concurrent callers racing past an expired-token
// check may each trigger a redundant authentication; the last writer wins.
// Single-flight deduplication is deliberately not provided.
type tokenManager struct {
	mu     sync.Mutex
	creds  settings.Credentials
	token  string
	expiry time.Time

	http      common.HTTPClient
	baseURL   string
	endpoints map[string]string
	logger    logging.Logger

	now func() time.Time
}

func newTokenManager(creds settings.Credentials, httpClient common.HTTPClient, baseURL string, endpoints map[string]string, logger logging.Logger) *tokenManager {
	return &tokenManager{
		creds:     creds,
		http:      httpClient,
		baseURL:   baseURL,
		endpoints: endpoints,
		logger:    logger,
		now:       time.Now,
	}
}

// Authenticate returns a valid access token, reusing the cached one when it
// is present and not expiring within the safety margin. force bypasses the
// cache.
func (tm *tokenManager) Authenticate(ctx context.Context, force bool) (string, error) {
	tm.mu.Lock()
	if !force && tm.token != "" && tm.expiry.After(tm.now().Add(expiryMargin)) {
		token := tm.token
		tm.mu.Unlock()
		return token, nil
	}
	creds := tm.creds
	tm.mu.Unlock()

	if creds.AppKey == "" || creds.SecretKey == "" {
		return "", &ConfigError{Message: "app key and secret key credentials are required"}
	}

	endpoint := tm.endpoints["authenticate"]
	if endpoint == "" {
		return "", &ConfigError{Message: "authenticate endpoint missing in config"}
	}

	payload := map[string]string{
		"grant_type": "client_credentials",
		"appkey":     creds.AppKey,
		"secretkey":  creds.SecretKey,
	}

	resp, err := tm.http.Post(ctx, joinURL(tm.baseURL, endpoint), payload)
	if err != nil {
		tm.logger.Error("authentication request failed", logging.Error(err))
		return "", &AuthError{Message: "kiwoom authentication failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &AuthError{Message: "reading authentication response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &AuthError{
			Message: fmt.Sprintf("authentication rejected with status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
		}
	}

	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", &AuthError{Message: "invalid authentication response", Err: err}
	}

	if msg := vendorErrorMessage(body); msg != "" {
		return "", &AuthError{Message: msg}
	}

	token := firstStringField(body, tokenFieldNames)
	if token == "" {
		return "", &AuthError{Message: fmt.Sprintf("authentication response lacks a token field: %s", strings.TrimSpace(string(raw)))}
	}

	acquiredAt := tm.now()
	ttl := resolveTokenTTL(body, acquiredAt)

	tm.mu.Lock()
	tm.token = token
	tm.expiry = acquiredAt.Add(ttl)
	tm.mu.Unlock()

	tm.logger.Info("authenticated with kiwoom REST API",
		logging.Duration("token_ttl", ttl),
	)
	return token, nil
}

// UpdateCredentials replaces the stored credentials (trimmed) and clears any
// cached token so the next call authenticates under the new identity. The
// token is cleared even if the new credentials later prove invalid.
func (tm *tokenManager) UpdateCredentials(appKey, secretKey, accountNo string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.creds = settings.Credentials{
		AppKey:    strings.TrimSpace(appKey),
		SecretKey: strings.TrimSpace(secretKey),
		AccountNo: strings.TrimSpace(accountNo),
	}
	tm.token = ""
	tm.expiry = time.Time{}
}

// Credentials returns the currently stored credentials.
func (tm *tokenManager) Credentials() settings.Credentials {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.creds
}

// Revoke best-effort logs out the current token if a revoke endpoint is
// configured, then clears local state regardless of the network outcome.
// Safe to call when never authenticated.
func (tm *tokenManager) Revoke(ctx context.Context) {
	tm.mu.Lock()
	token := tm.token
	creds := tm.creds
	tm.token = ""
	tm.expiry = time.Time{}
	tm.mu.Unlock()

	if token == "" {
		return
	}

	endpoint := tm.endpoints["revoke"]
	if endpoint == "" {
		endpoint = tm.endpoints["logout"]
	}
	if endpoint == "" {
		return
	}

	payload := map[string]string{
		"appkey":    creds.AppKey,
		"secretkey": creds.SecretKey,
		"token":     token,
	}
	resp, err := tm.http.Post(ctx, joinURL(tm.baseURL, endpoint), payload)
	if err != nil {
		tm.logger.Warn("token revocation failed", logging.Error(err))
		return
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		tm.logger.Warn("token revocation rejected", logging.Int("status", resp.StatusCode))
		return
	}
	tm.logger.Info("access token revoked")
}

// resolveTokenTTL derives the token lifetime from the auth response body:
// a numeric expires_in in seconds, else an absolute expires_dt timestamp
// (YYYYMMDDHHMMSS, UTC) minus the time already elapsed, floored at zero,
// else the default TTL.
func resolveTokenTTL(body map[string]interface{}, now time.Time) time.Duration {
	if v, ok := body["expires_in"]; ok {
		switch n := v.(type) {
		case float64:
			return time.Duration(n * float64(time.Second))
		case string:
			var secs float64
			if _, err := fmt.Sscanf(n, "%f", &secs); err == nil {
				return time.Duration(secs * float64(time.Second))
			}
		}
	}

	if v, ok := body["expires_dt"].(string); ok && v != "" {
		if expiresAt, err := time.ParseInLocation("20060102150405", v, time.UTC); err == nil {
			ttl := expiresAt.Sub(now)
			if ttl < 0 {
				ttl = 0
			}
			return ttl
		}
	}

	return defaultTokenTTL
}

// vendorErrorMessage returns a non-empty message when the body carries the
// vendor's non-zero return_code alongside an explicit error message.
func vendorErrorMessage(body map[string]interface{}) string {
	code, ok := body["return_code"]
	if !ok {
		return ""
	}
	n, ok := code.(float64)
	if !ok || n == 0 {
		return ""
	}
	if msg, ok := body["return_msg"].(string); ok && msg != "" {
		return fmt.Sprintf("kiwoom returned code %d: %s", int(n), msg)
	}
	return ""
}

func firstStringField(body map[string]interface{}, names []string) string {
	for _, name := range names {
		if v, ok := body[name].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
