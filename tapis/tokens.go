package tapis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/tapis-project/tapis-go/result"
)

// Default lifetimes, in seconds, requested for service tokens.
const (
	DefaultAccessTokenTTL  = 86400
	DefaultRefreshTokenTTL = 3153600000
)

// Token is an access or refresh JWT together with its expiry.
type Token struct {
	JWT string
	// ExpiresAt is zero when the expiry could not be determined.
	ExpiresAt time.Time
	// OriginalTTL is the lifetime the server reported when issuing the token.
	OriginalTTL time.Duration
	// Claims are decoded without signature verification; the server remains
	// the arbiter of validity.
	Claims jwt.MapClaims

	now func() time.Time
}

// HasExpiry reports whether ExpiresAt is known.
func (t *Token) HasExpiry() bool {
	return t != nil && !t.ExpiresAt.IsZero()
}

// ExpiresIn is recomputed from the current time on every call.
func (t *Token) ExpiresIn() time.Duration {
	if !t.HasExpiry() {
		return time.Duration(math.MaxInt64)
	}
	now := time.Now
	if t.now != nil {
		now = t.now
	}
	return t.ExpiresAt.Sub(now())
}

var expiresAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// ParseToken builds a Token from a raw JWT. Expiry comes from the exp claim
// when present, then expiresAt, then expiresIn seconds from now.
func ParseToken(raw, expiresAt string, expiresIn int64, now func() time.Time) *Token {
	if now == nil {
		now = time.Now
	}
	tok := &Token{
		JWT:         raw,
		OriginalTTL: time.Duration(expiresIn) * time.Second,
		now:         now,
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err == nil {
		tok.Claims = claims
		if exp, ok := numericClaim(claims["exp"]); ok {
			tok.ExpiresAt = time.Unix(exp, 0).UTC()
			return tok
		}
	}

	if expiresAt != "" {
		for _, layout := range expiresAtLayouts {
			if t, err := time.Parse(layout, expiresAt); err == nil {
				tok.ExpiresAt = t.UTC()
				return tok
			}
		}
	}

	if expiresIn > 0 {
		tok.ExpiresAt = now().Add(tok.OriginalTTL).UTC()
	}
	return tok
}

func numericClaim(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return 0, false
			}
			return int64(f), true
		}
		return i, true
	case int64:
		return n, true
	}
	return 0, false
}

// tokenFromResult reads a {"<field>": {"<field>": jwt, "expires_at": ...,
// "expires_in": ...}} stanza. A missing stanza yields nil.
func tokenFromResult(v result.Value, field string, now func() time.Time) *Token {
	node := v.Get(field)
	if raw, ok := node.AsString(); ok {
		return ParseToken(raw, "", 0, now)
	}
	if !node.IsObject() {
		return nil
	}
	raw, ok := node.Get(field).AsString()
	if !ok {
		return nil
	}
	expiresAt, _ := node.Get("expires_at").AsString()
	expiresIn, ok := node.Get("expires_in").AsInt()
	if !ok {
		if f, fok := node.Get("expires_in").AsFloat(); fok {
			expiresIn = int64(f)
		}
	}
	return ParseToken(raw, expiresAt, expiresIn, now)
}

// BasicAuthHeader formats an HTTP Basic Authorization header value.
func BasicAuthHeader(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// ServiceTokenRequest overrides the Config values used to mint service tokens.
type ServiceTokenRequest struct {
	Username string
	TenantID string
	// TTLs in seconds; zero selects the defaults.
	AccessTokenTTL  int64
	RefreshTokenTTL int64
}

// UserTokenRequest overrides the Config values used for the password grant.
type UserTokenRequest struct {
	Username  string
	Password  string
	ClientID  string
	ClientKey string
	Headers   map[string]string
}

// GetTokens obtains a token pair using the flow for the account type.
func (c *Client) GetTokens(ctx context.Context) error {
	if c.cfg.AccountType == AccountService {
		return c.GetServiceTokens(ctx, ServiceTokenRequest{})
	}
	return c.GetUserTokens(ctx, UserTokenRequest{})
}

// GetServiceTokens mints a token pair from the Tokens API.
func (c *Client) GetServiceTokens(ctx context.Context, req ServiceTokenRequest) error {
	username := firstNonEmpty(req.Username, c.cfg.Username)
	tenantID := firstNonEmpty(req.TenantID, c.TenantID())
	accessTTL := req.AccessTokenTTL
	if accessTTL == 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	refreshTTL := req.RefreshTokenTTL
	if refreshTTL == 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}

	resp, err := c.Invoke(ctx, "tokens", "create_token", Args{
		"token_username":         username,
		"token_tenant_id":        tenantID,
		"account_type":           string(c.cfg.AccountType),
		"access_token_ttl":       accessTTL,
		"generate_refresh_token": true,
		"refresh_token_ttl":      refreshTTL,
	})
	if err != nil {
		return err
	}
	return c.storeTokens(resp, true)
}

// GetUserTokens runs the password grant against the Authenticator.
func (c *Client) GetUserTokens(ctx context.Context, req UserTokenRequest) error {
	clientID := firstNonEmpty(req.ClientID, c.cfg.ClientID)
	clientKey := firstNonEmpty(req.ClientKey, c.cfg.ClientKey)

	headers := map[string]string{}
	if clientID != "" && clientKey != "" {
		headers["Authorization"] = BasicAuthHeader(clientID, clientKey)
	}
	for k, v := range req.Headers {
		headers[k] = v
	}

	resp, err := c.Invoke(ctx, "authenticator", "create_token", Args{
		"username":   firstNonEmpty(req.Username, c.cfg.Username),
		"password":   firstNonEmpty(req.Password, c.cfg.Password),
		"grant_type": "password",
		ArgHeaders:   headers,
	})
	if err != nil {
		return err
	}
	return c.storeTokens(resp, false)
}

// RefreshTokens exchanges the refresh token for a new pair. Concurrent
// callers share a single round-trip.
func (c *Client) RefreshTokens(ctx context.Context) error {
	_, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		return nil, c.refreshTokens(ctx)
	})
	return err
}

func (c *Client) refreshTokens(ctx context.Context) error {
	refresh := c.RefreshToken()
	if refresh == nil || refresh.JWT == "" {
		return configurationError("no refresh token found")
	}

	if c.cfg.AccountType == AccountService {
		resp, err := c.Invoke(ctx, "tokens", "refresh_token", Args{
			"refresh_token": refresh.JWT,
		})
		if err != nil {
			return err
		}
		return c.storeTokens(resp, true)
	}

	if c.cfg.ClientID == "" {
		return configurationError("client_id not configured")
	}
	if c.cfg.ClientKey == "" {
		return configurationError("client_key not configured")
	}
	resp, err := c.Invoke(ctx, "authenticator", "create_token", Args{
		"grant_type":    "refresh_token",
		"refresh_token": refresh.JWT,
		ArgHeaders: map[string]string{
			"Authorization": BasicAuthHeader(c.cfg.ClientID, c.cfg.ClientKey),
		},
	})
	if err != nil {
		return err
	}
	return c.storeTokens(resp, true)
}

var errNoAccessToken = errors.New("token response has no access_token")

// storeTokens installs the pair from a token response. Nothing changes when
// the response lacks an access token.
func (c *Client) storeTokens(resp *Response, requireRefresh bool) error {
	access := tokenFromResult(resp.Result, "access_token", c.opts.now)
	if access == nil {
		return &Error{Kind: ErrInvalidServerResponse, Err: errNoAccessToken, Body: resp.Body}
	}
	refresh := tokenFromResult(resp.Result, "refresh_token", c.opts.now)
	if refresh == nil && requireRefresh {
		return &Error{Kind: ErrInvalidServerResponse, Message: "token response has no refresh_token", Body: resp.Body}
	}
	c.setTokens(access, refresh)
	c.logger.Debug("Stored new tokens",
		zap.Time("access_expires_at", access.ExpiresAt),
		zap.Bool("refresh_token", refresh != nil))
	return nil
}

// maybeRefresh refreshes ahead of a call whose access token is about to
// expire. Failures are logged and recorded, never returned.
func (c *Client) maybeRefresh(ctx context.Context, resource, operationID string) {
	if c.opts.tokenOperations[opKey(resource, operationID)] {
		return
	}
	access := c.AccessToken()
	if access == nil || access.JWT == "" || !access.HasExpiry() {
		return
	}
	remaining := access.ExpiresIn()
	if remaining >= c.opts.refreshThreshold {
		return
	}

	err := c.RefreshTokens(ctx)
	c.mu.Lock()
	c.session.lastRefreshErr = err
	c.mu.Unlock()
	if err != nil {
		c.logger.Warn("Token refresh failed, sending request with current token",
			zap.String("resource", resource),
			zap.String("operation", operationID),
			zap.Duration("remaining", remaining),
			zap.Error(err))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
