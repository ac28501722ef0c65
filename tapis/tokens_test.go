package tapis

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseToken(t *testing.T) {
	exp := testNow.Add(90 * time.Second)

	t.Run("exp claim", func(t *testing.T) {
		tok := ParseToken(signedJWT(t, "alice", exp), "2000-01-01T00:00:00Z", 10, testClock)
		require.True(t, tok.HasExpiry())
		require.True(t, exp.Equal(tok.ExpiresAt))
		require.Equal(t, 90*time.Second, tok.ExpiresIn())
		require.Equal(t, 10*time.Second, tok.OriginalTTL)
		require.Equal(t, "alice", tok.Claims["sub"])
	})

	t.Run("expires_at", func(t *testing.T) {
		tok := ParseToken("opaque", "2026-03-14T12:00:30+00:00", 0, testClock)
		require.Equal(t, 30*time.Second, tok.ExpiresIn())

		tok = ParseToken("opaque", "2026-03-14 12:00:45.123456", 0, testClock)
		require.True(t, tok.HasExpiry())
		require.Equal(t, 45, int(tok.ExpiresIn().Seconds()))
	})

	t.Run("expires_in", func(t *testing.T) {
		tok := ParseToken("opaque", "not a time", 60, testClock)
		require.Equal(t, time.Minute, tok.ExpiresIn())
	})

	t.Run("unknown expiry", func(t *testing.T) {
		tok := ParseToken("opaque", "", 0, testClock)
		require.False(t, tok.HasExpiry())
		require.Greater(t, tok.ExpiresIn(), 100*365*24*time.Hour)
	})
}

func TestExpiresInIsRecomputed(t *testing.T) {
	now := testNow
	clock := func() time.Time { return now }
	tok := ParseToken("opaque", "", 60, clock)

	require.Equal(t, time.Minute, tok.ExpiresIn())
	now = now.Add(45 * time.Second)
	require.Equal(t, 15*time.Second, tok.ExpiresIn())
}

func TestGetServiceTokens(t *testing.T) {
	access := signedJWT(t, "svc", testNow.Add(time.Hour))
	refresh := signedJWT(t, "svc", testNow.Add(24*time.Hour))

	rec := newRecorder(t)
	rec.handle("POST /v3/tokens", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, tokenPairBody(access, refresh))
	})
	c := newTestClient(t, rec, Config{
		AccountType:     AccountService,
		TenantID:        "admin",
		Username:        "svc",
		ServicePassword: "secret",
	})

	require.NoError(t, c.GetTokens(context.Background()))

	last := rec.last()
	require.Equal(t, BasicAuthHeader("svc", "secret"), last.Header.Get("Authorization"))
	require.Equal(t, "admin", last.Header.Get(HeaderTenant))
	require.Equal(t, "svc", last.Header.Get(HeaderUser))

	var body map[string]any
	require.NoError(t, json.Unmarshal(last.Body, &body))
	require.Equal(t, map[string]any{
		"token_username":         "svc",
		"token_tenant_id":        "admin",
		"account_type":           "service",
		"access_token_ttl":       float64(DefaultAccessTokenTTL),
		"generate_refresh_token": true,
		"refresh_token_ttl":      float64(DefaultRefreshTokenTTL),
	}, body)

	require.Equal(t, access, c.AccessToken().JWT)
	require.Equal(t, refresh, c.RefreshToken().JWT)
	require.Equal(t, time.Hour, c.AccessToken().ExpiresIn())
	require.Equal(t, time.Hour, c.AccessToken().OriginalTTL)
}

func TestCreateTokenWithoutBasicAuth(t *testing.T) {
	rec := newRecorder(t)
	c := newTestClient(t, rec, Config{
		AccountType:     AccountService,
		TenantID:        "admin",
		Username:        "svc",
		ServicePassword: "secret",
	})

	_, err := c.Invoke(context.Background(), "tokens", "create_token", Args{
		"token_username":  "svc",
		"token_tenant_id": "admin",
		"account_type":    "service",
		ArgBasicAuth:      false,
	})
	require.NoError(t, err)
	require.Empty(t, rec.last().Header.Get("Authorization"))
}

func TestGetUserTokens(t *testing.T) {
	access := signedJWT(t, "alice", testNow.Add(time.Hour))

	rec := newRecorder(t)
	rec.handle("POST /v3/oauth2/tokens", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"result": map[string]any{
				"access_token": map[string]any{"access_token": access, "expires_in": 3600},
			},
		})
	})
	c := newTestClient(t, rec, Config{
		TenantID:  "dev",
		Username:  "alice",
		Password:  "pw",
		ClientID:  "cli",
		ClientKey: "key",
	})

	require.NoError(t, c.GetTokens(context.Background()))

	last := rec.last()
	require.Equal(t, BasicAuthHeader("cli", "key"), last.Header.Get("Authorization"))
	require.Empty(t, last.Header.Get(HeaderUser))
	require.JSONEq(t, `{"grant_type":"password","username":"alice","password":"pw"}`, string(last.Body))
	require.Equal(t, access, c.AccessToken().JWT)
	require.Nil(t, c.RefreshToken())
}

func TestTokenResponseWithoutAccessTokenKeepsPriorPair(t *testing.T) {
	rec := newRecorder(t)
	rec.handle("PUT /v3/tokens", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"result": map[string]any{"unexpected": true}})
	})
	c := newTestClient(t, rec, Config{
		AccountType:  AccountService,
		Username:     "svc",
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
	})

	err := c.RefreshTokens(context.Background())
	require.ErrorIs(t, err, ErrInvalidServerResponse)
	require.Equal(t, "old-access", c.AccessToken().JWT)
	require.Equal(t, "old-refresh", c.RefreshToken().JWT)
}

func TestRefreshTokensRequiresConfiguration(t *testing.T) {
	rec := newRecorder(t)

	c := newTestClient(t, rec, Config{AccessToken: "a"})
	require.ErrorIs(t, c.RefreshTokens(context.Background()), ErrConfiguration)

	c = newTestClient(t, rec, Config{AccessToken: "a", RefreshToken: "r", ClientID: "cli"})
	err := c.RefreshTokens(context.Background())
	require.ErrorIs(t, err, ErrConfiguration)
	require.Contains(t, err.Error(), "client_key")

	require.Empty(t, rec.all())
}

func TestRefreshUserTokens(t *testing.T) {
	access := signedJWT(t, "alice", testNow.Add(time.Hour))
	refresh := signedJWT(t, "alice", testNow.Add(48*time.Hour))

	rec := newRecorder(t)
	rec.handle("POST /v3/oauth2/tokens", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, tokenPairBody(access, refresh))
	})
	c := newTestClient(t, rec, Config{
		Username:     "alice",
		ClientID:     "cli",
		ClientKey:    "key",
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
	})

	require.NoError(t, c.RefreshTokens(context.Background()))
	last := rec.last()
	require.Equal(t, BasicAuthHeader("cli", "key"), last.Header.Get("Authorization"))
	require.JSONEq(t, `{"grant_type":"refresh_token","refresh_token":"old-refresh"}`, string(last.Body))
	require.Equal(t, access, c.AccessToken().JWT)
	require.Equal(t, refresh, c.RefreshToken().JWT)
}

// refreshFixture is a service client whose access token expires in
// remaining, against a server that hands out fresh tokens on refresh.
func refreshFixture(t *testing.T, remaining time.Duration) (*Client, *recorder, string) {
	t.Helper()
	fresh := signedJWT(t, "svc", testNow.Add(time.Hour))
	freshRefresh := signedJWT(t, "svc", testNow.Add(48*time.Hour))

	rec := newRecorder(t)
	rec.handle("PUT /v3/tokens", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, tokenPairBody(fresh, freshRefresh))
	})
	c := newTestClient(t, rec, Config{
		AccountType:  AccountService,
		TenantID:     "admin",
		Username:     "svc",
		AccessToken:  signedJWT(t, "svc", testNow.Add(remaining)),
		RefreshToken: signedJWT(t, "svc", testNow.Add(24*time.Hour)),
	})
	return c, rec, fresh
}

func TestPreemptiveRefresh(t *testing.T) {
	t.Run("skipped with time to spare", func(t *testing.T) {
		c, rec, _ := refreshFixture(t, 30*time.Second)
		stale := c.AccessToken().JWT

		_, err := c.Invoke(context.Background(), "tenants", "get_tenant", Args{"tenant_id": "dev"})
		require.NoError(t, err)
		require.Zero(t, rec.count(http.MethodPut, "/v3/tokens"))
		require.Equal(t, stale, rec.last().Header.Get(HeaderToken))
	})

	t.Run("once when about to expire", func(t *testing.T) {
		c, rec, fresh := refreshFixture(t, 3*time.Second)

		for i := 0; i < 3; i++ {
			_, err := c.Invoke(context.Background(), "tenants", "get_tenant", Args{"tenant_id": "dev"})
			require.NoError(t, err)
			require.Equal(t, fresh, rec.last().Header.Get(HeaderToken))
		}
		require.Equal(t, 1, rec.count(http.MethodPut, "/v3/tokens"))
		require.NoError(t, c.LastRefreshError())
	})

	t.Run("already expired", func(t *testing.T) {
		c, rec, fresh := refreshFixture(t, -time.Minute)

		_, err := c.Invoke(context.Background(), "tenants", "get_tenant", Args{"tenant_id": "dev"})
		require.NoError(t, err)
		require.Equal(t, 1, rec.count(http.MethodPut, "/v3/tokens"))
		require.Equal(t, fresh, rec.last().Header.Get(HeaderToken))
	})

	t.Run("never for the refresh operation itself", func(t *testing.T) {
		c, rec, _ := refreshFixture(t, time.Second)

		_, err := c.Invoke(context.Background(), "tokens", "refresh_token", Args{"refresh_token": "r"})
		require.NoError(t, err)
		require.Equal(t, 1, rec.count(http.MethodPut, "/v3/tokens"))
		require.Len(t, rec.all(), 1)
	})

	t.Run("failure is swallowed", func(t *testing.T) {
		c, rec, _ := refreshFixture(t, time.Second)
		rec.handle("PUT /v3/tokens", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "down"})
		})
		stale := c.AccessToken().JWT

		_, err := c.Invoke(context.Background(), "tenants", "get_tenant", Args{"tenant_id": "dev"})
		require.NoError(t, err)
		require.Equal(t, stale, rec.last().Header.Get(HeaderToken))
		require.Equal(t, stale, c.AccessToken().JWT)
		require.ErrorIs(t, c.LastRefreshError(), ErrServerDown)
	})

	t.Run("input errors come first", func(t *testing.T) {
		c, rec, _ := refreshFixture(t, time.Second)

		_, err := c.Invoke(context.Background(), "tenants", "get_tenant", nil)
		require.ErrorIs(t, err, ErrInvalidInput)
		require.Empty(t, rec.all())
	})
}

func TestConcurrentCallsShareRefresh(t *testing.T) {
	c, rec, fresh := refreshFixture(t, time.Second)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Invoke(context.Background(), "tenants", "get_tenant", Args{"tenant_id": "dev"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, fresh, c.AccessToken().JWT)
	require.GreaterOrEqual(t, rec.count(http.MethodPut, "/v3/tokens"), 1)
	require.Equal(t, 8, rec.count(http.MethodGet, "/v3/tenants/dev"))
}

func TestResolveTenant(t *testing.T) {
	rec := newRecorder(t)
	c := newTestClient(t, rec, Config{AccountType: AccountService, Username: "svc"})
	rec.handle("GET /v3/tenants", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"result": []any{
			map[string]any{"tenant_id": "other", "base_url": "https://other.example"},
			map[string]any{"tenant_id": "dev", "base_url": c.BaseURL() + "/"},
		}})
	})

	id, err := c.ResolveTenant(context.Background())
	require.NoError(t, err)
	require.Equal(t, "dev", id)
	require.Equal(t, "dev", c.TenantID())

	_, err = c.Invoke(context.Background(), "tenants", "get_tenant", Args{"tenant_id": "dev"})
	require.NoError(t, err)
	require.Equal(t, "dev", rec.last().Header.Get(HeaderTenant))
	require.Equal(t, "svc", rec.last().Header.Get(HeaderUser))
}

func TestResolveTenantNoMatch(t *testing.T) {
	rec := newRecorder(t)
	rec.handle("GET /v3/tenants", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"result": []any{}})
	})
	c := newTestClient(t, rec, Config{})

	_, err := c.ResolveTenant(context.Background())
	require.ErrorIs(t, err, ErrConfiguration)
}
