package tapis

import (
	"crypto/tls"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type AccountType string

const (
	AccountUser    AccountType = "user"
	AccountService AccountType = "service"
)

// Config holds the identity a Client acts with.
type Config struct {
	BaseURL     string
	TenantID    string
	Username    string
	AccountType AccountType

	// Password authenticates user accounts; ServicePassword authenticates
	// service accounts against the Tokens API.
	Password        string
	ServicePassword string

	// ClientID and ClientKey are OAuth2 client credentials for user token
	// flows.
	ClientID  string
	ClientKey string

	// AccessToken and RefreshToken seed the session with existing JWTs.
	AccessToken  string
	RefreshToken string
	// JWT is sent as-is when no access token is set.
	JWT string

	// XTenantID and XUsername make requests on behalf of another tenant/user.
	XTenantID string
	XUsername string

	// Insecure disables TLS certificate verification.
	Insecure bool
}

// Client invokes operations from a Registry on behalf of one session.
type Client struct {
	registry *Registry
	cfg      Config
	opts     *options
	http     *http.Client
	logger   *zap.Logger

	mu      sync.RWMutex
	session session

	refreshGroup singleflight.Group
}

// session is the mutable part of a Client; guarded by Client.mu.
type session struct {
	baseURL        string
	tenantID       string
	access         *Token
	refresh        *Token
	jwt            string
	xTenantID      string
	xUsername      string
	lastRefreshErr error
}

// New builds a Client over reg. It performs no network I/O; see
// ResolveTenant and GetTokens.
func New(reg *Registry, cfg Config, opts ...Option) (*Client, error) {
	if reg == nil {
		return nil, configurationError("registry is required")
	}
	switch cfg.AccountType {
	case "":
		cfg.AccountType = AccountUser
	case AccountUser, AccountService:
	default:
		return nil, configurationError("invalid account type %q (valid: user, service)", cfg.AccountType)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.Insecure {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		httpClient = &http.Client{Transport: transport}
	}

	c := &Client{
		registry: reg,
		cfg:      cfg,
		opts:     o,
		http:     httpClient,
		logger:   o.logger,
		session: session{
			baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
			tenantID:  cfg.TenantID,
			jwt:       cfg.JWT,
			xTenantID: cfg.XTenantID,
			xUsername: cfg.XUsername,
		},
	}
	if cfg.AccessToken != "" {
		c.session.access = ParseToken(cfg.AccessToken, "", 0, o.now)
	}
	if cfg.RefreshToken != "" {
		c.session.refresh = ParseToken(cfg.RefreshToken, "", 0, o.now)
	}
	c.defaultImpersonation()
	return c, nil
}

// defaultImpersonation points the X-Tapis headers of a service account at its
// own tenant and username unless the caller chose otherwise.
func (c *Client) defaultImpersonation() {
	if c.cfg.AccountType != AccountService {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.xTenantID == "" {
		c.session.xTenantID = c.session.tenantID
	}
	if c.session.xUsername == "" {
		c.session.xUsername = c.cfg.Username
	}
}

func (c *Client) Registry() *Registry {
	return c.registry
}

func (c *Client) AccountType() AccountType {
	return c.cfg.AccountType
}

func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.baseURL
}

func (c *Client) TenantID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.tenantID
}

// SetTenant points the client at another tenant. Service accounts also move
// their X-Tapis-Tenant header.
func (c *Client) SetTenant(tenantID, baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.tenantID = tenantID
	if c.cfg.AccountType == AccountService {
		c.session.xTenantID = tenantID
	}
	c.session.baseURL = strings.TrimRight(baseURL, "/")
}

// SetImpersonation sets the X-Tapis-Tenant and X-Tapis-User headers; empty
// values drop the header.
func (c *Client) SetImpersonation(tenantID, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.xTenantID = tenantID
	c.session.xUsername = username
}

// SetJWT sets a raw JWT used when no access token is held.
func (c *Client) SetJWT(jwt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.jwt = jwt
}

// AccessToken returns the current access token, or nil.
func (c *Client) AccessToken() *Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.access
}

// RefreshToken returns the current refresh token, or nil.
func (c *Client) RefreshToken() *Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.refresh
}

// LastRefreshError returns the error of the most recent pre-emptive refresh,
// or nil if it succeeded or none happened.
func (c *Client) LastRefreshError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.lastRefreshErr
}

// accessJWT is the token sent as X-Tapis-Token.
func (c *Client) accessJWT() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session.access != nil && c.session.access.JWT != "" {
		return c.session.access.JWT
	}
	return c.session.jwt
}

// setTokens replaces both credentials at once.
func (c *Client) setTokens(access, refresh *Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.access = access
	c.session.refresh = refresh
}

func (c *Client) snapshot() session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}
