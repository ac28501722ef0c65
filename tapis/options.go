package tapis

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultRefreshThreshold is the remaining access-token lifetime below which
// a call first tries to refresh the token pair.
const DefaultRefreshThreshold = 5 * time.Second

// Option configures a Client.
type Option func(*options)

type options struct {
	httpClient       *http.Client
	logger           *zap.Logger
	now              func() time.Time
	defaultRule      PathRule
	resourceRules    map[string]PathRule
	validateBodies   bool
	refreshThreshold time.Duration
	tokenOperations  map[string]bool
}

func defaultOptions() *options {
	return &options{
		logger:           zap.NewNop(),
		now:              time.Now,
		defaultRule:      VersionPrefix(DefaultVersionPrefix),
		resourceRules:    make(map[string]PathRule),
		refreshThreshold: DefaultRefreshThreshold,
		tokenOperations: map[string]bool{
			opKey("tokens", "create_token"):        true,
			opKey("tokens", "refresh_token"):       true,
			opKey("authenticator", "create_token"): true,
		},
	}
}

// WithHTTPClient sets the client shared by all operations.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithPathRule sets the path normalization rule for one resource.
func WithPathRule(resource string, rule PathRule) Option {
	return func(o *options) {
		o.resourceRules[resource] = rule
	}
}

// WithDefaultPathRule sets the rule for resources without their own.
func WithDefaultPathRule(rule PathRule) Option {
	return func(o *options) {
		o.defaultRule = rule
	}
}

// WithBodyValidation validates JSON bodies against the declared schema
// before sending.
func WithBodyValidation(enabled bool) Option {
	return func(o *options) {
		o.validateBodies = enabled
	}
}

// WithRefreshThreshold overrides DefaultRefreshThreshold.
func WithRefreshThreshold(d time.Duration) Option {
	return func(o *options) {
		o.refreshThreshold = d
	}
}

// WithTokenOperation marks an operation as part of the token flow, so calling
// it never triggers a pre-emptive refresh.
func WithTokenOperation(resource, operationID string) Option {
	return func(o *options) {
		o.tokenOperations[opKey(resource, operationID)] = true
	}
}

func opKey(resource, operationID string) string {
	return resource + "." + operationID
}
