package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tapis-project/tapis-go/internal/config"
	"github.com/tapis-project/tapis-go/internal/logging"
	"github.com/tapis-project/tapis-go/tapis"
)

// env is what every command works with once flags and files are resolved.
type env struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *tapis.Registry
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	reg, err := tapis.LoadRegistry(cmd.Context(), cfg.Loader(logger), cfg.Sources())
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, registry: reg}, nil
}

// client builds a session; when credentials allow it and no token was
// given, it logs in first.
func (e *env) client(ctx context.Context, login bool) (*tapis.Client, error) {
	if err := e.cfg.RequireBaseURL(); err != nil {
		return nil, err
	}
	c, err := tapis.New(e.registry, e.cfg.ClientConfig(), e.cfg.ClientOptions(e.logger)...)
	if err != nil {
		return nil, err
	}
	if c.TenantID() == "" {
		if _, err := c.ResolveTenant(ctx); err != nil {
			return nil, fmt.Errorf("resolving tenant: %w", err)
		}
	}
	if login && e.canLogin() {
		if err := c.GetTokens(ctx); err != nil {
			return nil, fmt.Errorf("getting tokens: %w", err)
		}
	}
	return c, nil
}

func (e *env) canLogin() bool {
	cfg := e.cfg
	if cfg.AccessToken != "" || cfg.JWT != "" || cfg.Username == "" {
		return false
	}
	if cfg.AccountType == string(tapis.AccountService) {
		return cfg.ServicePassword != ""
	}
	return cfg.Password != ""
}
