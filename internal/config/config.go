package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tapis-project/tapis-go/internal/loader"
	"github.com/tapis-project/tapis-go/internal/logging"
	"github.com/tapis-project/tapis-go/tapis"
)

// DefaultFile is read from the working directory when --config is not set.
const DefaultFile = "tapis.yaml"

type Config struct {
	BaseURL         string `koanf:"base-url"`
	TenantID        string `koanf:"tenant"`
	Username        string `koanf:"username"`
	AccountType     string `koanf:"account-type"`
	Password        string `koanf:"password"`
	ServicePassword string `koanf:"service-password"`
	ClientID        string `koanf:"client-id"`
	ClientKey       string `koanf:"client-key"`
	AccessToken     string `koanf:"access-token"`
	RefreshToken    string `koanf:"refresh-token"`
	JWT             string `koanf:"jwt"`
	XTenantID       string `koanf:"x-tenant"`
	XUsername       string `koanf:"x-user"`
	Insecure        bool   `koanf:"insecure"`

	// PathPrefix is the default path rule; "none" disables injection.
	PathPrefix     string `koanf:"path-prefix"`
	ValidateBodies bool   `koanf:"validate-bodies"`

	Specs     SpecsConfig               `koanf:"specs"`
	Resources map[string]ResourceConfig `koanf:"resources"`
	Log       LogConfig                 `koanf:"log"`
}

type SpecsConfig struct {
	Download bool          `koanf:"download"`
	Timeout  time.Duration `koanf:"timeout"`
}

// ResourceConfig overrides where one resource's spec comes from and how its
// paths are normalized.
type ResourceConfig struct {
	URL        string `koanf:"url"`
	LocalPath  string `koanf:"local-path"`
	PathPrefix string `koanf:"path-prefix"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// BindFlags binds the connection and logging flags shared by all commands.
func BindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringP("config", "c", "", "Config file path (default: tapis.yaml)")
	flags.String("base-url", "", "Tapis base URL, e.g. https://dev.develop.tapis.io")
	flags.StringP("tenant", "t", "", "Tenant id")
	flags.StringP("username", "u", "", "Username")
	flags.String("account-type", "", "Account type: user, service")
	flags.String("password", "", "User password")
	flags.String("service-password", "", "Service account password")
	flags.String("client-id", "", "OAuth2 client id")
	flags.String("client-key", "", "OAuth2 client key")
	flags.String("access-token", "", "Existing access token")
	flags.String("refresh-token", "", "Existing refresh token")
	flags.String("jwt", "", "Raw JWT sent as X-Tapis-Token")
	flags.String("x-tenant", "", "X-Tapis-Tenant header value")
	flags.String("x-user", "", "X-Tapis-User header value")
	flags.Bool("insecure", false, "Skip TLS certificate verification")
	flags.String("path-prefix", "", "Version prefix injected into paths (\"none\" to disable)")
	flags.Bool("validate-bodies", false, "Validate request bodies against their OpenAPI schemas before sending")
	flags.Bool("download-specs", false, "Fetch specs from their upstream URLs before using bundled copies")
	flags.Duration("spec-timeout", 0, "Timeout for each spec download")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: console, json")
}

// Load reads the config file, then applies flags over it.
func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		configFile, _ = cmd.PersistentFlags().GetString("config")
	}
	if configFile == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			configFile = DefaultFile
		}
	}

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	flagsMap := buildFlagsMap(cmd)
	if len(flagsMap) > 0 {
		if err := k.Load(confmap.Provider(flagsMap, "."), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var stringFlags = map[string]string{
	"base-url":         "base-url",
	"tenant":           "tenant",
	"username":         "username",
	"account-type":     "account-type",
	"password":         "password",
	"service-password": "service-password",
	"client-id":        "client-id",
	"client-key":       "client-key",
	"access-token":     "access-token",
	"refresh-token":    "refresh-token",
	"jwt":              "jwt",
	"x-tenant":         "x-tenant",
	"x-user":           "x-user",
	"path-prefix":      "path-prefix",
	"log-level":        "log.level",
	"log-format":       "log.format",
}

var boolFlags = map[string]string{
	"insecure":        "insecure",
	"validate-bodies": "validate-bodies",
	"download-specs":  "specs.download",
}

func buildFlagsMap(cmd *cobra.Command) map[string]any {
	m := make(map[string]any)

	getString := func(name string) string {
		if v, err := cmd.Flags().GetString(name); err == nil && v != "" {
			return v
		}
		if v, err := cmd.PersistentFlags().GetString(name); err == nil && v != "" {
			return v
		}
		return ""
	}

	flagChanged := func(name string) bool {
		return cmd.Flags().Changed(name) || cmd.PersistentFlags().Changed(name)
	}

	getBool := func(name string) bool {
		if v, err := cmd.Flags().GetBool(name); err == nil {
			return v
		}
		if v, err := cmd.PersistentFlags().GetBool(name); err == nil {
			return v
		}
		return false
	}

	for name, key := range stringFlags {
		if v := getString(name); v != "" {
			m[key] = v
		}
	}
	for name, key := range boolFlags {
		if flagChanged(name) {
			m[key] = getBool(name)
		}
	}
	if flagChanged("spec-timeout") {
		if v, err := cmd.Flags().GetDuration("spec-timeout"); err == nil {
			m["specs.timeout"] = v
		} else if v, err := cmd.PersistentFlags().GetDuration("spec-timeout"); err == nil {
			m["specs.timeout"] = v
		}
	}

	return m
}

func (c *Config) Validate() error {
	validAccountTypes := map[string]bool{"": true, "user": true, "service": true}
	if !validAccountTypes[c.AccountType] {
		return fmt.Errorf("invalid account type: %s (valid: user, service)", c.AccountType)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	validFormats := map[string]bool{"": true, logging.FormatConsole: true, logging.FormatJSON: true}
	if !validFormats[strings.ToLower(c.Log.Format)] {
		return fmt.Errorf("invalid log format: %s (valid: console, json)", c.Log.Format)
	}

	if c.Specs.Timeout < 0 {
		return fmt.Errorf("spec timeout must not be negative")
	}

	for name, r := range c.Resources {
		if name == "" {
			return fmt.Errorf("resource name must not be empty")
		}
		if r.PathPrefix != "" && r.PathPrefix != tapis.NoPrefixValue && !strings.HasPrefix(r.PathPrefix, "/") {
			return fmt.Errorf("resource %s: path prefix must start with / or be %q", name, tapis.NoPrefixValue)
		}
	}

	return nil
}

// RequireBaseURL is checked by commands that talk to a server.
func (c *Config) RequireBaseURL() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required (--base-url or base-url in %s)", DefaultFile)
	}
	return nil
}

// Sources returns the bundled resources overlaid with configured ones.
func (c *Config) Sources() []loader.Source {
	names := make([]string, 0, len(c.Resources))
	for name := range c.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	overrides := make([]loader.Source, 0, len(names))
	for _, name := range names {
		r := c.Resources[name]
		overrides = append(overrides, loader.Source{Name: name, URL: r.URL, LocalPath: r.LocalPath})
	}
	return loader.MergeSources(loader.DefaultSources(), overrides)
}

// Loader builds the spec loader described by the specs section.
func (c *Config) Loader(logger *zap.Logger) *loader.Loader {
	return &loader.Loader{
		Download: c.Specs.Download,
		Timeout:  c.Specs.Timeout,
		Logger:   logger,
	}
}

// ClientConfig maps the identity settings onto a tapis.Config.
func (c *Config) ClientConfig() tapis.Config {
	return tapis.Config{
		BaseURL:         c.BaseURL,
		TenantID:        c.TenantID,
		Username:        c.Username,
		AccountType:     tapis.AccountType(c.AccountType),
		Password:        c.Password,
		ServicePassword: c.ServicePassword,
		ClientID:        c.ClientID,
		ClientKey:       c.ClientKey,
		AccessToken:     c.AccessToken,
		RefreshToken:    c.RefreshToken,
		JWT:             c.JWT,
		XTenantID:       c.XTenantID,
		XUsername:       c.XUsername,
		Insecure:        c.Insecure,
	}
}

// ClientOptions returns the path rules and validation settings as options.
func (c *Config) ClientOptions(logger *zap.Logger) []tapis.Option {
	opts := []tapis.Option{
		tapis.WithLogger(logger),
		tapis.WithBodyValidation(c.ValidateBodies),
	}
	if c.PathPrefix != "" {
		opts = append(opts, tapis.WithDefaultPathRule(tapis.ParsePathRule(c.PathPrefix)))
	}
	for name, r := range c.Resources {
		if r.PathPrefix != "" {
			opts = append(opts, tapis.WithPathRule(name, tapis.ParsePathRule(r.PathPrefix)))
		}
	}
	return opts
}
