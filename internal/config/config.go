// Package config defines all configuration for the stream client. Config is
// loaded from a YAML file (default: configs/config.yaml) with sensitive
// fields overridable via BFSTREAM_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Account   AccountConfig   `mapstructure:"account"`
	Stream    StreamConfig    `mapstructure:"stream"`
	RPC       RPCConfig       `mapstructure:"rpc"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// AccountConfig holds the credentials used for non-interactive login.
// CertFile/KeyFile point at the PEM-encoded client certificate Betfair's
// certificate-login endpoint requires; Username/Password authenticate the
// account behind it.
type AccountConfig struct {
	AppKey   string `mapstructure:"app_key"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// StreamConfig addresses the Exchange Stream TLS endpoint and tunes the
// supervisor's heartbeat and reconnect behavior.
type StreamConfig struct {
	Addr              string        `mapstructure:"addr"`
	ServerName        string        `mapstructure:"server_name"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	MaxLatencyMs      int64         `mapstructure:"max_latency_ms"`
}

// RPCConfig addresses the certificate-login endpoint used to obtain and
// refresh the session token the stream connection authenticates with.
type RPCConfig struct {
	LoginEndpoint  string        `mapstructure:"login_endpoint"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// CacheConfig holds the cache section of the configuration. StaleLookback
// is loaded but not passed to the cache tracker, which prunes closed
// markets after its own fixed staleCacheLookback.
type CacheConfig struct {
	StaleLookback time.Duration `mapstructure:"stale_lookback"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the observability WebSocket broadcast server.
type DashboardConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: BFSTREAM_USERNAME, BFSTREAM_PASSWORD,
// BFSTREAM_APP_KEY.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("BFSTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("BFSTREAM_APP_KEY"); key != "" {
		cfg.Account.AppKey = key
	}
	if user := os.Getenv("BFSTREAM_USERNAME"); user != "" {
		cfg.Account.Username = user
	}
	if pass := os.Getenv("BFSTREAM_PASSWORD"); pass != "" {
		cfg.Account.Password = pass
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Account.AppKey == "" {
		return fmt.Errorf("account.app_key is required (set BFSTREAM_APP_KEY)")
	}
	if c.Account.Username == "" || c.Account.Password == "" {
		return fmt.Errorf("account.username and account.password are required")
	}
	if c.Account.CertFile == "" || c.Account.KeyFile == "" {
		return fmt.Errorf("account.cert_file and account.key_file are required for certificate login")
	}
	if c.Stream.Addr == "" {
		return fmt.Errorf("stream.addr is required")
	}
	if c.RPC.LoginEndpoint == "" {
		return fmt.Errorf("rpc.login_endpoint is required")
	}
	return nil
}
