// Package appconfig loads tellevo-admin settings. Sources are layered, each
// overriding the previous one: built-in defaults, a YAML file, a .env file,
// and finally the process environment.
package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tellevo/tellevo-sdk-go/tellevo"
	"github.com/tellevo/tellevo-sdk-go/tellevo/endpoint"
)

// Environment variable names.
const (
	EnvBackendHost     = "TELLEVO_BACKEND_HOST"
	EnvBackendPort     = "TELLEVO_BACKEND_PORT"
	EnvWebsocketSecure = "TELLEVO_WEBSOCKET_SECURE"
	EnvPageOrigin      = "TELLEVO_PAGE_ORIGIN"
	EnvMode            = "TELLEVO_ENV"
	EnvAPIURL          = "TELLEVO_API_URL"
	EnvToken           = "TELLEVO_TOKEN"
	EnvPort            = "PORT"
)

// DefaultEnvFile is read when no .env path is given; its absence is not an
// error.
const DefaultEnvFile = ".env"

// Config is the resolved application configuration.
type Config struct {
	BackendHost string `yaml:"backend_host"`
	BackendPort string `yaml:"backend_port"`
	// WebsocketSecure=false forces ws:// even on https pages.
	WebsocketSecure bool   `yaml:"websocket_secure"`
	PageOrigin      string `yaml:"page_origin"`
	// Mode is "production" or "development".
	Mode   string `yaml:"env"`
	APIURL string `yaml:"api_url"`
	Token  string `yaml:"token"`
	// Port is the listen port of the SPA server.
	Port   string       `yaml:"port"`
	Stream StreamConfig `yaml:"stream"`
}

// StreamConfig overrides the stream client timing. Zero values keep the
// client defaults.
type StreamConfig struct {
	ConnectTimeout       time.Duration `yaml:"connect_timeout"`
	HeartbeatInterval    time.Duration `yaml:"heartbeat_interval"`
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		WebsocketSecure: true,
		Mode:            "production",
		APIURL:          "/api",
		Port:            "3000",
	}
}

// Options selects the sources Load reads.
type Options struct {
	// File is an optional YAML file; when set it must exist.
	File string
	// EnvFile defaults to DefaultEnvFile.
	EnvFile string
	// Lookup defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
}

// Load builds a Config from opts.
func Load(opts Options) (Config, error) {
	cfg := Default()

	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", opts.File, err)
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) || opts.EnvFile != "" {
			return Config{}, fmt.Errorf("read env file: %w", err)
		}
		dotenv = map[string]string{}
	}

	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	if err := cfg.apply(get); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) apply(get func(string) (string, bool)) error {
	strs := map[string]*string{
		EnvBackendHost: &c.BackendHost,
		EnvBackendPort: &c.BackendPort,
		EnvPageOrigin:  &c.PageOrigin,
		EnvMode:        &c.Mode,
		EnvAPIURL:      &c.APIURL,
		EnvToken:       &c.Token,
		EnvPort:        &c.Port,
	}
	for key, dst := range strs {
		if v, ok := get(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	if v, ok := get(EnvWebsocketSecure); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWebsocketSecure, err)
		}
		c.WebsocketSecure = b
	}
	return nil
}

// Dev reports whether the configuration targets a development backend.
func (c Config) Dev() bool {
	return strings.EqualFold(c.Mode, "development") || strings.EqualFold(c.Mode, "dev")
}

// Environment converts c into the input of the endpoint resolver.
func (c Config) Environment() (endpoint.Environment, error) {
	host, proto, err := endpoint.ParseOrigin(c.PageOrigin)
	if err != nil {
		return endpoint.Environment{}, err
	}
	return endpoint.Environment{
		BackendHost:   c.BackendHost,
		BackendPort:   c.BackendPort,
		ForceInsecure: !c.WebsocketSecure,
		Dev:           c.Dev(),
		PageHost:      host,
		PageProtocol:  proto,
	}, nil
}

// StreamURL resolves the websocket URL with the default policy.
func (c Config) StreamURL() (string, error) {
	env, err := c.Environment()
	if err != nil {
		return "", err
	}
	return endpoint.DefaultPolicy().Resolve(env)
}

// ClientConfig returns a stream client configuration for url with the
// overrides from c.Stream applied.
func (c Config) ClientConfig(url string) tellevo.Config {
	cfg := tellevo.DefaultConfig()
	cfg.URL = url
	if c.Stream.ConnectTimeout > 0 {
		cfg.ConnectTimeout = c.Stream.ConnectTimeout
	}
	if c.Stream.HeartbeatInterval > 0 {
		cfg.HeartbeatInterval = c.Stream.HeartbeatInterval
	}
	if c.Stream.ReconnectBaseDelay > 0 {
		cfg.ReconnectBaseDelay = c.Stream.ReconnectBaseDelay
	}
	if c.Stream.MaxReconnectAttempts > 0 {
		cfg.MaxReconnectAttempts = c.Stream.MaxReconnectAttempts
	}
	return cfg
}
