// Package config loads server settings from defaults, an optional TOML or
// YAML file and the environment. Command-line flags are applied on top by
// the caller.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/nczempin/httpd-go-uring/errors"
	"github.com/nczempin/httpd-go-uring/protocol"
	"github.com/nczempin/httpd-go-uring/resolver"
	"github.com/nczempin/httpd-go-uring/server"
	"github.com/nczempin/httpd-go-uring/supervisor"
	"github.com/nczempin/httpd-go-uring/transport"
)

// Config holds every tunable of the server
type Config struct {
	Host           string            `toml:"host" yaml:"host"`
	Port           int               `toml:"port" yaml:"port"`
	Backlog        int               `toml:"backlog" yaml:"backlog"`
	ReadBufferSize int               `toml:"read_buffer_size" yaml:"read_buffer_size"`
	Workers        int               `toml:"workers" yaml:"workers"`
	Mode           string            `toml:"mode" yaml:"mode"`
	Engine         string            `toml:"engine" yaml:"engine"`
	Root           string            `toml:"root" yaml:"root"`
	SortListing    bool              `toml:"sort_listing" yaml:"sort_listing"`
	LogLevel       string            `toml:"log_level" yaml:"log_level"`
	LogFormat      string            `toml:"log_format" yaml:"log_format"`
	MimeTypes      map[string]string `toml:"mime_types" yaml:"mime_types"`
}

// Environment variables read by ApplyEnv
const (
	EnvHost     = "HTTPD_HOST"
	EnvPort     = "HTTPD_PORT"
	EnvWorkers  = "HTTPD_WORKERS"
	EnvMode     = "HTTPD_MODE"
	EnvEngine   = "HTTPD_ENGINE"
	EnvRoot     = "HTTPD_ROOT"
	EnvLogLevel = "HTTPD_LOG_LEVEL"
)

// Default returns the built-in settings: loopback port 42069, backlog 128,
// a 1024 byte request buffer and one process per CPU
func Default() *Config {
	return &Config{
		Host:           transport.DefaultEndpoint.Host,
		Port:           transport.DefaultEndpoint.Port,
		Backlog:        transport.DefaultBacklog,
		ReadBufferSize: protocol.MaxRequestSize,
		Workers:        0,
		Mode:           string(supervisor.ModeProcess),
		Engine:         string(transport.EngineNet),
		Root:           ".",
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load returns the defaults overlaid with the file at path, if any.
// The format follows the extension: .toml, .yaml or .yml.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err = toml.DecodeFile(path, cfg)
	case ".yaml", ".yml":
		var data []byte
		data, err = os.ReadFile(path)
		if err == nil {
			err = yaml.Unmarshal(data, cfg)
		}
	default:
		return nil, errors.NewSetupError(
			errors.SetupErrorInvalidConfig,
			fmt.Sprintf("unsupported config format %q", filepath.Ext(path)),
			nil,
		)
	}
	if err != nil {
		return nil, errors.NewSetupError(
			errors.SetupErrorInvalidConfig,
			fmt.Sprintf("Unable to load config %s", path),
			err,
		)
	}

	return cfg, nil
}

// ApplyEnv overrides fields from the environment through lookup,
// normally os.LookupEnv
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvHost); ok {
		c.Host = v
	}
	if v, ok := lookup(EnvMode); ok {
		c.Mode = v
	}
	if v, ok := lookup(EnvEngine); ok {
		c.Engine = v
	}
	if v, ok := lookup(EnvRoot); ok {
		c.Root = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.LogLevel = v
	}

	for _, e := range []struct {
		name string
		dst  *int
	}{
		{EnvPort, &c.Port},
		{EnvWorkers, &c.Workers},
	} {
		v, ok := lookup(e.name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.NewSetupError(
				errors.SetupErrorInvalidConfig,
				fmt.Sprintf("invalid %s %q", e.name, v),
				err,
			)
		}
		*e.dst = n
	}

	return nil
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	var problems []string

	if c.Port < 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range", c.Port))
	}
	if c.Backlog <= 0 {
		problems = append(problems, fmt.Sprintf("backlog must be positive, got %d", c.Backlog))
	}
	if c.ReadBufferSize <= 0 {
		problems = append(problems, fmt.Sprintf("read_buffer_size must be positive, got %d", c.ReadBufferSize))
	}
	if c.Workers < 0 {
		problems = append(problems, fmt.Sprintf("workers must not be negative, got %d", c.Workers))
	}
	if !slices.Contains(supervisor.Modes, supervisor.Mode(c.Mode)) {
		problems = append(problems, fmt.Sprintf("unknown mode %q", c.Mode))
	}
	if !slices.Contains(transport.Engines, transport.Engine(c.Engine)) {
		problems = append(problems, fmt.Sprintf("unknown engine %q", c.Engine))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("unknown log level %q", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		problems = append(problems, fmt.Sprintf("unknown log format %q", c.LogFormat))
	}

	if len(problems) > 0 {
		return errors.NewSetupError(
			errors.SetupErrorInvalidConfig,
			strings.Join(problems, "; "),
			nil,
		)
	}
	return nil
}

// Endpoint returns the address every worker binds
func (c *Config) Endpoint() transport.Endpoint {
	return transport.Endpoint{Host: c.Host, Port: c.Port}
}

// ServerOptions returns the listener settings for one worker
func (c *Config) ServerOptions() server.Options {
	return server.Options{
		Engine:         transport.Engine(c.Engine),
		Endpoint:       c.Endpoint(),
		Backlog:        c.Backlog,
		ReadBufferSize: c.ReadBufferSize,
	}
}

// Resolver returns a resolver for the configured root
func (c *Config) Resolver() *resolver.Resolver {
	return resolver.New(c.Root, c.SortListing)
}

// Logger builds the process logger from the level and format settings
func (c *Config) Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
