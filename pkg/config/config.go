// Package config loads server and CLI settings. Values are layered:
// built-in defaults, then a YAML file, then CLUSO_* environment
// variables, then command-line flags.
package config

import (
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/dd0wney/cluso-ingest/pkg/ingest"
	"github.com/dd0wney/cluso-ingest/pkg/logging"
	"github.com/dd0wney/cluso-ingest/pkg/validation"
)

var errPositive = errors.New("must be positive")

// Config is the full configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Events  EventsConfig  `yaml:"events"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// MaxUploadBytes bounds the multipart body of a file import.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `yaml:"cors_origins"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// StorageConfig configures where graphs live.
type StorageConfig struct {
	DataDir     string `yaml:"data_dir"`
	CompressWAL bool   `yaml:"compress_wal"`
}

// IngestConfig configures the import pipeline.
type IngestConfig struct {
	CommitMode string `yaml:"commit_mode"`
	BatchSize  int    `yaml:"batch_size"`
	// SpoolDir holds temporary files such as spooled FaunusGraphSON edges.
	SpoolDir string `yaml:"spool_dir"`
}

// EventsConfig configures import event publishing. An empty Address
// disables the PUB socket.
type EventsConfig struct {
	Address string `yaml:"address"`
	Buffer  int    `yaml:"buffer"`
}

// LoggingConfig configures the JSON logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Output string `yaml:"output"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			MaxUploadBytes:  1 << 30,
		},
		Storage: StorageConfig{
			DataDir: "./data",
		},
		Ingest: IngestConfig{
			CommitMode: string(ingest.ModeAtomic),
			BatchSize:  ingest.DefaultBatchSize,
		},
		Events: EventsConfig{
			Buffer: 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stdout",
		},
	}
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	v := validation.NewConfigValidator("config")

	v.RangeInt("server.port", c.Server.Port, 0, 65535).
		ListenAddr("server.addr", c.Server.Addr()).
		MinDuration("server.read_timeout", c.Server.ReadTimeout, time.Second).
		MinDuration("server.write_timeout", c.Server.WriteTimeout, time.Second).
		MinDuration("server.shutdown_timeout", c.Server.ShutdownTimeout, 0).
		Custom("server.max_upload_bytes", func() error {
			if c.Server.MaxUploadBytes <= 0 {
				return errPositive
			}
			return nil
		})

	v.Required("storage.data_dir", c.Storage.DataDir)

	v.Custom("ingest.commit_mode", func() error {
		_, err := ingest.ParseMode(c.Ingest.CommitMode)
		return err
	})
	v.When(c.Ingest.CommitMode == string(ingest.ModeBatched), func(v *validation.ConfigValidator) {
		v.RangeInt("ingest.batch_size", c.Ingest.BatchSize, validation.MinBatchSize, validation.MaxBatchSize)
	})

	v.When(c.Events.Address != "", func(v *validation.ConfigValidator) {
		v.SocketURL("events.address", c.Events.Address).
			Positive("events.buffer", c.Events.Buffer)
	})

	v.OneOf("logging.level", c.Logging.Level, []string{"debug", "info", "warn", "warning", "error"})
	v.Required("logging.output", c.Logging.Output)

	return v.Validate()
}

// Mode returns the parsed commit mode. Call after Validate.
func (c *Config) Mode() ingest.Mode {
	m, _ := ingest.ParseMode(c.Ingest.CommitMode)
	return m
}

// NewLogger builds the configured logger.
func (c *Config) NewLogger() (*logging.JSONLogger, func() error, error) {
	logger, closer, err := logging.NewLogger(c.Logging.Level, c.Logging.Output)
	if err != nil {
		return nil, nil, err
	}
	return logger, closer.Close, nil
}
