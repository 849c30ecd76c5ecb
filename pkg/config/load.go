package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv
const (
	EnvDataDir     = "CLUSO_DATA_DIR"
	EnvPort        = "CLUSO_PORT"
	EnvCommitMode  = "CLUSO_COMMIT_MODE"
	EnvBatchSize   = "CLUSO_BATCH_SIZE"
	EnvEventsAddr  = "CLUSO_EVENTS_ADDR"
	EnvCompressWAL = "CLUSO_COMPRESS_WAL"
	EnvLogLevel    = "LOG_LEVEL"
)

// LoadFile overlays the YAML file at path onto c. Keys absent from the
// file keep their current values; unknown keys are an error.
func (c *Config) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables using lookup (os.LookupEnv in
// production).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a number", name, v))
				return
			}
			*dst = n
		}
	}

	str(EnvDataDir, &c.Storage.DataDir)
	num(EnvPort, &c.Server.Port)
	str(EnvCommitMode, &c.Ingest.CommitMode)
	num(EnvBatchSize, &c.Ingest.BatchSize)
	str(EnvEventsAddr, &c.Events.Address)
	str(EnvLogLevel, &c.Logging.Level)
	if v, ok := lookup(EnvCompressWAL); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a boolean", EnvCompressWAL, v))
		} else {
			c.Storage.CompressWAL = b
		}
	}
	return errors.Join(errs...)
}

// Parse builds a Config from command-line args: defaults, then the file
// named by -config, then the environment, then flags that were set
// explicitly. The result is validated. extra registers additional flags
// on the same set before parsing.
func Parse(name string, args []string, lookup func(string) (string, bool), extra ...func(*flag.FlagSet)) (*Config, *flag.FlagSet, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	var (
		path       = fs.String("config", "", "YAML configuration file")
		dataDir    = fs.String("data", "", "Data directory (env "+EnvDataDir+")")
		port       = fs.Int("port", 0, "HTTP port (env "+EnvPort+")")
		mode       = fs.String("commit-mode", "", "Commit mode: atomic or batched (env "+EnvCommitMode+")")
		batchSize  = fs.Int("batch-size", 0, "Elements per commit in batched mode (env "+EnvBatchSize+")")
		eventsAddr = fs.String("events", "", "PUB socket address for import events (env "+EnvEventsAddr+")")
		compress   = fs.Bool("compress-wal", false, "Snappy-compress WAL records (env "+EnvCompressWAL+")")
		logLevel   = fs.String("log-level", "", "Log level (env "+EnvLogLevel+")")
	)
	for _, register := range extra {
		register(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}

	cfg := Default()
	if *path != "" {
		if err := cfg.LoadFile(*path); err != nil {
			return nil, fs, err
		}
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, fs, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data":
			cfg.Storage.DataDir = *dataDir
		case "port":
			cfg.Server.Port = *port
		case "commit-mode":
			cfg.Ingest.CommitMode = *mode
		case "batch-size":
			cfg.Ingest.BatchSize = *batchSize
		case "events":
			cfg.Events.Address = *eventsAddr
		case "compress-wal":
			cfg.Storage.CompressWAL = *compress
		case "log-level":
			cfg.Logging.Level = *logLevel
		}
	})
	cfg.Ingest.CommitMode = strings.ToLower(strings.TrimSpace(cfg.Ingest.CommitMode))
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)

	if err := cfg.Validate(); err != nil {
		return nil, fs, err
	}
	return cfg, fs, nil
}
