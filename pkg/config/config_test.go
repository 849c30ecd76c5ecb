package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-ingest/pkg/ingest"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cluso.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Server.Addr())
	assert.Equal(t, ingest.ModeAtomic, cfg.Mode())
}

func TestParse_Layering(t *testing.T) {
	path := writeFile(t, `
server:
  port: 9000
  read_timeout: 10s
storage:
  data_dir: /from/file
ingest:
  commit_mode: batched
  batch_size: 500
logging:
  level: debug
`)

	// File only
	cfg, _, err := Parse("test", []string{"-config", path}, env(nil))
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Server.WriteTimeout, "keys absent from the file keep defaults")
	assert.Equal(t, "/from/file", cfg.Storage.DataDir)
	assert.Equal(t, ingest.ModeBatched, cfg.Mode())
	assert.Equal(t, 500, cfg.Ingest.BatchSize)

	// Environment beats the file
	cfg, _, err = Parse("test", []string{"-config", path}, env(map[string]string{
		EnvDataDir:   "/from/env",
		EnvPort:      "9100",
		EnvBatchSize: "50",
		EnvLogLevel:  "WARN",
	}))
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.Storage.DataDir)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Ingest.BatchSize)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// Flags beat the environment
	cfg, _, err = Parse("test", []string{"-config", path, "-data", "/from/flag", "-commit-mode", "atomic", "-compress-wal"},
		env(map[string]string{EnvDataDir: "/from/env", EnvCompressWAL: "false"}))
	require.NoError(t, err)
	assert.Equal(t, "/from/flag", cfg.Storage.DataDir)
	assert.Equal(t, ingest.ModeAtomic, cfg.Mode())
	assert.True(t, cfg.Storage.CompressWAL)
}

func TestParse_Events(t *testing.T) {
	cfg, _, err := Parse("test", nil, env(map[string]string{EnvEventsAddr: "tcp://127.0.0.1:40899"}))
	require.NoError(t, err)
	assert.Equal(t, "tcp://127.0.0.1:40899", cfg.Events.Address)

	_, _, err = Parse("test", []string{"-events", "http://example.com"}, env(nil))
	assert.Error(t, err)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{"unknown flag", []string{"-nope"}, nil},
		{"missing file", []string{"-config", "/does/not/exist.yaml"}, nil},
		{"bad port env", nil, map[string]string{EnvPort: "eighty"}},
		{"bad bool env", nil, map[string]string{EnvCompressWAL: "sometimes"}},
		{"bad mode", []string{"-commit-mode", "eventual"}, nil},
		{"batch too large", []string{"-commit-mode", "batched", "-batch-size", "1000001"}, nil},
		{"bad level", []string{"-log-level", "loud"}, nil},
		{"port out of range", []string{"-port", "70000"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse("test", tt.args, env(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile_UnknownKey(t *testing.T) {
	path := writeFile(t, "server:\n  prot: 80\n")
	err := Default().LoadFile(path)
	assert.Error(t, err)
}

func TestLoadFile_Empty(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.LoadFile(writeFile(t, "")))
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Storage.DataDir = ""
	cfg.Server.MaxUploadBytes = 0
	cfg.Logging.Output = ""

	err := cfg.Validate()
	require.Error(t, err)
	for _, field := range []string{"storage.data_dir", "server.max_upload_bytes", "logging.output"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.Logging.Output = filepath.Join(t.TempDir(), "cluso.log")

	logger, closeFn, err := cfg.NewLogger()
	require.NoError(t, err)
	logger.Info("hello")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(cfg.Logging.Output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestParse_ExtraFlags(t *testing.T) {
	path := writeFile(t, `
server:
  cors_origins: ["https://ui.example.com"]
`)
	var graph string
	cfg, fs, err := Parse("test", []string{"-config", path, "-graph", "social"}, env(nil),
		func(fs *flag.FlagSet) { fs.StringVar(&graph, "graph", "", "target graph") })
	require.NoError(t, err)
	assert.Equal(t, "social", graph)
	assert.NotNil(t, fs.Lookup("graph"))
	assert.Equal(t, []string{"https://ui.example.com"}, cfg.Server.CORSOrigins)
}
