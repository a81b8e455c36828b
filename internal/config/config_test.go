package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"http://localhost:8080"}, cfg.Security.AllowedOrigins)
	assert.True(t, cfg.Security.RateLimit.Enabled)
	assert.Equal(t, "metadata.csv", cfg.Dataset.Path)
	assert.Equal(t, time.Hour, cfg.Dataset.CacheTTL)
	assert.Equal(t, 10, cfg.Dataset.SampleSize)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "console", cfg.Logging.Output)
	assert.Equal(t, ServiceName, cfg.Telemetry.ServiceName)
	assert.Equal(t, ":8080", cfg.Server.Addr())
}

func TestLoad_FileThenEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfig(t, `
server:
  port: 9090
  read_timeout: 5s
dataset:
  path: data/metadata.csv
  cache_ttl: 30m
logging:
  level: DEBUG
`)
	t.Setenv("CORD_SERVER_PORT", "7070")
	t.Setenv("CORD_DATASET_GCS_CREDENTIALS_FILE", "/etc/cord/sa.json")
	t.Setenv("CORD_SECURITY_ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("CORD_SECURITY_RATE_LIMIT_BURST", "5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port, "env wins over file")
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout, "file wins over default")
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "data/metadata.csv", cfg.Dataset.Path)
	assert.Equal(t, 30*time.Minute, cfg.Dataset.CacheTTL)
	assert.Equal(t, "/etc/cord/sa.json", cfg.Dataset.GCSCredentialsFile)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, 5, cfg.Security.RateLimit.Burst)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_DatasetPathIgnoresShellPath(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PATH", "/usr/bin:/bin")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultDatasetPath, cfg.Dataset.Path)
}

func TestLoad_Errors(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name    string
		file    string
		env     map[string]string
		wantMsg string
	}{
		{
			name:    "cache ttl above one hour",
			file:    "dataset:\n  cache_ttl: 2h\n",
			wantMsg: "CacheTTL",
		},
		{
			name:    "port out of range",
			env:     map[string]string{"CORD_SERVER_PORT": "70000"},
			wantMsg: "Port",
		},
		{
			name:    "unknown log output",
			file:    "logging:\n  output: syslog\n",
			wantMsg: "Output",
		},
		{
			name:    "malformed env duration",
			env:     map[string]string{"CORD_SERVER_READ_TIMEOUT": "soon"},
			wantMsg: "env",
		},
		{
			name:    "malformed yaml",
			file:    "server: [",
			wantMsg: "file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefault_Validates(t *testing.T) {
	assert.NoError(t, Default().Validate())

	cfg := Default()
	cfg.Dataset.Path = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Config.Dataset.Path failed required")
}
