package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadClientDefaults(t *testing.T) {
	cfg, err := LoadClient("")
	require.NoError(t, err)

	assert.Equal(t, uint16(443), cfg.Port)
	assert.Equal(t, "hello world", cfg.Message)
	assert.Equal(t, 10*time.Second, cfg.Timeout.Std())
	assert.Equal(t, 3, cfg.Retries)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadClientFile(t *testing.T) {
	path := writeConfig(t, `
server: pico.example.com
port: 8443
message: lights on
timeout: 30s
retries: 5
retry_protocol_failures: true
log_level: debug
`)

	cfg, err := LoadClient(path)
	require.NoError(t, err)

	assert.Equal(t, "pico.example.com", cfg.Server)
	assert.Equal(t, uint16(8443), cfg.Port)
	assert.Equal(t, "lights on", cfg.Message)
	assert.Equal(t, 30*time.Second, cfg.Timeout.Std())
	assert.Equal(t, 5, cfg.Retries)
	assert.True(t, cfg.RetryProtocolFailures)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadClientValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing server", "message: hi\n"},
		{"bad log level", "server: s\nlog_level: loud\n"},
		{"retries out of range", "server: s\nretries: 50\n"},
		{"missing CA file", "server: s\nca_file: /does/not/exist.pem\n"},
		{"bad duration", "server: s\ntimeout: soon\n"},
		{"unknown field", "server: s\nextra_field: 1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadClient(writeConfig(t, tc.content))
			if err == nil {
				err = Validate(cfg)
			}
			assert.Error(t, err)
		})
	}
}

func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServer("")
	require.NoError(t, err)

	assert.Equal(t, ":443", cfg.Address)
	assert.Equal(t, 4096, cfg.MaxRequestSize)
	assert.Empty(t, cfg.CertFile)
}

func TestLoadServerFile(t *testing.T) {
	path := writeConfig(t, `
address: "127.0.0.1:8443"
max_request_size: 2048
state_file: /tmp/picopost-state
mdns_instance: workbench
`)

	cfg, err := LoadServer(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8443", cfg.Address)
	assert.Equal(t, 2048, cfg.MaxRequestSize)
	assert.Equal(t, "/tmp/picopost-state", cfg.StateFile)
	assert.Equal(t, "workbench", cfg.MDNSInstance)
}

func TestLoadServerValidation(t *testing.T) {
	cfg, err := LoadServer(writeConfig(t, "max_request_size: 8\n"))
	require.NoError(t, err)
	assert.Error(t, Validate(cfg))

	cfg, err = LoadServer(writeConfig(t, "cert_file: /does/not/exist.crt\n"))
	require.NoError(t, err)
	assert.Error(t, Validate(cfg))
}

func TestDurationYAML(t *testing.T) {
	d := Duration(90 * time.Second)
	out, err := d.MarshalYAML()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", out)
}
