package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })

	tests := []struct {
		start       Config
		expected    Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd",
				"-a", "127.0.0.1:8080", "-g", "127.0.0.1:9090", "-d", "db", "-r", "redis:6379",
				"-s", "secret", "-t", "5", "-e", "development", "-l", "debug",
			},
			expected: Config{
				HTTPAddr:                    "127.0.0.1:8080",
				GRPCAddr:                    "127.0.0.1:9090",
				DatabaseDSN:                 "db",
				RedisAddr:                   "redis:6379",
				SecretKey:                   "secret",
				AccessTokenValidityDuration: 5 * time.Minute,
				Environment:                 "development",
				LogLevel:                    "debug",
			},
		},
		{
			name:     "no -t keeps sub-minute duration",
			args:     []string{"cmd", "-a", ":1"},
			start:    Config{AccessTokenValidityDuration: 30 * time.Second},
			expected: Config{HTTPAddr: ":1", AccessTokenValidityDuration: 30 * time.Second},
		},
		{
			name:     "foreign flags are ignored",
			args:     []string{"cmd", "-c", "cfg.json", "-x", "1", "-s", "k"},
			expected: Config{SecretKey: "k"},
		},
		{
			name:        "bad int panics",
			args:        []string{"cmd", "-t", "soon"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			cfg := tt.start

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(&cfg) })
				return
			}

			require.NotPanics(t, func() { parseFlags(&cfg) })
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}
