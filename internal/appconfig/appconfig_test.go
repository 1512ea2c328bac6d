package appconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{
		EnvFile: writeFile(t, ".env", ""),
		Lookup:  lookupFrom(nil),
	})

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.False(t, cfg.Dev())
}

func TestLoadLayering(t *testing.T) {
	file := writeFile(t, "tellevo.yaml", `
backend_host: yaml.example.org
backend_port: "9000"
api_url: https://yaml.example.org/api
port: "4000"
stream:
  heartbeat_interval: 15s
  max_reconnect_attempts: 3
`)
	envFile := writeFile(t, ".env", "TELLEVO_BACKEND_PORT=9100\nTELLEVO_API_URL=https://dotenv.example.org/api\nTELLEVO_ENV=development\n")

	cfg, err := Load(Options{
		File:    file,
		EnvFile: envFile,
		Lookup: lookupFrom(map[string]string{
			EnvAPIURL:          "https://env.example.org/api",
			EnvWebsocketSecure: "false",
		}),
	})

	require.NoError(t, err)
	assert.Equal(t, "yaml.example.org", cfg.BackendHost)
	assert.Equal(t, "9100", cfg.BackendPort)
	assert.Equal(t, "https://env.example.org/api", cfg.APIURL)
	assert.Equal(t, "4000", cfg.Port)
	assert.False(t, cfg.WebsocketSecure)
	assert.True(t, cfg.Dev())
	assert.Equal(t, 15*time.Second, cfg.Stream.HeartbeatInterval)

	cc := cfg.ClientConfig("ws://yaml.example.org:9100/ws/ventas")
	assert.Equal(t, 15*time.Second, cc.HeartbeatInterval)
	assert.Equal(t, 3, cc.MaxReconnectAttempts)
	assert.Equal(t, 10*time.Second, cc.ConnectTimeout)
}

func TestLoadMissingDefaultEnvFileIsIgnored(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load(Options{Lookup: lookupFrom(nil)})

	assert.NoError(t, err)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(Options{File: filepath.Join(t.TempDir(), "missing.yaml"), Lookup: lookupFrom(nil)})
	assert.Error(t, err)

	_, err = Load(Options{EnvFile: filepath.Join(t.TempDir(), "missing.env"), Lookup: lookupFrom(nil)})
	assert.Error(t, err)

	_, err = Load(Options{File: writeFile(t, "bad.yaml", "stream: [1"), EnvFile: writeFile(t, ".env", ""), Lookup: lookupFrom(nil)})
	assert.Error(t, err)

	_, err = Load(Options{EnvFile: writeFile(t, ".env", ""), Lookup: lookupFrom(map[string]string{EnvWebsocketSecure: "maybe"})})
	assert.Error(t, err)
}

func TestStreamURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "ProductionOrigin",
			cfg:  Config{WebsocketSecure: true, PageOrigin: "https://admin.tellevoapp.com"},
			want: "wss://admin.tellevoapp.com/ws/ventas",
		},
		{
			name: "InsecureOverride",
			cfg:  Config{WebsocketSecure: false, PageOrigin: "https://admin.tellevoapp.com"},
			want: "ws://admin.tellevoapp.com/ws/ventas",
		},
		{
			name: "DevBackend",
			cfg:  Config{WebsocketSecure: true, Mode: "development", BackendHost: "localhost", BackendPort: "8080"},
			want: "ws://localhost:8080/ws/ventas",
		},
		{
			name: "NoOriginFallsBack",
			cfg:  Config{WebsocketSecure: true},
			want: "ws://admin.tellevoapp.com:8080/ws/ventas",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.StreamURL()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Config{PageOrigin: "ftp://x"}.StreamURL()
	assert.Error(t, err)
}
