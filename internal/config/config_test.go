package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, StorageDriverFile, cfg.Storage.Driver)
	assert.Equal(t, "recall-storage.yaml", cfg.Storage.Path)
	assert.Equal(t, time.Second, cfg.Relay.PresentDelay)
	assert.Equal(t, 30*time.Second, cfg.Relay.DedupWindow)
	assert.Equal(t, "127.0.0.1:7420", cfg.Server.Addr())
}

func TestLoad_FileAndFlags(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := `
server:
  port: 9000
relay:
  present_delay: 250ms
oauth:
  providers:
    github:
      client_id: gh-client
      scopes: ["user:email"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	InitFlags(fs)
	require.NoError(t, fs.Parse([]string{"--storage-driver", "memory"}))

	cfg, err := Load(fs)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Relay.PresentDelay)
	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "gh-client", cfg.OAuth.Providers["github"].ClientID)
	assert.Equal(t, []string{"user:email"}, cfg.OAuth.Providers["github"].Scopes)
}

func TestLoad_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RECALL_SERVER_PORT", "9100")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid memory", mutate: func(c *Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "etcd" }, wantErr: true},
		{name: "file without path", mutate: func(c *Config) {
			c.Storage.Driver = StorageDriverFile
			c.Storage.Path = ""
		}, wantErr: true},
		{name: "negative delay", mutate: func(c *Config) { c.Relay.PresentDelay = -time.Second }, wantErr: true},
		{name: "unknown provider", mutate: func(c *Config) {
			c.OAuth.Providers = map[string]ProviderConfig{"gitlab": {}}
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Storage: StorageConfig{Driver: StorageDriverMemory}}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
