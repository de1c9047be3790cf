package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("recall version %s, commit %s, built at %s", version, commit, date)
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Storage StorageConfig `mapstructure:"storage"`
	Relay   RelayConfig   `mapstructure:"relay"`
	OAuth   OAuthConfig   `mapstructure:"oauth"`
	MCP     MCPConfig     `mapstructure:"mcp"`
}

type ServerConfig struct {
	Port         int      `mapstructure:"port"`
	Host         string   `mapstructure:"host"`
	AllowOrigins []string `mapstructure:"allow_origins"`
	// RelayURL is where clients (popup, watcher) reach a running relay.
	RelayURL string `mapstructure:"relay_url"`
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	Color             bool   `mapstructure:"color"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

// StorageDriver selects the key-value backend
type StorageDriver string

const (
	StorageDriverMemory StorageDriver = "memory"
	StorageDriverFile   StorageDriver = "file"
	StorageDriverRedis  StorageDriver = "redis"
)

type StorageConfig struct {
	Driver StorageDriver `mapstructure:"driver"`
	Path   string        `mapstructure:"path"` // file driver
	Prefix string        `mapstructure:"prefix"`
	Redis  RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RelayConfig struct {
	PresentDelay   time.Duration `mapstructure:"present_delay"`
	DedupWindow    time.Duration `mapstructure:"dedup_window"`
	PopupPage      string        `mapstructure:"popup_page"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type OAuthConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

type ProviderConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURL  string   `mapstructure:"redirect_url"`
	Scopes       []string `mapstructure:"scopes"`
}

type MCPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// InitFlags initializes command line flags (without parsing)
func InitFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a config file")
	fs.String("storage-driver", "", "Storage backend (memory|file|redis)")
	fs.String("relay-url", "", "URL of a running relay")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 7420)
	v.SetDefault("server.relay_url", "http://127.0.0.1:7420")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("storage.driver", string(StorageDriverFile))
	v.SetDefault("storage.path", "recall-storage.yaml")
	v.SetDefault("storage.redis.addr", "127.0.0.1:6379")
	v.SetDefault("relay.present_delay", time.Second)
	v.SetDefault("relay.dedup_window", 30*time.Second)
	v.SetDefault("relay.popup_page", "popup.html")
	v.SetDefault("relay.request_timeout", 5*time.Second)
	v.SetDefault("mcp.name", "recall")
	v.SetDefault("mcp.version", version)
}

// Load reads configuration from flags, environment, .env and config files.
// A missing config file is not an error; defaults apply.
func Load(fs *pflag.FlagSet) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RECALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, err
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/recall")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Loading additional config files
	if _, err := os.Stat("/config/config.yaml"); err == nil {
		v.SetConfigFile("/config/config.yaml")
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to merge /config/config.yaml: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if driver := v.GetString("storage-driver"); driver != "" {
		config.Storage.Driver = StorageDriver(driver)
	}
	if relayURL := v.GetString("relay-url"); relayURL != "" {
		config.Server.RelayURL = relayURL
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverMemory, StorageDriverRedis:
	case StorageDriverFile:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the file driver, please adjust the config or pass RECALL_STORAGE_PATH")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	if c.Relay.PresentDelay < 0 {
		return fmt.Errorf("relay.present_delay must not be negative")
	}
	for name := range c.OAuth.Providers {
		if name != "github" && name != "google" {
			return fmt.Errorf("unsupported oauth provider %q", name)
		}
	}
	return nil
}
