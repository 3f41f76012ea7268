package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"qrlink/internal/crypto"
	"qrlink/internal/rtc"
	"qrlink/internal/store"
	"qrlink/internal/worker"
)

// EnvPrefix prefixes every environment variable read into Config.
const EnvPrefix = "QRLINK"

// ConfigName is the base name of the optional config file.
const ConfigName = "qrlink"

// Config holds runtime wiring options for building the app.
type Config struct {
	Home       string       `mapstructure:"home"`       // data directory, e.g. $HOME/.qrlink
	Passphrase string       `mapstructure:"passphrase"` // encrypts the keypair at rest when set
	Store      StoreConfig  `mapstructure:"store"`
	Crypto     CryptoConfig `mapstructure:"crypto"`
	Worker     WorkerConfig `mapstructure:"worker"`
	RTC        RTCConfig    `mapstructure:"rtc"`
	Log        LogConfig    `mapstructure:"log"`
	QR         QRConfig     `mapstructure:"qr"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

// CryptoConfig selects the encryption scheme.
type CryptoConfig struct {
	Scheme string `mapstructure:"scheme"`
}

// WorkerConfig controls where crypto requests run.
type WorkerConfig struct {
	Mode        string `mapstructure:"mode"`
	Concurrency int    `mapstructure:"concurrency"`
}

// RTCConfig configures the peer connection.
type RTCConfig struct {
	ICEServers      []string `mapstructure:"ice_servers"`
	IncludeLoopback bool     `mapstructure:"include_loopback"`
	ChannelLabel    string   `mapstructure:"channel_label"`
}

// LogConfig configures logrus output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// QRConfig controls QR code display.
type QRConfig struct {
	Show bool `mapstructure:"show"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("home", "")
	v.SetDefault("passphrase", "")
	v.SetDefault("store.backend", store.BackendFile)
	v.SetDefault("crypto.scheme", crypto.SchemeAge)
	v.SetDefault("worker.mode", worker.ModeInProcess)
	v.SetDefault("worker.concurrency", worker.DefaultConcurrency)
	v.SetDefault("rtc.ice_servers", rtc.DefaultICEServers)
	v.SetDefault("rtc.include_loopback", false)
	v.SetDefault("rtc.channel_label", rtc.DefaultChannelLabel)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("qr.show", true)
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName(ConfigName)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// LoadConfig resolves the home directory, reads qrlink.yaml from it or the
// working directory if present, and unmarshals v into a Config.
func LoadConfig(v *viper.Viper) (Config, error) {
	home := v.GetString("home")
	if home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return Config{}, err
		}
		home = filepath.Join(dir, ".qrlink")
	}
	v.AddConfigPath(home)
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Home == "" {
		cfg.Home = home
	}
	return cfg, cfg.Validate()
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case store.BackendFile, store.BackendLevelDB:
	default:
		return fmt.Errorf("store.backend: unknown %q", c.Store.Backend)
	}
	switch c.Crypto.Scheme {
	case crypto.SchemeAge, crypto.SchemeBox:
	default:
		return fmt.Errorf("crypto.scheme: unknown %q", c.Crypto.Scheme)
	}
	switch c.Worker.Mode {
	case worker.ModeInProcess, worker.ModeProcess:
	default:
		return fmt.Errorf("worker.mode: unknown %q", c.Worker.Mode)
	}
	return nil
}
