package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Bind       string        `mapstructure:"bind"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendBuffer int           `mapstructure:"send_buffer"`
	Secret     string        `mapstructure:"secret"`
	SaveDir    string        `mapstructure:"save_dir"`

	// BackpressurePolicy is "evict" or "drop" for peers whose send buffer is full.
	BackpressurePolicy string `mapstructure:"backpressure_policy"`

	TLS    TLSConfig    `mapstructure:"tls"`
	Upload UploadConfig `mapstructure:"upload"`
	Picker PickerConfig `mapstructure:"picker"`
	LAN    LANConfig    `mapstructure:"lan"`
	Log    LogConfig    `mapstructure:"log"`
}

// TLSConfig points at the pre-generated key pair. Both empty means plain HTTP.
type TLSConfig struct {
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

func (t TLSConfig) Enabled() bool { return t.CertFile != "" && t.KeyFile != "" }

type UploadConfig struct {
	MaxBytes      int64         `mapstructure:"max_bytes"`
	WriteAttempts int           `mapstructure:"write_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

type PickerConfig struct {
	// Command is argv of the directory dialog; empty selects an OS default.
	Command []string `mapstructure:"command"`
}

type LANConfig struct {
	ProbeAddr string `mapstructure:"probe_addr"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("bind", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("send_buffer", 32)
	v.SetDefault("secret", "")
	v.SetDefault("save_dir", "recordings")
	v.SetDefault("backpressure_policy", "evict")

	v.SetDefault("tls.cert_file", "")
	v.SetDefault("tls.key_file", "")

	v.SetDefault("upload.max_bytes", 15*1024*1024)
	v.SetDefault("upload.write_attempts", 10)
	v.SetDefault("upload.retry_delay", "10ms")

	v.SetDefault("picker.command", []string{})
	v.SetDefault("lan.probe_addr", "8.8.8.8:80")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("log.compress", false)
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"port":      "port",
	"save-dir":  "save_dir",
	"tls-cert":  "tls.cert_file",
	"tls-key":   "tls.key_file",
	"log-level": "log.level",
}

// Load reads config/config.<env>.yaml, then APOD_* environment variables,
// then any flags from fs that were set explicitly. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	env := os.Getenv("CONFIG_ENV")
	if fs != nil {
		if f := fs.Lookup("config-env"); f != nil && f.Changed {
			env = f.Value.String()
		}
	}
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("APOD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	fileErr := v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if fileErr != nil {
		fmt.Fprintf(os.Stderr, "config file not found (%s), using defaults\n", fileName)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return fmt.Errorf("tls.cert_file and tls.key_file must be set together")
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be positive")
	}
	if c.Upload.WriteAttempts <= 0 {
		return fmt.Errorf("upload.write_attempts must be positive")
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("send_buffer must be positive")
	}
	return nil
}

func (c *Config) Addr() string { return fmt.Sprintf("%s:%d", c.Bind, c.Port) }
