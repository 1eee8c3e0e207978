package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides where the optional YAML file is read from.
const ConfigPathEnvVar = "CONFIG_PATH"

var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

type StoreConfig struct {
	Driver  string `koanf:"driver" validate:"oneof=file sqlite"`
	DataDir string `koanf:"data_dir" validate:"required"`
	DBPath  string `koanf:"db_path"`
}

type NotifyConfig struct {
	WebhookURL   string        `koanf:"webhook_url" validate:"omitempty,url"`
	PollInterval time.Duration `koanf:"poll_interval" validate:"gt=0"`
	Timeout      time.Duration `koanf:"timeout" validate:"gt=0"`
}

type Config struct {
	Port              string       `koanf:"port" validate:"required,numeric"`
	Store             StoreConfig  `koanf:"store"`
	Notify            NotifyConfig `koanf:"notify"`
	AdminPassword     string       `koanf:"admin_password"`
	AdminPasswordHash string       `koanf:"admin_password_hash"`
	TemplatesDir      string       `koanf:"templates_dir"`
	StaticDir         string       `koanf:"static_dir"`
	UploadDir         string       `koanf:"upload_dir"`
	LogLevel          string       `koanf:"log_level" validate:"oneof=debug info warn error"`
	CookieDomain      string       `koanf:"cookie_domain"`
	CookieSecure      bool         `koanf:"cookie_secure"`
	LoginRateLimit    int          `koanf:"login_rate_limit" validate:"gte=0"`

	// Raw base64 key material; decoded into the fields below by Load.
	CSRFKeyB64              string `koanf:"csrf_key"`
	SessionKeyB64           string `koanf:"session_key"`
	SessionEncryptionKeyB64 string `koanf:"session_encryption_key"`

	CSRFKey              []byte `koanf:"-"`
	SessionKey           []byte `koanf:"-"`
	SessionEncryptionKey []byte `koanf:"-"`
}

func defaultConfig() *Config {
	return &Config{
		Port: "8585",
		Store: StoreConfig{
			Driver:  "file",
			DataDir: ".",
			DBPath:  "./happyclothify.db",
		},
		Notify: NotifyConfig{
			PollInterval: 5 * time.Second,
			Timeout:      10 * time.Second,
		},
		AdminPassword:  "admin123",
		StaticDir:      "./static",
		UploadDir:      "./static/uploads",
		LogLevel:       "debug",
		LoginRateLimit: 10,
	}
}

// envKeys maps environment variables onto koanf paths.
var envKeys = map[string]string{
	"PORT":                   "port",
	"STORE_DRIVER":           "store.driver",
	"DATA_DIR":               "store.data_dir",
	"DB_PATH":                "store.db_path",
	"WEBHOOK_URL":            "notify.webhook_url",
	"POLL_INTERVAL":          "notify.poll_interval",
	"NOTIFY_TIMEOUT":         "notify.timeout",
	"ADMIN_PASSWORD":         "admin_password",
	"ADMIN_PASSWORD_HASH":    "admin_password_hash",
	"TEMPLATES_DIR":          "templates_dir",
	"STATIC_DIR":             "static_dir",
	"UPLOAD_DIR":             "upload_dir",
	"LOG_LEVEL":              "log_level",
	"COOKIE_DOMAIN":          "cookie_domain",
	"COOKIE_SECURE":          "cookie_secure",
	"LOGIN_RATE_LIMIT":       "login_rate_limit",
	"CSRF_KEY":               "csrf_key",
	"SESSION_KEY":            "session_key",
	"SESSION_ENCRYPTION_KEY": "session_encryption_key",
}

// envTransform returns "" for variables we don't own, which koanf skips.
func envTransform(key string) string {
	return envKeys[strings.ToUpper(key)]
}

// LoadConfig layers defaults, an optional YAML file and the environment,
// in that order of precedence.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		slog.Info("Loaded config file", "path", path)
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Make sure port is valid
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		slog.Error("Invalid PORT. Falling back to default.", "port", cfg.Port)
		cfg.Port = "8585"
	}

	cfg.CSRFKey = decodeKey("CSRF_KEY", cfg.CSRFKeyB64)
	cfg.SessionKey = decodeKey("SESSION_KEY", cfg.SessionKeyB64)
	cfg.SessionEncryptionKey = decodeKey("SESSION_ENCRYPTION_KEY", cfg.SessionEncryptionKeyB64)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// decodeKey returns the decoded key, or a random 32-byte key with a warning
// when the value is unset or shorter than 32 bytes.
func decodeKey(name, encoded string) []byte {
	if encoded == "" {
		slog.Warn(name + " not set. Generating a random key for development. It will change on each restart. PLEASE SET " + name + " IN PRODUCTION!")
		return generateRandomBytes(32)
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(key) < 32 {
		slog.Warn(name + " is invalid or too short (min 32 bytes). Generating a random key for development.")
		return generateRandomBytes(32)
	}
	// securecookie accepts AES-128/192/256 keys only.
	return key[:32]
}

// generateRandomBytes uses crypto/rand; on failure it falls back to a
// time-derived key so the process can still start in development.
func generateRandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		slog.Error("Failed to read random bytes", "error", err)
		fallbackKey := "fallback-insecure-key-" + strconv.FormatInt(time.Now().UnixNano(), 10)
		padded := make([]byte, n)
		copy(padded, fallbackKey)
		return padded
	}
	return b
}

// SlogLevel maps LogLevel onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
