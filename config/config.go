package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pilab-dev/reelsync/internal/identity"
	"github.com/spf13/viper"
)

// Remote backends.
const (
	BackendMongoDB = "mongodb"
	BackendMemory  = "memory"
)

// Config holds all configuration for the sync engine and its CLI.
// Tags use mapstructure for Viper unmarshalling; every key can be overridden
// with a REELSYNC_ prefixed environment variable.
type Config struct {
	LocalPath     string `mapstructure:"LOCAL_PATH"`
	RemoteBackend string `mapstructure:"REMOTE_BACKEND"` // mongodb or memory
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDBName   string `mapstructure:"MONGO_DB_NAME"`

	// Empty RedisAddr keeps the reconcile guard in process memory.
	RedisAddr    string        `mapstructure:"REDIS_ADDR"`
	RedisPrefix  string        `mapstructure:"REDIS_PREFIX"`
	ReconcileTTL time.Duration `mapstructure:"RECONCILE_TTL"`

	PropagationQueueSize int `mapstructure:"PROPAGATION_QUEUE_SIZE"`

	// FieldKey seeds the phone/address cipher. Empty stores them as given.
	FieldKey string `mapstructure:"FIELD_KEY"`

	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// APIToken, when set, is required as a Bearer token by the local API.
	APIToken string `mapstructure:"API_TOKEN"`
	// AuditLog is a file that receives a JSON line per favorites change.
	AuditLog string `mapstructure:"AUDIT_LOG"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`

	// UserKey is the signed-in user the CLI operates on.
	UserKey string `mapstructure:"USER_KEY"`

	Google   identity.OAuthConfig `mapstructure:"GOOGLE"`
	Facebook identity.OAuthConfig `mapstructure:"FACEBOOK"`
}

// LoadConfig reads configuration from file, environment variables, and
// defaults. A non-empty file is read explicitly and must exist; otherwise
// reelsync.yaml is looked up in the usual places and may be absent.
func LoadConfig(file string) (*Config, error) {
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("reelsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.reelsync")
		v.AddConfigPath("/etc/reelsync/")
	}

	v.SetEnvPrefix("REELSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LOCAL_PATH", "reelsync.db")
	v.SetDefault("REMOTE_BACKEND", BackendMongoDB)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB_NAME", "reelsync")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PREFIX", "reelsync")
	v.SetDefault("RECONCILE_TTL", "12h")
	v.SetDefault("PROPAGATION_QUEUE_SIZE", 256)
	v.SetDefault("FIELD_KEY", "")
	v.SetDefault("HTTP_ADDR", "127.0.0.1:8686")
	v.SetDefault("API_TOKEN", "")
	v.SetDefault("AUDIT_LOG", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("USER_KEY", "")

	// Registered so the nested keys are visible to AutomaticEnv,
	// e.g. REELSYNC_GOOGLE_CLIENT_ID.
	for _, p := range []string{"GOOGLE", "FACEBOOK"} {
		v.SetDefault(p+".client_id", "")
		v.SetDefault(p+".client_secret", "")
		v.SetDefault(p+".scopes", []string{})
	}
}

// Validate rejects settings the engine cannot start with.
func (c *Config) Validate() error {
	switch c.RemoteBackend {
	case BackendMongoDB:
		if c.MongoURI == "" || c.MongoDBName == "" {
			return errors.New("config: mongodb backend needs MONGO_URI and MONGO_DB_NAME")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unknown remote backend %q", c.RemoteBackend)
	}

	if c.LocalPath == "" {
		return errors.New("config: LOCAL_PATH is empty")
	}
	if c.ReconcileTTL <= 0 {
		return errors.New("config: RECONCILE_TTL must be positive")
	}

	return nil
}
