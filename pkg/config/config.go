// Package config loads the gateway's static configuration: Redis/session
// connection settings, the core-banking upstream endpoint and identity
// tuple, and the on-disk locations of the declarative menu configuration.
// Dynamic configuration (menu nodes, business rules, API endpoint maps) is
// not modelled here — it is read directly by pkg/menu from the directories
// this config points at.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is the gateway's static configuration.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (unprefixed, matching the names in §6 of the
//     gateway's external interface contract)
//  2. A YAML configuration file, if one is found
//  3. Default values (lowest priority)
type Config struct {
	// Logging controls log output behaviour.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Redis configures the BadgerDB-backed session store's connection
	// knobs. The gateway embeds BadgerDB rather than dialling a real
	// Redis, but the environment variable names mirror what a Redis
	// deployment would use, since the session store is specified as
	// Redis-shaped (host/port/password/ttl/prefix).
	Redis RedisConfig `mapstructure:"redis" yaml:"redis"`

	// Upstream configures the core-banking backend call.
	Upstream UpstreamConfig `mapstructure:"upstream" yaml:"upstream"`

	// Identity carries the deployment's bank/shortcode identity, merged
	// into every outbound upstream call.
	Identity IdentityConfig `mapstructure:"identity" yaml:"identity"`

	// Menu configures where the declarative menu configuration lives.
	Menu MenuConfig `mapstructure:"menu" yaml:"menu"`

	// API configures the inbound HTTP server.
	API APIConfig `mapstructure:"api" yaml:"api"`

	// KVDir is the on-disk directory BadgerDB uses for the session store.
	KVDir string `mapstructure:"kv_dir" validate:"required" yaml:"kv_dir"`
}

// LoggingConfig controls logging behaviour.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: "text" or "json".
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// RedisConfig configures the session store's connection and TTL knobs.
// TTLSeconds mirrors REDIS_TTL, which the gateway's external interface
// contract expresses in whole seconds (default 300).
type RedisConfig struct {
	Host          string `mapstructure:"host" yaml:"host"`
	Port          int    `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
	Password      string `mapstructure:"password" yaml:"password,omitempty"`
	TTLSeconds    int    `mapstructure:"ttl" validate:"required,gt=0" yaml:"ttl"`
	SessionPrefix string `mapstructure:"session_prefix" validate:"required" yaml:"session_prefix"`
}

// TTL returns the session idle timeout as a time.Duration.
func (c RedisConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// UpstreamConfig configures the core-banking RPC call. TimeoutMS and
// ConnectTimeoutMS mirror API_TIMEOUT/API_CONNECT_TIMEOUT, which the
// gateway's external interface contract expresses in milliseconds.
type UpstreamConfig struct {
	APIURL           string `mapstructure:"api_url" validate:"required" yaml:"api_url"`
	TimeoutMS        int    `mapstructure:"timeout" validate:"required,gt=0" yaml:"timeout"`
	ConnectTimeoutMS int    `mapstructure:"connect_timeout" validate:"required,gt=0" yaml:"connect_timeout"`
}

// Timeout returns the overall upstream call timeout as a time.Duration.
func (c UpstreamConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// ConnectTimeout returns the upstream dial timeout as a time.Duration.
func (c UpstreamConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMS) * time.Millisecond
}

// IdentityConfig carries the deployment's fixed identity fields, merged
// into every colon-tuple request (pkg/upstream/codec.Base).
type IdentityConfig struct {
	BankID     string           `mapstructure:"bank_id" validate:"required" yaml:"bank_id"`
	BankName   string           `mapstructure:"bank_name" validate:"required" yaml:"bank_name"`
	Shortcode  string           `mapstructure:"shortcode" yaml:"shortcode,omitempty"`
	Country    string           `mapstructure:"country" validate:"required" yaml:"country"`
	TrxSource  string           `mapstructure:"trx_source" validate:"required" yaml:"trx_source"`
	Timezone   string           `mapstructure:"timezone" validate:"required" yaml:"timezone"`
	Encryption EncryptionConfig `mapstructure:"encryption" yaml:"encryption"`
}

// EncryptionConfig carries the PIN transport decryption keys. When
// DisableDecryption is true (test scaffolding only), the wire PIN is taken
// as already plain.
type EncryptionConfig struct {
	Key               string `mapstructure:"key" yaml:"key,omitempty"`
	IV                string `mapstructure:"iv" yaml:"iv,omitempty"`
	DisableDecryption bool   `mapstructure:"disable_decryption" yaml:"disable_decryption,omitempty"`
}

// MenuConfig points at the on-disk declarative menu configuration.
type MenuConfig struct {
	// Dir is the directory of per-menu JSON files (pkg/menu.Node instances).
	Dir string `mapstructure:"dir" validate:"required" yaml:"dir"`

	// APIEndpointsFile and BusinessRulesFile are auxiliary configuration
	// artefacts consumed by operators curating menu content; the engine
	// itself only reads Dir.
	APIEndpointsFile  string `mapstructure:"api_endpoints_file" yaml:"api_endpoints_file,omitempty"`
	BusinessRulesFile string `mapstructure:"business_rules_file" yaml:"business_rules_file,omitempty"`
}

// APIConfig configures the inbound HTTP server and the operator-only menu
// reload endpoint's JWT secret.
type APIConfig struct {
	Port         int           `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// JWTSecret signs operator tokens for the menu reload endpoint. Empty
	// disables the endpoint entirely rather than running it unauthenticated.
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret,omitempty"`
}

// Load reads configuration from environment variables and, if present, a
// YAML file at configPath, applies defaults, and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := defaultConfig()
	if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	))); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// setupViper binds the environment variables named in the gateway's
// external interface contract directly onto the nested config keys, and
// configures the optional YAML config file.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindings := map[string]string{
		"logging.level":              "LOG_LEVEL",
		"logging.format":             "LOG_FORMAT",
		"logging.output":             "LOG_OUTPUT",
		"redis.host":                 "REDIS_HOST",
		"redis.port":                 "REDIS_PORT",
		"redis.password":             "REDIS_PASSWORD",
		"redis.ttl":                  "REDIS_TTL",
		"redis.session_prefix":       "REDIS_SESSION_PREFIX",
		"upstream.api_url":           "ELMA_API_URL",
		"upstream.timeout":           "API_TIMEOUT",
		"upstream.connect_timeout":   "API_CONNECT_TIMEOUT",
		"identity.bank_id":           "BANK_ID",
		"identity.bank_name":         "BANK_NAME",
		"identity.shortcode":         "ELMA_SHORTCODE",
		"identity.country":           "COUNTRY",
		"identity.trx_source":        "TRX_SOURCE",
		"identity.timezone":          "TIMEZONE",
		"identity.encryption.key":    "ENCRYPTION_KEY",
		"identity.encryption.iv":     "IV_KEY",
		"menu.dir":                   "MENU_DIR",
		"menu.api_endpoints_file":    "API_ENDPOINTS_FILE",
		"menu.business_rules_file":   "BUSINESS_RULES_FILE",
		"api.port":                   "API_PORT",
		"api.jwt_secret":             "JWT_SECRET",
		"kv_dir":                     "KV_DIR",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	}
}

// Validate runs struct-tag validation over cfg.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}
