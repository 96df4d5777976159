package config

import "time"

// defaultConfig returns a Config pre-populated with the defaults named in
// the gateway's external interface contract, used as the unmarshal target
// so that an env var or config file only needs to override what it cares
// about.
func defaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in zero-valued fields with the gateway's documented
// defaults. Explicit values (from env vars or a config file) are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyRedisDefaults(&cfg.Redis)
	applyUpstreamDefaults(&cfg.Upstream)
	applyIdentityDefaults(&cfg.Identity)
	applyMenuDefaults(&cfg.Menu)
	applyAPIDefaults(&cfg.API)

	if cfg.KVDir == "" {
		cfg.KVDir = "/var/lib/ussdgw/session"
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyRedisDefaults(cfg *RedisConfig) {
	if cfg.TTLSeconds == 0 {
		cfg.TTLSeconds = 300
	}
	if cfg.SessionPrefix == "" {
		cfg.SessionPrefix = "ussd:session"
	}
}

func applyUpstreamDefaults(cfg *UpstreamConfig) {
	if cfg.TimeoutMS == 0 {
		cfg.TimeoutMS = 25000
	}
	if cfg.ConnectTimeoutMS == 0 {
		cfg.ConnectTimeoutMS = 15000
	}
}

func applyIdentityDefaults(cfg *IdentityConfig) {
	if cfg.TrxSource == "" {
		cfg.TrxSource = "USSD"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Africa/Nairobi"
	}
}

func applyMenuDefaults(cfg *MenuConfig) {
	if cfg.Dir == "" {
		cfg.Dir = "/etc/ussdgw/menus"
	}
}

func applyAPIDefaults(cfg *APIConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
}

// Location parses cfg.Identity.Timezone, falling back to UTC if the zone
// database entry cannot be loaded (common in minimal container images
// without tzdata installed).
func (cfg *Config) Location() *time.Location {
	loc, err := time.LoadLocation(cfg.Identity.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
