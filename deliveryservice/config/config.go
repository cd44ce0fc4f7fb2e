// Package config defines the two-stage configuration for the delivery
// service: raw YAML structs are unmarshaled first, then converted into the
// canonical AppConfig with environment overrides applied on top.
package config

// --- YAML-Specific Structs ---

type YamlCorsConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type YamlSQLiteConfig struct {
	Path string `yaml:"path"`
}

type YamlRedisConfig struct {
	Addr string `yaml:"addr"`
}

type YamlFirestoreConfig struct {
	ProjectID  string `yaml:"project_id"`
	Collection string `yaml:"collection"`
}

// YamlTokenStoreConfig selects and configures the push-credential backend.
type YamlTokenStoreConfig struct {
	Type      string              `yaml:"type"` // "sqlite", "redis" or "firestore"
	SQLite    YamlSQLiteConfig    `yaml:"sqlite"`
	Redis     YamlRedisConfig     `yaml:"redis"`
	Firestore YamlFirestoreConfig `yaml:"firestore"`
}

type YamlPushConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type YamlLogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// YamlConfig defines the structure for unmarshaling the config.yaml file.
type YamlConfig struct {
	RunMode       string               `yaml:"run_mode"`
	APIPort       string               `yaml:"api_port"`
	WebSocketPort string               `yaml:"websocket_port"`
	Cors          YamlCorsConfig       `yaml:"cors"`
	TokenStore    YamlTokenStoreConfig `yaml:"token_store"`
	Push          YamlPushConfig       `yaml:"push"`
	Log           YamlLogConfig        `yaml:"log"`
}

// --- Application Config Struct ---

// AppConfig is the canonical, validated configuration object used throughout
// the application.
type AppConfig struct {
	RunMode       string
	APIPort       string
	WebSocketPort string
	Cors          YamlCorsConfig
	TokenStore    YamlTokenStoreConfig
	Push          YamlPushConfig
	Log           YamlLogConfig
}
