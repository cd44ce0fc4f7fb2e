package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied when neither the YAML file nor the environment provides a
// value.
const (
	defaultAPIPort        = "3000"
	defaultWebSocketPort  = "3001"
	defaultTokenStoreType = "sqlite"
	defaultSQLitePath     = "./tokens.db"
	defaultPushTimeout    = 10
)

// NewConfigFromYaml converts the raw unmarshaled data into a clean, base
// AppConfig struct. Environment overrides are not yet applied.
func NewConfigFromYaml(yamlCfg *YamlConfig) (*AppConfig, error) {
	appCfg := &AppConfig{
		RunMode:       yamlCfg.RunMode,
		APIPort:       yamlCfg.APIPort,
		WebSocketPort: yamlCfg.WebSocketPort,
		Cors:          yamlCfg.Cors,
		TokenStore:    yamlCfg.TokenStore,
		Push:          yamlCfg.Push,
		Log:           yamlCfg.Log,
	}
	applyDefaults(appCfg)
	return appCfg, nil
}

// Load parses the given YAML bytes and applies environment overrides,
// producing the final AppConfig.
func Load(raw []byte) (*AppConfig, error) {
	var yamlCfg YamlConfig
	if err := yaml.Unmarshal(raw, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml config: %w", err)
	}

	appCfg, err := NewConfigFromYaml(&yamlCfg)
	if err != nil {
		return nil, err
	}

	ApplyEnvOverrides(appCfg)

	if err := validate(appCfg); err != nil {
		return nil, err
	}
	return appCfg, nil
}

// ApplyEnvOverrides lets the environment win over the YAML file, so the same
// binary runs unmodified in containers.
func ApplyEnvOverrides(cfg *AppConfig) {
	override(&cfg.RunMode, "RUN_MODE")
	override(&cfg.APIPort, "API_PORT")
	override(&cfg.WebSocketPort, "WEBSOCKET_PORT")
	override(&cfg.TokenStore.Type, "TOKEN_STORE_TYPE")
	override(&cfg.TokenStore.SQLite.Path, "SQLITE_PATH")
	override(&cfg.TokenStore.Redis.Addr, "REDIS_ADDR")
	override(&cfg.TokenStore.Firestore.ProjectID, "FIRESTORE_PROJECT_ID")
	override(&cfg.TokenStore.Firestore.Collection, "FIRESTORE_COLLECTION")
	override(&cfg.Push.URL, "PUSH_GATEWAY_URL")
	override(&cfg.Log.Level, "LOG_LEVEL")
	override(&cfg.Log.File, "LOG_FILE")
}

func override(target *string, env string) {
	if v := os.Getenv(env); v != "" {
		*target = v
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.APIPort == "" {
		cfg.APIPort = defaultAPIPort
	}
	if cfg.WebSocketPort == "" {
		cfg.WebSocketPort = defaultWebSocketPort
	}
	if cfg.TokenStore.Type == "" {
		cfg.TokenStore.Type = defaultTokenStoreType
	}
	if cfg.TokenStore.SQLite.Path == "" {
		cfg.TokenStore.SQLite.Path = defaultSQLitePath
	}
	if cfg.Push.TimeoutSeconds <= 0 {
		cfg.Push.TimeoutSeconds = defaultPushTimeout
	}
}

func validate(cfg *AppConfig) error {
	switch cfg.TokenStore.Type {
	case "sqlite", "redis", "firestore":
	default:
		return fmt.Errorf("unknown token_store.type %q", cfg.TokenStore.Type)
	}
	if cfg.TokenStore.Type == "firestore" && cfg.TokenStore.Firestore.ProjectID == "" {
		return fmt.Errorf("token_store.firestore.project_id is required for the firestore backend")
	}
	return nil
}
