package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raul302/Push-notifications-brazof/deliveryservice/config"
)

const sampleYaml = `
run_mode: prod
api_port: "8080"
websocket_port: "8081"
cors:
  allowed_origins:
    - "https://app.example.com"
token_store:
  type: redis
  redis:
    addr: "redis:6379"
push:
  url: "https://exp.host/--/api/v2/push/send"
  timeout_seconds: 5
log:
  level: debug
`

func TestLoad_FromYaml(t *testing.T) {
	cfg, err := config.Load([]byte(sampleYaml))
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.RunMode)
	assert.Equal(t, "8080", cfg.APIPort)
	assert.Equal(t, "8081", cfg.WebSocketPort)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Cors.AllowedOrigins)
	assert.Equal(t, "redis", cfg.TokenStore.Type)
	assert.Equal(t, "redis:6379", cfg.TokenStore.Redis.Addr)
	assert.Equal(t, 5, cfg.Push.TimeoutSeconds)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load([]byte("run_mode: local\n"))
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.APIPort)
	assert.Equal(t, "3001", cfg.WebSocketPort)
	assert.Equal(t, "sqlite", cfg.TokenStore.Type)
	assert.Equal(t, "./tokens.db", cfg.TokenStore.SQLite.Path)
	assert.Equal(t, 10, cfg.Push.TimeoutSeconds)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("API_PORT", "9999")
	t.Setenv("TOKEN_STORE_TYPE", "redis")
	t.Setenv("REDIS_ADDR", "other:6379")

	cfg, err := config.Load([]byte(sampleYaml))
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.APIPort)
	assert.Equal(t, "redis", cfg.TokenStore.Type)
	assert.Equal(t, "other:6379", cfg.TokenStore.Redis.Addr)
}

func TestLoad_RejectsUnknownStoreType(t *testing.T) {
	_, err := config.Load([]byte("token_store:\n  type: dynamo\n"))
	require.Error(t, err)
}

func TestLoad_FirestoreRequiresProject(t *testing.T) {
	_, err := config.Load([]byte("token_store:\n  type: firestore\n"))
	require.Error(t, err)

	cfg, err := config.Load([]byte("token_store:\n  type: firestore\n  firestore:\n    project_id: my-project\n"))
	require.NoError(t, err)
	assert.Equal(t, "my-project", cfg.TokenStore.Firestore.ProjectID)
}

func TestLoad_MalformedYaml(t *testing.T) {
	_, err := config.Load([]byte("api_port: [unclosed"))
	require.Error(t, err)
}
