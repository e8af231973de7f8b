package config_test

import (
	"testing"
	"time"

	"chatsock/backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "scene-passage-love-rhyme")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, ":3005", cfg.HTTPAddr)
	assert.Equal(t, "/api", cfg.APIBasePath)
	assert.Equal(t, "myplatform", cfg.Domain)
	assert.Equal(t, "chatsock", cfg.Redis.Prefix)
	assert.Equal(t, "HS256", cfg.JWT.Algorithm)
	assert.Equal(t, "X-Auth-Token", cfg.JWT.Header)
	assert.Equal(t, "redis", cfg.Bus.Driver)
	assert.Equal(t, config.ConnectTimeout, cfg.ConnectTimeout)
	assert.False(t, cfg.PublishMutations)
	assert.False(t, cfg.ArchiveEnabled())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ENV", "production")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("API_URL", "http://directory.local/")
	t.Setenv("CONNECT_TIMEOUT", "2500")
	t.Setenv("PUBLISH_MUTATIONS", "true")
	t.Setenv("BUS_DRIVER", "nats")
	t.Setenv("DATABASE_URL", "postgres://localhost/chatsock")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "http://directory.local", cfg.Directory.BaseURL)
	assert.Equal(t, 2500*time.Millisecond, cfg.ConnectTimeout)
	assert.True(t, cfg.PublishMutations)
	assert.Equal(t, "nats", cfg.Bus.Driver)
	assert.True(t, cfg.ArchiveEnabled())
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := config.Load()

	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestValidate_UnknownBusDriver(t *testing.T) {
	cfg := config.Config{
		APIBasePath: "/api",
		JWT:         config.JWTConfig{Secret: "x"},
		Bus:         config.BusConfig{Driver: "kafka"},
	}

	assert.ErrorContains(t, cfg.Validate(), "BUS_DRIVER")
}

func TestRead_SkipsValidation(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("REDIS_PREFIX", "admin")

	cfg, err := config.Read()

	assert.NoError(t, err)
	assert.Equal(t, "admin", cfg.Redis.Prefix)
}
