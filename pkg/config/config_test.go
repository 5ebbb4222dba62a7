package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_VectorIndexConfig(t *testing.T) {
	os.Setenv("TYPESENSE_URL", "http://test-typesense:8108")
	os.Setenv("TYPESENSE_API_KEY", "test-key")
	defer func() {
		os.Unsetenv("TYPESENSE_URL")
		os.Unsetenv("TYPESENSE_API_KEY")
	}()

	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, "http://test-typesense:8108", cfg.VectorIndex.URL)
	assert.Equal(t, "test-key", cfg.VectorIndex.APIKey)
}

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("TYPESENSE_URL")
	os.Unsetenv("TYPESENSE_API_KEY")
	os.Unsetenv("REDIS_ENABLED")

	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, "", cfg.VectorIndex.URL)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
}

func TestRedisAddr(t *testing.T) {
	c := RedisConfig{Host: "localhost", Port: 6379}
	assert.Equal(t, "localhost:6379", c.RedisAddr())
}
