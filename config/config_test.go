package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetenv(t *testing.T) {
	t.Setenv("ZESTRO_TEST_KEY", "value")
	assert.Equal(t, "value", Getenv("ZESTRO_TEST_KEY", "fallback"))

	t.Setenv("ZESTRO_TEST_KEY", "")
	assert.Equal(t, "fallback", Getenv("ZESTRO_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", Getenv("ZESTRO_TEST_MISSING", "fallback"))
}

func TestJWTTTL(t *testing.T) {
	t.Setenv("JWT_TTL", "90m")
	assert.Equal(t, 90*time.Minute, JWTTTL())

	t.Setenv("JWT_TTL", "soon")
	assert.Equal(t, DefaultJWTTTL, JWTTTL())
}

func TestKafkaBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKER", "k1:9092,k2:9092")
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, KafkaBrokers())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	assert.NoError(t, os.WriteFile(path, []byte("ZESTRO_FROM_FILE=yes\n"), 0o600))
	t.Setenv("ZESTRO_FROM_FILE", "")
	os.Unsetenv("ZESTRO_FROM_FILE")

	Load(path)
	assert.Equal(t, "yes", os.Getenv("ZESTRO_FROM_FILE"))

	// a missing file is not fatal
	Load(filepath.Join(t.TempDir(), "absent.env"))
}
