package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ENV", "test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.ServerPort)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Zero(t, cfg.Auth.TokenTTL)
	assert.Equal(t, MediaBackendCloudinary, cfg.Media.Backend)
	assert.Equal(t, MQBackendNone, cfg.Events.Backend)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, ":8000", cfg.HTTPAddress())
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USE_SSL", "true")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("MEDIA_BACKEND", " MinIO ")
	t.Setenv("MINIO_BUCKET", "listings")
	t.Setenv("MQ_BACKEND", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.True(t, cfg.Database.UseSSL)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, MediaBackendMinio, cfg.Media.Backend)
	assert.Equal(t, "listings", cfg.Media.Minio.Bucket)
	assert.Equal(t, MQBackendKafka, cfg.Events.Backend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.Kafka.Brokers)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestConfigValidate(t *testing.T) {
	valid := Config{
		Auth:   AuthConfig{JWTSecret: "secret"},
		Media:  MediaConfig{Backend: MediaBackendCloudinary, Cloudinary: CloudinaryConfig{URL: "cloudinary://k:s@demo"}},
		Events: EventsConfig{Backend: MQBackendNone},
	}
	require.NoError(t, valid.Validate())

	missingSecret := valid
	missingSecret.Auth.JWTSecret = " "
	assert.ErrorContains(t, missingSecret.Validate(), "JWT_SECRET")

	objectStore := valid
	objectStore.Media = MediaConfig{Backend: MediaBackendS3}
	assert.ErrorContains(t, objectStore.Validate(), "MEDIA_PUBLIC_BASE_URL")

	badMQ := valid
	badMQ.Events.Backend = "carrier-pigeon"
	assert.ErrorContains(t, badMQ.Validate(), "MQ_BACKEND")
}
