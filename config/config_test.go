package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBaseConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "4000"},
		JWT:    JWTConfig{Secret: "secret", ExpireHours: 8},
		Upload: UploadConfig{Dir: "uploads", MaxSizeMB: 5},
	}
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	assert.NoError(t, validBaseConfig().Validate())
}

func TestConfig_Validate_MissingSecret(t *testing.T) {
	cfg := validBaseConfig()
	cfg.JWT.Secret = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestConfig_Validate_CollectsAllProblems(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Upload.MaxSizeMB = 0
	cfg.JWT.ExpireHours = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UPLOAD_MAX_MB")
	assert.Contains(t, err.Error(), "JWT_EXPIRE_HOURS")
}

func TestConfig_Validate_PublicBaseURLScheme(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Server.PublicBaseURL = "cdn.example.com"
	assert.Error(t, cfg.Validate())

	cfg.Server.PublicBaseURL = "https://cdn.example.com"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_EXPIRE_HOURS", "12")
	t.Setenv("PUBLIC_BASE_URL", "https://api.example.com/")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("AWS_S3_MEDIA_BUCKET", "event-media")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 12, cfg.JWT.ExpireHours)
	assert.Equal(t, "https://api.example.com", cfg.Server.PublicBaseURL)
	assert.True(t, cfg.AWS.MirrorEnabled())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{User: "u", Password: "p", Host: "db", Port: "5432", DBName: "events", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/events?sslmode=disable", c.DSN())

	c.URL = "postgres://override"
	assert.Equal(t, "postgres://override", c.DSN())
}

func TestServerConfig_AllowedOrigins(t *testing.T) {
	c := ServerConfig{CORSAllowedOrigins: " http://a.test , ,http://b.test"}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, c.AllowedOrigins())
}

func TestUploadConfig_MaxSizeBytes(t *testing.T) {
	assert.Equal(t, int64(5*1024*1024), UploadConfig{MaxSizeMB: 5}.MaxSizeBytes())
}
