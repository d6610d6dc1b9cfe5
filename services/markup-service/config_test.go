package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets struct {
	values map[string]map[string]string
}

func (f *fakeSecrets) GetSecretJSON(ctx context.Context, name string) (map[string]string, error) {
	if v, ok := f.values[name]; ok {
		return v, nil
	}
	return nil, errors.New("ResourceNotFoundException")
}

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DATASET_SOURCE", "SESSION_STORE", "SESSION_TTL", "REQUIRE_CATEGORY"} {
		t.Setenv(k, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8095", cfg.Port)
	assert.Equal(t, SourceFile, cfg.DatasetSource)
	assert.Equal(t, StoreMemory, cfg.SessionStore)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.RequireCategory)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("REQUIRE_CATEGORY", "true")
	t.Setenv("SESSION_STORE", "Redis")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.True(t, cfg.RequireCategory)
	assert.Equal(t, StoreRedis, cfg.SessionStore)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	t.Setenv("SESSION_TTL", "forever")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("REQUIRE_CATEGORY", "maybe")
	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{DatasetSource: SourceS3, SessionStore: StoreMemory}
	assert.Error(t, cfg.Validate())

	cfg.DatasetBucket = "datasets"
	assert.NoError(t, cfg.Validate())

	cfg.DatasetSource = SourcePostgres
	assert.Error(t, cfg.Validate())

	cfg.DatasetSource = "ftp"
	assert.Error(t, cfg.Validate())

	cfg.DatasetSource = SourceS3
	cfg.SessionStore = "etcd"
	assert.Error(t, cfg.Validate())
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{RedisURL: "redis://localhost:6379/0"}
	cfg.Postgres.User = "env-user"

	cfg.applySecrets(context.Background(), &fakeSecrets{values: map[string]map[string]string{
		"markup/REDIS":          {"REDIS_URL": "redis://cache:6379/1"},
		"markup/DB_CREDENTIALS": {"POSTGRES_PASSWORD": "s3cret", "POSTGRES_USER": ""},
	}})

	assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
	assert.Equal(t, "env-user", cfg.Postgres.User)
	assert.Equal(t, "s3cret", cfg.Postgres.Password)
}

func TestApplySecrets_RDSLayout(t *testing.T) {
	cfg := &Config{}
	cfg.applySecrets(context.Background(), &fakeSecrets{values: map[string]map[string]string{
		"markup/DB_CREDENTIALS": {"username": "rds", "password": "pw", "host": "db.internal", "port": "5433", "dbname": "markup"},
	}})

	assert.Equal(t, "rds", cfg.Postgres.User)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, "5433", cfg.Postgres.Port)
	assert.Equal(t, "markup", cfg.Postgres.DB)
}

func TestApplySecrets_MissingSecretsKeepEnv(t *testing.T) {
	cfg := &Config{RedisURL: "redis://localhost:6379/0"}
	cfg.applySecrets(context.Background(), &fakeSecrets{})
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}
