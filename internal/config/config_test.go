package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// clearEnv resets every env var Load reads so each test starts from a known
// baseline regardless of what the host process happens to have set.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATA_DIR", "DATABASE_URL", "VECTOR_URL", "EMBED_API_KEY", "EMBED_MODEL",
		"EMBED_DIM", "MIRA_BATCH_MAX", "MIRA_BATCH_WINDOW_MS", "MIRA_CACHE_BYTES",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultsReturnsBuiltInValues(t *testing.T) {
	d := Defaults()
	require.Equal(t, "none", d.EmbedProvider)
	require.Equal(t, 1536, d.EmbedDim)
	require.Equal(t, 32, d.BatchMax)
	require.Equal(t, int64(64*1024*1024), d.CacheBytes)
	require.Equal(t, 16, d.MaxConcurrentTools)
}

func TestLoadDefaultsDatabaseURLUnderDataDir(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cfg.DataDir, "mira.db"), cfg.DatabaseURL)
}

func TestLoadEnvOverridesTakePrecedence(t *testing.T) {
	clearEnv(t)
	dataDir := t.TempDir()
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("DATABASE_URL", "postgres://example/db")
	t.Setenv("VECTOR_URL", "http://vector.example")
	t.Setenv("EMBED_API_KEY", "sk-test")
	t.Setenv("EMBED_MODEL", "text-embedding-3-large")
	t.Setenv("EMBED_DIM", "99")
	t.Setenv("MIRA_BATCH_MAX", "7")
	t.Setenv("MIRA_BATCH_WINDOW_MS", "250")
	t.Setenv("MIRA_CACHE_BYTES", "123456")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "postgres://example/db", cfg.DatabaseURL)
	require.Equal(t, "http://vector.example", cfg.VectorURL)
	require.Equal(t, "sk-test", cfg.EmbedAPIKey)
	require.Equal(t, "text-embedding-3-large", cfg.EmbedModel)
	require.Equal(t, 99, cfg.EmbedDim)
	require.Equal(t, 7, cfg.BatchMax)
	require.Equal(t, 250, cfg.BatchWindowMS)
	require.Equal(t, int64(123456), cfg.CacheBytes)
}

func TestLoadSettingAPIKeySwitchesProviderFromNone(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("EMBED_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "openai", cfg.EmbedProvider)
}

func TestLoadInfersDimFromKnownModelWhenDimUnset(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("EMBED_MODEL", "text-embedding-3-large")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 3072, cfg.EmbedDim)
}

func TestLoadUnknownModelFallsBackToDefaultDim(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("EMBED_MODEL", "some-custom-model")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 1536, cfg.EmbedDim)
}

func TestLoadMergesTomlFileButEnvStillWins(t *testing.T) {
	clearEnv(t)
	dataDir := t.TempDir()
	t.Setenv("DATA_DIR", dataDir)

	tomlContent := "database_url = \"sqlite:///from-toml.db\"\nembed_model = \"from-toml-model\"\nbatch_max = 5\n"
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "mira.toml"), []byte(tomlContent), 0o644))
	t.Setenv("EMBED_MODEL", "env-wins-model")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "sqlite:///from-toml.db", cfg.DatabaseURL, "toml value applies when no env override exists")
	require.Equal(t, "env-wins-model", cfg.EmbedModel, "env override takes precedence over the toml file")
	require.Equal(t, 5, cfg.BatchMax, "toml-only fields still merge in")
}

func TestCacheDirJoinsDataDir(t *testing.T) {
	cfg := &Config{DataDir: "/var/mira"}
	require.Equal(t, filepath.Join("/var/mira", "cache"), cfg.CacheDir())
}
