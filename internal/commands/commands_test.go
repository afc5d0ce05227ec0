package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootRegistersSubcommands(t *testing.T) {
	var names []string
	for _, c := range RootCmd.Commands() {
		names = append(names, c.Name())
	}

	for _, want := range []string{"serve", "db-migrate", "migrate", "subscription"} {
		assert.Contains(t, names, want)
	}
}

func TestMigrateFlags(t *testing.T) {
	require.NoError(t, migrateCmd.ParseFlags([]string{"--api-key", "k", "--shop-url", "shop.example.com"}))
	assert.Equal(t, "k", migrateAPIKey)
	assert.Equal(t, "shop.example.com", migrateShopURL)
}

func TestLoadEnvSkipsMissingFile(t *testing.T) {
	prev := envFile
	defer func() { envFile = prev }()

	envFile = filepath.Join(t.TempDir(), "missing.env")
	assert.NoError(t, loadEnv())
}

func TestLoadEnvSetsVariables(t *testing.T) {
	prev := envFile
	defer func() { envFile = prev }()

	envFile = filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("CALSYNC_TEST_ENV_VALUE=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CALSYNC_TEST_ENV_VALUE") })

	require.NoError(t, loadEnv())
	assert.Equal(t, "from-file", os.Getenv("CALSYNC_TEST_ENV_VALUE"))
}
