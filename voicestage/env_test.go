package voicestage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEnvPath(t *testing.T) {
	t.Setenv("VOICESTAGE_ENV", "")

	assert.Equal(t, "custom.env", resolveEnvPath("custom.env", "conf"))
	assert.Equal(t, ".env", resolveEnvPath("", ""))
	assert.Equal(t, ".env", resolveEnvPath("", "."))
	assert.Equal(t, filepath.Join("conf", ".env"), resolveEnvPath("", "conf"))

	t.Setenv("VOICESTAGE_ENV", "/etc/voicestage.env")
	assert.Equal(t, "/etc/voicestage.env", resolveEnvPath("", "conf"))
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("VOICESTAGE_TEST_KEY=from_file\n"), 0644))
	t.Setenv("VOICESTAGE_TEST_KEY", "from_env")

	loadDotEnv(path)
	assert.Equal(t, "from_env", os.Getenv("VOICESTAGE_TEST_KEY"))
}

func TestEnsureEnvSeedsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", ".env")
	t.Setenv("VOICESTAGE_TEST_SEED", "")

	ensureEnv(path, map[string]string{"VOICESTAGE_TEST_SEED": "placeholder"})

	values, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "placeholder", values["VOICESTAGE_TEST_SEED"])
	assert.Equal(t, "placeholder", os.Getenv("VOICESTAGE_TEST_SEED"))
}

func TestEnsureEnvKeepsExistingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("VOICESTAGE_TEST_KEEP=mine\n"), 0644))
	t.Setenv("VOICESTAGE_TEST_KEEP", "")

	ensureEnv(path, map[string]string{"VOICESTAGE_TEST_KEEP": "placeholder"})

	values, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "mine", values["VOICESTAGE_TEST_KEEP"])
	assert.Equal(t, "mine", os.Getenv("VOICESTAGE_TEST_KEEP"))
}
