package constants

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	for _, k := range []string{"ABCDEX_OUT_DIR", "ABCDEX_LOG_LEVEL", "ABCDEX_ADDR", "ABCDEX_STRICT", "ABCDEX_CORS_ORIGINS"} {
		t.Setenv(k, "")
	}
	assert := assert.New(t)
	assert.Equal("./out", GetOutDir())
	assert.Equal("info", GetLogLevel())
	assert.Equal(":8080", GetAddr())
	assert.False(GetStrict())
	assert.Equal([]string{"*"}, GetCORSOrigins())
}

func TestOverrides(t *testing.T) {
	t.Setenv("ABCDEX_STRICT", "true")
	t.Setenv("ABCDEX_CORS_ORIGINS", "http://a.test, http://b.test,")
	assert.True(t, GetStrict())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, GetCORSOrigins())

	t.Setenv("ABCDEX_STRICT", "nope")
	assert.False(t, GetStrict())
}

func TestLoadEnv(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	assert.NoError(LoadEnv(filepath.Join(dir, "missing.env")))

	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("ABCDEX_ADDR=:9999\n"), 0o644))
	t.Setenv("ABCDEX_ADDR", "")
	require.NoError(t, os.Unsetenv("ABCDEX_ADDR"))
	require.NoError(t, LoadEnv(path))
	assert.Equal(":9999", GetAddr())
}
