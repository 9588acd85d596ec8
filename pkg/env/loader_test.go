package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnv(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestDefaultLoader_Load(t *testing.T) {
	envFile := writeEnv(t, `# Comment
FOO=bar
BAZ="quoted value"
EMPTY=
SINGLE_QUOTE='single'
export EXPORTED=yes
not a pair
`)

	l := NewLoader()
	require.NoError(t, l.Load(envFile))
	assert.Equal(t, map[string]string{
		"FOO":          "bar",
		"BAZ":          "quoted value",
		"EMPTY":        "",
		"SINGLE_QUOTE": "single",
		"EXPORTED":     "yes",
	}, l.vars)
}

func TestDefaultLoader_Load_FileNotFound(t *testing.T) {
	err := NewLoader().Load("/nonexistent/.env")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefaultLoader_OSEnvWins(t *testing.T) {
	l := NewLoader()
	l.vars["PROVISION_TEST_KEY"] = "from_file"
	v, _ := l.Lookup("PROVISION_TEST_KEY")
	assert.Equal(t, "from_file", v)

	t.Setenv("PROVISION_TEST_KEY", "from_env")
	v, _ = l.Lookup("PROVISION_TEST_KEY")
	assert.Equal(t, "from_env", v)
}

func TestDefaultLoader_Lookup(t *testing.T) {
	l := NewLoader()
	l.vars["PROVISION_EMPTY"] = ""

	v, ok := l.Lookup("PROVISION_EMPTY")
	assert.True(t, ok)
	assert.Empty(t, v)

	_, ok = l.Lookup("PROVISION_SURELY_MISSING_VAR")
	assert.False(t, ok)
}

func TestDefaultLoader_WithPrefix(t *testing.T) {
	l := NewLoader()
	l.environ = func() []string {
		return []string{
			"PROVISION_TOOLS_ROOT=/env/tools",
			"PROVISION_VALUE_OFFICE=14.0",
			"HOME=/home/u",
			"MALFORMED",
		}
	}
	l.vars["PROVISION_TOOLS_ROOT"] = "/file/tools"
	l.vars["PROVISION_CONF_DIR"] = "/file/conf"
	l.vars["OTHER"] = "x"

	assert.Equal(t, map[string]string{
		"TOOLS_ROOT":   "/env/tools",
		"CONF_DIR":     "/file/conf",
		"VALUE_OFFICE": "14.0",
	}, l.WithPrefix("PROVISION_"))
}

func TestDefaultLoader_SatisfiesLoader(t *testing.T) {
	var l Loader = NewLoader()
	_, ok := l.Lookup("PROVISION_SURELY_MISSING_VAR")
	assert.False(t, ok)
	assert.Empty(t, l.WithPrefix("PROVISION_SURELY_MISSING_PREFIX_"))
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"},
		SortedKeys(map[string]string{"c": "", "a": "", "b": ""}))
}
