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
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileLoader_Load(t *testing.T) {
	t.Setenv(APIKeyVar, "")
	path := writeEnv(t, `# Comment
SALAMOONDER_API_KEY=key-from-file
BAZ="quoted value"
export EXPORTED=yes
EMPTY=
SINGLE_QUOTE='single'
`)

	l := NewLoader()
	require.NoError(t, l.Load(path))
	assert.Equal(t, []string{path}, l.Files())
	assert.Equal(t, "key-from-file", l.Get(APIKeyVar))
	assert.Equal(t, "quoted value", l.Get("BAZ"))
	assert.Equal(t, "yes", l.Get("EXPORTED"))
	assert.Equal(t, "", l.Get("EMPTY"))
	assert.Equal(t, "single", l.Get("SINGLE_QUOTE"))
}

func TestFileLoader_FirstFileWins(t *testing.T) {
	t.Setenv(BaseURLVar, "")
	first := writeEnv(t, "SALAMOONDER_BASE_URL=http://first\n")
	second := writeEnv(t, "SALAMOONDER_BASE_URL=http://second\nSALAMOONDER_CLIENT_ID=cid\n")

	l := NewLoader()
	require.NoError(t, l.Load(first, second))
	assert.Equal(t, "http://first", l.Get(BaseURLVar))
	assert.Equal(t, "cid", l.Get(ClientIDVar))
	assert.Len(t, l.Files(), 2)
}

func TestFileLoader_Load_FileNotFound(t *testing.T) {
	l := NewLoader()
	err := l.Load("/nonexistent/.env")
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "/nonexistent/.env")
	assert.Empty(t, l.Files())
}

func TestFileLoader_OSWins(t *testing.T) {
	l := NewLoader()
	l.Set("SALAMOONDER_TEST_KEY", "from_file")
	t.Setenv("SALAMOONDER_TEST_KEY", "")
	assert.Equal(t, "from_file", l.Get("SALAMOONDER_TEST_KEY"))

	t.Setenv("SALAMOONDER_TEST_KEY", "from_os")
	assert.Equal(t, "from_os", l.Get("SALAMOONDER_TEST_KEY"))
	assert.Equal(t, "", l.Get("SALAMOONDER_NONEXISTENT"))
}

func TestFileLoader_GetAPIKey(t *testing.T) {
	t.Setenv(APIKeyVar, "")
	t.Setenv("OTHER_API_KEY", "")
	l := NewLoader()
	l.Set(APIKeyVar, "sm-test123")
	l.Set("OTHER_API_KEY", "o-789")

	assert.Equal(t, "sm-test123", l.GetAPIKey("salamoonder"))
	assert.Equal(t, "sm-test123", l.GetAPIKey("Salamoonder"))
	assert.Equal(t, "o-789", l.GetAPIKey("other"))
	assert.Equal(t, "", l.GetAPIKey("unknown"))
}

func TestFileLoader_Settings(t *testing.T) {
	t.Setenv(APIKeyVar, "sm-live-key-123456")
	t.Setenv(MaxRetriesVar, "")
	l := NewLoader()
	l.Set(MaxRetriesVar, "7")
	l.Set("UNRELATED", "x")

	settings := l.Settings()
	assert.Contains(t, settings, Setting{Name: APIKeyVar, Value: "sm-l**********3456"})
	assert.Contains(t, settings, Setting{Name: MaxRetriesVar, Value: "7"})
	for i := 1; i < len(settings); i++ {
		assert.Less(t, settings[i-1].Name, settings[i].Name)
	}
	for _, s := range settings {
		assert.NotEqual(t, "UNRELATED", s.Name)
	}
}
