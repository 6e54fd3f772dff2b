package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lin-Jiong-HDU/nlsh/internal/platform"
)

var linux = platform.Info{OSName: "linux", Distro: "debian", OSVersion: "12", Arch: "amd64", Shell: "bash"}

func TestSystem_DescribesEveryShape(t *testing.T) {
	s := System(linux)

	for _, key := range []string{`"command"`, `"file_operation"`, `"operation_params"`, `"info_type"`, `"error"`, `"plan"`} {
		assert.Contains(t, s, key)
	}
	assert.Contains(t, s, "linux debian 12 amd64")
	assert.Contains(t, s, "bash compatible")
}

func TestSystem_NoShell(t *testing.T) {
	s := System(platform.Info{OSName: "darwin", Arch: "arm64"})
	assert.Contains(t, s, "POSIX sh on darwin")
	assert.NotContains(t, s, "compatible")
}

func TestParse(t *testing.T) {
	tmpl, err := Parse("---\nname: terse\ntitle: \"Terse\"\ndescription: short answers\n---\n\nOnly JSON for {{.OS}}.\n")
	require.NoError(t, err)
	assert.Equal(t, "terse", tmpl.Name)
	assert.Equal(t, "Terse", tmpl.Title)
	assert.Equal(t, "short answers", tmpl.Description)
	assert.Equal(t, "Only JSON for {{.OS}}.", tmpl.Body)

	tmpl, err = Parse("plain body")
	require.NoError(t, err)
	assert.Empty(t, tmpl.Name)
	assert.Equal(t, "plain body", tmpl.Body)

	_, err = Parse("---\nname: [unclosed\n---\nbody")
	assert.Error(t, err)
}

func TestLoader_System(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.md"),
		[]byte("---\nname: custom\n---\nYou run on {{.OS}} with {{.Shell}}."), 0o644))

	l := NewLoader(dir)

	s, err := l.System("custom", linux)
	require.NoError(t, err)
	assert.Equal(t, "You run on linux with bash.", s)

	s, err = l.System("missing", linux)
	require.NoError(t, err)
	assert.Equal(t, System(linux), s)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.md"), []byte("{{.Nope"), 0o644))
	_, err = l.System("broken", linux)
	assert.Error(t, err)
}
