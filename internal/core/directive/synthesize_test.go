package directive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mvdan.cc/sh/v3/shell"
)

func TestSynthesize(t *testing.T) {
	tests := []struct {
		name   string
		op     string
		params map[string]any
		want   string
		ok     bool
	}{
		{"create with content", OpCreate, map[string]any{"filename": "t.txt", "content": "hi 'there'"}, `echo 'hi '\''there'\''' > t.txt`, true},
		{"create empty", OpCreate, map[string]any{"filename": "notes.md"}, "touch notes.md", true},
		{"read", OpRead, map[string]any{"filename": "/tmp/a.log"}, "cat /tmp/a.log", true},
		{"write defaults to empty content", OpWrite, map[string]any{"filename": "out.txt"}, "echo '' > out.txt", true},
		{"append", OpAppend, map[string]any{"filename": "log.txt", "content": "line"}, "echo 'line' >> log.txt", true},
		{"delete", OpDelete, map[string]any{"filename": "old.txt"}, "rm old.txt", true},
		{"delete recursive only", OpDelete, map[string]any{"filename": "build", "recursive": true}, "rm build", true},
		{"delete recursive and force", OpDelete, map[string]any{"filename": "build", "recursive": true, "force": true}, "rm -rf build", true},
		{"delete force as string", OpDelete, map[string]any{"filename": "build", "recursive": "true", "force": "true"}, "rm -rf build", true},
		{"search default dir", OpSearch, map[string]any{"search_term": "report"}, "find . -name '*report*'", true},
		{"search in dir", OpSearch, map[string]any{"directory": "/var/log", "pattern": "sys"}, "find /var/log -name '*sys*'", true},
		{"list default", OpList, nil, "ls -la .", true},
		{"list dir", OpList, map[string]any{"directory": "/home"}, "ls -la /home", true},
		{"filename with space is quoted", OpRead, map[string]any{"filename": "my notes.txt"}, "cat 'my notes.txt'", true},
		{"create missing filename", OpCreate, map[string]any{"content": "x"}, "", false},
		{"read missing filename", OpRead, map[string]any{}, "", false},
		{"append missing filename", OpAppend, map[string]any{"content": "x"}, "", false},
		{"delete missing filename", OpDelete, map[string]any{}, "", false},
		{"search missing term", OpSearch, map[string]any{"directory": "/tmp"}, "", false},
		{"unknown op", "rename", map[string]any{"filename": "a"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Synthesize(tt.op, tt.params)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShellQuote_RoundTripsThroughShellWords(t *testing.T) {
	inputs := []string{
		"plain",
		"hi 'there'",
		"'",
		"''",
		"it's a \"test\"",
		"$HOME and `whoami` and $(id)",
		"semi; colon | pipe > redirect",
		"back\\slash",
		"new\nline",
		"trailing quote'",
		"'leading quote",
		"*glob?[chars]",
		"مرحبا 'بالعالم'",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			fields, err := shell.Fields(ShellQuote(in), func(string) string { return "" })
			require.NoError(t, err)
			require.Len(t, fields, 1)
			assert.Equal(t, in, fields[0])
		})
	}
}

func TestSynthesize_CreateContentSurvivesTokenizing(t *testing.T) {
	content := "don't 'break' me"
	cmd, ok := Synthesize(OpCreate, map[string]any{"filename": "f.txt", "content": content})
	require.True(t, ok)

	// Drop the redirect so the remaining words can be expanded as arguments.
	words, err := shell.Fields(cmd[:len(cmd)-len(" > f.txt")], func(string) string { return "" })
	require.NoError(t, err)
	require.Equal(t, []string{"echo", content}, words)
}

func TestSynthesize_OptionLikeContentStaysOneEchoWord(t *testing.T) {
	cmd, ok := Synthesize(OpCreate, map[string]any{"filename": "f.txt", "content": "-n"})
	require.True(t, ok)
	assert.Equal(t, "echo '-n' > f.txt", cmd)
}

func TestQuoteArg(t *testing.T) {
	assert.Equal(t, "t.txt", QuoteArg("t.txt"))
	assert.Equal(t, "~/docs/a-b_c.txt", QuoteArg("~/docs/a-b_c.txt"))
	assert.Equal(t, "'a b'", QuoteArg("a b"))
	assert.Equal(t, `'x;rm -rf /'`, QuoteArg("x;rm -rf /"))
}
