package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	s, err := Tokenize(`grep -n "hello world" 'a b.txt' | wc -l > count.txt`)
	require.NoError(t, err)

	require.Len(t, s.Calls, 2)
	assert.Equal(t, []string{"grep", "-n", "hello world", "a b.txt"}, s.Calls[0].Args)
	assert.Equal(t, []string{"wc", "-l"}, s.Calls[1].Args)
	require.Len(t, s.Redirects, 1)
	assert.Equal(t, Redirect{Op: ">", Target: "count.txt", Write: true}, s.Redirects[0])
	assert.True(t, s.NeedsShell())
	assert.Contains(t, s.ShellFeatures, "|")
}

func TestTokenize_Plain(t *testing.T) {
	s, err := Tokenize("ls -la /tmp")
	require.NoError(t, err)
	assert.False(t, s.NeedsShell())
	assert.Empty(t, s.Redirects)
	require.Len(t, s.Calls, 1)
	assert.False(t, s.Calls[0].Dynamic)
}

func TestTokenize_Features(t *testing.T) {
	tests := []struct {
		cmd     string
		feature string
	}{
		{"a && b", "&&"},
		{"a || b", "||"},
		{"a; b", "command list"},
		{"sleep 10 &", "background job"},
		{"echo $(date)", "command substitution"},
		{"diff <(ls a) <(ls b)", "process substitution"},
		{"for f in *; do echo $f; done", "compound command"},
		{"FOO=bar env", "assignment"},
		{"sort < in.txt", "<"},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			s, err := Tokenize(tt.cmd)
			require.NoError(t, err)
			assert.Contains(t, s.ShellFeatures, tt.feature)
		})
	}
}

func TestTokenize_Errors(t *testing.T) {
	for _, cmd := range []string{`echo 'open`, `echo "open`, `echo )`, `if true; then`} {
		_, err := Tokenize(cmd)
		assert.Error(t, err, cmd)
	}
}

func TestTokenize_DynamicWords(t *testing.T) {
	s, err := Tokenize(`echo "$HOME/x" plain`)
	require.NoError(t, err)
	require.Len(t, s.Calls, 1)
	assert.True(t, s.Calls[0].Dynamic)
	assert.Equal(t, []string{"echo", "/x", "plain"}, s.Calls[0].Args)
}

func TestTokenize_QuoteRemoval(t *testing.T) {
	tests := []struct {
		cmd  string
		args []string
	}{
		{`\rm -rf /`, []string{"rm", "-rf", "/"}},
		{`r\m x`, []string{"rm", "x"}},
		{`echo a\ b`, []string{"echo", "a b"}},
		{`echo "say \"hi\"" "c:\dir"`, []string{"echo", `say "hi"`, `c:\dir`}},
		{`echo 'back\slash'`, []string{"echo", `back\slash`}},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			s, err := Tokenize(tt.cmd)
			require.NoError(t, err)
			require.Len(t, s.Calls, 1)
			assert.Equal(t, tt.args, s.Calls[0].Args)
			assert.False(t, s.Calls[0].Dynamic)
		})
	}
}

func TestTokenize_NestedShell(t *testing.T) {
	s, err := Tokenize(`bash -c "ls | rm -rf /tmp/x"`)
	require.NoError(t, err)
	require.Len(t, s.Calls, 3)
	assert.Equal(t, []string{"ls"}, s.Calls[1].Args)
	assert.Equal(t, []string{"rm", "-rf", "/tmp/x"}, s.Calls[2].Args)
	assert.Contains(t, s.ShellFeatures, "nested shell")
	assert.Contains(t, s.ShellFeatures, "|")

	s, err = Tokenize(`eval "echo hi > out.txt"`)
	require.NoError(t, err)
	require.Len(t, s.Calls, 2)
	require.Len(t, s.Redirects, 1)
	assert.Equal(t, "out.txt", s.Redirects[0].Target)

	s, err = Tokenize(`sh -c 'echo "open'`)
	require.NoError(t, err)
	assert.Contains(t, s.ShellFeatures, "unparsed nested shell")

	s, err = Tokenize(`bash script.sh -c`)
	require.NoError(t, err)
	assert.Len(t, s.Calls, 1)
	assert.NotContains(t, s.ShellFeatures, "nested shell")
}

func TestTokenize_NestingIsBounded(t *testing.T) {
	cmd := "ls"
	for i := 0; i < maxNesting+2; i++ {
		cmd = "sh -c " + shellQuote(cmd)
	}
	s, err := Tokenize(cmd)
	require.NoError(t, err)
	assert.Contains(t, s.ShellFeatures, "deeply nested shell")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func TestTokenize_DynamicCommandName(t *testing.T) {
	s, err := Tokenize(`$EDITOR notes.txt`)
	require.NoError(t, err)
	assert.Contains(t, s.ShellFeatures, "dynamic command name")

	s, err = Tokenize(`echo "$HOME"`)
	require.NoError(t, err)
	assert.NotContains(t, s.ShellFeatures, "dynamic command name")
}

func TestCall_Resolve(t *testing.T) {
	tests := []struct {
		args []string
		name string
		rest []string
	}{
		{[]string{"ls", "-la"}, "ls", []string{"-la"}},
		{[]string{"sudo", "rm", "-rf", "/"}, "rm", []string{"-rf", "/"}},
		{[]string{"sudo", "-u", "bob", "-E", "rm", "x"}, "rm", []string{"x"}},
		{[]string{"sudo", "--", "rm", "x"}, "rm", []string{"x"}},
		{[]string{"sudo"}, "sudo", []string{}},
		{[]string{"sudo", "-l"}, "sudo", []string{"-l"}},
		{[]string{"/usr/bin/sudo", "/sbin/reboot"}, "reboot", []string{}},
		{[]string{"env", "A=1", "B=2", "dd", "if=x"}, "dd", []string{"if=x"}},
		{[]string{"nice", "-n", "10", "tar", "cf", "a.tar", "."}, "tar", []string{"cf", "a.tar", "."}},
		{[]string{"timeout", "-s", "KILL", "5", "halt"}, "halt", []string{}},
		{[]string{"sudo", "nohup", "poweroff"}, "poweroff", []string{}},
		{[]string{"RM", "x"}, "rm", []string{"x"}},
	}
	for _, tt := range tests {
		name, rest := Call{Args: tt.args}.Resolve()
		assert.Equal(t, tt.name, name, tt.args)
		assert.Equal(t, tt.rest, rest, tt.args)
	}
}
