package security

import (
	"fmt"
	"path"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Call is one simple command found in a script.
type Call struct {
	Args []string
	// Dynamic is set when a word depends on an expansion and Args only holds
	// its literal parts.
	Dynamic bool
}

// Redirect is one redirection found in a script.
type Redirect struct {
	Op     string
	Target string
	Write  bool
}

// Script is the parsed shape of a command line.
type Script struct {
	Calls     []Call
	Redirects []Redirect
	// ShellFeatures lists the constructs that need a shell to interpret.
	ShellFeatures []string
}

// NeedsShell reports whether the script uses pipes, redirects, lists or
// other constructs that a direct exec cannot express.
func (s *Script) NeedsShell() bool {
	return len(s.ShellFeatures) > 0
}

func (s *Script) addFeature(f string) {
	for _, have := range s.ShellFeatures {
		if have == f {
			return
		}
	}
	s.ShellFeatures = append(s.ShellFeatures, f)
}

// maxNesting bounds how deep sh -c and eval arguments are parsed.
const maxNesting = 3

// Tokenize parses a command line with a bash-compatible parser. It fails on
// unbalanced quotes and other syntax errors. Scripts passed to sh -c or eval
// are parsed too and their commands appended to Calls.
func Tokenize(command string) (*Script, error) {
	return tokenize(command, 0)
}

func tokenize(command string, depth int) (*Script, error) {
	file, err := syntax.NewParser(syntax.Variant(syntax.LangBash)).Parse(strings.NewReader(command), "")
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}

	s := &Script{}
	if len(file.Stmts) > 1 {
		s.addFeature("command list")
	}

	syntax.Walk(file, func(node syntax.Node) bool {
		switch n := node.(type) {
		case *syntax.Stmt:
			if n.Background {
				s.addFeature("background job")
			}
			if n.Negated {
				s.addFeature("negation")
			}
			switch n.Cmd.(type) {
			case nil, *syntax.CallExpr, *syntax.BinaryCmd:
			default:
				s.addFeature("compound command")
			}
		case *syntax.CallExpr:
			if len(n.Assigns) > 0 {
				s.addFeature("assignment")
			}
			if len(n.Args) == 0 {
				break
			}
			call := Call{Args: make([]string, 0, len(n.Args))}
			dynamic := make([]bool, 0, len(n.Args))
			for _, w := range n.Args {
				lit, static := wordLiteral(w)
				call.Args = append(call.Args, lit)
				dynamic = append(dynamic, !static)
				if !static {
					call.Dynamic = true
				}
			}
			s.Calls = append(s.Calls, call)
			if i := call.nameIndex(); i >= 0 && dynamic[i] {
				s.addFeature("dynamic command name")
			}
			if inner, ok := call.NestedScript(); ok {
				s.addFeature("nested shell")
				s.nest(inner, depth)
			}
		case *syntax.BinaryCmd:
			s.addFeature(n.Op.String())
		case *syntax.Redirect:
			r := Redirect{Op: n.Op.String(), Write: isWriteRedirect(n.Op)}
			if n.Word != nil {
				r.Target, _ = wordLiteral(n.Word)
			}
			s.Redirects = append(s.Redirects, r)
			s.addFeature(r.Op)
		case *syntax.CmdSubst:
			s.addFeature("command substitution")
		case *syntax.ProcSubst:
			s.addFeature("process substitution")
		}
		return true
	})
	return s, nil
}

// nest merges the parsed form of a script run by sh -c or eval.
func (s *Script) nest(command string, depth int) {
	if depth >= maxNesting {
		s.addFeature("deeply nested shell")
		return
	}
	inner, err := tokenize(command, depth+1)
	if err != nil {
		s.addFeature("unparsed nested shell")
		return
	}
	s.Calls = append(s.Calls, inner.Calls...)
	s.Redirects = append(s.Redirects, inner.Redirects...)
	for _, f := range inner.ShellFeatures {
		s.addFeature(f)
	}
}

func isWriteRedirect(op syntax.RedirOperator) bool {
	switch op {
	case syntax.RdrOut, syntax.AppOut, syntax.RdrInOut, syntax.ClbOut, syntax.RdrAll, syntax.AppAll:
		return true
	}
	return false
}

// wordLiteral returns a word as the shell would see it after quote removal.
// The second result is false when the word contains an expansion or ANSI-C
// quoting.
func wordLiteral(w *syntax.Word) (string, bool) {
	var sb strings.Builder
	static := true
	for _, part := range w.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(unescapeUnquoted(p.Value))
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
			if p.Dollar {
				static = false
			}
		case *syntax.DblQuoted:
			for _, inner := range p.Parts {
				if lit, ok := inner.(*syntax.Lit); ok {
					sb.WriteString(unescapeDoubleQuoted(lit.Value))
				} else {
					static = false
				}
			}
		default:
			static = false
		}
	}
	return sb.String(), static
}

// unescapeUnquoted drops the backslash in front of any character and removes
// line continuations.
func unescapeUnquoted(v string) string {
	if !strings.Contains(v, `\`) {
		return v
	}
	var sb strings.Builder
	for i := 0; i < len(v); i++ {
		if v[i] == '\\' && i+1 < len(v) {
			i++
			if v[i] != '\n' {
				sb.WriteByte(v[i])
			}
			continue
		}
		sb.WriteByte(v[i])
	}
	return sb.String()
}

// unescapeDoubleQuoted applies the escapes that are special inside double
// quotes; any other backslash is kept.
func unescapeDoubleQuoted(v string) string {
	if !strings.Contains(v, `\`) {
		return v
	}
	var sb strings.Builder
	for i := 0; i < len(v); i++ {
		if v[i] == '\\' && i+1 < len(v) {
			switch v[i+1] {
			case '$', '`', '"', '\\':
				i++
				sb.WriteByte(v[i])
				continue
			case '\n':
				i++
				continue
			}
		}
		sb.WriteByte(v[i])
	}
	return sb.String()
}

type wrapper struct {
	// valued flags consume the following word.
	valued map[string]bool
	// positional arguments to skip before the wrapped command.
	positional int
	// assignments skips NAME=value words, as env does.
	assignments bool
}

func flags(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// wrappers run their argument list as a command.
var wrappers = map[string]wrapper{
	"sudo":    {valued: flags("-u", "-g", "-C", "-p", "-r", "-t", "-U", "-D", "-h")},
	"doas":    {valued: flags("-u", "-C")},
	"nohup":   {},
	"nice":    {valued: flags("-n")},
	"time":    {},
	"command": {},
	"exec":    {valued: flags("-a")},
	"env":     {valued: flags("-u", "-C", "-S"), assignments: true},
	"xargs":   {valued: flags("-n", "-I", "-L", "-P", "-d", "-s", "-E", "-a")},
	"timeout": {valued: flags("-s", "-k"), positional: 1},
	"stdbuf":  {valued: flags("-i", "-o", "-e")},
}

// Resolve returns the effective command name of a call, looking through
// sudo and similar wrappers, together with its arguments. The name is a
// lowercase basename.
func (c Call) Resolve() (string, []string) {
	args := c.Args
	i := 0
	for i < len(args) {
		name := commandName(args[i])
		w, ok := wrappers[name]
		if !ok || i+1 >= len(args) {
			break
		}
		j := i + 1
		for j < len(args) && strings.HasPrefix(args[j], "-") && args[j] != "-" {
			if args[j] == "--" {
				j++
				break
			}
			if w.valued[args[j]] {
				j++
			}
			j++
		}
		if w.assignments {
			for j < len(args) && strings.Contains(args[j], "=") {
				j++
			}
		}
		j += w.positional
		if j >= len(args) {
			// Only options: the wrapper itself is the command.
			break
		}
		i = j
	}
	if i >= len(args) {
		return "", nil
	}
	return commandName(args[i]), args[i+1:]
}

// nameIndex is the position of the resolved command name in Args, or -1.
func (c Call) nameIndex() int {
	name, rest := c.Resolve()
	if name == "" {
		return -1
	}
	return len(c.Args) - len(rest) - 1
}

// shellInterpreters run the script given with -c.
var shellInterpreters = map[string]bool{
	"sh": true, "bash": true, "zsh": true, "dash": true, "ksh": true, "ash": true,
}

// NestedScript returns the script a call hands to another shell: the -c
// operand of sh and friends, or the joined arguments of eval.
func (c Call) NestedScript() (string, bool) {
	name, args := c.Resolve()
	if name == "eval" {
		if len(args) == 0 {
			return "", false
		}
		return strings.Join(args, " "), true
	}
	if !shellInterpreters[name] {
		return "", false
	}
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "-o" || a == "+o":
			i++
		case strings.HasPrefix(a, "-") && !strings.HasPrefix(a, "--") && strings.ContainsRune(a[1:], 'c'):
			if i+1 < len(args) {
				return args[i+1], true
			}
			return "", false
		case strings.HasPrefix(a, "-") && a != "--" || strings.HasPrefix(a, "+"):
		default:
			return "", false
		}
	}
	return "", false
}

func commandName(word string) string {
	return strings.ToLower(path.Base(word))
}
