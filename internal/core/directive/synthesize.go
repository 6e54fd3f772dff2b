package directive

import (
	"fmt"
	"regexp"
	"strings"
)

// File operations understood by the synthesizer.
const (
	OpCreate = "create"
	OpRead   = "read"
	OpWrite  = "write"
	OpAppend = "append"
	OpDelete = "delete"
	OpSearch = "search"
	OpList   = "list"
)

// FileOperation is a declared file action that still needs a command line.
type FileOperation struct {
	Op        string  `json:"op"`
	Filename  string  `json:"filename,omitempty"`
	Content   *string `json:"content,omitempty"`
	Directory string  `json:"directory,omitempty"`
	Pattern   string  `json:"pattern,omitempty"`
	Recursive bool    `json:"recursive,omitempty"`
	Force     bool    `json:"force,omitempty"`
}

// IsFileOp reports whether op names a synthesizable file operation.
func IsFileOp(op string) bool {
	switch strings.ToLower(op) {
	case OpCreate, OpRead, OpWrite, OpAppend, OpDelete, OpSearch, OpList:
		return true
	}
	return false
}

// FileOperationFromParams maps loosely typed parameters onto a FileOperation.
// Both "pattern" and "search_term" name the search term; "directory" and
// "path" the directory.
func FileOperationFromParams(op string, params map[string]any) *FileOperation {
	f := &FileOperation{Op: strings.ToLower(strings.TrimSpace(op))}
	f.Filename = stringParam(params, "filename", "file", "file_path")
	f.Directory = stringParam(params, "directory", "path", "dir")
	f.Pattern = stringParam(params, "pattern", "search_term", "name")
	if v, ok := params["content"]; ok && v != nil {
		s := fmt.Sprint(v)
		f.Content = &s
	}
	f.Recursive = boolParam(params, "recursive")
	f.Force = boolParam(params, "force")
	return f
}

// Synthesize converts a file operation and its parameters into a command.
// It returns false when a required parameter is missing or op is unknown.
func Synthesize(op string, params map[string]any) (string, bool) {
	return FileOperationFromParams(op, params).Command()
}

// Command renders the canonical shell command for the operation. Content is
// written with echo, so content that echo takes as an option, such as -n,
// does not reach the file.
func (f *FileOperation) Command() (string, bool) {
	content := ""
	if f.Content != nil {
		content = *f.Content
	}

	switch f.Op {
	case OpCreate:
		if f.Filename == "" {
			return "", false
		}
		if f.Content != nil {
			return fmt.Sprintf("echo %s > %s", ShellQuote(content), QuoteArg(f.Filename)), true
		}
		return "touch " + QuoteArg(f.Filename), true
	case OpRead:
		if f.Filename == "" {
			return "", false
		}
		return "cat " + QuoteArg(f.Filename), true
	case OpWrite:
		if f.Filename == "" {
			return "", false
		}
		return fmt.Sprintf("echo %s > %s", ShellQuote(content), QuoteArg(f.Filename)), true
	case OpAppend:
		if f.Filename == "" {
			return "", false
		}
		return fmt.Sprintf("echo %s >> %s", ShellQuote(content), QuoteArg(f.Filename)), true
	case OpDelete:
		if f.Filename == "" {
			return "", false
		}
		if f.Recursive && f.Force {
			return "rm -rf " + QuoteArg(f.Filename), true
		}
		return "rm " + QuoteArg(f.Filename), true
	case OpSearch:
		term := f.Pattern
		if term == "" {
			term = f.Filename
		}
		if term == "" {
			return "", false
		}
		return fmt.Sprintf("find %s -name %s", QuoteArg(orDot(f.Directory)), ShellQuote("*"+term+"*")), true
	case OpList:
		return "ls -la " + QuoteArg(orDot(f.Directory)), true
	}
	return "", false
}

// ShellQuote wraps s in single quotes. Embedded single quotes close the
// quoted span, emit an escaped quote and reopen it: ' becomes '\''.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

var bareArg = regexp.MustCompile(`^[A-Za-z0-9_./~+:@%,=-]+$`)

// QuoteArg leaves plain file names untouched and single-quotes anything a
// shell would split or expand.
func QuoteArg(s string) string {
	if bareArg.MatchString(s) {
		return s
	}
	return ShellQuote(s)
}

func orDot(dir string) string {
	if strings.TrimSpace(dir) == "" {
		return "."
	}
	return dir
}

func stringParam(params map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := params[k]
		if !ok || v == nil {
			continue
		}
		if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
			return s
		}
	}
	return ""
}

// boolParam is true only for an explicit true value.
func boolParam(params map[string]any, key string) bool {
	switch v := params[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}
