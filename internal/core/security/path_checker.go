package security

import (
	"os"
	"path/filepath"
	"strings"
)

// PathAccessChecker applies the restricted and read-only path lists.
type PathAccessChecker struct {
	restricted []string
	readonly   []string
}

// NewPathAccessChecker creates a new path checker.
func NewPathAccessChecker(policy *SecurityPolicy) *PathAccessChecker {
	return &PathAccessChecker{
		restricted: policy.RestrictedPaths,
		readonly:   policy.ReadOnlyPaths,
	}
}

// IsRestricted checks if a path is restricted.
func (pc *PathAccessChecker) IsRestricted(checkPath string) bool {
	return pc.under(checkPath, pc.restricted)
}

// IsReadOnly checks if a path is read-only for a write operation.
func (pc *PathAccessChecker) IsReadOnly(checkPath string, write bool) bool {
	if !write {
		return false
	}
	return pc.under(checkPath, pc.readonly)
}

func (pc *PathAccessChecker) under(checkPath string, roots []string) bool {
	if len(roots) == 0 {
		return false
	}
	canonical, err := canonicalizePath(checkPath)
	if err != nil {
		return false
	}
	for _, root := range roots {
		canonicalRoot, err := canonicalizePath(root)
		if err != nil {
			continue
		}
		if canonical == canonicalRoot || strings.HasPrefix(canonical, canonicalRoot+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// ExtractPaths returns the path-like words of a script: arguments that contain
// a separator or start with "~", and every redirect target.
func (pc *PathAccessChecker) ExtractPaths(s *Script) []string {
	var paths []string
	for _, call := range s.Calls {
		for _, arg := range call.Args {
			if strings.HasPrefix(arg, "-") {
				continue
			}
			if strings.Contains(arg, "/") || strings.HasPrefix(arg, "~") {
				paths = append(paths, arg)
			}
		}
	}
	for _, r := range s.Redirects {
		if r.Target != "" {
			paths = append(paths, r.Target)
		}
	}
	return paths
}

// writeCommands modify the paths they are given.
var writeCommands = map[string]bool{
	"rm": true, "rmdir": true, "mv": true, "cp": true, "touch": true,
	"mkdir": true, "chmod": true, "chown": true, "chgrp": true, "tee": true,
	"ln": true, "install": true, "rsync": true, "truncate": true, "dd": true,
	"shred": true, "unlink": true,
}

// IsWrite reports whether the script writes: an output redirect, or a
// command that modifies its operands.
func IsWrite(s *Script) bool {
	for _, r := range s.Redirects {
		if r.Write {
			return true
		}
	}
	for _, call := range s.Calls {
		name, args := call.Resolve()
		if writeCommands[name] {
			return true
		}
		if name == "sed" {
			for _, a := range args {
				if strings.HasPrefix(a, "-i") || a == "--in-place" {
					return true
				}
			}
		}
	}
	return false
}

// canonicalizePath expands "~", makes the path absolute and resolves
// symlinks on the longest existing prefix.
func canonicalizePath(p string) (string, error) {
	expanded := p
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		expanded = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", err
	}
	return resolveExisting(abs), nil
}

func resolveExisting(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	parent := filepath.Dir(p)
	if parent == p {
		return p
	}
	return filepath.Join(resolveExisting(parent), filepath.Base(p))
}
