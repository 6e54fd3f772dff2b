package execution

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"mvdan.cc/sh/v3/shell"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core/security"
)

// waitDelay bounds how long Wait blocks on output pipes after a kill.
const waitDelay = 2 * time.Second

// Exit statuses POSIX shells use for commands they could not run.
const (
	shellExitNotExecutable = 126
	shellExitNotFound      = 127
)

// shellBuiltins only exist inside a shell and cannot be executed directly.
var shellBuiltins = map[string]bool{
	"cd": true, "export": true, "source": true, ".": true, "alias": true,
	"unalias": true, "unset": true, "set": true, "type": true, "history": true,
	"ulimit": true, "umask": true, "exit": true, "eval": true, "read": true,
	"wait": true, "jobs": true, "fg": true, "bg": true, "pushd": true,
	"popd": true, "dirs": true, "shopt": true, "hash": true, "builtin": true,
	"declare": true, "local": true, "trap": true,
}

// directArgv splits a command into an argument vector when it can run
// without a shell: no pipe, redirect or glob characters, and no other shell
// construct.
func directArgv(command string) ([]string, bool) {
	if strings.ContainsAny(command, "|><*") {
		return nil, false
	}
	script, err := security.Tokenize(command)
	if err != nil || script.NeedsShell() {
		return nil, false
	}
	argv, err := shell.Fields(command, os.Getenv)
	if err != nil || len(argv) == 0 {
		return nil, false
	}
	if shellBuiltins[argv[0]] {
		return nil, false
	}
	return argv, true
}

// spawn runs the command and classifies how it ended. The returned error is
// nil for a command that ran to completion, whatever its exit status.
func (c *Coordinator) spawn(ctx context.Context, command string) (*Result, error) {
	argv, direct := directArgv(command)
	if !direct {
		argv = c.policy.shellArgv(command)
	}

	ctx, cancel := context.WithTimeout(ctx, c.policy.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = c.policy.Dir
	configureCommandProcess(cmd)
	cmd.Cancel = func() error { return terminateCommandProcess(cmd) }
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		r := exitResult(code, stdout.String(), stderr.String())
		r.Succeeded = false
		r.Outcome = OutcomeTimeout
		r.Duration = elapsed
		r.Direct = direct
		msg := c.timeoutMessage()
		r.Notes = append(r.Notes, msg)
		return r, fmt.Errorf("%w: %s", ErrTimeout, msg)
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		r := exitResult(0, stdout.String(), stderr.String())
		r.Duration, r.Direct = elapsed, direct
		return r, nil

	case errors.As(err, &exitErr):
		r := exitResult(exitErr.ExitCode(), stdout.String(), stderr.String())
		r.Duration, r.Direct = elapsed, direct
		if !direct {
			switch exitErr.ExitCode() {
			case shellExitNotFound:
				r.Outcome = OutcomeNotFound
				return r, fmt.Errorf("%w: %s", ErrNotFound, firstLine(stderr.String()))
			case shellExitNotExecutable:
				r.Outcome = OutcomePermissionDenied
				return r, fmt.Errorf("%w: %s", ErrPermission, firstLine(stderr.String()))
			}
		}
		return r, nil

	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return notSpawned(OutcomeNotFound, err.Error()), fmt.Errorf("%w: %v", ErrNotFound, err)

	case errors.Is(err, fs.ErrPermission):
		return notSpawned(OutcomePermissionDenied, err.Error()), fmt.Errorf("%w: %v", ErrPermission, err)

	default:
		return notSpawned(OutcomeSpawnError, err.Error()), fmt.Errorf("%w: %v", ErrSpawn, err)
	}
}

func (c *Coordinator) timeoutMessage() string {
	if c.policy.FastMode {
		return fmt.Sprintf("timed out after %s", c.policy.Timeout)
	}
	return fmt.Sprintf("timed out after %s; long-running commands may need to run in the background (for example with nohup ... &) or with a larger --timeout", c.policy.Timeout)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
