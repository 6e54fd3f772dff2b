package execution

import (
	"context"
	"runtime"
	"time"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core/security"
)

const (
	// DefaultTimeout bounds a single command.
	DefaultTimeout = 30 * time.Second
	// FastTimeout is the ceiling applied in fast mode.
	FastTimeout = 5 * time.Second
	// DefaultShell interprets commands that need a shell.
	DefaultShell = "/bin/sh"
)

// Gate is the kind of confirmation being asked for.
type Gate string

const (
	// GateAdmin asks for an explicit administrator acknowledgement.
	GateAdmin Gate = "admin"
	// GateDangerous is a yes/no prompt for a dangerous command.
	GateDangerous Gate = "dangerous"
	// GateSemi is a lighter yes/no prompt.
	GateSemi Gate = "semi"
	// GateWhitelist asks to run a command that is not allow-listed.
	GateWhitelist Gate = "whitelist"
)

// Request is passed to the confirmation callback.
type Request struct {
	Command    string
	Assessment security.Assessment
	Gate       Gate
}

// ConfirmFunc asks whether a command may run. Only (true, nil) lets it run.
type ConfirmFunc func(ctx context.Context, req Request) (bool, error)

// AlwaysApprove confirms every request.
func AlwaysApprove(context.Context, Request) (bool, error) { return true, nil }

// AlwaysDecline refuses every request.
func AlwaysDecline(context.Context, Request) (bool, error) { return false, nil }

// Policy controls how the coordinator gates and runs commands.
type Policy struct {
	SafeMode       bool          `mapstructure:"safe_mode"`
	DangerousCheck bool          `mapstructure:"dangerous_check"`
	FastMode       bool          `mapstructure:"fast_mode"`
	Timeout        time.Duration `mapstructure:"timeout"`
	// Shell interprets commands that cannot be executed directly.
	Shell string `mapstructure:"shell"`
	// Dir is the working directory of spawned commands; empty means the
	// current directory.
	Dir string `mapstructure:"-"`

	Confirm ConfirmFunc `mapstructure:"-"`
}

// Effective applies defaults and the fast-mode overrides. Fast mode turns
// off safe mode and the dangerous check and caps the timeout at FastTimeout.
func (p Policy) Effective() Policy {
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.FastMode {
		p.SafeMode = false
		p.DangerousCheck = false
		if p.Timeout > FastTimeout {
			p.Timeout = FastTimeout
		}
	}
	if p.Shell == "" {
		p.Shell = DefaultShell
	}
	return p
}

// shellArgv returns the interpreter invocation for a command line.
func (p Policy) shellArgv(command string) []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C", command}
	}
	return []string{p.Shell, "-c", command}
}
