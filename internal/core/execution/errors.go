package execution

import (
	"errors"
	"fmt"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core/security"
)

var (
	// ErrBlocked is returned when the safety policy refuses a command without asking.
	ErrBlocked = errors.New("blocked by safety policy")
	// ErrDeclined is returned when confirmation was not given.
	ErrDeclined = errors.New("declined")
	// ErrDeferred is returned when confirmation was queued for later approval.
	ErrDeferred = errors.New("deferred for approval")
	// ErrTimeout is returned when the command ran past its deadline.
	ErrTimeout = errors.New("command timed out")
	// ErrNotFound is returned when the command does not exist.
	ErrNotFound = errors.New("command not found")
	// ErrPermission is returned when the OS refused to run the command.
	ErrPermission = errors.New("permission denied")
	// ErrExtraction is returned when no executable directive was recovered.
	ErrExtraction = errors.New("nothing executable")
	// ErrSpawn covers other failures to start a process.
	ErrSpawn = errors.New("failed to start command")
)

// PolicyError is a refusal by the safety policy. It carries the assessment
// that triggered it.
type PolicyError struct {
	Reason     error
	Assessment security.Assessment
	Message    string
}

func (e *PolicyError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v (%s)", e.Reason, e.Assessment.Level)
	}
	return fmt.Sprintf("%v: %s", e.Reason, e.Message)
}

func (e *PolicyError) Unwrap() error { return e.Reason }

// ExtractionError reports a directive that could not be turned into a command.
type ExtractionError struct {
	Message           string
	SuggestedApproach string
}

func (e *ExtractionError) Error() string { return e.Message }

func (e *ExtractionError) Unwrap() error { return ErrExtraction }
