package mount

import (
	"fmt"
	"strings"
)

// QueryError means the current mount list could not be obtained. Nothing is
// converged without it, so it aborts the whole operation up front.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("get mounted filesystems: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// ActionError carries the failure of a mount, unmount or mount-point
// directory action, including the command output when a command was run.
type ActionError struct {
	Action string
	Target string
	Output string
	Err    error
}

func (e *ActionError) Error() string {
	if out := strings.TrimSpace(e.Output); out != "" {
		return fmt.Sprintf("%s %s: %v: %s", e.Action, e.Target, e.Err, out)
	}
	return fmt.Sprintf("%s %s: %v", e.Action, e.Target, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }
