// Package validation checks user-supplied convergence parameters before any
// side effect is performed.
package validation

import (
	"fmt"
	"strings"
)

// States are the accepted target states.
var States = []string{"present", "absent", "mounted", "unmounted"}

// InputError marks an invalid user-supplied value. It is always reported
// before anything has been touched.
type InputError struct {
	msg string
}

func (e *InputError) Error() string { return e.msg }

func inputErrorf(format string, args ...any) error {
	return &InputError{msg: fmt.Sprintf(format, args...)}
}

// ValidateRequired rejects an empty value for a required parameter.
func ValidateRequired(name, value string) error {
	if value == "" {
		return inputErrorf("%s is required", name)
	}
	return nil
}

// ValidateState checks that state is one of the accepted target states.
func ValidateState(state string) error {
	for _, s := range States {
		if state == s {
			return nil
		}
	}
	return inputErrorf("state must be one of %s, got %q", strings.Join(States, ", "), state)
}

// ValidateTarget checks that the mount point is an absolute path.
func ValidateTarget(name string) error {
	if name == "" {
		return inputErrorf("name is required")
	}
	if !strings.HasPrefix(name, "/") {
		return inputErrorf("mount point %q must be an absolute path", name)
	}
	return nil
}

// ValidateOptions rejects mount options containing whitespace, since the
// options occupy a single whitespace-delimited field in the mount table.
func ValidateOptions(opts string) error {
	if strings.ContainsAny(opts, " \t") {
		return inputErrorf("unexpected space in mount options %q", opts)
	}
	return nil
}
