// ABOUTME: Error taxonomy for package operations: sentinels plus an operation wrapper
// ABOUTME: Callers match with errors.Is; OpError carries the operation, package and suggestions

package pkgmanager

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAlreadyInstalled is returned when installing a package whose workspace exists.
	ErrAlreadyInstalled = errors.New("package already installed")
	// ErrNotFound is returned when a named package has neither record nor workspace.
	ErrNotFound = errors.New("package not found")
	// ErrInvalidArguments is returned for malformed locators, names or policies.
	ErrInvalidArguments = errors.New("invalid arguments")
	// ErrReconcile is returned when the store and the workspace directory disagree.
	ErrReconcile = errors.New("store and workspace disagree")
)

// OpError records the operation and package an error occurred in.
type OpError struct {
	Op          string
	Package     string
	Err         error
	Suggestions []string // similar package names, set for ErrNotFound
}

func (e *OpError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Package != "" {
		b.WriteString(" ")
		b.WriteString(e.Package)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if len(e.Suggestions) > 0 {
		fmt.Fprintf(&b, " (did you mean %s?)", strings.Join(e.Suggestions, ", "))
	}
	return b.String()
}

func (e *OpError) Unwrap() error { return e.Err }

func opErr(op, pkg string, err error) error {
	if err == nil {
		return nil
	}
	var oe *OpError
	if errors.As(err, &oe) && oe.Op == op {
		return err
	}
	return &OpError{Op: op, Package: pkg, Err: err}
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsAlreadyInstalled reports whether err is or wraps ErrAlreadyInstalled.
func IsAlreadyInstalled(err error) bool { return errors.Is(err, ErrAlreadyInstalled) }
