// ABOUTME: Build collaborator: detects a build descriptor and runs make or pip
// ABOUTME: The install step may run under sudo; rejected privileged steps map to ErrPermission

package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

var (
	// ErrBuildFailed is wrapped when a build command exits unsuccessfully.
	ErrBuildFailed = errors.New("build failed")
	// ErrPermission is wrapped when the privileged install step is rejected.
	ErrPermission = errors.New("insufficient permissions for privileged build step")
)

// Kind is the detected build system.
type Kind int

const (
	KindNone Kind = iota
	KindMake
	KindPython
)

func (k Kind) String() string {
	switch k {
	case KindMake:
		return "make"
	case KindPython:
		return "python"
	default:
		return "none"
	}
}

// Status summarizes the build of one workspace.
type Status int

const (
	StatusNotRun Status = iota
	StatusNoDescriptor
	StatusBuilt
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusNoDescriptor:
		return "no-descriptor"
	case StatusBuilt:
		return "built"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "not-run"
	}
}

// Report describes what a build did.
type Report struct {
	Kind   Kind
	Status Status
	Steps  []string // commands run, in order
}

var (
	makeDescriptors   = []string{"Makefile", "makefile", "GNUmakefile"}
	pythonDescriptors = []string{"setup.py", "pyproject.toml"}
)

// Detect returns the build system of the workspace at dir. Make wins when
// both kinds of descriptor are present.
func Detect(dir string) Kind {
	for _, name := range makeDescriptors {
		if isFile(filepath.Join(dir, name)) {
			return KindMake
		}
	}
	for _, name := range pythonDescriptors {
		if isFile(filepath.Join(dir, name)) {
			return KindPython
		}
	}
	return KindNone
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Options configures a Builder.
type Options struct {
	Sudo   bool
	Make   string
	Python string
	Runner Runner
}

// Builder runs the build steps for a workspace.
type Builder struct {
	sudo   bool
	make   string
	python string
	runner Runner
}

// New returns a Builder. Empty tool names default to "make" and "python3".
func New(opts Options) *Builder {
	b := &Builder{sudo: opts.Sudo, make: opts.Make, python: opts.Python, runner: opts.Runner}
	if b.make == "" {
		b.make = "make"
	}
	if b.python == "" {
		b.python = "python3"
	}
	if b.runner == nil {
		b.runner = &ExecRunner{}
	}
	return b
}

// Plan returns the commands Build would run for dir, without running them.
func (b *Builder) Plan(dir string) (Kind, []Command) {
	switch kind := Detect(dir); kind {
	case KindMake:
		return kind, []Command{
			{Name: b.make, Args: []string{"-C", dir}},
			b.privileged(b.make, "-C", dir, "install"),
		}
	case KindPython:
		return kind, []Command{
			b.privileged(b.python, "-m", "pip", "install", dir),
		}
	default:
		return KindNone, nil
	}
}

// Build compiles and installs the workspace at dir. A workspace without a
// descriptor is a silent no-op.
func (b *Builder) Build(ctx context.Context, dir string) (Report, error) {
	kind, steps := b.Plan(dir)
	report := Report{Kind: kind}
	if kind == KindNone {
		report.Status = StatusNoDescriptor
		return report, nil
	}

	for i, step := range steps {
		report.Steps = append(report.Steps, step.String())
		if err := b.runner.Run(ctx, step); err != nil {
			report.Status = StatusFailed
			// The install step is always last and is the only privileged one.
			return report, classify(step, err, i == len(steps)-1)
		}
	}
	report.Status = StatusBuilt
	return report, nil
}

func (b *Builder) privileged(name string, args ...string) Command {
	if !b.sudo {
		return Command{Name: name, Args: args}
	}
	return Command{Name: "sudo", Args: append([]string{name}, args...)}
}

// permissionMarkers are substrings of sudo and tool output that signal a
// rejected privileged step.
var permissionMarkers = []string{
	"permission denied",
	"is not in the sudoers file",
	"a password is required",
	"incorrect password attempt",
	"not allowed to execute",
	"operation not permitted",
}

func classify(step Command, err error, privileged bool) error {
	if privileged && isPermissionError(err) {
		return fmt.Errorf("%w: %s: %v", ErrPermission, step, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrBuildFailed, step, err)
}

func isPermissionError(err error) bool {
	if errors.Is(err, fs.ErrPermission) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
		return true
	}
	var re *RunError
	if errors.As(err, &re) {
		stderr := strings.ToLower(re.Stderr)
		for _, marker := range permissionMarkers {
			if strings.Contains(stderr, marker) {
				return true
			}
		}
	}
	return false
}
