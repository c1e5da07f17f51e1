// ABOUTME: Command runner used by the builder; the exec implementation streams to the terminal
// ABOUTME: Keeps a bounded tail of stderr so failures can be classified

package build

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/mauromedda/gitstaller/internal/log"
)

// Command is one build step.
type Command struct {
	Dir  string
	Name string
	Args []string
}

// String renders the command as it would be typed in a shell.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes build commands.
type Runner interface {
	Run(ctx context.Context, c Command) error
}

// RunError is returned by ExecRunner when a command fails.
type RunError struct {
	Command Command
	Stderr  string
	Err     error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

const stderrTail = 8 << 10

// ExecRunner runs commands as child processes with inherited stdin.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Run starts c and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, c Command) error {
	stdout, stderr := r.Stdout, r.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	tail := &tailBuffer{max: stderrTail}
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = stdout
	cmd.Stderr = io.MultiWriter(stderr, tail)

	log.Debug("running %s (dir=%q)", c, c.Dir)
	if err := cmd.Run(); err != nil {
		return &RunError{Command: c, Stderr: tail.String(), Err: err}
	}
	return nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if over := t.buf.Len() - t.max; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}
