// ABOUTME: Progress reporting hooks the orchestrator calls between steps
// ABOUTME: The CLI renders them as status lines; tests can record them

package pkgmanager

// Reporter receives human-readable progress while an operation runs.
type Reporter interface {
	Step(format string, args ...any)
	Success(format string, args ...any)
	Warn(format string, args ...any)
	Fail(format string, args ...any)
}

type nopReporter struct{}

func (nopReporter) Step(string, ...any)    {}
func (nopReporter) Success(string, ...any) {}
func (nopReporter) Warn(string, ...any)    {}
func (nopReporter) Fail(string, ...any)    {}
