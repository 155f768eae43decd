package command

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"
	"github.com/mattn/go-isatty"

	"vigil/internal/logging"
	"vigil/internal/metrics"
	"vigil/internal/watcher"
)

const defaultMaxProcs = 8

var errEmptyCommand = errors.New("empty command after substitution")

// OutputMode controls what happens to child process output.
type OutputMode string

const (
	OutputPassthrough OutputMode = "passthrough"
	OutputSuppress    OutputMode = "suppress"
)

func ParseOutputMode(value string) (OutputMode, bool) {
	switch OutputMode(value) {
	case OutputPassthrough:
		return OutputPassthrough, true
	case OutputSuppress:
		return OutputSuppress, true
	default:
		return "", false
	}
}

// Result reports a finished or failed dispatch.
type Result struct {
	ID        string        `json:"id"`
	Command   string        `json:"command"`
	Path      string        `json:"path"`
	EventType string        `json:"event_type"`
	ExitCode  int           `json:"exit_code"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

type RunnerOptions struct {
	Logger   *logging.Logger
	Registry *metrics.Registry
	Tracker  *Tracker
	MaxProcs int
	Output   OutputMode
	Stdout   io.Writer
	Stderr   io.Writer

	// OnResult runs after every dispatch attempt, including spawn failures.
	OnResult func(Result)
}

// Runner executes resolved commands asynchronously. Dispatch never blocks
// on a running command; concurrency is bounded by a token semaphore and
// running commands are never killed.
type Runner struct {
	logger    *logging.Logger
	registry  *metrics.Registry
	tracker   *Tracker
	semaphore chan struct{}
	output    OutputMode
	stdout    io.Writer
	stderr    io.Writer
	usePty    bool
	onResult  func(Result)
	wg        sync.WaitGroup
}

func NewRunner(options RunnerOptions) *Runner {
	logger := options.Logger
	if logger == nil {
		logger = logging.NewLoggerWithOutput(logging.NewEntryBuffer(logging.DefaultBufferSize), logging.LevelInfo, nil)
	}
	registry := options.Registry
	if registry == nil {
		registry = metrics.Default
	}
	tracker := options.Tracker
	if tracker == nil {
		tracker = NewTracker()
	}
	maxProcs := options.MaxProcs
	if maxProcs <= 0 {
		maxProcs = defaultMaxProcs
	}
	output := options.Output
	if output == "" {
		output = OutputPassthrough
	}
	stdout := options.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := options.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	usePty := false
	if output == OutputPassthrough {
		if file, ok := stdout.(*os.File); ok {
			usePty = isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
		}
	}

	return &Runner{
		logger:    logger.With(map[string]string{"component": "runner"}),
		registry:  registry,
		tracker:   tracker,
		semaphore: make(chan struct{}, maxProcs),
		output:    output,
		stdout:    stdout,
		stderr:    stderr,
		usePty:    usePty,
		onResult:  options.OnResult,
	}
}

func (runner *Runner) Tracker() *Tracker {
	if runner == nil {
		return nil
	}
	return runner.tracker
}

// Dispatch expands the template for the event and fires the command in the
// background. Parse failures are logged and reported, never fatal.
func (runner *Runner) Dispatch(event watcher.Event, template string) {
	if runner == nil || template == "" {
		return
	}

	resolved := NewContext(event).Expand(template)
	words, err := shellquote.Split(resolved)
	if err == nil && len(words) == 0 {
		err = errEmptyCommand
	}
	if err != nil {
		runner.logger.Warn("command parse failed", map[string]string{
			"command": resolved,
			"error":   err.Error(),
		})
		runner.registry.RecordCommandResult(0, err)
		runner.report(Result{
			Command:   resolved,
			Path:      event.RelPath,
			EventType: string(event.Kind),
			ExitCode:  -1,
			Error:     err.Error(),
		})
		return
	}

	id := uuid.NewString()[:8]
	runner.logger.Info("command dispatched", map[string]string{
		"id":      id,
		"command": resolved,
		"path":    event.RelPath,
	})
	runner.registry.IncCommandStarted()
	runner.tracker.Add(Execution{
		ID:        id,
		Command:   resolved,
		Path:      event.RelPath,
		StartedAt: time.Now().UTC(),
	})

	runner.wg.Add(1)
	go runner.execute(id, words, resolved, event)
}

// InflightCount reports how many dispatched commands are still running.
func (runner *Runner) InflightCount() int {
	if runner == nil {
		return 0
	}
	return runner.tracker.Count()
}

// WaitIdle blocks until all dispatched commands finish. Test helper; the
// normal shutdown path only logs the in-flight count.
func (runner *Runner) WaitIdle() {
	if runner == nil {
		return
	}
	runner.wg.Wait()
}

func (runner *Runner) execute(id string, words []string, resolved string, event watcher.Event) {
	defer runner.wg.Done()
	defer runner.tracker.Remove(id)

	runner.semaphore <- struct{}{}
	defer func() { <-runner.semaphore }()

	start := time.Now()
	err := runner.runProcess(words)
	duration := time.Since(start)

	runner.registry.RecordCommandResult(duration, err)

	result := Result{
		ID:        id,
		Command:   resolved,
		Path:      event.RelPath,
		EventType: string(event.Kind),
		Duration:  duration,
	}

	if err == nil {
		runner.logger.Info("command completed", map[string]string{
			"id":       id,
			"exit":     "0",
			"duration": duration.String(),
		})
		runner.report(result)
		return
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		runner.logger.Warn("command exited non-zero", map[string]string{
			"id":       id,
			"exit":     strconv.Itoa(result.ExitCode),
			"duration": duration.String(),
		})
		runner.report(result)
		return
	}

	result.ExitCode = -1
	result.Error = err.Error()
	runner.logger.Warn("command failed to run", map[string]string{
		"id":    id,
		"error": err.Error(),
	})
	runner.report(result)
}

func (runner *Runner) runProcess(words []string) error {
	if runner.output == OutputSuppress {
		return exec.Command(words[0], words[1:]...).Run()
	}

	if runner.usePty {
		if started, err := runner.runUnderPty(words); started {
			return err
		}
	}

	cmd := exec.Command(words[0], words[1:]...)
	cmd.Stdout = runner.stdout
	cmd.Stderr = runner.stderr
	return cmd.Run()
}

// runUnderPty keeps child programs in terminal mode so passthrough output
// retains color and progress rendering. Stderr is merged into the pty.
// started is false when the pty could not be allocated and the caller
// should run the command plainly instead.
func (runner *Runner) runUnderPty(words []string) (started bool, err error) {
	cmd := exec.Command(words[0], words[1:]...)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return false, nil
	}
	defer ptmx.Close()

	_, _ = io.Copy(runner.stdout, ptmx)
	return true, cmd.Wait()
}

func (runner *Runner) report(result Result) {
	if runner.onResult != nil {
		runner.onResult(result)
	}
}
