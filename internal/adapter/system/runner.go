package system

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/buddybox/buddybox/internal/core/domain"
	"github.com/buddybox/buddybox/internal/core/repository"
)

const stderrLimit = 4 << 10

// Command is one external tool invocation. Argv is passed to the OS as-is;
// nothing is ever interpreted by a shell.
type Command struct {
	Argv     []string
	BackupID string
	Producer string

	// Stdout receives the command's standard output. Nil discards it.
	Stdout io.Writer
}

// Runner executes commands with a per-invocation timeout and records each
// invocation in the process history.
type Runner struct {
	processes repository.ProcessRepository
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewRunner creates a runner. processes may be nil to skip recording;
// timeout <= 0 disables the per-command deadline.
func NewRunner(processes repository.ProcessRepository, timeout time.Duration, logger zerolog.Logger) *Runner {
	return &Runner{
		processes: processes,
		timeout:   timeout,
		logger:    logger.With().Str("component", "runner").Logger(),
	}
}

// CommandError describes a command that ran and exited unsuccessfully.
type CommandError struct {
	Argv     []string
	ExitCode int
	Stderr   string
	TimedOut bool
}

func (e *CommandError) Error() string {
	name := e.Argv[0]
	switch {
	case e.TimedOut:
		return fmt.Sprintf("%s timed out", name)
	case e.Stderr != "":
		return fmt.Sprintf("%s exited with code %d: %s", name, e.ExitCode, e.Stderr)
	default:
		return fmt.Sprintf("%s exited with code %d", name, e.ExitCode)
	}
}

// Run starts the command and waits for it to finish.
func (r *Runner) Run(ctx context.Context, cmd Command) error {
	if len(cmd.Argv) == 0 || cmd.Argv[0] == "" {
		return errors.New("empty command")
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	c.Env = append(os.Environ(), "LC_ALL=C")
	c.WaitDelay = 5 * time.Second
	c.Stdout = io.Discard
	if cmd.Stdout != nil {
		c.Stdout = cmd.Stdout
	}
	stderr := &tailBuffer{limit: stderrLimit}
	c.Stderr = stderr

	proc := domain.NewProcess(cmd.BackupID, cmd.Producer, cmd.Argv)
	log := r.logger.With().
		Str("backup_id", cmd.BackupID).
		Str("producer", cmd.Producer).
		Str("command_id", proc.CommandID).
		Logger()

	if err := c.Start(); err != nil {
		proc.Fail(err.Error())
		r.record(ctx, proc, true)
		return fmt.Errorf("failed to start %s: %w", cmd.Argv[0], err)
	}
	proc.SetPID(c.Process.Pid)
	r.record(ctx, proc, true)
	log.Debug().Str("command", proc.Command).Int("pid", c.Process.Pid).Msg("command started")

	waitErr := c.Wait()
	errOut := strings.TrimSpace(stderr.String())
	code := -1
	if c.ProcessState != nil {
		code = c.ProcessState.ExitCode()
	}

	if waitErr == nil {
		proc.Complete(0, errOut)
		r.record(ctx, proc, false)
		return nil
	}

	cmdErr := &CommandError{
		Argv:     cmd.Argv,
		ExitCode: code,
		Stderr:   errOut,
		TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
	}
	if code >= 0 && !cmdErr.TimedOut {
		proc.Complete(code, errOut)
	} else {
		proc.Fail(cmdErr.Error())
	}
	r.record(ctx, proc, false)
	log.Debug().Err(cmdErr).Msg("command failed")
	return cmdErr
}

// record persists proc. History is best-effort and never fails a backup.
func (r *Runner) record(ctx context.Context, proc *domain.Process, create bool) {
	if r.processes == nil {
		return
	}
	// The command context may already be expired; history still gets written.
	ctx = context.WithoutCancel(ctx)

	var err error
	if create {
		err = r.processes.Create(ctx, proc)
	} else if proc.ID != 0 {
		err = r.processes.Update(ctx, proc)
	}
	if err != nil {
		r.logger.Warn().Err(err).Str("command_id", proc.CommandID).Msg("failed to record process")
	}
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
