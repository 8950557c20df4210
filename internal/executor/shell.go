// Package executor runs a pipeline's shell command once per branch.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/meow-stack/stagefan/internal/logging"
	"github.com/meow-stack/stagefan/internal/params"
	"github.com/meow-stack/stagefan/internal/stage"
)

// killGrace is how long a cancelled command gets between SIGTERM and SIGKILL.
const killGrace = 3 * time.Second

// stderrTail bounds how much stderr is quoted in a CommandError.
const stderrTail = 2048

var envUnsafe = regexp.MustCompile(`[^A-Z0-9_]`)

// CommandError reports a command that exited non-zero.
type CommandError struct {
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("command exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("command exited with code %d: %s", e.ExitCode, e.Stderr)
}

// ShellExecutor runs Command with the branch input exported as PIP_<FIELD>
// environment variables.
type ShellExecutor struct {
	// Shell is the shell used to execute commands. Defaults to "/bin/sh".
	Shell string

	// Command is the script passed to Shell with -c.
	Command string

	// Workdir is the working directory; empty means the current one.
	Workdir string

	// OutputDir, when set, receives one <job>.log file per branch holding
	// the combined stdout and stderr.
	OutputDir string
}

// NewShellExecutor creates a ShellExecutor for command.
func NewShellExecutor(command string) *ShellExecutor {
	return &ShellExecutor{
		Shell:   "/bin/sh",
		Command: command,
	}
}

// branchSettings are the input fields the executor reads itself. A
// "workdir" field, typically fanned out from a "workdirs" parallel key,
// runs the branch in that directory; relative paths resolve against
// ShellExecutor.Workdir.
type branchSettings struct {
	Job     string `mapstructure:"job_name"`
	Workdir string `mapstructure:"workdir"`
}

func (e *ShellExecutor) dir(s branchSettings) string {
	switch {
	case s.Workdir == "":
		return e.Workdir
	case filepath.IsAbs(s.Workdir) || e.Workdir == "":
		return s.Workdir
	default:
		return filepath.Join(e.Workdir, s.Workdir)
	}
}

// Env renders in as environment entries in sorted order. Field names are
// upper-cased with characters outside [A-Z0-9_] replaced by '_'; list
// values are joined with " | " so they parse back into the same list.
func Env(in stage.Input) []string {
	env := make([]string, 0, len(in))
	for _, field := range in.Fields() {
		name := params.EnvPrefix + envUnsafe.ReplaceAllString(strings.ToUpper(field), "_")
		env = append(env, name+"="+strings.Join(in[field], " | "))
	}
	sort.Strings(env)
	return env
}

// Execute runs the command for one branch. When ctx is cancelled the
// process group gets SIGTERM, then SIGKILL after a grace period.
func (e *ShellExecutor) Execute(ctx context.Context, in stage.Input) error {
	if e.Command == "" {
		return fmt.Errorf("command is empty")
	}
	logger := logging.FromContext(ctx)

	var info branchSettings
	if err := in.Decode(&info); err != nil {
		return fmt.Errorf("decoding branch input: %w", err)
	}

	shell := e.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	// Not CommandContext: cancellation is handled below to allow SIGTERM
	// before SIGKILL.
	cmd := exec.Command(shell, "-c", e.Command)
	cmd.Dir = e.dir(info)
	cmd.Env = append(os.Environ(), Env(in)...)
	cmd.Env = append(cmd.Env, "STAGEFAN_JOB="+info.Job)

	var stdout, stderr bytes.Buffer
	outW, errW := io.Writer(&stdout), io.Writer(&stderr)
	if e.OutputDir != "" && info.Job != "" {
		f, err := e.openLog(info.Job)
		if err != nil {
			return err
		}
		defer f.Close()
		outW = io.MultiWriter(&stdout, f)
		errW = io.MultiWriter(&stderr, f)
	}
	cmd.Stdout = outW
	cmd.Stderr = errW

	// Own process group so the whole tree can be signalled
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting command: %w", err)
	}
	logger.Debug("command started", "pid", cmd.Process.Pid)

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
		select {
		case <-done:
		case <-time.After(killGrace):
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			<-done
		}
		logger.Warn("command cancelled", "reason", ctx.Err())
		return ctx.Err()

	case err := <-done:
		if err == nil {
			logger.Debug("command finished", "exit_code", 0, "stdout_bytes", stdout.Len())
			return nil
		}
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return err
		}
		logger.Debug("command finished", "exit_code", exitErr.ExitCode())
		return &CommandError{ExitCode: exitErr.ExitCode(), Stderr: tail(stderr.String(), stderrTail)}
	}
}

func (e *ShellExecutor) openLog(job string) (*os.File, error) {
	if err := os.MkdirAll(e.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	name := strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(job) + ".log"
	f, err := os.Create(filepath.Join(e.OutputDir, name))
	if err != nil {
		return nil, fmt.Errorf("creating branch log: %w", err)
	}
	return f, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
