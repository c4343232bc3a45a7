// Package execx runs external tools on behalf of untrusted input.
//
// Every invocation goes through a fixed command allowlist, argument
// sanitization, a reconstructed environment, per-stream output caps and a
// wall-clock timeout. Processes are exec'd directly with an argument vector;
// no shell is ever involved.
package execx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	// DefaultTimeout bounds a process that specifies no explicit budget.
	DefaultTimeout = 15 * time.Second

	// MaxOutputBytes caps each of stdout and stderr independently.
	MaxOutputBytes = 1 << 20

	// restrictedPath replaces whatever PATH the caller or the ambient
	// environment carries.
	restrictedPath = "/usr/local/bin:/usr/bin:/bin"
)

// Options configures a single Exec call.
type Options struct {
	Dir     string
	Env     map[string]string
	Timeout time.Duration
}

// Result is produced once per successful run.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor spawns allowlisted commands. A single Executor may be shared by
// concurrent callers; each call owns its own child, buffers and timer.
type Executor struct {
	allowed   map[string]struct{}
	maxOutput int
}

// New returns an Executor restricted to the equation-rendering toolchain.
func New() *Executor {
	return NewWithAllowlist("pdflatex", "convert", "magick")
}

// NewWithAllowlist returns an Executor permitting exactly the given commands.
func NewWithAllowlist(commands ...string) *Executor {
	allowed := make(map[string]struct{}, len(commands))
	for _, c := range commands {
		allowed[c] = struct{}{}
	}
	return &Executor{allowed: allowed, maxOutput: MaxOutputBytes}
}

// Exec runs command with sanitized args and returns the captured output.
// Exactly one outcome is produced per call: a Result on clean exit, or one of
// CommandNotAllowedError, SpawnError, ExitError, SignalError, TimeoutError,
// OutputLimitError.
func (e *Executor) Exec(ctx context.Context, command string, args []string, opts Options) (*Result, error) {
	if _, ok := e.allowed[command]; !ok {
		return nil, &CommandNotAllowedError{Command: command}
	}

	clean := make([]string, len(args))
	for i, a := range args {
		clean[i] = SanitizeArg(a)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cmd := exec.Command(command, clean...)
	cmd.Dir = opts.Dir
	cmd.Env = buildEnv(opts.Env)
	cmd.SysProcAttr = sysProcAttr()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &SpawnError{Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &SpawnError{Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Err: err}
	}

	overflow := make(chan string, 2)
	var outBuf, errBuf bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)
	go e.capture(&wg, stdout, &outBuf, "stdout", overflow)
	go e.capture(&wg, stderr, &errBuf, "stderr", overflow)

	// Readers must finish before Wait reaps the child and closes the pipes.
	done := make(chan error, 1)
	go func() {
		wg.Wait()
		done <- cmd.Wait()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case stream := <-overflow:
		_ = cmd.Process.Kill()
		<-done
		return nil, &OutputLimitError{Stream: stream, Limit: e.maxOutput}
	case <-timer.C:
		_ = cmd.Process.Kill()
		<-done
		return nil, &TimeoutError{Timeout: timeout}
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return nil, ctx.Err()
	case err := <-done:
		// An overflow that raced the exit still wins: the cap was hit.
		select {
		case stream := <-overflow:
			return nil, &OutputLimitError{Stream: stream, Limit: e.maxOutput}
		default:
		}
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
					return nil, &SignalError{Signal: status.Signal().String()}
				}
				return nil, &ExitError{Code: exitErr.ExitCode(), Stderr: errBuf.String()}
			}
			return nil, &SpawnError{Err: err}
		}
		return &Result{Stdout: outBuf.String(), Stderr: errBuf.String(), ExitCode: 0}, nil
	}
}

// capture buffers one stream until EOF or the cap. On overflow it signals and
// stops reading; the caller kills the child.
func (e *Executor) capture(wg *sync.WaitGroup, r io.Reader, buf *bytes.Buffer, stream string, overflow chan<- string) {
	defer wg.Done()
	chunk := make([]byte, 32*1024)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			if buf.Len()+n > e.maxOutput {
				select {
				case overflow <- stream:
				default:
				}
				return
			}
			buf.Write(chunk[:n])
		}
		if err != nil {
			return
		}
	}
}

// buildEnv reconstructs the child environment: ambient environment as the
// base, loader-override variables removed (caller values for them are
// discarded too), caller entries layered on, PATH pinned last.
func buildEnv(custom map[string]string) []string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	delete(env, "LD_PRELOAD")
	delete(env, "LD_LIBRARY_PATH")
	for k, v := range custom {
		if k == "LD_PRELOAD" || k == "LD_LIBRARY_PATH" {
			continue
		}
		env[k] = v
	}
	env["PATH"] = restrictedPath

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
