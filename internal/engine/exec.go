package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// maxStderrTail caps how much of a Python traceback ends up inside an
// error message.
const maxStderrTail = 2048

// run executes an engine subprocess with bounded runtime. Stdin is
// pre-configured and empty so a tool that reads it cannot block, and a
// cancelled context interrupts the process before killing it, giving
// the Python runtimes a chance to remove partial output.
func run(ctx context.Context, timeout time.Duration, bin string, args ...string) ([]byte, []byte, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = strings.NewReader("")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- cmd.Run()
	}()

	name := filepath.Base(bin)

	select {
	case err := <-done:
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, fmt.Errorf("%s: %w", name, ctx.Err())
			}
			return nil, nil, fmt.Errorf("%s failed: %w, stderr: %s",
				name, err, tail(stderr.Bytes()))
		}

	case <-ctx.Done():
		if cmd.Process != nil {
			cmd.Process.Signal(os.Interrupt) //nolint:errcheck
			select {
			case <-done:
			case <-time.After(100 * time.Millisecond):
				cmd.Process.Kill() //nolint:errcheck
				<-done
			}
		}
		return nil, nil, fmt.Errorf("%s: %w", name, ctx.Err())
	}

	return stdout.Bytes(), stderr.Bytes(), nil
}

func tail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= maxStderrTail {
		return s
	}
	return "..." + s[len(s)-maxStderrTail:]
}

// classify wraps a run error into an engine Error.
func classify(engine string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(CodeTimeout, engine, "synthesis did not finish in time", err)
	}
	if errors.Is(err, context.Canceled) {
		return newError(CodeTimeout, engine, "synthesis cancelled", err)
	}
	return newError(CodeSynthesis, engine, "subprocess failed", err)
}
