package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/Noratrieb/does-it-build/internal/model"
)

// Result is the verdict for one (toolchain, mode, target) probe.
type Result struct {
	Status model.Status
	Stderr string
}

// probeArgs is the cargo invocation for a mode. Core builds libcore for
// the target in a no_std crate; miri-std sets up a miri sysroot.
func probeArgs(tc Toolchain, mode model.Mode, target string) []string {
	if mode == model.ModeMiriStd {
		return []string{"+" + tc.String(), "miri", "setup", "--target", target}
	}
	return []string{"+" + tc.String(), "build", "-Zbuild-std=core", "--release", "--target", target}
}

// Probe runs one build attempt in a throwaway crate. A non-zero cargo
// exit is a valid "error" verdict with its stderr, not a Go error; only
// failures to run the probe at all are errors. timeout == 0 disables
// the deadline.
func Probe(ctx context.Context, tc Toolchain, mode model.Mode, target string, timeout time.Duration) (Result, error) {
	tmpdir, err := os.MkdirTemp("", "does-it-build-*")
	if err != nil {
		return Result{}, fmt.Errorf("creating probe dir: %w", err)
	}
	defer os.RemoveAll(tmpdir)

	if err := runQuiet(ctx, tmpdir, "cargo", "init", "--lib", "--name", "target-test"); err != nil {
		return Result{}, fmt.Errorf("initializing probe crate: %w", err)
	}
	if mode == model.ModeCore {
		librs := filepath.Join(tmpdir, "src", "lib.rs")
		if err := os.WriteFile(librs, []byte("#![no_std]\n"), 0o644); err != nil {
			return Result{}, fmt.Errorf("writing %s: %w", librs, err)
		}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "cargo", probeArgs(tc, mode, target)...)
	cmd.Dir = tmpdir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return Result{}, fmt.Errorf("running cargo: %w", runErr)
		}
	}

	result := Result{Status: model.StatusPass, Stderr: stderr.String()}
	if runErr != nil {
		result.Status = model.StatusError
	}
	return result, nil
}
