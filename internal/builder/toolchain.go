package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Noratrieb/does-it-build/internal/model"
)

var (
	// ErrMissingTools means rustup, cargo or rustc is not on PATH.
	ErrMissingTools = errors.New("rust tooling not found")
	// ErrCommandFailed wraps a non-zero exit from a toolchain command.
	ErrCommandFailed = errors.New("command failed")
)

// Toolchain is a rustup toolchain name, e.g. "nightly-2024-08-22".
type Toolchain string

func ToolchainFor(nightly string) Toolchain {
	return Toolchain("nightly-" + nightly)
}

func (t Toolchain) String() string {
	return string(t)
}

// Available reports whether the external tools a sweep needs exist.
func Available() bool {
	for _, name := range []string{"rustup", "cargo", "rustc"} {
		if _, err := exec.LookPath(name); err != nil {
			return false
		}
	}
	return true
}

// componentsFor lists the rustup components a mode needs on top of the
// minimal profile.
func componentsFor(mode model.Mode) []string {
	if mode == model.ModeMiriStd {
		return []string{"rust-src", "miri"}
	}
	return []string{"rust-src"}
}

// Install installs the toolchain with the minimal profile plus the
// mode's components.
func Install(ctx context.Context, tc Toolchain, mode model.Mode) error {
	if err := runQuiet(ctx, "", "rustup", "toolchain", "install", tc.String(), "--profile", "minimal"); err != nil {
		return fmt.Errorf("installing %s: %w", tc, err)
	}
	for _, component := range componentsFor(mode) {
		if err := runQuiet(ctx, "", "rustup", "component", "add", component, "--toolchain", tc.String()); err != nil {
			return fmt.Errorf("adding %s to %s: %w", component, tc, err)
		}
	}
	return nil
}

func Uninstall(ctx context.Context, tc Toolchain) error {
	if err := runQuiet(ctx, "", "rustup", "toolchain", "remove", tc.String()); err != nil {
		return fmt.Errorf("removing %s: %w", tc, err)
	}
	return nil
}

// Targets asks rustc for every target triple the toolchain knows.
func Targets(ctx context.Context, tc Toolchain) ([]string, error) {
	cmd := exec.CommandContext(ctx, "rustc", "+"+tc.String(), "--print", "target-list")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: rustc --print target-list: %s: %w", ErrCommandFailed, strings.TrimSpace(stderr.String()), err)
	}
	return strings.Fields(stdout.String()), nil
}

// runQuiet runs a command whose output is only interesting on failure.
func runQuiet(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s %s: %s: %w", ErrCommandFailed, name, strings.Join(args, " "), strings.TrimSpace(stderr.String()), err)
	}
	return nil
}
