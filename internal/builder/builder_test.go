package builder

import (
	"reflect"
	"testing"

	"github.com/Noratrieb/does-it-build/internal/model"
)

func TestProbeArgs(t *testing.T) {
	tc := ToolchainFor("2024-08-22")
	if tc.String() != "nightly-2024-08-22" {
		t.Fatalf("toolchain = %s", tc)
	}

	got := probeArgs(tc, model.ModeCore, "x86_64-unknown-linux-gnu")
	want := []string{"+nightly-2024-08-22", "build", "-Zbuild-std=core", "--release", "--target", "x86_64-unknown-linux-gnu"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("core args = %v, want %v", got, want)
	}

	got = probeArgs(tc, model.ModeMiriStd, "aarch64-apple-darwin")
	want = []string{"+nightly-2024-08-22", "miri", "setup", "--target", "aarch64-apple-darwin"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("miri-std args = %v, want %v", got, want)
	}
}

func TestComponentsFor(t *testing.T) {
	if got := componentsFor(model.ModeCore); !reflect.DeepEqual(got, []string{"rust-src"}) {
		t.Errorf("core components = %v", got)
	}
	if got := componentsFor(model.ModeMiriStd); !reflect.DeepEqual(got, []string{"rust-src", "miri"}) {
		t.Errorf("miri-std components = %v", got)
	}
}

func TestFilterTargets(t *testing.T) {
	targets := []string{"a", "b", "c"}
	if got := filterTargets(targets, nil); !reflect.DeepEqual(got, targets) {
		t.Errorf("no skip list: %v", got)
	}
	if got := filterTargets(targets, []string{"b", "x"}); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("skipped = %v", got)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if len(cfg.Modes) != 1 || cfg.Modes[0] != model.ModeCore {
		t.Errorf("default modes = %v", cfg.Modes)
	}
	if cfg.Concurrency < 1 {
		t.Errorf("concurrency = %d", cfg.Concurrency)
	}
	if cfg.CheckInterval <= 0 {
		t.Errorf("check interval = %v", cfg.CheckInterval)
	}
	if cfg.ManifestURL == "" {
		t.Error("manifest url empty")
	}
}

func TestTriggerQueueFull(t *testing.T) {
	b := New(nil, Config{TriggerQueue: 2}, nil)
	if err := b.Trigger("2024-01-01"); err != nil {
		t.Fatal(err)
	}
	if err := b.Trigger("2024-01-02"); err != nil {
		t.Fatal(err)
	}
	if err := b.Trigger("2024-01-03"); err != ErrQueueFull {
		t.Errorf("third trigger = %v, want ErrQueueFull", err)
	}
}
