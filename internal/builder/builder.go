// Package builder sweeps rustc nightlies: for every target the
// toolchain knows it probes whether the mode builds, records the
// verdict and marks the nightly finished so it is never swept twice.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/Noratrieb/does-it-build/internal/model"
	"github.com/Noratrieb/does-it-build/internal/nightly"
	"github.com/Noratrieb/does-it-build/internal/store"
)

// ErrQueueFull is returned by Trigger when too many sweeps are already
// waiting.
var ErrQueueFull = errors.New("trigger queue full")

// Notifier receives build events for live listeners. Implementations
// must not block.
type Notifier interface {
	BuildRecorded(b model.BuildAttempt)
	SweepFinished(nightly string, mode model.Mode)
}

// Config tunes the sweep loop. The zero value of every field has a
// usable default.
type Config struct {
	Modes         []model.Mode
	Concurrency   int           // parallel target probes, 0 = NumCPU/2
	BuildTimeout  time.Duration // per probe, 0 = unlimited
	CheckInterval time.Duration // idle wait between manifest checks
	SkipTargets   []string
	ManifestURL   string
	TriggerQueue  int
	HTTPClient    *http.Client
}

func (c Config) withDefaults() Config {
	if len(c.Modes) == 0 {
		c.Modes = []model.Mode{model.ModeCore}
	}
	if c.Concurrency <= 0 {
		c.Concurrency = runtime.NumCPU() / 2
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = time.Hour
	}
	if c.ManifestURL == "" {
		c.ManifestURL = nightly.ManifestURL
	}
	if c.TriggerQueue <= 0 {
		c.TriggerQueue = 16
	}
	return c
}

type Builder struct {
	store   *store.Store
	notify  Notifier
	trigger chan string

	mu  sync.Mutex
	cfg Config
}

// New creates a Builder. notify may be nil.
func New(st *store.Store, cfg Config, notify Notifier) *Builder {
	cfg = cfg.withDefaults()
	return &Builder{
		store:   st,
		notify:  notify,
		cfg:     cfg,
		trigger: make(chan string, cfg.TriggerQueue),
	}
}

func (b *Builder) Config() Config {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg
}

// SetConfig swaps the tunables; the next loop iteration picks them up.
// The trigger queue keeps its original capacity.
func (b *Builder) SetConfig(cfg Config) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg = cfg.withDefaults()
}

// SetNotifier wires the live-event sink. The server is constructed
// after the builder (it needs the trigger queue), so the notifier
// arrives late; call this before Run.
func (b *Builder) SetNotifier(n Notifier) {
	b.notify = n
}

// Trigger enqueues a nightly for an immediate sweep of every enabled
// mode. Never blocks.
func (b *Builder) Trigger(nightly string) error {
	select {
	case b.trigger <- nightly:
		return nil
	default:
		return ErrQueueFull
	}
}

// QueueLen reports how many triggered nightlies are waiting.
func (b *Builder) QueueLen() int {
	return len(b.trigger)
}

// Run sweeps until ctx is cancelled: triggered nightlies first, then
// the newest unfinished nightly per mode, idling between manifest
// checks when everything known is done.
func (b *Builder) Run(ctx context.Context) error {
	if !Available() {
		return fmt.Errorf("%w: rustup, cargo and rustc must be on PATH", ErrMissingTools)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case triggered := <-b.trigger:
			b.sweepAllModes(ctx, triggered)
			continue
		default:
		}

		built, err := b.sweepNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("sweep failed", "error", err)
		}
		if built {
			continue
		}

		cfg := b.Config()
		slog.Info("no new nightly, waiting", "interval", cfg.CheckInterval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case triggered := <-b.trigger:
			b.sweepAllModes(ctx, triggered)
		case <-time.After(cfg.CheckInterval):
		}
	}
}

func (b *Builder) sweepAllModes(ctx context.Context, night string) {
	for _, mode := range b.Config().Modes {
		if err := b.Sweep(ctx, night, mode); err != nil {
			slog.Error("triggered sweep failed", "nightly", night, "mode", mode, "error", err)
		}
	}
}

// sweepNext finds and sweeps the newest unfinished nightly across the
// enabled modes. Returns whether it built anything.
func (b *Builder) sweepNext(ctx context.Context) (bool, error) {
	cfg := b.Config()
	nightlies, err := nightly.Fetch(ctx, cfg.HTTPClient, cfg.ManifestURL)
	if err != nil {
		return false, fmt.Errorf("fetching nightlies: %w", err)
	}

	for _, mode := range cfg.Modes {
		finished, err := b.store.FinishedNightlies(ctx, mode)
		if err != nil {
			return false, fmt.Errorf("fetching finished nightlies: %w", err)
		}
		next, ok := nightlies.SelectLatestToBuild(finished)
		if !ok {
			continue
		}
		slog.Info("building next nightly", "nightly", next, "mode", mode)
		if err := b.Sweep(ctx, next, mode); err != nil {
			return false, fmt.Errorf("sweeping %s %s: %w", next, mode, err)
		}
		return true, nil
	}
	return false, nil
}

// Sweep probes every target of one (nightly, mode) and records the
// verdicts. Already-finished nightlies and already-probed targets are
// skipped, so an interrupted sweep resumes where it stopped.
func (b *Builder) Sweep(ctx context.Context, night string, mode model.Mode) error {
	done, err := b.store.IsNightlyFinished(ctx, night, mode)
	if err != nil {
		return err
	}
	if done {
		slog.Debug("nightly already finished", "nightly", night, "mode", mode)
		return nil
	}

	cfg := b.Config()
	tc := ToolchainFor(night)
	if err := Install(ctx, tc, mode); err != nil {
		return err
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := Uninstall(cleanupCtx, tc); err != nil {
			slog.Error("toolchain cleanup failed", "toolchain", tc, "error", err)
		}
	}()

	targets, err := Targets(ctx, tc)
	if err != nil {
		return err
	}
	targets = filterTargets(targets, cfg.SkipTargets)

	sem := make(chan struct{}, cfg.Concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, target := range targets {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(target string) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := b.buildOne(ctx, tc, night, mode, target); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(target)
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if err := b.store.FinishNightly(ctx, night, mode); err != nil {
		return err
	}
	if b.notify != nil {
		b.notify.SweepFinished(night, mode)
	}
	slog.Info("nightly finished", "nightly", night, "mode", mode, "targets", len(targets))
	return nil
}

func (b *Builder) buildOne(ctx context.Context, tc Toolchain, night string, mode model.Mode, target string) error {
	_, err := b.store.BuildStatusFull(ctx, night, target, mode)
	if err == nil {
		slog.Debug("build already exists", "nightly", night, "target", target, "mode", mode)
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	cfg := b.Config()
	result, err := Probe(ctx, tc, mode, target, cfg.BuildTimeout)
	if err != nil {
		return fmt.Errorf("probing %s: %w", target, err)
	}

	attempt := model.BuildAttempt{
		Nightly: night,
		Target:  target,
		Status:  result.Status,
		Stderr:  result.Stderr,
		Mode:    mode,
	}
	if err := b.store.Insert(ctx, attempt); err != nil {
		return err
	}
	if b.notify != nil {
		b.notify.BuildRecorded(attempt)
	}
	slog.Info("finished build", "nightly", night, "target", target, "mode", mode, "status", result.Status)
	return nil
}

func filterTargets(targets, skip []string) []string {
	if len(skip) == 0 {
		return targets
	}
	skipSet := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipSet[s] = true
	}
	kept := make([]string, 0, len(targets))
	for _, t := range targets {
		if !skipSet[t] {
			kept = append(kept, t)
		}
	}
	return kept
}
