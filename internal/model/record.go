package model

import (
	"errors"
	"fmt"
)

// ErrMalformedRecord marks a build attempt missing one of its required
// fields. Ingestion rejects the whole batch on the first one.
var ErrMalformedRecord = errors.New("malformed build record")

type Mode string

const (
	// ModeCore probes `cargo build -Zbuild-std=core` on a #![no_std] crate.
	ModeCore Mode = "core"
	// ModeMiriStd probes `cargo miri setup` for the target.
	ModeMiriStd Mode = "miri-std"
)

func (m Mode) Valid() bool {
	return m == ModeCore || m == ModeMiriStd
}

func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown build mode %q", s)
	}
	return m, nil
}

// Modes lists the known build modes in display order.
func Modes() []Mode {
	return []Mode{ModeCore, ModeMiriStd}
}

type Status string

const (
	StatusError Status = "error"
	StatusPass  Status = "pass"
)

func (s Status) Valid() bool {
	return s == StatusError || s == StatusPass
}

// BuildAttempt is one probe of a (nightly, target, mode) combination.
// At most one attempt exists per key. Stderr is only carried by detail
// lookups; list payloads leave it empty.
type BuildAttempt struct {
	Nightly string `json:"nightly"`
	Target  string `json:"target"`
	Status  Status `json:"status"`
	Stderr  string `json:"stderr,omitempty"`
	Mode    Mode   `json:"mode"`
}

func (b BuildAttempt) Validate() error {
	switch {
	case b.Nightly == "":
		return fmt.Errorf("%w: missing nightly", ErrMalformedRecord)
	case b.Target == "":
		return fmt.Errorf("%w: missing target", ErrMalformedRecord)
	case !b.Mode.Valid():
		return fmt.Errorf("%w: bad mode %q", ErrMalformedRecord, b.Mode)
	case !b.Status.Valid():
		return fmt.Errorf("%w: bad status %q", ErrMalformedRecord, b.Status)
	}
	return nil
}

// PartitionByMode splits a mixed collection into per-mode slices. The
// grid engine works on one mode at a time, so callers partition before
// feeding record stores.
func PartitionByMode(records []BuildAttempt) map[Mode][]BuildAttempt {
	parts := make(map[Mode][]BuildAttempt)
	for _, r := range records {
		parts[r.Mode] = append(parts[r.Mode], r)
	}
	return parts
}
