package config

import (
	"fmt"
	"time"

	"github.com/Noratrieb/does-it-build/internal/grid"
	"github.com/Noratrieb/does-it-build/internal/model"
)

const DefaultRefreshInterval = 30 * time.Second

// Client is the TUI configuration, fed from command line flags.
type Client struct {
	// ServerURL points at a running does-it-build server.
	ServerURL string
	// DBPath reads build state straight from a local sqlite database
	// instead of a server.
	DBPath string
	// Mode is the build mode shown at startup.
	Mode model.Mode
	// Orientation is the matrix orientation shown at startup.
	Orientation grid.Orientation
	// RefreshInterval is how often the TUI re-fetches build state.
	RefreshInterval time.Duration
	// CacheDir overrides where fetched stderr output is cached on disk.
	CacheDir string
}

func (c Client) Validate() error {
	if c.ServerURL == "" && c.DBPath == "" {
		return fmt.Errorf("a server URL or a database path is required (use -server or -db)")
	}
	if c.ServerURL != "" && c.DBPath != "" {
		return fmt.Errorf("-server and -db are mutually exclusive")
	}
	if !c.Mode.Valid() {
		return fmt.Errorf("unknown mode %q (use -mode core or -mode miri-std)", c.Mode)
	}
	if !c.Orientation.Valid() {
		return fmt.Errorf("unknown orientation %q (use -by targets or -by nightlies)", c.Orientation)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", c.RefreshInterval)
	}
	return nil
}
