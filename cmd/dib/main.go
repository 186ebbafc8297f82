package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Noratrieb/does-it-build/internal/api"
	"github.com/Noratrieb/does-it-build/internal/cache"
	"github.com/Noratrieb/does-it-build/internal/config"
	"github.com/Noratrieb/does-it-build/internal/grid"
	"github.com/Noratrieb/does-it-build/internal/model"
	"github.com/Noratrieb/does-it-build/internal/tui"
	"github.com/Noratrieb/does-it-build/internal/version"
)

func main() {
	server := flag.String("server", "", "does-it-build server URL")
	db := flag.String("db", "", "Read a local sqlite database instead of a server")
	mode := flag.String("mode", string(model.ModeCore), "Build mode shown at startup (core or miri-std)")
	by := flag.String("by", string(grid.TargetMajor), "Matrix orientation (targets or nightlies)")
	refresh := flag.Duration("refresh", config.DefaultRefreshInterval, "How often to re-fetch build state")
	cacheDir := flag.String("cache-dir", "", "Stderr cache directory (default: under the user cache dir)")
	cacheSizeMB := flag.Int("cache-size", 200, "Max stderr cache size in MB")
	cacheTTL := flag.Duration("cache-ttl", 24*time.Hour, "Stderr cache TTL")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("dib", version.Version())
		os.Exit(0)
	}

	cfg := config.Client{
		ServerURL:       *server,
		DBPath:          *db,
		Mode:            model.Mode(*mode),
		Orientation:     grid.Orientation(*by),
		RefreshInterval: *refresh,
		CacheDir:        *cacheDir,
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	var provider api.Provider
	var err error
	if cfg.DBPath != "" {
		provider, err = api.OpenLocal(cfg.DBPath)
	} else {
		provider, err = api.NewClient(cfg.ServerURL)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer provider.Close()

	dir := cfg.CacheDir
	if dir == "" {
		dir, err = cache.DefaultDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cache error: %v\n", err)
			os.Exit(1)
		}
	}
	stderrs, err := cache.New(dir, *cacheSizeMB, *cacheTTL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cache error: %v\n", err)
		os.Exit(1)
	}
	// Expired entries go before the UI starts, not on its hot path.
	if err := stderrs.Evict(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cache eviction failed: %v\n", err)
	}

	app := tui.NewApp(cfg, provider, stderrs)
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
