// Package cache keeps fetched build stderr on disk so browsing the
// matrix does not refetch the same compiler output over and over.
package cache

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Noratrieb/does-it-build/internal/model"
)

// StderrCache is a bounded on-disk cache of build output, one file per
// (nightly, target, mode). A nil *StderrCache is valid and caches
// nothing.
type StderrCache struct {
	dir     string
	maxSize int64         // max total cache size in bytes
	ttl     time.Duration // cache entry TTL
}

func New(dir string, maxSizeMB int, ttl time.Duration) (*StderrCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create stderr cache dir: %w", err)
	}
	return &StderrCache{
		dir:     dir,
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		ttl:     ttl,
	}, nil
}

// DefaultDir returns the per-user cache location.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve user cache dir: %w", err)
	}
	return filepath.Join(base, "does-it-build", "stderr"), nil
}

// entryPath builds the file name for one build. Components are
// percent-escaped so an odd target name cannot escape the cache dir.
func (sc *StderrCache) entryPath(nightly, target string, mode model.Mode) string {
	name := fmt.Sprintf("%s_%s_%s.txt",
		url.PathEscape(nightly), url.PathEscape(target), url.PathEscape(string(mode)))
	return filepath.Join(sc.dir, name)
}

// Get returns the cached output if present and fresh.
func (sc *StderrCache) Get(nightly, target string, mode model.Mode) (string, bool) {
	if sc == nil {
		return "", false
	}
	path := sc.entryPath(nightly, target, mode)
	info, err := os.Stat(path)
	if err != nil || time.Since(info.ModTime()) >= sc.ttl {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Put stores the output for one build.
func (sc *StderrCache) Put(nightly, target string, mode model.Mode, stderr string) error {
	if sc == nil {
		return nil
	}
	path := sc.entryPath(nightly, target, mode)
	if err := os.WriteFile(path, []byte(stderr), 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Delete drops one entry, if present. Fresh build attempts invalidate
// whatever output was cached for the same cell.
func (sc *StderrCache) Delete(nightly, target string, mode model.Mode) error {
	if sc == nil {
		return nil
	}
	err := os.Remove(sc.entryPath(nightly, target, mode))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Evict removes expired entries, then the oldest entries until the
// cache fits under its size cap.
func (sc *StderrCache) Evict() error {
	if sc == nil {
		return nil
	}

	type entry struct {
		path    string
		modTime time.Time
		size    int64
	}

	dirEntries, err := os.ReadDir(sc.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read cache dir: %w", err)
	}

	var entries []entry
	var totalSize int64
	for _, e := range dirEntries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		entries = append(entries, entry{
			path:    filepath.Join(sc.dir, e.Name()),
			modTime: info.ModTime(),
			size:    info.Size(),
		})
		totalSize += info.Size()
	}

	now := time.Now()
	remaining := entries[:0]
	for _, e := range entries {
		if now.Sub(e.modTime) > sc.ttl {
			os.Remove(e.path)
			totalSize -= e.size
		} else {
			remaining = append(remaining, e)
		}
	}
	entries = remaining

	if totalSize > sc.maxSize {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].modTime.Before(entries[j].modTime)
		})
		for _, e := range entries {
			if totalSize <= sc.maxSize {
				break
			}
			os.Remove(e.path)
			totalSize -= e.size
		}
	}
	return nil
}

// DeleteAll wipes every cached entry.
func (sc *StderrCache) DeleteAll() error {
	if sc == nil {
		return nil
	}
	entries, err := os.ReadDir(sc.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			os.Remove(filepath.Join(sc.dir, e.Name()))
		}
	}
	return nil
}

// TotalSize returns the cache size in bytes.
func (sc *StderrCache) TotalSize() (int64, error) {
	if sc == nil {
		return 0, nil
	}
	var total int64
	entries, err := os.ReadDir(sc.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if info, err := e.Info(); err == nil {
			total += info.Size()
		}
	}
	return total, nil
}
