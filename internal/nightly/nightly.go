// Package nightly discovers published rustc nightlies from the release
// manifest listing.
package nightly

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// ManifestURL lists every dist manifest ever published, one per line.
const ManifestURL = "https://static.rust-lang.org/manifests.txt"

// Nightlies older than this are not worth sweeping.
const earliestCutoff = "2023-01-01"

// Nightlies holds every known nightly date, newest first.
type Nightlies struct {
	all []string
}

// Fetch downloads and parses the manifest listing. A nil client uses
// http.DefaultClient; url is usually ManifestURL.
func Fetch(ctx context.Context, client *http.Client, url string) (Nightlies, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Nightlies{}, fmt.Errorf("building manifest request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return Nightlies{}, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Nightlies{}, fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Nightlies{}, fmt.Errorf("reading manifest body: %w", err)
	}
	return FromManifest(string(body)), nil
}

// FromManifest extracts nightly dates from the raw listing, drops
// everything at or before the cutoff and sorts newest first.
func FromManifest(manifest string) Nightlies {
	dates := parseManifest(manifest)
	kept := dates[:0]
	for _, date := range dates {
		if date > earliestCutoff {
			kept = append(kept, date)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(kept)))
	return Nightlies{all: kept}
}

func parseManifest(manifest string) []string {
	var dates []string
	for _, line := range strings.Split(manifest, "\n") {
		rest, ok := strings.CutPrefix(line, "static.rust-lang.org/dist/")
		if !ok {
			continue
		}
		date, ok := strings.CutSuffix(rest, "/channel-rust-nightly.toml")
		if !ok {
			continue
		}
		dates = append(dates, date)
	}
	return dates
}

func (n Nightlies) All() []string {
	return n.all
}

func (n Nightlies) Len() int {
	return len(n.all)
}

// SelectLatestToBuild returns the newest nightly not yet in finished,
// or false when everything known is already swept.
func (n Nightlies) SelectLatestToBuild(finished []string) (string, bool) {
	done := make(map[string]bool, len(finished))
	for _, f := range finished {
		done[f] = true
	}
	for _, nightly := range n.all {
		if !done[nightly] {
			return nightly, true
		}
	}
	return "", false
}
