package nightly

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

const testManifest = `static.rust-lang.org/dist/2024-08-22/channel-rust-nightly.toml
static.rust-lang.org/dist/2024-08-22/channel-rust-1.81.0-beta.toml
static.rust-lang.org/dist/2024-08-22/channel-rust-1.81.0-beta.6.toml
static.rust-lang.org/dist/2024-08-23/channel-rust-nightly.toml`

func TestParseManifest(t *testing.T) {
	dates := parseManifest(testManifest)
	if want := []string{"2024-08-22", "2024-08-23"}; !reflect.DeepEqual(dates, want) {
		t.Errorf("parsed %v, want %v", dates, want)
	}
}

func TestFromManifestCutoffAndOrder(t *testing.T) {
	manifest := `static.rust-lang.org/dist/2022-06-01/channel-rust-nightly.toml
static.rust-lang.org/dist/2023-01-01/channel-rust-nightly.toml
static.rust-lang.org/dist/2024-08-22/channel-rust-nightly.toml
static.rust-lang.org/dist/2023-05-05/channel-rust-nightly.toml`

	n := FromManifest(manifest)
	// 2022-06-01 and the cutoff date itself are both excluded.
	if want := []string{"2024-08-22", "2023-05-05"}; !reflect.DeepEqual(n.All(), want) {
		t.Errorf("nightlies = %v, want %v", n.All(), want)
	}
}

func TestSelectLatestToBuild(t *testing.T) {
	n := FromManifest(testManifest)

	next, ok := n.SelectLatestToBuild(nil)
	if !ok || next != "2024-08-23" {
		t.Errorf("next = %q, %v; want newest 2024-08-23", next, ok)
	}

	next, ok = n.SelectLatestToBuild([]string{"2024-08-23"})
	if !ok || next != "2024-08-22" {
		t.Errorf("next = %q, %v; want 2024-08-22", next, ok)
	}

	if _, ok := n.SelectLatestToBuild([]string{"2024-08-22", "2024-08-23"}); ok {
		t.Error("everything finished, expected no candidate")
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testManifest))
	}))
	defer srv.Close()

	n, err := Fetch(context.Background(), srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if n.Len() != 2 {
		t.Errorf("fetched %d nightlies, want 2", n.Len())
	}
}

func TestFetchBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := Fetch(context.Background(), srv.Client(), srv.URL); err == nil {
		t.Error("expected error on 500 response")
	}
}
