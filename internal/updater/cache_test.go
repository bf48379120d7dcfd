package updater

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCacheRoundtrip(t *testing.T) {
	dir := t.TempDir()

	cache := &VersionCache{
		LatestVersion:   "3.0",
		CurrentVersion:  "2.0",
		CheckedAt:       time.Now().Truncate(time.Second),
		UpdateAvailable: true,
	}
	if err := SaveCache(dir, cache); err != nil {
		t.Fatalf("SaveCache failed: %v", err)
	}

	loaded, err := LoadCache(dir)
	if err != nil {
		t.Fatalf("LoadCache failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected a cache, got nil")
	}
	if loaded.LatestVersion != cache.LatestVersion ||
		loaded.CurrentVersion != cache.CurrentVersion ||
		!loaded.UpdateAvailable {
		t.Errorf("loaded = %+v, want %+v", loaded, cache)
	}
	if !loaded.CheckedAt.Equal(cache.CheckedAt) {
		t.Errorf("checked_at = %v, want %v", loaded.CheckedAt, cache.CheckedAt)
	}
}

func TestLoadCache_Missing(t *testing.T) {
	cache, err := LoadCache(t.TempDir())
	if err != nil {
		t.Fatalf("missing cache should not error: %v", err)
	}
	if cache != nil {
		t.Fatalf("expected nil cache, got %+v", cache)
	}
}

func TestLoadCache_Corrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "version-check.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCache(dir); err == nil {
		t.Fatal("expected error for corrupt cache")
	}
}

func TestIsCacheStale(t *testing.T) {
	tests := []struct {
		name  string
		cache *VersionCache
		want  bool
	}{
		{"nil cache", nil, true},
		{"fresh", &VersionCache{CheckedAt: time.Now()}, false},
		{"stale", &VersionCache{CheckedAt: time.Now().Add(-25 * time.Hour)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCacheStale(tt.cache, DefaultCacheMaxAge); got != tt.want {
				t.Errorf("IsCacheStale = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckAndPrintBanner(t *testing.T) {
	dir := t.TempDir()
	cache := &VersionCache{
		LatestVersion:   "3.0",
		CurrentVersion:  "2.0",
		CheckedAt:       time.Now(),
		UpdateAvailable: true,
	}
	if err := SaveCache(dir, cache); err != nil {
		t.Fatal(err)
	}

	u := New(Config{CurrentVersion: "2.0", ManifestURL: "http://127.0.0.1:0"})

	var buf bytes.Buffer
	u.CheckAndPrintBanner(&buf, dir)

	out := buf.String()
	if !strings.Contains(out, "2.0") || !strings.Contains(out, "3.0") {
		t.Errorf("banner missing versions: %q", out)
	}
	if !strings.Contains(out, "update") {
		t.Errorf("banner missing upgrade hint: %q", out)
	}
}

func TestCheckAndPrintBanner_NoUpdate(t *testing.T) {
	dir := t.TempDir()
	cache := &VersionCache{
		LatestVersion:   "2.0",
		CurrentVersion:  "2.0",
		CheckedAt:       time.Now(),
		UpdateAvailable: false,
	}
	if err := SaveCache(dir, cache); err != nil {
		t.Fatal(err)
	}

	u := New(Config{CurrentVersion: "2.0", ManifestURL: "http://127.0.0.1:0"})

	var buf bytes.Buffer
	u.CheckAndPrintBanner(&buf, dir)
	if buf.Len() != 0 {
		t.Errorf("unexpected banner on a fresh, up-to-date cache: %q", buf.String())
	}
}

func TestRefreshCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"version":"3.0"}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	u := New(Config{CurrentVersion: "2.0", ManifestURL: srv.URL},
		WithHTTPClient(srv.Client()))

	u.refreshCache(dir)

	cache, err := LoadCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cache == nil {
		t.Fatal("refresh did not write a cache")
	}
	if cache.LatestVersion != "3.0" || !cache.UpdateAvailable {
		t.Errorf("cache = %+v", cache)
	}
}
