package updater

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// updateServer serves a manifest at / and a zip artifact at /app.zip, counting
// artifact downloads so tests can assert the downloader was never invoked.
type updateServer struct {
	srv          *httptest.Server
	artifactHits atomic.Int64
}

func newUpdateServer(t *testing.T, version string, artifact []byte, checksum string) *updateServer {
	t.Helper()
	us := &updateServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("/app.zip", func(w http.ResponseWriter, r *http.Request) {
		us.artifactHits.Add(1)
		w.Write(artifact)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"version":%q,"download_url":%q,"html_url":%q,"sha256":%q,"changelog":"notes"}`,
			version, us.srv.URL+"/app.zip", us.srv.URL+"/releases", checksum)
	})

	us.srv = httptest.NewServer(mux)
	t.Cleanup(us.srv.Close)
	return us
}

func waitResult(t *testing.T, o *Orchestrator) Result {
	t.Helper()
	select {
	case res := <-o.Result():
		return res
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for the update attempt to finish")
		return Result{}
	}
}

func TestOrchestrator_EndToEnd(t *testing.T) {
	root := t.TempDir()
	installed := filepath.Join(root, "app.txt")
	if err := os.WriteFile(installed, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	archive := createTestZip(t, map[string]string{"app.txt": "version 3.0"})
	sum := sha256.Sum256(archive)
	us := newUpdateServer(t, "3.0", archive, hex.EncodeToString(sum[:]))

	restarted := false
	u := New(Config{CurrentVersion: "2.0", ManifestURL: us.srv.URL},
		WithHTTPClient(us.srv.Client()),
		WithRestartFunc(func(Invocation) error {
			restarted = true
			return nil
		}))

	var states []State
	orch := NewOrchestrator(u,
		WithProcess(ProcessInfo{ScriptPath: filepath.Join(root, "main.py")}),
		WithDecision(func(m *Manifest) Decision { return DecisionProceed }),
		WithTransitionHook(func(s State) { states = append(states, s) }))

	orch.Start(context.Background())
	res := waitResult(t, orch)

	if res.State != StateDone {
		t.Fatalf("state = %v, want done (%+v)", res.State, res.Outcome)
	}
	if res.Manifest == nil || res.Manifest.Version != "3.0" {
		t.Fatalf("manifest = %+v", res.Manifest)
	}
	if res.Outcome == nil || !res.Outcome.Succeeded {
		t.Fatalf("outcome = %+v", res.Outcome)
	}
	if !restarted {
		t.Error("restarter was not invoked")
	}

	got, err := os.ReadFile(installed)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "version 3.0" {
		t.Errorf("installed file = %q", got)
	}

	// The displaced original survives in the backup directory.
	if res.Outcome.BackupPath == "" {
		t.Fatal("expected a backup path")
	}
	saved, err := os.ReadFile(filepath.Join(res.Outcome.BackupPath, "app.txt"))
	if err != nil || string(saved) != "old" {
		t.Errorf("backup = %q, %v", saved, err)
	}

	// Transitions arrive in pipeline order, ending on the terminal state.
	want := []State{StateChecking, StateComparing, StateAwaitingDecision,
		StateDownloading, StateVerifying, StateApplying, StateRestarting, StateDone}
	if len(states) != len(want) {
		t.Fatalf("transitions = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("transition %d = %v, want %v", i, states[i], want[i])
		}
	}
}

func TestOrchestrator_NoUpdateSkipsDownload(t *testing.T) {
	us := newUpdateServer(t, "2.0", []byte("unused"), "")

	u := New(Config{CurrentVersion: "2.0", ManifestURL: us.srv.URL},
		WithHTTPClient(us.srv.Client()))

	orch := NewOrchestrator(u,
		WithDecision(func(m *Manifest) Decision {
			t.Error("decision hook must not run when already on the latest version")
			return DecisionProceed
		}))
	orch.Start(context.Background())

	res := waitResult(t, orch)
	if res.State != StateNoUpdate {
		t.Fatalf("state = %v, want no-update", res.State)
	}
	if hits := us.artifactHits.Load(); hits != 0 {
		t.Errorf("artifact endpoint hit %d times on a no-op run", hits)
	}
}

func TestOrchestrator_UnreachableServerIsSilent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	u := New(Config{CurrentVersion: "2.0", ManifestURL: url})
	orch := NewOrchestrator(u)
	orch.Start(context.Background())

	res := waitResult(t, orch)
	if res.State != StateNoUpdate {
		t.Fatalf("state = %v, want no-update", res.State)
	}
}

func TestOrchestrator_Declined(t *testing.T) {
	us := newUpdateServer(t, "3.0", []byte("unused"), "")

	u := New(Config{CurrentVersion: "2.0", ManifestURL: us.srv.URL},
		WithHTTPClient(us.srv.Client()))

	orch := NewOrchestrator(u,
		WithDecision(func(m *Manifest) Decision { return DecisionDefer }))
	orch.Start(context.Background())

	res := waitResult(t, orch)
	if res.State != StateDeclined {
		t.Fatalf("state = %v, want declined", res.State)
	}
	if hits := us.artifactHits.Load(); hits != 0 {
		t.Errorf("artifact endpoint hit %d times after a deferral", hits)
	}
}

func TestOrchestrator_OpenPageDecision(t *testing.T) {
	us := newUpdateServer(t, "3.0", []byte("unused"), "")

	u := New(Config{CurrentVersion: "2.0", ManifestURL: us.srv.URL},
		WithHTTPClient(us.srv.Client()))

	orch := NewOrchestrator(u,
		WithDecision(func(m *Manifest) Decision { return DecisionOpenPage }))
	orch.Start(context.Background())

	res := waitResult(t, orch)
	if res.State != StateDeclined {
		t.Fatalf("state = %v, want declined", res.State)
	}
	if res.Decision != DecisionOpenPage {
		t.Errorf("decision = %v, want open-page", res.Decision)
	}
	if res.Manifest == nil || res.Manifest.PageURL == "" {
		t.Error("result should carry the release page for the host to open")
	}
}

func TestOrchestrator_NoDecisionDefers(t *testing.T) {
	us := newUpdateServer(t, "3.0", []byte("unused"), "")

	u := New(Config{CurrentVersion: "2.0", ManifestURL: us.srv.URL},
		WithHTTPClient(us.srv.Client()))

	orch := NewOrchestrator(u)
	orch.Start(context.Background())

	if res := waitResult(t, orch); res.State != StateDeclined {
		t.Fatalf("state = %v, want declined", res.State)
	}
}

func TestOrchestrator_AutoApply(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "app.txt"), []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	archive := createTestZip(t, map[string]string{"app.txt": "auto"})
	us := newUpdateServer(t, "3.0", archive, "")

	u := New(Config{CurrentVersion: "2.0", ManifestURL: us.srv.URL, AutoApply: true},
		WithHTTPClient(us.srv.Client()),
		WithRestartFunc(func(Invocation) error { return nil }))

	// No decision hook: auto-apply must proceed on its own.
	orch := NewOrchestrator(u,
		WithProcess(ProcessInfo{ScriptPath: filepath.Join(root, "main.py")}))
	orch.Start(context.Background())

	res := waitResult(t, orch)
	if res.State != StateDone {
		t.Fatalf("state = %v, want done (%+v)", res.State, res.Outcome)
	}
}

func TestOrchestrator_ChecksumMismatchFails(t *testing.T) {
	root := t.TempDir()
	archive := createTestZip(t, map[string]string{"app.txt": "x"})
	us := newUpdateServer(t, "3.0", archive, strings.Repeat("0", 64))

	u := New(Config{CurrentVersion: "2.0", ManifestURL: us.srv.URL},
		WithHTTPClient(us.srv.Client()))

	orch := NewOrchestrator(u,
		WithProcess(ProcessInfo{ScriptPath: filepath.Join(root, "main.py")}),
		WithDecision(func(m *Manifest) Decision { return DecisionProceed }))
	orch.Start(context.Background())

	res := waitResult(t, orch)
	if res.State != StateFailed {
		t.Fatalf("state = %v, want failed", res.State)
	}
	if res.Outcome == nil || !strings.Contains(res.Outcome.Message, "mismatch") {
		t.Fatalf("outcome = %+v, want checksum mismatch", res.Outcome)
	}

	// Nothing in the install root was touched.
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("install root modified on a failed verification: %v", entries)
	}
}

func TestOrchestrator_StartIsOneShot(t *testing.T) {
	us := newUpdateServer(t, "2.0", []byte("unused"), "")

	u := New(Config{CurrentVersion: "2.0", ManifestURL: us.srv.URL},
		WithHTTPClient(us.srv.Client()))

	orch := NewOrchestrator(u)
	orch.Start(context.Background())
	orch.Start(context.Background())

	if res := waitResult(t, orch); res.State != StateNoUpdate {
		t.Fatalf("state = %v, want no-update", res.State)
	}

	// A second Start did not launch a second attempt.
	select {
	case res := <-orch.Result():
		t.Fatalf("unexpected second result: %+v", res)
	case <-time.After(200 * time.Millisecond):
	}
}
