package updater

import (
	"context"
	"sync"
)

// State is a phase of one update attempt.
type State int

const (
	StateIdle State = iota
	StateChecking
	StateNoUpdate
	StateComparing
	StateAwaitingDecision
	StateDeclined
	StateDownloading
	StateVerifying
	StateApplying
	StateRestarting
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:             "idle",
	StateChecking:         "checking",
	StateNoUpdate:         "no-update",
	StateComparing:        "comparing",
	StateAwaitingDecision: "awaiting-decision",
	StateDeclined:         "declined",
	StateDownloading:      "downloading",
	StateVerifying:        "verifying",
	StateApplying:         "applying",
	StateRestarting:       "restarting",
	StateDone:             "done",
	StateFailed:           "failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Decision is the host's answer to an available update.
type Decision int

const (
	// DecisionDefer postpones the update until the next process start.
	DecisionDefer Decision = iota
	// DecisionProceed downloads and applies the update.
	DecisionProceed
	// DecisionOpenPage declines the update but asks the host to open the
	// release page instead.
	DecisionOpenPage
)

// DecideFunc is invoked on the worker when a newer version is available. The
// host owns any prompting; the worker just waits for the answer.
type DecideFunc func(m *Manifest) Decision

// Result is the single terminal event of an update attempt. State is one of
// NoUpdate, Declined, Done, or Failed.
type Result struct {
	State    State
	Decision Decision
	Manifest *Manifest
	Outcome  *Outcome
}

// Orchestrator drives one end-to-end update attempt (check, compare, decide,
// download, verify, apply, restart) on a single background worker.
// It is started at most once per process; the terminal result is delivered
// on a buffered channel the host reads on its own schedule, so the worker
// never touches host state directly.
type Orchestrator struct {
	u            *Updater
	decide       DecideFunc
	proc         ProcessInfo
	onTransition func(State)

	once    sync.Once
	results chan Result
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithDecision sets the host's decision hook. Without one, every available
// update is deferred.
func WithDecision(fn DecideFunc) OrchestratorOption {
	return func(o *Orchestrator) {
		o.decide = fn
	}
}

// WithProcess overrides the process image the applier targets.
func WithProcess(proc ProcessInfo) OrchestratorOption {
	return func(o *Orchestrator) {
		o.proc = proc
	}
}

// WithTransitionHook registers a callback for state transitions, for
// progress reporting. It runs on the worker.
func WithTransitionHook(fn func(State)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.onTransition = fn
	}
}

// NewOrchestrator creates an Orchestrator around the given Updater.
func NewOrchestrator(u *Updater, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		u:       u,
		proc:    CurrentProcess(),
		results: make(chan Result, 1),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start launches the update attempt on its own goroutine. Further calls are
// no-ops: overlapping attempts are not supported.
func (o *Orchestrator) Start(ctx context.Context) {
	o.once.Do(func() {
		go o.run(ctx)
	})
}

// Result returns the channel carrying the attempt's terminal event.
func (o *Orchestrator) Result() <-chan Result {
	return o.results
}

func (o *Orchestrator) transition(s State) {
	o.u.log.WithField("state", s.String()).Debug("update attempt")
	if o.onTransition != nil {
		o.onTransition(s)
	}
}

func (o *Orchestrator) finish(r Result) {
	o.transition(r.State)
	o.results <- r
}

func (o *Orchestrator) run(ctx context.Context) {
	cfg := o.u.cfg

	o.transition(StateChecking)
	m := o.u.FetchManifest(ctx)
	if m == nil {
		// Unreachable server, junk payload, missing version: all silent.
		o.finish(Result{State: StateNoUpdate})
		return
	}

	o.transition(StateComparing)
	if !IsUpdateAvailable(cfg.CurrentVersion, m.Version) {
		o.finish(Result{State: StateNoUpdate, Manifest: m})
		return
	}

	o.transition(StateAwaitingDecision)
	decision := DecisionDefer
	switch {
	case cfg.AutoApply && m.DownloadURL != "":
		decision = DecisionProceed
	case o.decide != nil:
		decision = o.decide(m)
	}
	if decision != DecisionProceed || m.DownloadURL == "" {
		// Nothing to download, or the user passed: terminal for this run,
		// no retry until the next process start.
		o.finish(Result{State: StateDeclined, Decision: decision, Manifest: m})
		return
	}

	o.transition(StateDownloading)
	artifact, err := o.u.DownloadArtifact(ctx, m.DownloadURL)
	if err != nil {
		o.finish(Result{
			State:    StateFailed,
			Manifest: m,
			Outcome:  &Outcome{Message: "downloading update: " + err.Error()},
		})
		return
	}

	o.transition(StateVerifying)
	if ok, err := VerifyChecksum(artifact, m.Checksum); err != nil || !ok {
		msg := "checksum mismatch; the downloaded artifact was kept at " + artifact
		if err != nil {
			msg = "verifying checksum: " + err.Error()
		}
		o.finish(Result{
			State:    StateFailed,
			Manifest: m,
			Outcome:  &Outcome{Message: msg},
		})
		return
	}

	o.transition(StateApplying)
	// Apply re-checks the checksum itself before touching anything.
	outcome := o.u.Apply(artifact, m.Checksum, o.proc, false)
	if !outcome.Succeeded {
		o.finish(Result{State: StateFailed, Manifest: m, Outcome: &outcome})
		return
	}

	o.transition(StateRestarting)
	if err := o.u.restart(o.u.inv); err != nil {
		// The update is already durable; only the relaunch is on the user.
		o.u.log.WithError(err).Warn("automatic restart failed")
		outcome.Message += "; automatic restart failed, relaunch manually"
	}
	o.finish(Result{State: StateDone, Decision: decision, Manifest: m, Outcome: &outcome})
}
