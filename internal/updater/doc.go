// Package updater implements the self-update mechanism for the otc binary.
// It fetches a version manifest from a configured URL, compares versions,
// downloads and verifies the new artifact, backs up and replaces the installed
// files, and re-execs the process so the update takes effect. The whole
// check-through-apply sequence runs on a single background worker driven by
// the Orchestrator; a daily-cached version check powers the startup banner.
package updater
