package updater

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

// Outcome reports the result of one apply attempt. It is created once per
// attempt and not modified after Apply returns.
type Outcome struct {
	// Succeeded is true when the new artifact is durably installed.
	Succeeded bool
	// Message is a human-readable diagnostic for the host to display.
	Message string
	// BackupPath points at the preserved original, when one was written.
	BackupPath string
	// Recoverable marks the locked-executable case: the update did not land
	// on the running binary, but the replacement was staged as a .new sibling
	// for manual completion.
	Recoverable bool
}

// ProcessInfo describes the running process image. It is captured fresh for
// every apply attempt and never persisted.
type ProcessInfo struct {
	// ScriptPath is the path the process was invoked as (os.Args[0]).
	ScriptPath string
	// BinaryPath is the resolved executable image (os.Executable).
	BinaryPath string
	// Compiled is true when BinaryPath is the application itself rather than
	// an interpreter running ScriptPath.
	Compiled bool
}

// CurrentProcess captures ProcessInfo for the running process.
func CurrentProcess() ProcessInfo {
	script, err := filepath.Abs(os.Args[0])
	if err != nil {
		script = os.Args[0]
	}
	bin, err := os.Executable()
	if err != nil {
		bin = script
	}
	return ProcessInfo{ScriptPath: script, BinaryPath: bin, Compiled: true}
}

type installKind int

const (
	installScript installKind = iota
	installArchive
	installExecutable
)

// backupRecord is written as backup.yaml inside an archive backup directory
// so a manual recovery knows what was saved and why.
type backupRecord struct {
	CreatedAt   time.Time `yaml:"created_at"`
	InstallRoot string    `yaml:"install_root"`
	Entries     []string  `yaml:"entries"`
}

// Apply installs the downloaded artifact over the current installation.
//
// The artifact is re-verified against expectedChecksum, classified as an
// archive, an executable replacement, or a script replacement, and installed
// with a backup written before anything is overwritten. The scratch artifact
// is removed best-effort on every path except a checksum mismatch, where it
// is kept for diagnosis. With restart set, a successful apply hands off to
// the process restarter; a refused restart does not demote the outcome.
//
// Apply never panics or returns an error: every failure path is reported as
// a descriptive Outcome.
func (u *Updater) Apply(artifactPath, expectedChecksum string, proc ProcessInfo, restart bool) Outcome {
	if expectedChecksum != "" {
		actual, err := hashFile(artifactPath)
		if err != nil {
			return Outcome{Message: fmt.Sprintf("reading artifact for checksum: %v", err)}
		}
		if !strings.EqualFold(actual, expectedChecksum) {
			// Keep the artifact on disk so the mismatch can be inspected.
			return Outcome{Message: fmt.Sprintf("sha256 mismatch (got %s)", actual)}
		}
	}

	defer func() {
		if err := os.Remove(artifactPath); err != nil && !os.IsNotExist(err) {
			u.log.WithError(err).Debug("removing scratch artifact")
		}
	}()

	var outcome Outcome
	switch classifyArtifact(artifactPath, proc) {
	case installArchive:
		outcome = u.applyArchive(artifactPath, filepath.Dir(proc.ScriptPath))
	case installExecutable:
		outcome = u.applyExecutable(artifactPath, proc.BinaryPath)
	default:
		outcome = u.applyScript(artifactPath, proc.ScriptPath)
	}

	if outcome.Succeeded && restart {
		if err := u.restart(u.inv); err != nil {
			// The on-disk update already landed; a refused re-exec only
			// means the user has to relaunch by hand.
			u.log.WithError(err).Warn("automatic restart failed")
			outcome.Message += "; automatic restart failed, relaunch manually"
		}
	}
	return outcome
}

// classifyArtifact decides the install strategy: zip signature means a
// multi-file archive, an .exe artifact aimed at a compiled process image
// means executable replacement, anything else replaces the running script.
func classifyArtifact(artifactPath string, proc ProcessInfo) installKind {
	if isZipFile(artifactPath) {
		return installArchive
	}
	if strings.EqualFold(filepath.Ext(artifactPath), ".exe") && proc.Compiled {
		return installExecutable
	}
	return installScript
}

var zipMagics = [][]byte{
	{'P', 'K', 0x03, 0x04},
	{'P', 'K', 0x05, 0x06}, // empty archive
	{'P', 'K', 0x07, 0x08}, // spanned archive
}

func isZipFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		return false
	}
	for _, m := range zipMagics {
		if bytes.Equal(magic, m) {
			return true
		}
	}
	return false
}

// applyArchive extracts the artifact over the installation root. Every entry
// whose target already exists is copied into a timestamped backup directory,
// at the same relative path, before any extraction happens.
func (u *Updater) applyArchive(artifactPath, root string) Outcome {
	zr, err := zip.OpenReader(artifactPath)
	if err != nil {
		return Outcome{Message: fmt.Sprintf("opening archive: %v", err)}
	}
	defer zr.Close()

	backupDir := filepath.Join(root, fmt.Sprintf("backup_%d", time.Now().Unix()))
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return Outcome{Message: fmt.Sprintf("creating backup directory: %v", err)}
	}

	var saved []string
	for _, member := range zr.File {
		target, err := securePath(root, member.Name)
		if err != nil {
			return Outcome{Message: fmt.Sprintf("rejecting archive entry %q: %v", member.Name, err), BackupPath: backupDir}
		}
		if member.FileInfo().IsDir() {
			continue
		}
		info, err := os.Stat(target)
		if err != nil || info.IsDir() {
			continue
		}
		dest := filepath.Join(backupDir, filepath.FromSlash(member.Name))
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return Outcome{Message: fmt.Sprintf("preparing backup for %s: %v", member.Name, err), BackupPath: backupDir}
		}
		if err := copyFile(target, dest); err != nil {
			// The overwrite must not proceed without its backup.
			return Outcome{Message: fmt.Sprintf("backing up %s: %v", member.Name, err), BackupPath: backupDir}
		}
		saved = append(saved, member.Name)
	}

	// Recovery notes for whoever digs the backup out later. Best-effort.
	rec := backupRecord{CreatedAt: time.Now().UTC(), InstallRoot: root, Entries: saved}
	if data, err := yaml.Marshal(&rec); err == nil {
		if err := os.WriteFile(filepath.Join(backupDir, "backup.yaml"), data, 0644); err != nil {
			u.log.WithError(err).Warn("writing backup manifest")
		}
	}

	for _, member := range zr.File {
		target, err := securePath(root, member.Name)
		if err != nil {
			return Outcome{Message: fmt.Sprintf("rejecting archive entry %q: %v", member.Name, err), BackupPath: backupDir}
		}
		if err := extractMember(member, target); err != nil {
			return Outcome{Message: fmt.Sprintf("extracting %s: %v", member.Name, err), BackupPath: backupDir}
		}
	}

	return Outcome{
		Succeeded:  true,
		Message:    fmt.Sprintf("update applied (%d existing files backed up)", len(saved)),
		BackupPath: backupDir,
	}
}

// applyExecutable replaces the current binary with the artifact. The copy of
// the old binary is best-effort; the overwrite itself is staged so the
// running executable is either replaced whole or left intact.
func (u *Updater) applyExecutable(artifactPath, target string) Outcome {
	backup := fmt.Sprintf("%s.bak_%d", target, time.Now().Unix())
	if err := copyFile(target, backup); err != nil {
		u.log.WithError(err).Warn("backing up current executable")
		backup = ""
	}

	staged, err := stageCopy(artifactPath, target)
	if err != nil {
		return Outcome{Message: fmt.Sprintf("staging new executable: %v", err), BackupPath: backup}
	}
	if err := os.Rename(staged, target); err != nil {
		// Locked by the OS: park the replacement beside the binary and ask
		// for manual completion instead of half-overwriting it.
		alt := target + ".new"
		if mvErr := os.Rename(staged, alt); mvErr != nil {
			os.Remove(staged)
			return Outcome{Message: fmt.Sprintf("installing new executable: %v", err), BackupPath: backup}
		}
		return Outcome{
			Message:     fmt.Sprintf("cannot overwrite the running executable; new version written to %s, replace it manually", alt),
			BackupPath:  backup,
			Recoverable: true,
		}
	}
	return Outcome{Succeeded: true, Message: "update applied", BackupPath: backup}
}

// applyScript replaces the running script file with the artifact.
func (u *Updater) applyScript(artifactPath, target string) Outcome {
	backup := fmt.Sprintf("%s.bak_%d", target, time.Now().Unix())
	if err := copyFile(target, backup); err != nil {
		u.log.WithError(err).Warn("backing up current script")
		backup = ""
	}

	staged, err := stageCopy(artifactPath, target)
	if err != nil {
		return Outcome{Message: fmt.Sprintf("staging new script: %v", err), BackupPath: backup}
	}
	if err := os.Rename(staged, target); err != nil {
		os.Remove(staged)
		return Outcome{Message: fmt.Sprintf("writing script: %v", err), BackupPath: backup}
	}
	return Outcome{Succeeded: true, Message: "update applied", BackupPath: backup}
}

// securePath joins an archive member name onto root, refusing entries that
// would escape it.
func securePath(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes installation root")
	}
	return target, nil
}

func extractMember(member *zip.File, target string) error {
	if member.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	rc, err := member.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	mode := member.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// stageCopy writes src's bytes to a uniquely named sibling of dst, carrying
// over dst's permissions, and returns the staged path. Renaming the staged
// file into place is what makes the overwrite all-or-nothing.
func stageCopy(src, dst string) (string, error) {
	perm := fs.FileMode(0755)
	if info, err := os.Stat(dst); err == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".otc-stage-*")
	if err != nil {
		return "", err
	}

	in, err := os.Open(src)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	defer in.Close()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
