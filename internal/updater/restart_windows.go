//go:build windows

package updater

import "fmt"

// Restart refuses on Windows: the platform has no in-place process
// replacement, and the running binary cannot re-exec over itself. Callers
// treat this as non-fatal: the on-disk update has already landed and only a
// manual relaunch is needed.
func Restart(inv Invocation) error {
	return fmt.Errorf("in-place restart is not supported on windows; relaunch %s manually", inv.Path)
}
