//go:build !windows

package updater

import (
	"fmt"
	"syscall"
)

// Restart replaces the current process image in place with a fresh launch of
// the original invocation. It must only be called once the on-disk update is
// durably written; on success it does not return.
func Restart(inv Invocation) error {
	if err := syscall.Exec(inv.Path, inv.Args, inv.Env); err != nil {
		return fmt.Errorf("re-exec %s: %w", inv.Path, err)
	}
	return nil
}
