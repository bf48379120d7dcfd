package updater

import "os"

// Invocation is the exact original launch of this process, captured at
// startup so a re-exec picks up the updated artifact with the same arguments.
type Invocation struct {
	Path string
	Args []string
	Env  []string
}

// CaptureInvocation records the current process's executable path, argument
// vector, and environment.
func CaptureInvocation() Invocation {
	path, err := os.Executable()
	if err != nil {
		path = os.Args[0]
	}
	return Invocation{
		Path: path,
		Args: os.Args,
		Env:  os.Environ(),
	}
}
