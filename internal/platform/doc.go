// Package platform isolates the OS-specific bits: launching a file with the
// desktop's default handler.
package platform
