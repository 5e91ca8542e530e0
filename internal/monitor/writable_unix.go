//go:build !windows

package monitor

import "golang.org/x/sys/unix"

// writable asks the kernel whether the process may write to dir.
func writable(dir string) error {
	return unix.Access(dir, unix.W_OK)
}
