package cache

import (
	"os"
	"syscall"
)

// lockFile takes an advisory flock on f, exclusive for writers and shared for
// readers. Acquisition blocks until the current holder releases, so two
// processes sharing a cache root serialize on the entry file itself.
func lockFile(f *os.File, exclusive bool) error {
	how := syscall.LOCK_SH
	if exclusive {
		how = syscall.LOCK_EX
	}
	return syscall.Flock(int(f.Fd()), how)
}

func unlockFile(f *os.File) {
	// Close drops the lock anyway; releasing early just shortens the window.
	_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
