//go:build !unix

package fileio

import "os"

// Advisory locking is only implemented for unix platforms
func lockFile(fd *os.File) error { return nil }

func unlockFile(fd *os.File) error { return nil }
