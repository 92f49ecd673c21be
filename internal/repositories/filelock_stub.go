//go:build !unix

package repositories

import "os"

// lockFile is a stub on non-Unix platforms; the in-process mutex of each
// store is the only serialization there.
func lockFile(f *os.File) error { return nil }

// unlockFile is a stub counterpart to lockFile on non-Unix platforms.
func unlockFile(f *os.File) error { return nil }
