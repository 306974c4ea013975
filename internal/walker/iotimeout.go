package walker

import (
	"errors"
	"os"
	"syscall"
	"time"
)

// ErrIOTimeout marks a directory listing or stat call that exceeded the
// per-call deadline. A hung call (locked or offline path) becomes a
// scan error for that path instead of stalling the worker pool.
var ErrIOTimeout = errors.New("filesystem operation timed out")

type statOutcome struct {
	info os.FileInfo
	err  error
}

func lstatTimeout(path string, timeout time.Duration) (os.FileInfo, error) {
	if timeout <= 0 {
		return os.Lstat(path)
	}
	ch := make(chan statOutcome, 1)
	go func() {
		info, err := os.Lstat(path)
		ch <- statOutcome{info: info, err: err}
	}()
	select {
	case out := <-ch:
		return out.info, out.err
	case <-time.After(timeout):
		return nil, ErrIOTimeout
	}
}

type readDirOutcome struct {
	entries []os.DirEntry
	err     error
}

func readDirTimeout(path string, timeout time.Duration) ([]os.DirEntry, error) {
	if timeout <= 0 {
		return os.ReadDir(path)
	}
	ch := make(chan readDirOutcome, 1)
	go func() {
		entries, err := os.ReadDir(path)
		ch <- readDirOutcome{entries: entries, err: err}
	}()
	select {
	case out := <-ch:
		return out.entries, out.err
	case <-time.After(timeout):
		return nil, ErrIOTimeout
	}
}

// createdTime returns the closest available creation-time analogue:
// the inode change time where the platform exposes one, otherwise the
// modification time.
func createdTime(info os.FileInfo) time.Time {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(int64(stat.Ctim.Sec), int64(stat.Ctim.Nsec))
	}
	return info.ModTime()
}
