package fsitem

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Identity is a stable filesystem identity used for cycle avoidance and
// for re-verifying an item before removal. Path strings can alias
// (symlinks, case folding); device+inode cannot.
type Identity struct {
	Dev   uint64 `json:"dev"`
	Inode uint64 `json:"inode"`
}

// Zero reports whether no identity could be derived.
func (id Identity) Zero() bool {
	return id.Dev == 0 && id.Inode == 0
}

// IdentityOf extracts the device and inode from a stat result. Returns
// the zero Identity when the platform does not expose them; callers
// fall back to PathKey.
func IdentityOf(info os.FileInfo) Identity {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return Identity{Dev: uint64(stat.Dev), Inode: uint64(stat.Ino)}
	}
	return Identity{}
}

// PathKey normalizes a path for identity fallback and policy matching:
// separators unified, cleaned, lowercased.
func PathKey(path string) string {
	p := strings.ReplaceAll(path, "\\", "/")
	p = filepath.ToSlash(filepath.Clean(filepath.FromSlash(p)))
	return strings.ToLower(p)
}
