package executor

import (
	"errors"
	"os"
	"syscall"

	"github.com/VN1SH/reclaim/internal/plan"
)

// categorized carries the typed reason and retry hint derived from a
// removal error.
type categorized struct {
	Reason    plan.FailReason
	Retryable bool
}

// categorizeError maps an OS error from a removal attempt onto the
// fixed failure taxonomy. IN_USE is the only retryable class.
func categorizeError(err error) categorized {
	if err == nil {
		return categorized{Reason: plan.ReasonNone}
	}
	if os.IsNotExist(err) {
		return categorized{Reason: plan.ReasonNotFound}
	}
	if os.IsPermission(err) {
		return categorized{Reason: plan.ReasonPermissionDenied}
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EACCES, syscall.EPERM:
			return categorized{Reason: plan.ReasonPermissionDenied}
		case syscall.EBUSY, syscall.ETXTBSY:
			return categorized{Reason: plan.ReasonInUse, Retryable: true}
		case syscall.ENOENT:
			return categorized{Reason: plan.ReasonNotFound}
		case syscall.EIO, syscall.EROFS, syscall.ENOSPC, syscall.EXDEV:
			return categorized{Reason: plan.ReasonIOError}
		}
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return categorized{Reason: plan.ReasonIOError}
	}
	return categorized{Reason: plan.ReasonUnknown}
}
