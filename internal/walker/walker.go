// Package walker performs bounded concurrent directory traversal. A
// fixed pool of workers enumerates directories; a single coordinator
// goroutine owns the visited-identity set, applies policy pruning and
// schedules descent, so workers share no mutable state and communicate
// only through channels.
package walker

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/VN1SH/reclaim/internal/fsitem"
	"github.com/VN1SH/reclaim/internal/policy"
)

// Options bounds the traversal.
type Options struct {
	// Concurrency is the worker count. Values below 1 become 1; the
	// pool is fixed for the lifetime of a walk.
	Concurrency int
	// IOTimeout converts a hung directory listing or stat into a scan
	// error instead of stalling a worker. Zero disables the guard.
	IOTimeout time.Duration
}

// DefaultOptions returns the traversal bounds used when the
// configuration does not override them.
func DefaultOptions() Options {
	return Options{Concurrency: 8, IOTimeout: 30 * time.Second}
}

// Walker traverses directory trees beneath a set of roots, honoring
// path policy exclusions. One Walker may run many walks; each walk gets
// its own visited set.
type Walker struct {
	pol  *policy.Policy
	opts Options
	log  *zap.Logger
}

// New creates a Walker. A nil logger disables logging.
func New(pol *policy.Policy, opts Options, log *zap.Logger) *Walker {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Walker{pol: pol, opts: opts, log: log}
}

// Result is the streaming output of one walk. Records and Errors are
// closed when the traversal finishes; the sequence is finite and not
// restartable.
type Result struct {
	Records <-chan fsitem.FileRecord
	Errors  <-chan fsitem.ScanError
}

// dirWork is one directory awaiting enumeration.
type dirWork struct {
	path string
}

// dirResult is everything a worker learned about one directory.
type dirResult struct {
	path    string
	records []fsitem.FileRecord
	subdirs []subdir
	err     error
}

type subdir struct {
	path string
	id   fsitem.Identity
}

// Walk starts traversal of roots. Roots that cannot be stat'ed are
// reported as scan errors; blocked roots are pruned silently. The
// traversal ends when every reachable directory has been enumerated or
// ctx is cancelled, in which case unvisited subtrees are recorded as
// scan errors.
func (w *Walker) Walk(ctx context.Context, roots []string) Result {
	records := make(chan fsitem.FileRecord, 1024)
	errs := make(chan fsitem.ScanError, 256)

	queue := make(chan dirWork, w.opts.Concurrency*64)
	results := make(chan dirResult, w.opts.Concurrency*4)

	for i := 0; i < w.opts.Concurrency; i++ {
		go w.worker(ctx, queue, results)
	}
	go w.coordinate(ctx, roots, queue, results, records, errs)

	return Result{Records: records, Errors: errs}
}

// coordinate is the single consumer side: it owns the visited set, the
// pending queue and all policy decisions about descent.
func (w *Walker) coordinate(ctx context.Context, roots []string, queue chan dirWork, results chan dirResult, records chan<- fsitem.FileRecord, errs chan<- fsitem.ScanError) {
	defer close(records)
	defer close(errs)

	visited := make(map[fsitem.Identity]struct{})
	visitedPaths := make(map[string]struct{})
	var pending []dirWork
	inFlight := 0
	cancelled := false

	seen := func(path string, id fsitem.Identity) bool {
		if id.Zero() {
			key := fsitem.PathKey(path)
			if _, ok := visitedPaths[key]; ok {
				return true
			}
			visitedPaths[key] = struct{}{}
			return false
		}
		if _, ok := visited[id]; ok {
			return true
		}
		visited[id] = struct{}{}
		return false
	}

	// descend decides whether a directory enters the traversal at all.
	// Pruning happens here, at entry to the subtree: a blocked directory
	// is never enumerated and never reported.
	descend := func(path string, id fsitem.Identity) {
		if w.pol.Evaluate(path) == policy.Blocked {
			w.log.Debug("pruned blocked subtree", zap.String("path", path))
			return
		}
		if seen(path, id) {
			w.log.Debug("skipping revisited directory", zap.String("path", path))
			return
		}
		pending = append(pending, dirWork{path: path})
	}

	for _, root := range roots {
		if w.pol.Evaluate(root) == policy.Blocked {
			w.log.Warn("root is policy-blocked, skipping", zap.String("root", root))
			continue
		}
		info, err := lstatTimeout(root, w.opts.IOTimeout)
		if err != nil {
			errs <- fsitem.ScanError{Path: root, Message: err.Error()}
			continue
		}
		if !info.IsDir() {
			emit(ctx, records, recordFor(root, info))
			continue
		}
		id := fsitem.IdentityOf(info)
		if !seen(root, id) {
			emit(ctx, records, recordFor(root, info))
			pending = append(pending, dirWork{path: root})
		}
	}

	handle := func(res dirResult) {
		inFlight--
		if res.err != nil {
			errs <- fsitem.ScanError{Path: res.path, Message: res.err.Error()}
			return
		}
		for _, rec := range res.records {
			if w.pol.Evaluate(rec.Path) == policy.Blocked {
				continue
			}
			if !rec.IsDir && seen(rec.Path, rec.Identity) {
				continue // aliased path already emitted
			}
			emit(ctx, records, rec)
		}
		if cancelled {
			return
		}
		for _, sd := range res.subdirs {
			descend(sd.path, sd.id)
		}
	}

	for inFlight > 0 || len(pending) > 0 {
		if cancelled && inFlight == 0 {
			break
		}
		if len(pending) > 0 && !cancelled {
			next := pending[len(pending)-1]
			select {
			case queue <- next:
				pending = pending[:len(pending)-1]
				inFlight++
			case res := <-results:
				handle(res)
			case <-ctx.Done():
				cancelled = true
			}
			continue
		}
		select {
		case res := <-results:
			handle(res)
		case <-ctx.Done():
			cancelled = true
		}
	}

	if cancelled {
		for _, p := range pending {
			errs <- fsitem.ScanError{Path: p.path, Message: "scan cancelled before subtree was visited"}
		}
	}
	close(queue)
}

// worker enumerates directories from queue until it closes. Every job
// produces exactly one result so the coordinator's in-flight accounting
// stays exact, even under cancellation.
func (w *Walker) worker(ctx context.Context, queue <-chan dirWork, results chan<- dirResult) {
	for work := range queue {
		if ctx.Err() != nil {
			results <- dirResult{path: work.path, err: ctx.Err()}
			continue
		}
		results <- w.enumerate(ctx, work.path)
	}
}

// enumerate lists one directory. Entry-level stat failures become
// records with ReadError set; a listing failure fails the whole
// directory but never the walk.
func (w *Walker) enumerate(ctx context.Context, dir string) dirResult {
	res := dirResult{path: dir}

	entries, err := readDirTimeout(dir, w.opts.IOTimeout)
	if err != nil {
		res.err = err
		return res
	}

	for i, de := range entries {
		if i%64 == 0 && ctx.Err() != nil {
			res.err = ctx.Err()
			return res
		}
		child := join(dir, de.Name())
		info, err := lstatTimeout(child, w.opts.IOTimeout)
		if err != nil {
			res.records = append(res.records, fsitem.FileRecord{
				Path:      child,
				Extension: fsitem.ExtensionOf(child),
				IsDir:     de.IsDir(),
				ReadError: err.Error(),
			})
			continue
		}
		rec := recordFor(child, info)
		res.records = append(res.records, rec)

		// Descend into real directories only. Symlinks and junctions are
		// recorded but never followed; the coordinator's identity set
		// catches the remaining aliasing (bind mounts, hardlinked dirs).
		if rec.IsDir && !rec.IsSymlink {
			res.subdirs = append(res.subdirs, subdir{path: child, id: rec.Identity})
		}
	}
	return res
}

func recordFor(path string, info os.FileInfo) fsitem.FileRecord {
	isSymlink := info.Mode()&os.ModeSymlink != 0
	rec := fsitem.FileRecord{
		Path:        path,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		CreatedTime: createdTime(info),
		Extension:   fsitem.ExtensionOf(path),
		IsDir:       info.IsDir(),
		IsSymlink:   isSymlink,
		Identity:    fsitem.IdentityOf(info),
	}
	if rec.IsDir {
		rec.Size = 0
	}
	return rec
}

func emit(ctx context.Context, records chan<- fsitem.FileRecord, rec fsitem.FileRecord) {
	select {
	case records <- rec:
	case <-ctx.Done():
	}
}

func join(dir, name string) string {
	if len(dir) > 0 && dir[len(dir)-1] == os.PathSeparator {
		return dir + name
	}
	return dir + string(os.PathSeparator) + name
}
