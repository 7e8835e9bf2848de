package naming

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"liteconvert/internal/convert"
)

// Action is the conflict resolution verdict for one candidate path.
type Action int

const (
	Proceed Action = iota
	Skip
)

// ConflictResolver applies the overwrite policy against both the disk and
// the set of paths already reserved by earlier items of the same batch.
// It is called once per work item at planning time, in construction order;
// every accepted path is reserved immediately, which is what upholds the
// batch-wide no-collision invariant even though execution runs concurrently.
type ConflictResolver struct {
	reserved map[string]struct{}
	onDisk   func(string) bool
}

// NewConflictResolver checks real disk state.
func NewConflictResolver() *ConflictResolver {
	return &ConflictResolver{
		reserved: make(map[string]struct{}),
		onDisk: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
	}
}

// NewConflictResolverWith uses onDisk in place of the real filesystem check.
// Intended for tests.
func NewConflictResolverWith(onDisk func(string) bool) *ConflictResolver {
	return &ConflictResolver{reserved: make(map[string]struct{}), onDisk: onDisk}
}

// Resolve decides the final path and action for candidate under policy.
//
//   - Overwrite: the candidate wins against disk state. An in-batch
//     duplicate is still renamed, since two items of one batch must never
//     write the same path.
//   - Skip: any collision (disk or in-batch) skips the item.
//   - AutoRename: collisions get a " (N)" suffix before the extension, N
//     counting up from 1 until a free path is found.
func (r *ConflictResolver) Resolve(candidate string, policy convert.OverwritePolicy) (string, Action) {
	switch policy {
	case convert.PolicyOverwrite:
		if !r.isReserved(candidate) {
			r.reserve(candidate)
			return candidate, Proceed
		}
		return r.autoRename(candidate, true)

	case convert.PolicySkip:
		if r.taken(candidate) {
			return candidate, Skip
		}
		r.reserve(candidate)
		return candidate, Proceed

	default: // AutoRename
		if !r.taken(candidate) {
			r.reserve(candidate)
			return candidate, Proceed
		}
		return r.autoRename(candidate, false)
	}
}

// autoRename finds the first " (N)" variant that is free. ignoreDisk keeps
// the Overwrite semantics, where only in-batch reservations matter.
func (r *ConflictResolver) autoRename(candidate string, ignoreDisk bool) (string, Action) {
	dir := filepath.Dir(candidate)
	base := filepath.Base(candidate)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for n := 1; ; n++ {
		variant := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
		if r.isReserved(variant) {
			continue
		}
		if !ignoreDisk && r.onDisk(variant) {
			continue
		}
		r.reserve(variant)
		return variant, Proceed
	}
}

func (r *ConflictResolver) taken(path string) bool {
	return r.isReserved(path) || r.onDisk(path)
}

func (r *ConflictResolver) isReserved(path string) bool {
	_, ok := r.reserved[path]
	return ok
}

func (r *ConflictResolver) reserve(path string) {
	r.reserved[path] = struct{}{}
}
