package postcache

import "github.com/pkg/errors"

// Sentinel error kinds for the posting-list cache. Wrap these
// with errors.Wrapf at the detection site so the call chain survives in the
// returned error without a stack-trace dependency.
var (
	// ErrUnknownThreadID is returned by NoteRequests/Refresh when tid is
	// outside [0, MaxThreads).
	ErrUnknownThreadID = errors.New("postcache: invalid argument: unknown thread id")

	// ErrCorruptInvariant is logged (debug mode only) when a policy core
	// detects its own bookkeeping has drifted from the ItemMap — a
	// min_freq bucket gone missing, and so on. The condition is
	// defensively repaired in the same pass rather than surfaced to the
	// caller.
	ErrCorruptInvariant = errors.New("postcache: internal: corrupt invariant")

	// ErrNoSuchBatch is logged (debug mode only) when a key's batch_id has
	// no corresponding live ReadBatch; always paired with a defensive
	// erase of the stale keyToBatch entry.
	ErrNoSuchBatch = errors.New("postcache: internal: batch id not live")
)
