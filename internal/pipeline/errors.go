package pipeline

import "errors"

// Sentinel errors for the pipeline failure taxonomy. Per-item failures
// (source unreadable, single-variant encode failures) are absorbed and
// reported; only directory-level preconditions escalate to the batch caller.
var (
	// ErrSourceUnreadable means an original could not be opened or its
	// metadata probed. The original is skipped, the batch continues.
	ErrSourceUnreadable = errors.New("source image unreadable")

	// ErrEncodeFailed means the codec failed for one variant. The variant is
	// skipped, remaining formats and sizes continue.
	ErrEncodeFailed = errors.New("variant encode failed")

	// ErrInputDirMissing aborts a whole batch run.
	ErrInputDirMissing = errors.New("input directory missing")

	// ErrNotFound is returned for on-the-fly requests whose original does
	// not exist under the input root.
	ErrNotFound = errors.New("image not found")

	// ErrTransformFailed is returned for on-the-fly codec failures.
	ErrTransformFailed = errors.New("image transform failed")
)
