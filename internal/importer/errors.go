package importer

import (
	"errors"
	"fmt"
)

// Import error codes recorded in upload details.
const (
	CodeInvalidMetadata   = "invalid_metadata"
	CodeTrackUUIDNotFound = "track_uuid_not_found"
	CodeAlreadyImported   = "already_imported_in_owned_libraries"
	CodeUnknown           = "unknown_error"
)

// ErrNotPending rejects processing of an upload that is not claimable:
// either not in pending status or already claimed by another worker.
var ErrNotPending = errors.New("upload is not pending")

// ImportError is a resolution failure with a stable code. It terminates
// the upload's processing but never aborts other uploads.
type ImportError struct {
	Code   string
	Detail any
}

func (e *ImportError) Error() string {
	if e.Detail != nil {
		return fmt.Sprintf("import failed: %s: %v", e.Code, e.Detail)
	}
	return "import failed: " + e.Code
}

// ValidationError reports file metadata that failed shape validation,
// with per-field messages and a best-effort dump of the raw tags.
type ValidationError struct {
	Fields map[string]string
	Raw    map[string]any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid metadata: %d field errors", len(e.Fields))
}
