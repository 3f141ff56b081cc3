// Package errs holds the error taxonomy shared by every layer of the tracking
// engine: the storage layers (vcs, recorder, history) and the engine itself
// all return one of these so callers can classify failures with errors.As
// instead of parsing messages.
package errs

import "fmt"

// InaccessibleContentError reports a recoverable upstream failure (4xx/5xx,
// timeout, connection refused) while fetching a document. It is reported to
// listeners, never fatal to a batch.
type InaccessibleContentError struct {
	Location string
	Reason   string
	Wrapped  error
}

func (e *InaccessibleContentError) Error() string {
	return fmt.Sprintf("content inaccessible at %q: %s", e.Location, e.Reason)
}

func (e *InaccessibleContentError) Unwrap() error { return e.Wrapped }

// NewInaccessibleContentError builds an InaccessibleContentError.
func NewInaccessibleContentError(location, reason string, wrapped error) *InaccessibleContentError {
	return &InaccessibleContentError{Location: location, Reason: reason, Wrapped: wrapped}
}

// MissingSnapshotBinding is raised when a Version is about to be recorded
// without a non-empty source snapshot id. Fatal: this is an internal
// invariant violation, never a recoverable condition.
type MissingSnapshotBinding struct {
	ServiceID    string
	DocumentType string
}

func (e *MissingSnapshotBinding) Error() string {
	return fmt.Sprintf("refusing to record version for %s/%s: missing snapshot binding", e.ServiceID, e.DocumentType)
}

// StorageError wraps a VCS or filesystem failure with the file path that was
// being operated on. Fatal to the current batch.
type StorageError struct {
	Path    string
	Message string
	Wrapped error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error for %q: %s: %v", e.Path, e.Message, e.Wrapped)
}

func (e *StorageError) Unwrap() error { return e.Wrapped }

// NewStorageError builds a StorageError.
func NewStorageError(path, message string, wrapped error) *StorageError {
	return &StorageError{Path: path, Message: message, Wrapped: wrapped}
}

// MalformedRecord is raised when a commit expected to touch exactly one file
// touched zero or several. Fatal for the read that triggered it.
type MalformedRecord struct {
	CommitHash string
	FileCount  int
}

func (e *MalformedRecord) Error() string {
	return fmt.Sprintf("malformed record at commit %s: expected exactly one changed file, found %d", e.CommitHash, e.FileCount)
}

// AmbiguousPath is raised when a glob resolves to more than one tracked file.
// Fatal.
type AmbiguousPath struct {
	Glob    string
	Matches []string
}

func (e *AmbiguousPath) Error() string {
	return fmt.Sprintf("ambiguous path glob %q matched %d files: %v", e.Glob, len(e.Matches), e.Matches)
}

// Wrap attaches additional context to err, preserving it for errors.Is/As.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
