package simpleregistry

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrObjectNotFound is returned by blob stores for missing keys
	ErrObjectNotFound = errors.New("object not found")

	// ErrDirectDownloadRequired is returned by blob stores that cannot issue download URLs
	ErrDirectDownloadRequired = errors.New("direct download required")

	// ErrStorageUnavailable matches every backend I/O failure
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrMalformedContent indicates stored text that is not the expected JSON
	ErrMalformedContent = errors.New("malformed content")
)

// StorageError represents an error related to storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is makes every StorageError match ErrStorageUnavailable.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

// DistError represents a decoding failure for a stored dist
type DistError struct {
	Path string
	Op   string
	Err  error
}

func (e *DistError) Error() string {
	return fmt.Sprintf("dist operation %s failed for path %s: %v", e.Op, e.Path, e.Err)
}

func (e *DistError) Unwrap() error {
	return e.Err
}
