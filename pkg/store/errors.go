package store

import (
	"fmt"

	"github.com/marmos91/dittosync/pkg/model"
)

// ErrorCode is the category of a store error.
//
// These are business outcomes callers branch on, not defects: NotFound and
// PathAlreadyBound never leave partial state behind.
type ErrorCode int

const (
	// ErrNotFound indicates the operation addressed an absent FileID
	ErrNotFound ErrorCode = iota

	// ErrPathAlreadyBound indicates a path is already bound to a
	// different file id somewhere in the registry
	ErrPathAlreadyBound
)

// StoreError is a domain error from metadata store operations.
//
// Invariant violations are not wrapped in StoreError; they surface as
// *model.InvariantError so callers can distinguish structural corruption
// from addressing mistakes.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// FileID is the file the operation addressed
	FileID model.FileID

	// ConflictingFileID is the holder of the binding for ErrPathAlreadyBound
	ConflictingFileID model.FileID

	// Path is the offending path for ErrPathAlreadyBound
	Path string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	switch e.Code {
	case ErrNotFound:
		return fmt.Sprintf("file %s not found", e.FileID)
	case ErrPathAlreadyBound:
		return fmt.Sprintf("path %q already bound to file %s", e.Path, e.ConflictingFileID)
	default:
		return "unknown store error"
	}
}

// NotFound builds the error for an absent file id.
func NotFound(fileID model.FileID) *StoreError {
	return &StoreError{Code: ErrNotFound, FileID: fileID}
}

// PathAlreadyBound builds the alias-exclusivity error, reporting which
// file currently holds the binding.
func PathAlreadyBound(fileID, conflicting model.FileID, path string) *StoreError {
	return &StoreError{
		Code:              ErrPathAlreadyBound,
		FileID:            fileID,
		ConflictingFileID: conflicting,
		Path:              path,
	}
}
