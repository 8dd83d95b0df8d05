package model

import "fmt"

// InvariantCode is the category of a structural invariant violation.
type InvariantCode int

const (
	// InvariantMissingHead indicates HeadVersionID has no matching entry
	// in Versions.
	InvariantMissingHead InvariantCode = iota

	// InvariantDuplicateVersion indicates two versions share an id.
	InvariantDuplicateVersion

	// InvariantMissingDevice indicates the device state vector holds more
	// than one entry for the same device id.
	InvariantMissingDevice

	// InvariantLockMismatch indicates a present lock references a
	// different file id than the record it is attached to.
	InvariantLockMismatch
)

// InvariantError reports which invariant a FileRecord violates.
//
// These are raised after a prospective mutation; the store reverts the
// mutation in full before surfacing one, so callers never observe partial
// state.
type InvariantError struct {
	// Code is the violated invariant
	Code InvariantCode

	// VersionID is the offending version id for MissingHead and
	// DuplicateVersion
	VersionID VersionID

	// DeviceID is the duplicated device id for MissingDevice
	DeviceID DeviceID

	// LockFileID is the lock's file id for LockMismatch
	LockFileID FileID
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	switch e.Code {
	case InvariantMissingHead:
		return fmt.Sprintf("head version %s not present in versions list", e.VersionID)
	case InvariantDuplicateVersion:
		return fmt.Sprintf("duplicate version id %s", e.VersionID)
	case InvariantMissingDevice:
		return fmt.Sprintf("duplicate device state for device %s", e.DeviceID)
	case InvariantLockMismatch:
		return fmt.Sprintf("lock references file %s instead of its record", e.LockFileID)
	default:
		return "unknown invariant violation"
	}
}

// Validate checks the structural invariants of a shared FileRecord:
//
//   - the head version must exist in the versions list
//   - the versions list must not contain duplicate ids
//   - each device appears at most once in the device state vector
//   - a present lock must reference the record's own file id
//
// A single linear scan over versions detects duplicates and head presence
// simultaneously; a second scan covers device states. Validate must be
// invoked after every mutation touching Versions, Lock, or DeviceStates.
func Validate(record *FileRecord) error {
	seenVersions := make(map[VersionID]struct{}, len(record.Versions))
	headPresent := false
	for _, v := range record.Versions {
		if _, dup := seenVersions[v.VersionID]; dup {
			return &InvariantError{Code: InvariantDuplicateVersion, VersionID: v.VersionID}
		}
		seenVersions[v.VersionID] = struct{}{}
		if v.VersionID == record.HeadVersionID {
			headPresent = true
		}
	}
	if !headPresent {
		return &InvariantError{Code: InvariantMissingHead, VersionID: record.HeadVersionID}
	}

	if record.Lock != nil && record.Lock.FileID != record.FileID {
		return &InvariantError{Code: InvariantLockMismatch, LockFileID: record.Lock.FileID}
	}

	seenDevices := make(map[DeviceID]struct{}, len(record.DeviceStates))
	for _, state := range record.DeviceStates {
		if _, dup := seenDevices[state.DeviceID]; dup {
			return &InvariantError{Code: InvariantMissingDevice, DeviceID: state.DeviceID}
		}
		seenDevices[state.DeviceID] = struct{}{}
	}

	return nil
}
