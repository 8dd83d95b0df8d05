// Package lock implements the locking and conflict decisions of the sync
// core as pure functions over a file record snapshot.
//
// No function here performs I/O or persists anything: the caller obtains a
// snapshot from the metadata store, asks for a decision, and commits the
// outcome back through the store. Locking is exclusive and non-reentrant;
// under an absent lock, writes fall back to optimistic concurrency against
// the record's head version.
package lock

import (
	"fmt"
	"time"

	"github.com/marmos91/dittosync/pkg/model"
)

// ErrorCode is the category of a locking error.
type ErrorCode int

const (
	// ErrLockMismatch indicates the record carries a lock whose file id
	// disagrees with the record itself. Structurally impossible for
	// records that passed validation; surfaced defensively for snapshots
	// of unknown provenance.
	ErrLockMismatch ErrorCode = iota
)

// LockError is a domain error from lock decision functions.
type LockError struct {
	// Code is the error category
	Code ErrorCode

	// FileID is the file the decision addressed
	FileID model.FileID

	// LockFileID is the file id the offending lock claims
	LockFileID model.FileID
}

// Error implements the error interface.
func (e *LockError) Error() string {
	switch e.Code {
	case ErrLockMismatch:
		return fmt.Sprintf("lock on file %s claims file %s", e.FileID, e.LockFileID)
	default:
		return "unknown lock error"
	}
}

// AcquireOutcome is the result category of an acquire attempt.
type AcquireOutcome int

const (
	// AcquireAcquired means the caller now holds a fresh exclusive lock
	AcquireAcquired AcquireOutcome = iota

	// AcquireDenied means some device already holds the lock. Holding a
	// lock does not permit re-acquiring it: the current holder is denied
	// like anyone else.
	AcquireDenied
)

// AcquireResult is the outcome of AcquireLock.
type AcquireResult struct {
	// Outcome selects which payload fields are meaningful
	Outcome AcquireOutcome

	// Lock is the freshly minted lock record, set when acquired. The
	// caller persists it via the store's SetLock.
	Lock *model.LockRecord

	// Holder is the device holding the existing lock, set when denied
	Holder model.DeviceID

	// AcquiredAt is when the existing lock was taken, set when denied
	AcquiredAt time.Time
}

// AcquireLock attempts to take the exclusive lock on a file record
// snapshot.
//
// Returns an Acquired result carrying a new LockRecord when the record is
// unlocked, or a Denied result naming the current holder when any lock
// exists. Fails with ErrLockMismatch when the existing lock belongs to a
// different file id.
func AcquireLock(record *model.FileRecord, device model.DeviceID, user string, autoLock bool, now time.Time) (AcquireResult, error) {
	if record.Lock != nil {
		if record.Lock.FileID != record.FileID {
			return AcquireResult{}, &LockError{
				Code:       ErrLockMismatch,
				FileID:     record.FileID,
				LockFileID: record.Lock.FileID,
			}
		}
		return AcquireResult{
			Outcome:    AcquireDenied,
			Holder:     record.Lock.OwnerDeviceID,
			AcquiredAt: record.Lock.AcquiredAt,
		}, nil
	}

	return AcquireResult{
		Outcome: AcquireAcquired,
		Lock: &model.LockRecord{
			LockID:        model.NewID(),
			FileID:        record.FileID,
			OwnerDeviceID: device,
			OwnerUserID:   user,
			Mode:          model.LockModeExclusive,
			AcquiredAt:    now,
			AutoLock:      autoLock,
		},
	}, nil
}

// ReleaseLock reports whether the caller device may clear the lock.
//
// True only when the device is the current holder; the caller then clears
// the lock via the store. Release by a non-holder, or of an unlocked
// record, is deliberately a silent no-op, not an error.
func ReleaseLock(record *model.FileRecord, device model.DeviceID) bool {
	return record.Lock != nil && record.Lock.OwnerDeviceID == device
}

// WriteOutcome is the result category of a conflict check.
type WriteOutcome int

const (
	// WriteAllowed means the write may proceed
	WriteAllowed WriteOutcome = iota

	// WriteLockedBy means a different device holds the exclusive lock
	WriteLockedBy

	// WriteConflict means the record is unlocked but the caller's base
	// head is stale
	WriteConflict
)

// WriteDecision is the outcome of CheckConflict.
type WriteDecision struct {
	// Outcome selects which payload fields are meaningful
	Outcome WriteOutcome

	// Holder is the device holding the lock, set for WriteLockedBy
	Holder model.DeviceID

	// CurrentHead is the record's head version, set for WriteConflict
	CurrentHead model.VersionID

	// BaseHead is the head the caller built its write on, set for
	// WriteConflict
	BaseHead model.VersionID
}

// CheckConflict classifies a prospective write against a record snapshot.
//
// A lock held by the caller always allows the write, overriding the base
// head comparison. A lock held by anyone else blocks it. Unlocked records
// use optimistic concurrency: the write is allowed only when the caller's
// base head matches the record's current head, and reported as a conflict
// otherwise. Conflicts are reported, never resolved here.
func CheckConflict(record *model.FileRecord, callerDevice model.DeviceID, callerBaseHead model.VersionID) WriteDecision {
	if record.Lock != nil {
		if record.Lock.OwnerDeviceID == callerDevice {
			return WriteDecision{Outcome: WriteAllowed}
		}
		return WriteDecision{
			Outcome: WriteLockedBy,
			Holder:  record.Lock.OwnerDeviceID,
		}
	}

	if callerBaseHead == record.HeadVersionID {
		return WriteDecision{Outcome: WriteAllowed}
	}
	return WriteDecision{
		Outcome:     WriteConflict,
		CurrentHead: record.HeadVersionID,
		BaseHead:    callerBaseHead,
	}
}

// MarkLockBlocked returns the device state entry recording that a device
// is waiting on the lock, preserving the device's known head from the
// record when present.
//
// Observability only: CheckConflict never consults this state. The caller
// persists the entry via the store's UpsertDeviceState.
func MarkLockBlocked(record *model.FileRecord, device model.DeviceID, now time.Time) model.DeviceFileState {
	state := model.DeviceFileState{
		DeviceID:   device,
		State:      model.DeviceStateLockBlocked,
		LastSeenAt: now,
	}
	for i := range record.DeviceStates {
		if record.DeviceStates[i].DeviceID == device {
			state.KnownHeadVersionID = record.DeviceStates[i].KnownHeadVersionID
			break
		}
	}
	return state
}
