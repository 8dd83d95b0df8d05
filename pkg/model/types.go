// Package model defines the shared per-file record of the sync domain and
// the invariant checker that every store mutation must pass.
//
// The entities here are protocol-agnostic and designed for structural
// serialization: stable JSON field names, no behavior beyond validation.
// Persistence, transport, and encryption of these records are handled by
// external collaborators.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Stable, path-independent identifiers.
//
// Identifiers are UUIDv7 values: 128-bit, time-ordered, and mintable on any
// device without a central allocator. Their canonical byte order sorts
// chronologically, which keeps version and lock ids comparable across
// devices.
type (
	FileID    = uuid.UUID
	DeviceID  = uuid.UUID
	VersionID = uuid.UUID
	LockID    = uuid.UUID
	SessionID = uuid.UUID
	UserID    = uuid.UUID
	RelayID   = uuid.UUID
)

// NewID mints a new time-ordered identifier.
func NewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// ChunkRef is an immutable content-addressed byte range of one version.
// Chunks are the unit of resumable transfer.
type ChunkRef struct {
	// Offset is the byte offset of the chunk within the version content
	Offset uint64 `json:"offset"`

	// Length is the chunk size in bytes
	Length uint64 `json:"length"`

	// Hash is the strong content hash of the chunk (e.g., SHA-256 hex)
	Hash string `json:"hash"`
}

// VersionRecord is an immutable, append-only snapshot of a file's content
// at a point in time. Records form a history chain per file via
// ParentVersionID.
type VersionRecord struct {
	VersionID VersionID `json:"version_id"`
	FileID    FileID    `json:"file_id"`

	// ParentVersionID links to the version this one was derived from.
	// Nil for the initial version.
	ParentVersionID *VersionID `json:"parent_version_id,omitempty"`

	// OriginDeviceID is the device that produced this version
	OriginDeviceID DeviceID `json:"origin_device_id"`

	Timestamp   time.Time  `json:"timestamp"`
	ContentHash string     `json:"content_hash"`
	SizeBytes   uint64     `json:"size_bytes"`
	Chunks      []ChunkRef `json:"chunks"`
}

// LockMode is the locking discipline of a LockRecord.
type LockMode string

const (
	// LockModeExclusive is the only supported mode: one writer at a time.
	LockModeExclusive LockMode = "exclusive"
)

// LockRecord is the shared per-file lock metadata.
//
// ExpiresAt is carried for an external scheduler to interpret; the core
// stores it but never enforces expiry.
type LockRecord struct {
	LockID        LockID     `json:"lock_id"`
	FileID        FileID     `json:"file_id"`
	OwnerDeviceID DeviceID   `json:"owner_device_id"`
	OwnerUserID   string     `json:"owner_user_id"`
	Mode          LockMode   `json:"mode"`
	AcquiredAt    time.Time  `json:"acquired_at"`
	AutoLock      bool       `json:"auto_lock"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// DeviceSyncState describes one device's view of a file's sync progress.
type DeviceSyncState string

const (
	DeviceStateAbsent          DeviceSyncState = "absent"
	DeviceStateAvailableRemote DeviceSyncState = "available_remote"
	DeviceStatePulling         DeviceSyncState = "pulling"
	DeviceStateReady           DeviceSyncState = "ready"
	DeviceStatePushing         DeviceSyncState = "pushing"
	DeviceStateLockBlocked     DeviceSyncState = "lock_blocked"
	DeviceStateConflict        DeviceSyncState = "conflict"
	DeviceStateError           DeviceSyncState = "error"
)

// DeviceFileState is one entry of a file's device state vector.
// A FileRecord holds at most one entry per device.
type DeviceFileState struct {
	DeviceID DeviceID        `json:"device_id"`
	State    DeviceSyncState `json:"state"`

	// KnownHeadVersionID is the head version this device last observed.
	// Nil when the device has never seen the file.
	KnownHeadVersionID *VersionID `json:"known_head_version_id,omitempty"`

	LastSeenAt time.Time `json:"last_seen_at"`
	LastError  string    `json:"last_error,omitempty"`
}

// EncryptionInfo is the shared encryption envelope metadata. Keys are
// stored locally on each device; this carries only what peers need to
// identify the envelope.
type EncryptionInfo struct {
	KeyID  string `json:"key_id"`
	Algo   string `json:"algo"` // e.g., "AES-256-GCM"
	IVSalt string `json:"iv_salt,omitempty"`
}

// FileRecord is the shared aggregate root for one synchronized file.
//
// Invariants (checked by Validate after every mutation):
//   - HeadVersionID references an entry in Versions
//   - Versions contains no duplicate version ids
//   - DeviceStates contains at most one entry per device id
//   - a present Lock's FileID equals the record's FileID
//
// A FileRecord is created once, with exactly one version, when a file first
// enters the sync domain. Afterwards it is mutated only through the store
// operations (append version, lock set/clear, device state upsert,
// rollback, retention pruning) and never deleted within the core.
type FileRecord struct {
	FileID         FileID            `json:"file_id"`
	OriginDeviceID DeviceID          `json:"origin_device_id"`
	CreatedAt      time.Time         `json:"created_at"`
	HeadVersionID  VersionID         `json:"head_version_id"`
	Versions       []VersionRecord   `json:"versions"`
	Lock           *LockRecord       `json:"lock,omitempty"`
	DeviceStates   []DeviceFileState `json:"device_states"`
	Encryption     EncryptionInfo    `json:"encryption"`
}

// Hydration describes how much of a file's bytes are locally present.
type Hydration string

const (
	HydrationFullyPresent Hydration = "fully_present"
	HydrationPartial      Hydration = "partial"
	HydrationNone         Hydration = "none"
)

// Consent records whether the user has approved syncing this file.
type Consent string

const (
	ConsentApproved Consent = "approved"
	ConsentRevoked  Consent = "revoked"
)

// PinPreference controls local retention of hydrated content.
type PinPreference string

const (
	PinNone       PinPreference = "none"
	PinKeepLatest PinPreference = "keep_latest"
)

// AutoLockPreference controls whether edit activity acquires a lock
// implicitly.
type AutoLockPreference string

const (
	AutoLockOnEdit AutoLockPreference = "on_edit"
	AutoLockManual AutoLockPreference = "manual"
)

// PathBinding maps a local filesystem path to a file identity.
type PathBinding struct {
	Path       string    `json:"path"`
	LastSeenAt time.Time `json:"last_seen_at"`
	Writable   bool      `json:"writable"`
}

// LocalRegistryEntry is the local-only, never-shared companion of a
// FileRecord: path bindings keep identity stable across renames, and the
// preference knobs stay on this device.
//
// The store enforces that a filesystem path (case-insensitive) is bound to
// at most one file id across the whole registry.
type LocalRegistryEntry struct {
	FileID FileID        `json:"file_id"`
	Paths  []PathBinding `json:"paths"`

	// LocalVersionID is the version this device last materialized.
	// Nil until content has been hydrated at least once.
	LocalVersionID *VersionID `json:"local_version_id,omitempty"`

	Hydration          Hydration          `json:"hydration"`
	Consent            Consent            `json:"consent"`
	Pin                PinPreference      `json:"pin"`
	AutoLockPreference AutoLockPreference `json:"auto_lock_preference"`
	LastError          string             `json:"last_error,omitempty"`
}

// TransferDirection says which way chunk bytes move.
type TransferDirection string

const (
	TransferPush TransferDirection = "push"
	TransferPull TransferDirection = "pull"
)

// TransferStatus is the coarse state of a transfer session. FailedReason
// carries the failure payload when Status is TransferFailed.
type TransferStatus string

const (
	TransferInProgress TransferStatus = "in_progress"
	TransferCompleted  TransferStatus = "completed"
	TransferFailed     TransferStatus = "failed"
)

// TransferSession is a reporting snapshot of one transfer attempt,
// composed from a plan and its progress. ActiveChunks is the full plan,
// not the remaining work.
type TransferSession struct {
	SessionID    SessionID         `json:"transfer_session_id"`
	FileID       FileID            `json:"file_id"`
	Direction    TransferDirection `json:"direction"`
	FromDeviceID DeviceID          `json:"from_device_id"`
	ToDeviceID   DeviceID          `json:"to_device_id"`
	ActiveChunks []ChunkRef        `json:"active_chunks"`
	RetryCount   uint32            `json:"retry_count"`
	Status       TransferStatus    `json:"status"`
	FailedReason string            `json:"failed_reason,omitempty"`
}
