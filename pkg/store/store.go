// Package store defines the metadata store of the sync core: two
// independently keyed collections (shared file records and local registry
// entries) where every mutation is a single-file transaction that
// re-validates the record's invariants before committing.
package store

import (
	"context"

	"github.com/marmos91/dittosync/pkg/model"
)

// PreferenceUpdate carries an optional update for each local preference
// knob. A nil field means "leave unchanged"; each preference is applied
// independently of the others.
type PreferenceUpdate struct {
	Hydration *model.Hydration
	Consent   *model.Consent
	AutoLock  *model.AutoLockPreference
}

// MetadataStore manages shared file records and local registry entries.
//
// Transaction model:
// Each operation is a single-file transaction: look up, apply, then
// validate-or-revert. When validation fails the stored record is left
// exactly as it was - no partial state is ever observable. Operations on
// an absent file id fail with ErrNotFound without mutating anything.
//
// Read accessors return deep-copied snapshots; mutating a returned record
// never affects stored state.
//
// Concurrency:
// Implementations must be safe for concurrent use. Callers still must
// serialize conflicting mutations of the same file id (one coordinator per
// file); unrelated files may be mutated in parallel.
//
// All operations respect context cancellation. The memory implementation
// never blocks or performs I/O beyond the cancellation check; the badger
// implementation runs one database transaction per operation.
type MetadataStore interface {
	// UpsertFileRecord validates the record's invariants and then replaces
	// the stored record wholesale. Returns *model.InvariantError when the
	// record is structurally invalid; nothing is stored in that case.
	UpsertFileRecord(ctx context.Context, record model.FileRecord) error

	// UpsertRegistryEntry unconditionally replaces the local registry
	// entry for the entry's file id.
	UpsertRegistryEntry(ctx context.Context, entry model.LocalRegistryEntry) error

	// BindPath binds a filesystem path to a file identity.
	//
	// Fails with ErrPathAlreadyBound (carrying the conflicting file id)
	// when the path, compared case-insensitively, is already bound to any
	// other file id in the registry. Otherwise it refreshes the matching
	// existing binding's LastSeenAt/Writable, or appends a new binding.
	// Fails with ErrNotFound when the file id has no registry entry.
	BindPath(ctx context.Context, fileID model.FileID, path string, writable bool) error

	// UnbindPath removes bindings matching the path exactly. Removing an
	// absent binding is a no-op; the file identity stays intact.
	UnbindPath(ctx context.Context, fileID model.FileID, path string) error

	// SetLocalPreferences applies the non-nil fields of the update to the
	// registry entry. Fails with ErrNotFound when no entry exists.
	SetLocalPreferences(ctx context.Context, fileID model.FileID, update PreferenceUpdate) error

	// UpsertDeviceState replaces the state vector entry matching the
	// device id, or appends one, then re-validates the record.
	UpsertDeviceState(ctx context.Context, fileID model.FileID, state model.DeviceFileState) error

	// AppendVersion pushes the new immutable version, advances the head to
	// versionID, and re-validates. When a registry entry exists for the
	// file, its LocalVersionID advances to match.
	AppendVersion(ctx context.Context, fileID model.FileID, versionID model.VersionID, version model.VersionRecord) error

	// SetLock replaces the record's lock field wholesale (nil clears it)
	// and re-validates.
	SetLock(ctx context.Context, fileID model.FileID, lock *model.LockRecord) error

	// SetLocalError annotates the registry entry with the last local
	// error. An empty message clears it. Shared state is untouched.
	SetLocalError(ctx context.Context, fileID model.FileID, message string) error

	// GetFileRecord returns a snapshot of the shared record, or
	// ErrNotFound.
	GetFileRecord(ctx context.Context, fileID model.FileID) (*model.FileRecord, error)

	// GetRegistryEntry returns a snapshot of the registry entry, or
	// ErrNotFound.
	GetRegistryEntry(ctx context.Context, fileID model.FileID) (*model.LocalRegistryEntry, error)

	// ListFileRecords enumerates snapshots of every shared record, for the
	// external persistence layer to serialize. Order is unspecified.
	ListFileRecords(ctx context.Context) ([]model.FileRecord, error)

	// ListRegistryEntries enumerates snapshots of every registry entry.
	// Order is unspecified.
	ListRegistryEntries(ctx context.Context) ([]model.LocalRegistryEntry, error)

	// Close releases any resources held by the store. The memory store
	// has none; the badger store closes its database.
	Close() error
}
