// Package memory implements the metadata store with in-memory maps.
//
// This is the reference implementation: fast, ephemeral, and suitable for
// tests, caching layers, and deployments where an external layer owns
// durability by replaying the store's enumeration accessors.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/dittosync/pkg/model"
	"github.com/marmos91/dittosync/pkg/store"
)

// MemoryMetadataStore implements store.MetadataStore using in-memory maps.
//
// Thread Safety:
// All operations are protected by a single read-write mutex. This
// coarse-grained locking is simple and correct; callers still serialize
// conflicting mutations of the same file id among themselves.
//
// Transaction model:
// Mutations are applied to a deep copy of the stored record, validated,
// and only then swapped in. A failed validation therefore reverts for
// free - the stored record was never touched.
type MemoryMetadataStore struct {
	// mu protects both maps for concurrent access
	mu sync.RWMutex

	// files maps file ids to shared file records
	files map[model.FileID]*model.FileRecord

	// registry maps file ids to local-only registry entries
	registry map[model.FileID]*model.LocalRegistryEntry
}

// NewMemoryMetadataStore creates an empty in-memory metadata store, ready
// for concurrent use.
func NewMemoryMetadataStore() *MemoryMetadataStore {
	return &MemoryMetadataStore{
		files:    make(map[model.FileID]*model.FileRecord),
		registry: make(map[model.FileID]*model.LocalRegistryEntry),
	}
}

// UpsertFileRecord validates the record and replaces the stored one
// wholesale.
func (s *MemoryMetadataStore) UpsertFileRecord(ctx context.Context, record model.FileRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := model.Validate(&record); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.files[record.FileID] = record.Clone()
	return nil
}

// UpsertRegistryEntry unconditionally replaces the registry entry.
func (s *MemoryMetadataStore) UpsertRegistryEntry(ctx context.Context, entry model.LocalRegistryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.registry[entry.FileID] = entry.Clone()
	return nil
}

// BindPath binds a path to a file identity, refusing to alias a path that
// any other file already claims (case-insensitive comparison).
func (s *MemoryMetadataStore) BindPath(ctx context.Context, fileID model.FileID, path string, writable bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for otherID, other := range s.registry {
		if otherID == fileID {
			continue
		}
		for _, binding := range other.Paths {
			if strings.EqualFold(binding.Path, path) {
				return store.PathAlreadyBound(fileID, otherID, path)
			}
		}
	}

	entry, ok := s.registry[fileID]
	if !ok {
		return store.NotFound(fileID)
	}

	now := time.Now()
	for i := range entry.Paths {
		if entry.Paths[i].Path == path {
			entry.Paths[i].LastSeenAt = now
			entry.Paths[i].Writable = writable
			return nil
		}
	}
	entry.Paths = append(entry.Paths, model.PathBinding{
		Path:       path,
		LastSeenAt: now,
		Writable:   writable,
	})
	return nil
}

// UnbindPath removes bindings matching the path; identity remains intact.
func (s *MemoryMetadataStore) UnbindPath(ctx context.Context, fileID model.FileID, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.registry[fileID]
	if !ok {
		return store.NotFound(fileID)
	}

	kept := entry.Paths[:0]
	for _, binding := range entry.Paths {
		if binding.Path != path {
			kept = append(kept, binding)
		}
	}
	entry.Paths = kept
	return nil
}

// SetLocalPreferences applies the non-nil preference knobs independently.
func (s *MemoryMetadataStore) SetLocalPreferences(ctx context.Context, fileID model.FileID, update store.PreferenceUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.registry[fileID]
	if !ok {
		return store.NotFound(fileID)
	}

	if update.Hydration != nil {
		entry.Hydration = *update.Hydration
	}
	if update.Consent != nil {
		entry.Consent = *update.Consent
	}
	if update.AutoLock != nil {
		entry.AutoLockPreference = *update.AutoLock
	}
	return nil
}

// UpsertDeviceState replaces or appends the matching device state entry,
// re-validating the record before commit.
func (s *MemoryMetadataStore) UpsertDeviceState(ctx context.Context, fileID model.FileID, state model.DeviceFileState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.files[fileID]
	if !ok {
		return store.NotFound(fileID)
	}

	next := record.Clone()
	replaced := false
	for i := range next.DeviceStates {
		if next.DeviceStates[i].DeviceID == state.DeviceID {
			next.DeviceStates[i] = state
			replaced = true
			break
		}
	}
	if !replaced {
		next.DeviceStates = append(next.DeviceStates, state)
	}

	if err := model.Validate(next); err != nil {
		return err
	}
	s.files[fileID] = next
	return nil
}

// AppendVersion pushes the version, advances the head, re-validates, and
// advances an existing registry entry's local version id.
func (s *MemoryMetadataStore) AppendVersion(ctx context.Context, fileID model.FileID, versionID model.VersionID, version model.VersionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.files[fileID]
	if !ok {
		return store.NotFound(fileID)
	}

	next := record.Clone()
	next.HeadVersionID = versionID
	next.Versions = append(next.Versions, version)

	if err := model.Validate(next); err != nil {
		return err
	}
	s.files[fileID] = next

	if entry, ok := s.registry[fileID]; ok {
		id := versionID
		entry.LocalVersionID = &id
	}
	return nil
}

// SetLock replaces the lock field wholesale and re-validates.
func (s *MemoryMetadataStore) SetLock(ctx context.Context, fileID model.FileID, lock *model.LockRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.files[fileID]
	if !ok {
		return store.NotFound(fileID)
	}

	next := record.Clone()
	if lock != nil {
		l := *lock
		next.Lock = &l
	} else {
		next.Lock = nil
	}

	if err := model.Validate(next); err != nil {
		return err
	}
	s.files[fileID] = next
	return nil
}

// SetLocalError annotates the registry entry; shared state is untouched.
func (s *MemoryMetadataStore) SetLocalError(ctx context.Context, fileID model.FileID, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.registry[fileID]
	if !ok {
		return store.NotFound(fileID)
	}
	entry.LastError = message
	return nil
}

// GetFileRecord returns a snapshot of the shared record.
func (s *MemoryMetadataStore) GetFileRecord(ctx context.Context, fileID model.FileID) (*model.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.files[fileID]
	if !ok {
		return nil, store.NotFound(fileID)
	}
	return record.Clone(), nil
}

// GetRegistryEntry returns a snapshot of the registry entry.
func (s *MemoryMetadataStore) GetRegistryEntry(ctx context.Context, fileID model.FileID) (*model.LocalRegistryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.registry[fileID]
	if !ok {
		return nil, store.NotFound(fileID)
	}
	return entry.Clone(), nil
}

// ListFileRecords enumerates snapshots of all shared records.
func (s *MemoryMetadataStore) ListFileRecords(ctx context.Context) ([]model.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]model.FileRecord, 0, len(s.files))
	for _, record := range s.files {
		records = append(records, *record.Clone())
	}
	return records, nil
}

// ListRegistryEntries enumerates snapshots of all registry entries.
func (s *MemoryMetadataStore) ListRegistryEntries(ctx context.Context) ([]model.LocalRegistryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]model.LocalRegistryEntry, 0, len(s.registry))
	for _, entry := range s.registry {
		entries = append(entries, *entry.Clone())
	}
	return entries, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryMetadataStore) Close() error {
	return nil
}
