package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittosync/pkg/model"
	"github.com/marmos91/dittosync/pkg/store"
)

var _ store.MetadataStore = (*MemoryMetadataStore)(nil)

func sampleVersion(fileID model.FileID, versionID model.VersionID, hash string) model.VersionRecord {
	return model.VersionRecord{
		VersionID:      versionID,
		FileID:         fileID,
		OriginDeviceID: model.NewID(),
		Timestamp:      time.Now(),
		ContentHash:    hash,
		SizeBytes:      10,
		Chunks:         []model.ChunkRef{{Offset: 0, Length: 10, Hash: hash}},
	}
}

func sampleFileRecord() model.FileRecord {
	fileID := model.NewID()
	versionID := model.NewID()
	head := versionID
	return model.FileRecord{
		FileID:         fileID,
		OriginDeviceID: model.NewID(),
		CreatedAt:      time.Now(),
		HeadVersionID:  versionID,
		Versions:       []model.VersionRecord{sampleVersion(fileID, versionID, "hash")},
		DeviceStates: []model.DeviceFileState{{
			DeviceID:           model.NewID(),
			State:              model.DeviceStateReady,
			KnownHeadVersionID: &head,
			LastSeenAt:         time.Now(),
		}},
		Encryption: model.EncryptionInfo{KeyID: "k1", Algo: "AES-256-GCM"},
	}
}

func sampleRegistryEntry(fileID model.FileID, path string) model.LocalRegistryEntry {
	return model.LocalRegistryEntry{
		FileID: fileID,
		Paths: []model.PathBinding{{
			Path:       path,
			LastSeenAt: time.Now(),
			Writable:   true,
		}},
		Hydration:          model.HydrationFullyPresent,
		Consent:            model.ConsentApproved,
		Pin:                model.PinNone,
		AutoLockPreference: model.AutoLockOnEdit,
	}
}

func TestUpsertFileRecord_RejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMetadataStore()

	record := sampleFileRecord()
	record.HeadVersionID = model.NewID() // head not in versions

	err := s.UpsertFileRecord(ctx, record)
	require.Error(t, err)

	var invErr *model.InvariantError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, model.InvariantMissingHead, invErr.Code)

	// Nothing was stored.
	_, err = s.GetFileRecord(ctx, record.FileID)
	var storeErr *store.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, store.ErrNotFound, storeErr.Code)
}

func TestBindPath_UpdatesAndAppends(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMetadataStore()

	record := sampleFileRecord()
	require.NoError(t, s.UpsertFileRecord(ctx, record))
	require.NoError(t, s.UpsertRegistryEntry(ctx, sampleRegistryEntry(record.FileID, "/tmp/a")))

	// New path appends a binding.
	require.NoError(t, s.BindPath(ctx, record.FileID, "/tmp/renamed", true))
	entry, err := s.GetRegistryEntry(ctx, record.FileID)
	require.NoError(t, err)
	require.Len(t, entry.Paths, 2)

	// Rebinding an existing path updates it in place.
	require.NoError(t, s.BindPath(ctx, record.FileID, "/tmp/a", false))
	entry, err = s.GetRegistryEntry(ctx, record.FileID)
	require.NoError(t, err)
	require.Len(t, entry.Paths, 2)
	for _, binding := range entry.Paths {
		if binding.Path == "/tmp/a" {
			assert.False(t, binding.Writable)
		}
	}
}

func TestBindPath_AliasExclusiveAcrossFiles(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMetadataStore()

	r1 := sampleFileRecord()
	r2 := sampleFileRecord()
	require.NoError(t, s.UpsertFileRecord(ctx, r1))
	require.NoError(t, s.UpsertFileRecord(ctx, r2))
	require.NoError(t, s.UpsertRegistryEntry(ctx, sampleRegistryEntry(r1.FileID, "/tmp/a")))
	require.NoError(t, s.UpsertRegistryEntry(ctx, sampleRegistryEntry(r2.FileID, "/tmp/b")))

	// Same path, different case: still an alias.
	err := s.BindPath(ctx, r2.FileID, "/TMP/A", true)
	require.Error(t, err)

	var storeErr *store.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, store.ErrPathAlreadyBound, storeErr.Code)
	assert.Equal(t, r1.FileID, storeErr.ConflictingFileID)

	// A distinct path for the second file succeeds.
	require.NoError(t, s.BindPath(ctx, r2.FileID, "/tmp/c", true))
}

func TestBindPath_NotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMetadataStore()

	err := s.BindPath(ctx, model.NewID(), "/tmp/a", true)
	var storeErr *store.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, store.ErrNotFound, storeErr.Code)
}

func TestUnbindPath_RemovesAndTolerated(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMetadataStore()

	record := sampleFileRecord()
	require.NoError(t, s.UpsertFileRecord(ctx, record))
	require.NoError(t, s.UpsertRegistryEntry(ctx, sampleRegistryEntry(record.FileID, "/tmp/a")))

	require.NoError(t, s.UnbindPath(ctx, record.FileID, "/tmp/a"))
	entry, err := s.GetRegistryEntry(ctx, record.FileID)
	require.NoError(t, err)
	assert.Empty(t, entry.Paths)

	// Unbinding an absent path is a no-op.
	require.NoError(t, s.UnbindPath(ctx, record.FileID, "/tmp/never-bound"))
}

func TestSetLocalPreferences_IndependentKnobs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMetadataStore()

	record := sampleFileRecord()
	require.NoError(t, s.UpsertFileRecord(ctx, record))
	require.NoError(t, s.UpsertRegistryEntry(ctx, sampleRegistryEntry(record.FileID, "/tmp/a")))

	consent := model.ConsentRevoked
	require.NoError(t, s.SetLocalPreferences(ctx, record.FileID, store.PreferenceUpdate{
		Consent: &consent,
	}))

	entry, err := s.GetRegistryEntry(ctx, record.FileID)
	require.NoError(t, err)
	assert.Equal(t, model.ConsentRevoked, entry.Consent)
	// Untouched knobs keep their values.
	assert.Equal(t, model.HydrationFullyPresent, entry.Hydration)
	assert.Equal(t, model.AutoLockOnEdit, entry.AutoLockPreference)

	hydration := model.HydrationNone
	autoLock := model.AutoLockManual
	require.NoError(t, s.SetLocalPreferences(ctx, record.FileID, store.PreferenceUpdate{
		Hydration: &hydration,
		AutoLock:  &autoLock,
	}))

	entry, err = s.GetRegistryEntry(ctx, record.FileID)
	require.NoError(t, err)
	assert.Equal(t, model.HydrationNone, entry.Hydration)
	assert.Equal(t, model.AutoLockManual, entry.AutoLockPreference)
}

func TestUpsertDeviceState_ReplacesByDeviceID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMetadataStore()

	record := sampleFileRecord()
	deviceID := record.DeviceStates[0].DeviceID
	require.NoError(t, s.UpsertFileRecord(ctx, record))

	require.NoError(t, s.UpsertDeviceState(ctx, record.FileID, model.DeviceFileState{
		DeviceID:   deviceID,
		State:      model.DeviceStatePushing,
		LastSeenAt: time.Now(),
	}))

	got, err := s.GetFileRecord(ctx, record.FileID)
	require.NoError(t, err)
	require.Len(t, got.DeviceStates, 1)
	assert.Equal(t, model.DeviceStatePushing, got.DeviceStates[0].State)

	// A new device appends a second entry.
	require.NoError(t, s.UpsertDeviceState(ctx, record.FileID, model.DeviceFileState{
		DeviceID:   model.NewID(),
		State:      model.DeviceStateAvailableRemote,
		LastSeenAt: time.Now(),
	}))

	got, err = s.GetFileRecord(ctx, record.FileID)
	require.NoError(t, err)
	assert.Len(t, got.DeviceStates, 2)
}

func TestAppendVersion_MonotonicHeadAndRegistry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMetadataStore()

	record := sampleFileRecord()
	require.NoError(t, s.UpsertFileRecord(ctx, record))
	require.NoError(t, s.UpsertRegistryEntry(ctx, sampleRegistryEntry(record.FileID, "/tmp/a")))

	newVersionID := model.NewID()
	version := sampleVersion(record.FileID, newVersionID, "hash2")
	require.NoError(t, s.AppendVersion(ctx, record.FileID, newVersionID, version))

	got, err := s.GetFileRecord(ctx, record.FileID)
	require.NoError(t, err)
	assert.Equal(t, newVersionID, got.HeadVersionID)
	assert.Len(t, got.Versions, 2)

	entry, err := s.GetRegistryEntry(ctx, record.FileID)
	require.NoError(t, err)
	require.NotNil(t, entry.LocalVersionID)
	assert.Equal(t, newVersionID, *entry.LocalVersionID)
}

func TestAppendVersion_DuplicateRevertsFully(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMetadataStore()

	record := sampleFileRecord()
	existingID := record.Versions[0].VersionID
	require.NoError(t, s.UpsertFileRecord(ctx, record))
	require.NoError(t, s.UpsertRegistryEntry(ctx, sampleRegistryEntry(record.FileID, "/tmp/a")))

	dup := sampleVersion(record.FileID, existingID, "dup")
	err := s.AppendVersion(ctx, record.FileID, existingID, dup)
	require.Error(t, err)

	var invErr *model.InvariantError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, model.InvariantDuplicateVersion, invErr.Code)

	// The stored record and the registry are exactly as before.
	got, err := s.GetFileRecord(ctx, record.FileID)
	require.NoError(t, err)
	assert.Len(t, got.Versions, 1)
	assert.Equal(t, existingID, got.HeadVersionID)

	entry, err := s.GetRegistryEntry(ctx, record.FileID)
	require.NoError(t, err)
	assert.Nil(t, entry.LocalVersionID)
}

func TestSetLock_SetAndClear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMetadataStore()

	record := sampleFileRecord()
	require.NoError(t, s.UpsertFileRecord(ctx, record))

	lock := model.LockRecord{
		LockID:        model.NewID(),
		FileID:        record.FileID,
		OwnerDeviceID: model.NewID(),
		OwnerUserID:   "user",
		Mode:          model.LockModeExclusive,
		AcquiredAt:    time.Now(),
		AutoLock:      true,
	}
	require.NoError(t, s.SetLock(ctx, record.FileID, &lock))

	got, err := s.GetFileRecord(ctx, record.FileID)
	require.NoError(t, err)
	require.NotNil(t, got.Lock)
	assert.Equal(t, lock.LockID, got.Lock.LockID)

	require.NoError(t, s.SetLock(ctx, record.FileID, nil))
	got, err = s.GetFileRecord(ctx, record.FileID)
	require.NoError(t, err)
	assert.Nil(t, got.Lock)
}

func TestSetLock_MismatchedFileIDRejected(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMetadataStore()

	record := sampleFileRecord()
	require.NoError(t, s.UpsertFileRecord(ctx, record))

	lock := model.LockRecord{
		LockID:        model.NewID(),
		FileID:        model.NewID(), // wrong file
		OwnerDeviceID: model.NewID(),
		OwnerUserID:   "user",
		Mode:          model.LockModeExclusive,
		AcquiredAt:    time.Now(),
	}
	err := s.SetLock(ctx, record.FileID, &lock)
	require.Error(t, err)

	got, getErr := s.GetFileRecord(ctx, record.FileID)
	require.NoError(t, getErr)
	assert.Nil(t, got.Lock)
}

func TestSetLocalError_LocalOnly(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMetadataStore()

	record := sampleFileRecord()
	require.NoError(t, s.UpsertFileRecord(ctx, record))
	require.NoError(t, s.UpsertRegistryEntry(ctx, sampleRegistryEntry(record.FileID, "/tmp/a")))

	require.NoError(t, s.SetLocalError(ctx, record.FileID, "disk full"))

	entry, err := s.GetRegistryEntry(ctx, record.FileID)
	require.NoError(t, err)
	assert.Equal(t, "disk full", entry.LastError)

	// Shared record is untouched.
	got, err := s.GetFileRecord(ctx, record.FileID)
	require.NoError(t, err)
	assert.Len(t, got.Versions, 1)

	require.NoError(t, s.SetLocalError(ctx, record.FileID, ""))
	entry, err = s.GetRegistryEntry(ctx, record.FileID)
	require.NoError(t, err)
	assert.Empty(t, entry.LastError)
}

func TestSnapshots_AreImmutable(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMetadataStore()

	record := sampleFileRecord()
	require.NoError(t, s.UpsertFileRecord(ctx, record))

	snap, err := s.GetFileRecord(ctx, record.FileID)
	require.NoError(t, err)
	snap.Versions[0].ContentHash = "mutated"
	snap.DeviceStates[0].State = model.DeviceStateError

	fresh, err := s.GetFileRecord(ctx, record.FileID)
	require.NoError(t, err)
	assert.Equal(t, "hash", fresh.Versions[0].ContentHash)
	assert.Equal(t, model.DeviceStateReady, fresh.DeviceStates[0].State)
}

func TestListAccessors_EnumerateEverything(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMetadataStore()

	r1 := sampleFileRecord()
	r2 := sampleFileRecord()
	require.NoError(t, s.UpsertFileRecord(ctx, r1))
	require.NoError(t, s.UpsertFileRecord(ctx, r2))
	require.NoError(t, s.UpsertRegistryEntry(ctx, sampleRegistryEntry(r1.FileID, "/tmp/a")))

	records, err := s.ListFileRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	entries, err := s.ListRegistryEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestContextCancellation(t *testing.T) {
	s := NewMemoryMetadataStore()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.UpsertFileRecord(ctx, sampleFileRecord())
	assert.ErrorIs(t, err, context.Canceled)
}
