package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleVersion(fileID FileID, versionID VersionID) VersionRecord {
	return VersionRecord{
		VersionID:      versionID,
		FileID:         fileID,
		OriginDeviceID: NewID(),
		Timestamp:      time.Now(),
		ContentHash:    "hash",
		SizeBytes:      10,
		Chunks:         []ChunkRef{{Offset: 0, Length: 10, Hash: "hash"}},
	}
}

func sampleFileRecord() *FileRecord {
	fileID := NewID()
	versionID := NewID()
	head := versionID
	return &FileRecord{
		FileID:         fileID,
		OriginDeviceID: NewID(),
		CreatedAt:      time.Now(),
		HeadVersionID:  head,
		Versions:       []VersionRecord{sampleVersion(fileID, versionID)},
		DeviceStates: []DeviceFileState{{
			DeviceID:           NewID(),
			State:              DeviceStateReady,
			KnownHeadVersionID: &head,
			LastSeenAt:         time.Now(),
		}},
		Encryption: EncryptionInfo{KeyID: "k1", Algo: "AES-256-GCM"},
	}
}

func TestValidate_OkRecord(t *testing.T) {
	record := sampleFileRecord()
	require.NoError(t, Validate(record))
}

func TestValidate_MissingHead(t *testing.T) {
	record := sampleFileRecord()
	record.HeadVersionID = NewID()

	err := Validate(record)
	require.Error(t, err)

	var invErr *InvariantError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, InvariantMissingHead, invErr.Code)
	assert.Equal(t, record.HeadVersionID, invErr.VersionID)
}

func TestValidate_DuplicateVersion(t *testing.T) {
	record := sampleFileRecord()
	record.Versions = append(record.Versions, record.Versions[0])

	err := Validate(record)
	require.Error(t, err)

	var invErr *InvariantError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, InvariantDuplicateVersion, invErr.Code)
	assert.Equal(t, record.Versions[0].VersionID, invErr.VersionID)
}

func TestValidate_DuplicateDeviceState(t *testing.T) {
	record := sampleFileRecord()
	dup := record.DeviceStates[0]
	dup.State = DeviceStatePulling
	record.DeviceStates = append(record.DeviceStates, dup)

	err := Validate(record)
	require.Error(t, err)

	var invErr *InvariantError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, InvariantMissingDevice, invErr.Code)
	assert.Equal(t, dup.DeviceID, invErr.DeviceID)
}

func TestValidate_LockMismatch(t *testing.T) {
	record := sampleFileRecord()
	record.Lock = &LockRecord{
		LockID:        NewID(),
		FileID:        NewID(), // different file on purpose
		OwnerDeviceID: NewID(),
		OwnerUserID:   "user",
		Mode:          LockModeExclusive,
		AcquiredAt:    time.Now(),
	}

	err := Validate(record)
	require.Error(t, err)

	var invErr *InvariantError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, InvariantLockMismatch, invErr.Code)
}

func TestValidate_MatchingLockPasses(t *testing.T) {
	record := sampleFileRecord()
	record.Lock = &LockRecord{
		LockID:        NewID(),
		FileID:        record.FileID,
		OwnerDeviceID: NewID(),
		OwnerUserID:   "user",
		Mode:          LockModeExclusive,
		AcquiredAt:    time.Now(),
	}

	require.NoError(t, Validate(record))
}

func TestClone_IsDeep(t *testing.T) {
	record := sampleFileRecord()
	record.Lock = &LockRecord{
		LockID:        NewID(),
		FileID:        record.FileID,
		OwnerDeviceID: NewID(),
		OwnerUserID:   "user",
		Mode:          LockModeExclusive,
		AcquiredAt:    time.Now(),
	}

	clone := record.Clone()
	clone.Versions[0].ContentHash = "mutated"
	clone.Versions[0].Chunks[0].Hash = "mutated"
	clone.DeviceStates[0].State = DeviceStateError
	clone.Lock.OwnerUserID = "other"

	assert.Equal(t, "hash", record.Versions[0].ContentHash)
	assert.Equal(t, "hash", record.Versions[0].Chunks[0].Hash)
	assert.Equal(t, DeviceStateReady, record.DeviceStates[0].State)
	assert.Equal(t, "user", record.Lock.OwnerUserID)
}
