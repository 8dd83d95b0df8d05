package versioning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittosync/pkg/model"
)

func versionAt(fileID model.FileID, ts time.Time) model.VersionRecord {
	return model.VersionRecord{
		VersionID:      model.NewID(),
		FileID:         fileID,
		OriginDeviceID: model.NewID(),
		Timestamp:      ts,
		ContentHash:    "hash",
		SizeBytes:      10,
	}
}

// recordWithVersions builds a record whose head is the last version.
func recordWithVersions(versions ...model.VersionRecord) *model.FileRecord {
	return &model.FileRecord{
		FileID:         versions[0].FileID,
		OriginDeviceID: model.NewID(),
		CreatedAt:      versions[0].Timestamp,
		HeadVersionID:  versions[len(versions)-1].VersionID,
		Versions:       versions,
	}
}

func TestListVersions_InsertionOrderCopy(t *testing.T) {
	fileID := model.NewID()
	v1 := versionAt(fileID, time.Now().Add(-2*time.Hour))
	v2 := versionAt(fileID, time.Now().Add(-time.Hour))
	record := recordWithVersions(v1, v2)

	listed := ListVersions(record)
	require.Len(t, listed, 2)
	assert.Equal(t, v1.VersionID, listed[0].VersionID)
	assert.Equal(t, v2.VersionID, listed[1].VersionID)

	listed[0].ContentHash = "mutated"
	assert.Equal(t, "hash", record.Versions[0].ContentHash)
}

func TestRollbackToVersion_AppendsForward(t *testing.T) {
	fileID := model.NewID()
	v1 := versionAt(fileID, time.Now().Add(-time.Hour))
	record := recordWithVersions(v1)

	v2 := versionAt(fileID, time.Now())
	parent := v1.VersionID
	v2.ParentVersionID = &parent

	require.NoError(t, RollbackToVersion(record, v1.VersionID, v2))
	assert.Equal(t, v2.VersionID, record.HeadVersionID)
	require.Len(t, record.Versions, 2)
	assert.Equal(t, v1.VersionID, record.Versions[0].VersionID)
	assert.Equal(t, v2.VersionID, record.Versions[1].VersionID)
}

func TestRollbackToVersion_MissingTarget(t *testing.T) {
	fileID := model.NewID()
	v1 := versionAt(fileID, time.Now().Add(-time.Hour))
	record := recordWithVersions(v1)

	unknown := model.NewID()
	err := RollbackToVersion(record, unknown, versionAt(fileID, time.Now()))
	require.Error(t, err)

	var verErr *VersioningError
	require.ErrorAs(t, err, &verErr)
	assert.Equal(t, ErrMissingVersion, verErr.Code)
	assert.Equal(t, unknown, verErr.VersionID)

	// The record is untouched.
	assert.Equal(t, v1.VersionID, record.HeadVersionID)
	assert.Len(t, record.Versions, 1)
}

func TestApplyRetention_AgePruneSkipsHead(t *testing.T) {
	fileID := model.NewID()
	now := time.Now()
	old1 := versionAt(fileID, now.Add(-72*time.Hour))
	old2 := versionAt(fileID, now.Add(-48*time.Hour))
	fresh := versionAt(fileID, now.Add(-time.Hour))
	record := recordWithVersions(old1, old2, fresh)

	maxAge := 24 * time.Hour
	require.NoError(t, ApplyRetention(record, RetentionPolicy{MaxVersions: 10, MaxAge: &maxAge}, now))

	require.Len(t, record.Versions, 1)
	assert.Equal(t, fresh.VersionID, record.Versions[0].VersionID)
}

func TestApplyRetention_OldHeadSurvivesAgePrune(t *testing.T) {
	fileID := model.NewID()
	now := time.Now()
	old := versionAt(fileID, now.Add(-72*time.Hour))
	record := recordWithVersions(old)

	maxAge := 24 * time.Hour
	require.NoError(t, ApplyRetention(record, RetentionPolicy{MaxVersions: 10, MaxAge: &maxAge}, now))

	require.Len(t, record.Versions, 1)
	assert.Equal(t, old.VersionID, record.HeadVersionID)
}

func TestApplyRetention_CountPrune(t *testing.T) {
	fileID := model.NewID()
	now := time.Now()
	v1 := versionAt(fileID, now.Add(-4*time.Hour))
	v2 := versionAt(fileID, now.Add(-3*time.Hour))
	v3 := versionAt(fileID, now.Add(-2*time.Hour))
	v4 := versionAt(fileID, now.Add(-time.Hour))
	record := recordWithVersions(v1, v2, v3, v4)

	require.NoError(t, ApplyRetention(record, RetentionPolicy{MaxVersions: 2}, now))

	require.Len(t, record.Versions, 2)
	assert.Equal(t, v3.VersionID, record.Versions[0].VersionID)
	assert.Equal(t, v4.VersionID, record.Versions[1].VersionID)
	assert.Equal(t, v4.VersionID, record.HeadVersionID)
}

func TestApplyRetention_BoundaryTiesAllRetained(t *testing.T) {
	fileID := model.NewID()
	now := time.Now()
	boundary := now.Add(-2 * time.Hour)
	v1 := versionAt(fileID, now.Add(-4*time.Hour))
	v2 := versionAt(fileID, boundary)
	v3 := versionAt(fileID, boundary)
	v4 := versionAt(fileID, now.Add(-time.Hour))
	record := recordWithVersions(v1, v2, v3, v4)

	// The count cut lands on the boundary timestamp; both versions that
	// share it stay, so three remain instead of two.
	require.NoError(t, ApplyRetention(record, RetentionPolicy{MaxVersions: 2}, now))

	require.Len(t, record.Versions, 3)
	assert.Equal(t, v2.VersionID, record.Versions[0].VersionID)
	assert.Equal(t, v3.VersionID, record.Versions[1].VersionID)
	assert.Equal(t, v4.VersionID, record.Versions[2].VersionID)
}

func TestApplyRetention_HeadNeverEvicted(t *testing.T) {
	fileID := model.NewID()
	now := time.Now()
	v1 := versionAt(fileID, now.Add(-time.Hour))
	v2 := versionAt(fileID, now.Add(-4*time.Hour))
	// Head is deliberately the oldest version.
	record := recordWithVersions(v1, v2)
	record.HeadVersionID = v2.VersionID

	require.NoError(t, ApplyRetention(record, RetentionPolicy{MaxVersions: 1}, now))

	found := false
	for _, version := range record.Versions {
		if version.VersionID == v2.VersionID {
			found = true
		}
	}
	assert.True(t, found)
}

func TestApplyRetention_ZeroMaxVersionsPrunesToHead(t *testing.T) {
	fileID := model.NewID()
	now := time.Now()
	v1 := versionAt(fileID, now.Add(-3*time.Hour))
	v2 := versionAt(fileID, now.Add(-2*time.Hour))
	v3 := versionAt(fileID, now.Add(-time.Hour))
	record := recordWithVersions(v1, v2, v3)

	// A zero (or negative) budget still keeps the head: the floor is one.
	require.NoError(t, ApplyRetention(record, RetentionPolicy{MaxVersions: 0}, now))

	require.Len(t, record.Versions, 1)
	assert.Equal(t, v3.VersionID, record.Versions[0].VersionID)
	assert.Equal(t, v3.VersionID, record.HeadVersionID)
}

func TestApplyRetention_NegativeMaxVersionsPrunesToHead(t *testing.T) {
	fileID := model.NewID()
	now := time.Now()
	v1 := versionAt(fileID, now.Add(-2*time.Hour))
	v2 := versionAt(fileID, now.Add(-time.Hour))
	record := recordWithVersions(v1, v2)

	require.NoError(t, ApplyRetention(record, RetentionPolicy{MaxVersions: -3}, now))

	require.Len(t, record.Versions, 1)
	assert.Equal(t, v2.VersionID, record.HeadVersionID)
}

func TestApplyRetention_PolicyLargerThanHistoryNoChange(t *testing.T) {
	fileID := model.NewID()
	now := time.Now()
	v1 := versionAt(fileID, now.Add(-2*time.Hour))
	v2 := versionAt(fileID, now.Add(-time.Hour))
	record := recordWithVersions(v1, v2)

	require.NoError(t, ApplyRetention(record, RetentionPolicy{MaxVersions: 10}, now))
	assert.Len(t, record.Versions, 2)
}
