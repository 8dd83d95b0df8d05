// Package versioning manages a file record's append-only version history:
// read-only listing, rollback by forward append, and two-phase retention
// pruning.
//
// History is strictly monotonic. Rollback never truncates: restoring an
// old version appends a new one carrying the restored content, so every
// device observes the same ever-growing chain. Like the lock package,
// every function here operates on a snapshot the caller owns and persists.
package versioning

import (
	"fmt"
	"sort"
	"time"

	"github.com/marmos91/dittosync/pkg/model"
)

// ErrorCode is the category of a versioning error.
type ErrorCode int

const (
	// ErrMissingVersion indicates a rollback target absent from the
	// record's history
	ErrMissingVersion ErrorCode = iota
)

// VersioningError is a domain error from version history operations.
type VersioningError struct {
	// Code is the error category
	Code ErrorCode

	// FileID is the file the operation addressed
	FileID model.FileID

	// VersionID is the offending version id
	VersionID model.VersionID
}

// Error implements the error interface.
func (e *VersioningError) Error() string {
	switch e.Code {
	case ErrMissingVersion:
		return fmt.Sprintf("version %s not found in history of file %s", e.VersionID, e.FileID)
	default:
		return "unknown versioning error"
	}
}

// RetentionPolicy bounds how much history a file record keeps.
type RetentionPolicy struct {
	// MaxVersions is the count the history is pruned down to. The head
	// always survives, so the effective floor is one version.
	MaxVersions int `json:"max_versions" mapstructure:"max_versions"`

	// MaxAge, when set, drops non-head versions older than now minus
	// this duration before the count-based phase runs.
	MaxAge *time.Duration `json:"max_age,omitempty" mapstructure:"max_age"`
}

// ListVersions returns the history in insertion order. The returned slice
// is a copy; mutating it does not affect the record.
func ListVersions(record *model.FileRecord) []model.VersionRecord {
	versions := make([]model.VersionRecord, len(record.Versions))
	copy(versions, record.Versions)
	return versions
}

// RollbackToVersion restores an old version by appending a new one.
//
// The target id must exist in the record's history; it anchors the
// rollback but is otherwise untouched. The new version, constructed by
// the caller and typically carrying the restored content's chunk list, is
// appended and becomes the head. Fails with ErrMissingVersion when the
// target is unknown, leaving the record unchanged.
func RollbackToVersion(record *model.FileRecord, targetID model.VersionID, newVersion model.VersionRecord) error {
	found := false
	for i := range record.Versions {
		if record.Versions[i].VersionID == targetID {
			found = true
			break
		}
	}
	if !found {
		return &VersioningError{
			Code:      ErrMissingVersion,
			FileID:    record.FileID,
			VersionID: targetID,
		}
	}

	record.Versions = append(record.Versions, newVersion)
	record.HeadVersionID = newVersion.VersionID
	return model.Validate(record)
}

// ApplyRetention prunes the record's history according to the policy.
//
// Two phases. First, when MaxAge is set, every non-head version with a
// timestamp older than now minus MaxAge is dropped. Second, when more
// than MaxVersions remain, the retention boundary is the timestamp of the
// oldest version that would survive a pure count cut; everything strictly
// older than that boundary is dropped, except the head. The boundary
// comparison is inclusive, so versions sharing the boundary timestamp are
// all retained together even when that leaves more than MaxVersions.
// MaxVersions values at or below zero behave as one, pruning everything
// but the head and its boundary ties.
//
// Surviving versions keep their insertion order. The head is never
// evicted by either phase.
func ApplyRetention(record *model.FileRecord, policy RetentionPolicy, now time.Time) error {
	if policy.MaxAge != nil {
		cutoff := now.Add(-*policy.MaxAge)
		kept := record.Versions[:0]
		for _, version := range record.Versions {
			if version.VersionID == record.HeadVersionID || !version.Timestamp.Before(cutoff) {
				kept = append(kept, version)
			}
		}
		record.Versions = kept
	}

	maxVersions := policy.MaxVersions
	if maxVersions < 1 {
		maxVersions = 1
	}
	if len(record.Versions) > maxVersions {
		// The boundary is computed on a sorted copy so the stored
		// insertion order survives the prune.
		byTime := make([]model.VersionRecord, len(record.Versions))
		copy(byTime, record.Versions)
		sort.SliceStable(byTime, func(i, j int) bool {
			return byTime[i].Timestamp.Before(byTime[j].Timestamp)
		})

		boundary := byTime[len(byTime)-maxVersions].Timestamp
		kept := record.Versions[:0]
		for _, version := range record.Versions {
			if version.VersionID == record.HeadVersionID || !version.Timestamp.Before(boundary) {
				kept = append(kept, version)
			}
		}
		record.Versions = kept
	}

	return model.Validate(record)
}
