// Package transfer tracks resumable chunk-level progress for one transfer
// session.
//
// A TransferPlan is the ordered chunk list for one file version and
// direction; TransferProgress records which chunk offsets completed or
// failed. Both are ephemeral bookkeeping: the caller moves the bytes,
// reports per-chunk outcomes here, and discards the tracker when the
// session ends. Nothing in this package is persisted.
package transfer

import (
	"fmt"
	"time"

	"github.com/marmos91/dittosync/pkg/model"
)

// ErrorCode is the category of a transfer error.
type ErrorCode int

const (
	// ErrMaxRetries indicates a chunk exhausted its retry budget
	ErrMaxRetries ErrorCode = iota
)

// TransferError is a domain error from transfer tracking.
type TransferError struct {
	// Code is the error category
	Code ErrorCode

	// Offset is the offending chunk offset
	Offset uint64
}

// Error implements the error interface.
func (e *TransferError) Error() string {
	switch e.Code {
	case ErrMaxRetries:
		return fmt.Sprintf("chunk at offset %d exceeded max retries", e.Offset)
	default:
		return "unknown transfer error"
	}
}

// TransferPlan is the ordered chunk list for one file version moving in
// one direction. Order matters: resumption walks the plan front to back.
type TransferPlan struct {
	FileID    model.FileID            `json:"file_id"`
	VersionID model.VersionID         `json:"version_id"`
	Direction model.TransferDirection `json:"direction"`
	Chunks    []model.ChunkRef        `json:"chunks"`
}

// RetryPolicy bounds per-chunk retry attempts.
//
// Backoff is advisory data for the caller's own scheduling; nothing here
// waits on it.
type RetryPolicy struct {
	MaxAttempts uint32        `json:"max_attempts" mapstructure:"max_attempts"`
	Backoff     time.Duration `json:"backoff" mapstructure:"backoff"`
}

// TransferProgress is the completion bookkeeping of one session.
type TransferProgress struct {
	// SessionID identifies the transfer attempt
	SessionID model.SessionID

	// StartedAt is when the session began
	StartedAt time.Time

	// completed holds offsets of chunks that finished
	completed map[uint64]struct{}

	// failed holds offsets of chunks awaiting a retry
	failed map[uint64]struct{}
}

// NewTransferProgress creates fresh progress for a session starting now.
func NewTransferProgress(sessionID model.SessionID, startedAt time.Time) *TransferProgress {
	return &TransferProgress{
		SessionID: sessionID,
		StartedAt: startedAt,
		completed: make(map[uint64]struct{}),
		failed:    make(map[uint64]struct{}),
	}
}

// MarkDone records a chunk offset as completed. Idempotent; completion
// wins over failure, so any failed record for the offset is cleared.
func (p *TransferProgress) MarkDone(offset uint64) {
	p.completed[offset] = struct{}{}
	delete(p.failed, offset)
}

// MarkFailed records a chunk offset as a retry candidate, unless the
// offset has already completed.
func (p *TransferProgress) MarkFailed(offset uint64) {
	if _, done := p.completed[offset]; done {
		return
	}
	p.failed[offset] = struct{}{}
}

// IsDone reports whether the offset has completed.
func (p *TransferProgress) IsDone(offset uint64) bool {
	_, done := p.completed[offset]
	return done
}

// FailedCount returns the number of offsets awaiting a retry.
func (p *TransferProgress) FailedCount() int {
	return len(p.failed)
}

// NextChunk returns the first chunk in plan order not yet completed, or
// nil when the plan is exhausted. Transfer is ordered resumable
// iteration, not work-stealing: failed chunks come up again at their plan
// position.
func NextChunk(plan *TransferPlan, progress *TransferProgress) *model.ChunkRef {
	for i := range plan.Chunks {
		if !progress.IsDone(plan.Chunks[i].Offset) {
			chunk := plan.Chunks[i]
			return &chunk
		}
	}
	return nil
}

// CanRetry decides whether a chunk may be attempted again. The attempt
// count is zero-based; fails with ErrMaxRetries once the budget is spent.
func CanRetry(offset uint64, attempt uint32, policy RetryPolicy) error {
	if attempt < policy.MaxAttempts {
		return nil
	}
	return &TransferError{Code: ErrMaxRetries, Offset: offset}
}

// IsComplete reports whether every chunk of the plan has completed.
func IsComplete(plan *TransferPlan, progress *TransferProgress) bool {
	for i := range plan.Chunks {
		if !progress.IsDone(plan.Chunks[i].Offset) {
			return false
		}
	}
	return true
}

// ToSession composes a reporting snapshot of the transfer. ActiveChunks
// is the full plan, not the remaining work; RetryCount is the number of
// offsets currently awaiting a retry.
func ToSession(plan *TransferPlan, progress *TransferProgress, from, to model.DeviceID, status model.TransferStatus, failedReason string) model.TransferSession {
	chunks := make([]model.ChunkRef, len(plan.Chunks))
	copy(chunks, plan.Chunks)

	return model.TransferSession{
		SessionID:    progress.SessionID,
		FileID:       plan.FileID,
		Direction:    plan.Direction,
		FromDeviceID: from,
		ToDeviceID:   to,
		ActiveChunks: chunks,
		RetryCount:   uint32(progress.FailedCount()),
		Status:       status,
		FailedReason: failedReason,
	}
}
