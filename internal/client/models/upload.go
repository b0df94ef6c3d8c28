// Package models defines client-side data models used by the filekeeper
// upload subsystem.
package models

import "time"

// Status is the lifecycle state of an upload record.
type Status string

const (
	StatusInitiated Status = "initiated"
	StatusUploading Status = "uploading"
	StatusPaused    Status = "paused"
	StatusResuming  Status = "resuming"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions are possible.
// Failed is deliberately not terminal: it stays resumable until the user
// cancels it.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// FailReason records why an upload entered StatusFailed.
type FailReason string

const (
	ReasonNone           FailReason = ""
	ReasonNetworkError   FailReason = "network_error"
	ReasonServerRejected FailReason = "server_rejected"
	ReasonBlobMissing    FailReason = "blob_missing"
)

var transitions = map[Status][]Status{
	StatusInitiated: {StatusUploading, StatusFailed, StatusCancelled},
	// uploading -> resuming covers records rehydrated after a restart with
	// no live transfer attached (NeedsResume); the manager guards that no
	// handle exists before taking it.
	StatusUploading: {StatusCompleted, StatusFailed, StatusPaused, StatusResuming, StatusCancelled},
	StatusPaused:    {StatusResuming, StatusCancelled},
	StatusFailed:    {StatusResuming, StatusCancelled},
	StatusResuming:  {StatusUploading, StatusFailed, StatusCancelled},
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// UploadRecord is the canonical description of one upload attempt. The
// registry exclusively owns the canonical copy; everything handed out is a
// clone.
type UploadRecord struct {
	// ID is unique per upload attempt (not per file name), assigned at
	// initiation. It doubles as the blob store key.
	ID string

	// Descriptive metadata captured at initiation. Immutable.
	FileName      string
	FileSizeBytes int64
	ContentType   string

	// TargetURL is the presigned destination returned by the backend at
	// initiation. Immutable for the life of the record.
	TargetURL string

	// ParentDirID is the destination folder, empty for root. Immutable.
	ParentDirID string

	Status Status

	// FailReason and RejectStatus are set when Status is StatusFailed.
	// RejectStatus carries the HTTP status for ReasonServerRejected.
	FailReason   FailReason
	RejectStatus int

	// ProgressPercent is 0..100, clamped monotonic non-decreasing within a
	// single uploading run. It resets to 0 when a resume retransmits the
	// file from the start.
	ProgressPercent float64

	// StartedAt is set on the first transition into StatusUploading.
	StartedAt time.Time

	// NeedsResume is true only immediately after rehydration from
	// persistence with no live transfer attached.
	NeedsResume bool

	// AwaitingAck marks a record whose transport finished successfully but
	// whose backend finalize call has not yet succeeded. The record is not
	// completed, and its blob is not purged, until the ack lands.
	AwaitingAck bool

	// ResumeCount is the number of automatic resume attempts already spent
	// on this record.
	ResumeCount int

	UpdatedAt time.Time
}

// Clone returns an independent copy of the record.
func (r *UploadRecord) Clone() *UploadRecord {
	c := *r
	return &c
}
