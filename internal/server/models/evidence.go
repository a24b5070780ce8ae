// Package models defines server-side data models persisted in the database.
package models

import "time"

// EvidenceType categorizes what kind of artifact a record describes.
type EvidenceType string

const (
	TypeDocument   EvidenceType = "document"
	TypeScreenshot EvidenceType = "screenshot"
	TypeLog        EvidenceType = "log"
	TypeAutomated  EvidenceType = "automated"
	TypeConfig     EvidenceType = "config"
	TypeReport     EvidenceType = "report"
)

// Source identifies where a piece of evidence was collected from.
type Source string

const (
	SourceManual  Source = "manual"
	SourceAWS     Source = "aws"
	SourceGitHub  Source = "github"
	SourceOkta    Source = "okta"
	SourceAzure   Source = "azure"
	SourceGCP     Source = "gcp"
	SourceDatadog Source = "datadog"
	SourceOther   Source = "other"
)

// UploadState is the upload-session state machine attached to an evidence
// record. pending → credential_issued → attached; attached is terminal.
// Re-issuing a credential for an attached record replaces the pending key
// but never leaves the attached state.
type UploadState string

const (
	StatePending          UploadState = "pending"
	StateCredentialIssued UploadState = "credential_issued"
	StateAttached         UploadState = "attached"
)

// Evidence describes a compliance artifact. The artifact bytes themselves
// live in object storage; this row only tracks metadata and the staged
// upload protocol state.
type Evidence struct {
	// ID is assigned at creation and never changes.
	ID string
	// Title is required and non-empty.
	Title       string
	Description string
	Type        EvidenceType
	Source      Source

	// FileKey, FileSize and MimeType are set together at confirm time.
	// An empty FileKey means the record has no backing object.
	FileKey  string
	FileSize int64
	MimeType string

	// UploadState tracks the staged-upload protocol for this record.
	UploadState UploadState
	// PendingFileKey is the storage key of the most recently issued upload
	// credential, or "" when none has been issued.
	PendingFileKey string
	// CredentialExpiresAt mirrors the storage-gateway expiry of the pending
	// credential. The gateway, not this service, enforces it.
	CredentialExpiresAt *time.Time

	// CollectedAt is when the evidence was logically gathered.
	CollectedAt time.Time
	// ValidUntil is advisory expiry metadata; nil means "does not expire".
	ValidUntil *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Attached reports whether the record has a finalized backing object.
func (e *Evidence) Attached() bool {
	return e.UploadState == StateAttached
}

// ValidType reports whether t is one of the known evidence types.
func ValidType(t EvidenceType) bool {
	switch t {
	case TypeDocument, TypeScreenshot, TypeLog, TypeAutomated, TypeConfig, TypeReport:
		return true
	}
	return false
}

// ValidSource reports whether s is one of the known evidence sources.
func ValidSource(s Source) bool {
	switch s {
	case SourceManual, SourceAWS, SourceGitHub, SourceOkta, SourceAzure, SourceGCP, SourceDatadog, SourceOther:
		return true
	}
	return false
}

// EvidenceFilter narrows a listing. Zero values mean "no constraint".
type EvidenceFilter struct {
	// Search is a case-insensitive substring match over title and description.
	Search string
	Type   EvidenceType
	Source Source
}
