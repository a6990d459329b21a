// Package model defines the domain entities of the lead discovery and
// vetting pipeline.
package model

import (
	"time"
)

// RunStatus is the lifecycle state of a discovery run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "QUEUED"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
)

// CandidateStatus is the approval state of a candidate. Once a candidate
// leaves NEW the status is terminal for that approval cycle.
type CandidateStatus string

const (
	CandidateStatusNew        CandidateStatus = "NEW"
	CandidateStatusApproved   CandidateStatus = "APPROVED"
	CandidateStatusRejected   CandidateStatus = "REJECTED"
	CandidateStatusSuppressed CandidateStatus = "SUPPRESSED"
)

// VerificationStatus is the closed email-verification outcome enum.
type VerificationStatus string

const (
	VerificationUnknown  VerificationStatus = "UNKNOWN"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationRisky    VerificationStatus = "RISKY"
	VerificationInvalid  VerificationStatus = "INVALID"
)

// ConnectorType identifies the category of an external data source.
type ConnectorType string

const (
	ConnectorLicensedProvider ConnectorType = "LICENSED_PROVIDER"
	ConnectorCRM              ConnectorType = "CRM"
)

// SourceConnector is a configured external data source. The config JSON
// carries provider credentials; the api_key value is stored encrypted.
type SourceConnector struct {
	ID          string        `json:"id" db:"id"`
	WorkspaceID string        `json:"workspace_id" db:"workspace_id"`
	Type        ConnectorType `json:"type" db:"type"`
	ProviderKey string        `json:"provider_key" db:"provider_key"`
	Config      []byte        `json:"config" db:"config"`
	Enabled     bool          `json:"enabled" db:"enabled"`
	LastCheckAt *time.Time    `json:"last_check_at,omitempty" db:"last_check_at"`
	LastError   string        `json:"last_error,omitempty" db:"last_error"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}

// ConnectorConfig is the validated shape of SourceConnector.Config.
type ConnectorConfig struct {
	APIKey string `json:"api_key"`
}

// SourceRun is one discovery execution. It is created QUEUED and
// transitions exactly once through RUNNING to a terminal state; re-discovery
// creates a new run rather than re-running in place.
type SourceRun struct {
	ID          string     `json:"id" db:"id"`
	WorkspaceID string     `json:"workspace_id" db:"workspace_id"`
	CampaignID  string     `json:"campaign_id" db:"campaign_id"`
	ConnectorID string     `json:"connector_id" db:"connector_id"`
	Label       string     `json:"label,omitempty" db:"label"`
	Query       []byte     `json:"query" db:"query"`
	Status      RunStatus  `json:"status" db:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	Stats       []byte     `json:"stats,omitempty" db:"stats"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Candidate is a prospective lead produced by a discovery run. Candidates
// without an email are never persisted.
type Candidate struct {
	ID                string             `json:"id" db:"id"`
	WorkspaceID       string             `json:"workspace_id" db:"workspace_id"`
	CampaignID        string             `json:"campaign_id" db:"campaign_id"`
	SourceRunID       string             `json:"source_run_id" db:"source_run_id"`
	Email             string             `json:"email" db:"email"`
	PersonProviderID  string             `json:"person_provider_id,omitempty" db:"person_provider_id"`
	CompanyProviderID string             `json:"company_provider_id,omitempty" db:"company_provider_id"`
	FirstName         string             `json:"first_name,omitempty" db:"first_name"`
	LastName          string             `json:"last_name,omitempty" db:"last_name"`
	Title             string             `json:"title,omitempty" db:"title"`
	CompanyName       string             `json:"company_name,omitempty" db:"company_name"`
	LinkedinURL       string             `json:"linkedin_url,omitempty" db:"linkedin_url"`
	ConfidenceScore   *float64           `json:"confidence_score,omitempty" db:"confidence_score"`
	Verification      VerificationStatus `json:"verification_status" db:"verification_status"`
	Status            CandidateStatus    `json:"status" db:"status"`
	CreatedAt         time.Time          `json:"created_at" db:"created_at"`
}

// EmailVerification is an immutable audit record of one provider check.
// Rows are append-only: one per verified email per verification batch.
type EmailVerification struct {
	ID          string             `json:"id" db:"id"`
	WorkspaceID string             `json:"workspace_id" db:"workspace_id"`
	Email       string             `json:"email" db:"email"`
	Provider    string             `json:"provider" db:"provider"`
	Status      VerificationStatus `json:"status" db:"status"`
	Detail      []byte             `json:"detail,omitempty" db:"detail"`
	CheckedAt   time.Time          `json:"checked_at" db:"checked_at"`
}

// Lead is a promoted, outreach-ready contact, workspace-unique by email.
type Lead struct {
	ID          string    `json:"id" db:"id"`
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	Email       string    `json:"email" db:"email"`
	FirstName   string    `json:"first_name,omitempty" db:"first_name"`
	LastName    string    `json:"last_name,omitempty" db:"last_name"`
	Title       string    `json:"title,omitempty" db:"title"`
	CompanyName string    `json:"company_name,omitempty" db:"company_name"`
	LinkedinURL string    `json:"linkedin_url,omitempty" db:"linkedin_url"`
	Metadata    []byte    `json:"metadata,omitempty" db:"metadata"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Suppression is a workspace-scoped do-not-contact email entry. The
// pipeline only reads this table.
type Suppression struct {
	ID          string    `json:"id" db:"id"`
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	Email       string    `json:"email" db:"email"`
	Reason      string    `json:"reason,omitempty" db:"reason"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
