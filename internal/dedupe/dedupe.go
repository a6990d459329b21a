// Package dedupe classifies freshly fetched candidate rows against the
// workspace blocklist and the campaign's existing candidates.
package dedupe

import (
	"strings"

	"github.com/sells-group/leadflow/internal/model"
)

// Row is one candidate's dedupe keys. Email is required; the caller filters
// empty-email rows out before classification.
type Row struct {
	Email             string
	PersonProviderID  string
	CompanyProviderID string
}

// RefSets holds the pre-fetched reference state for one (workspace, campaign).
type RefSets struct {
	// BlockedEmails is the union of suppression-list and existing-lead
	// emails for the workspace.
	BlockedEmails map[string]bool

	// Existing* hold the dedupe keys of candidates already stored for the
	// campaign.
	ExistingEmails     map[string]bool
	ExistingPersonIDs  map[string]bool
	ExistingCompanyIDs map[string]bool
}

// Outcome tags one input row with its classification.
type Outcome struct {
	Row    Row
	Status model.CandidateStatus
}

// Result is the classification of a whole batch, order-preserving.
type Result struct {
	Outcomes []Outcome

	// SuppressedByBlocklist counts blocked rows; SuppressedByDuplicate
	// counts duplicate-but-not-blocked rows. Blocklist takes priority for
	// the counter even though the row is SUPPRESSED either way.
	SuppressedByBlocklist int
	SuppressedByDuplicate int
}

// Approvable returns the number of rows classified NEW.
func (r *Result) Approvable() int {
	return len(r.Outcomes) - r.SuppressedByBlocklist - r.SuppressedByDuplicate
}

// Classify runs the single-pass dedupe/suppression algorithm. It is a pure
// function of its inputs: every row comes back tagged NEW or SUPPRESSED in
// input order, and no row is ever dropped.
//
// Within one batch, first occurrence wins: the first row carrying a
// repeated email/person/company key is classified NEW (absent other
// blocks) and every later occurrence is a duplicate. The classification is
// therefore order-dependent; callers must not assume provider pagination
// order is stable across runs.
func Classify(rows []Row, refs RefSets) Result {
	seenEmails := make(map[string]bool, len(rows))
	seenPersonIDs := make(map[string]bool, len(rows))
	seenCompanyIDs := make(map[string]bool, len(rows))

	result := Result{Outcomes: make([]Outcome, 0, len(rows))}

	for _, row := range rows {
		email := NormalizeKey(row.Email)
		personID := NormalizeKey(row.PersonProviderID)
		companyID := NormalizeKey(row.CompanyProviderID)

		blocked := refs.BlockedEmails[email]
		duplicate := refs.ExistingEmails[email] || seenEmails[email] ||
			(personID != "" && (refs.ExistingPersonIDs[personID] || seenPersonIDs[personID])) ||
			(companyID != "" && (refs.ExistingCompanyIDs[companyID] || seenCompanyIDs[companyID]))

		status := model.CandidateStatusNew
		switch {
		case blocked:
			status = model.CandidateStatusSuppressed
			result.SuppressedByBlocklist++
		case duplicate:
			status = model.CandidateStatusSuppressed
			result.SuppressedByDuplicate++
		}

		// Keys register regardless of outcome so later repeats inside the
		// same batch classify as duplicates.
		seenEmails[email] = true
		if personID != "" {
			seenPersonIDs[personID] = true
		}
		if companyID != "" {
			seenCompanyIDs[companyID] = true
		}

		result.Outcomes = append(result.Outcomes, Outcome{Row: row, Status: status})
	}

	return result
}

// NormalizeKey canonicalizes a dedupe key for comparison.
func NormalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}
