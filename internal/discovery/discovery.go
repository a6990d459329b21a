// Package discovery implements the lead discovery run pipeline: it drives
// the provider client, classifies results through the dedupe engine, and
// persists candidates under a run-scoped state machine.
package discovery

import (
	"encoding/json"

	"github.com/sells-group/leadflow/pkg/pdl"
)

// Query is the validated shape of a run's stored query JSON.
type Query struct {
	Filters pdl.SearchFilters `json:"filters"`
	Limit   int               `json:"limit"`
}

// Stats is the run statistics JSON written on completion. The identity
// fetched = candidatesCreated + skippedMissingEmail always holds, as does
// candidatesCreated = approvableCandidates + suppressedByBlocklist +
// suppressedByDuplicate.
type Stats struct {
	Fetched               int `json:"fetched"`
	CandidatesCreated     int `json:"candidatesCreated"`
	ApprovableCandidates  int `json:"approvableCandidates"`
	SuppressedByBlocklist int `json:"suppressedByBlocklist"`
	SuppressedByDuplicate int `json:"suppressedByDuplicate"`
	SkippedMissingEmail   int `json:"skippedMissingEmail"`
}

// runningStats is the placeholder written when a run turns RUNNING.
type runningStats struct {
	State string `json:"state"`
}

// failedStats is the stats JSON written when a run fails.
type failedStats struct {
	Error string `json:"error"`
}

// parseQuery decodes a run's stored query JSON. Malformed or absent
// queries degrade to empty filters; a missing or non-positive limit falls
// back to defaultLimit.
func parseQuery(raw []byte, defaultLimit int) Query {
	var q Query
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &q)
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	return q
}
