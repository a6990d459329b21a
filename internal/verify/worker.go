package verify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/leadflow/internal/apperr"
	"github.com/sells-group/leadflow/internal/model"
	"github.com/sells-group/leadflow/internal/secrets"
	"github.com/sells-group/leadflow/pkg/neverbounce"
)

// providerName tags verification audit rows.
const providerName = "neverbounce"

// ClientFactory builds a verification client from a decrypted API key.
type ClientFactory func(apiKey string) (neverbounce.Client, error)

// Stats summarizes one verification batch.
type Stats struct {
	SourceRunID             string `json:"sourceRunId"`
	EmailsQueued            int    `json:"emailsQueued"`
	VerificationRowsWritten int    `json:"verificationRowsWritten"`
	CandidatesUpdated       int    `json:"candidatesUpdated"`
}

// Worker verifies the unverified candidate emails of a discovery run.
type Worker struct {
	store     Store
	box       *secrets.Box
	newClient ClientFactory
}

// NewWorker creates a verification worker. box decrypts the connector API
// key and may be nil when connectors store plaintext keys.
func NewWorker(store Store, box *secrets.Box, newClient ClientFactory) *Worker {
	return &Worker{store: store, box: box, newClient: newClient}
}

// Run verifies all unverified candidate emails for the given run. Every
// queued email gets exactly one verification audit row, whether or not the
// provider returned a result for it; unreturned emails record UNKNOWN.
func (w *Worker) Run(ctx context.Context, runID string) (*Stats, error) {
	log := zap.L().With(zap.String("run_id", runID))
	stats := &Stats{SourceRunID: runID}

	run, conn, err := w.store.GetRunConnector(ctx, runID)
	if err != nil {
		return nil, err
	}

	emails, err := w.store.ListUnverifiedEmails(ctx, runID)
	if err != nil {
		return nil, err
	}
	stats.EmailsQueued = len(emails)
	if len(emails) == 0 {
		log.Info("no unverified candidate emails")
		return stats, nil
	}

	apiKey, err := connectorAPIKey(conn, w.box)
	if err != nil {
		return nil, err
	}
	client, err := w.newClient(apiKey)
	if err != nil {
		return nil, err
	}

	results, err := client.VerifyBatch(ctx, emails)
	if err != nil {
		return nil, err
	}

	byEmail := make(map[string]neverbounce.VerificationResult, len(results))
	for _, r := range results {
		byEmail[r.Email] = r
	}

	now := time.Now().UTC()
	verifications := make([]model.EmailVerification, 0, len(emails))
	for _, email := range emails {
		status := model.VerificationUnknown
		var detail json.RawMessage
		if r, ok := byEmail[email]; ok {
			status = r.Status
			detail = r.Detail
		}
		verifications = append(verifications, model.EmailVerification{
			ID:          uuid.New().String(),
			WorkspaceID: run.WorkspaceID,
			Email:       email,
			Provider:    providerName,
			Status:      status,
			Detail:      detail,
			CheckedAt:   now,
		})
	}

	written, err := w.store.InsertVerifications(ctx, verifications)
	if err != nil {
		return nil, err
	}
	stats.VerificationRowsWritten = int(written)

	for _, v := range verifications {
		updated, err := w.store.UpdateCandidateVerification(ctx, runID, v.Email, v.Status)
		if err != nil {
			return nil, err
		}
		stats.CandidatesUpdated += int(updated)
	}

	log.Info("verification batch complete",
		zap.Int("emails", stats.EmailsQueued),
		zap.Int("rows_written", stats.VerificationRowsWritten),
		zap.Int("candidates_updated", stats.CandidatesUpdated),
	)
	return stats, nil
}

// connectorAPIKey extracts and decrypts the api_key from connector config.
// A missing key is a fatal configuration error, never retried.
func connectorAPIKey(conn *model.SourceConnector, box *secrets.Box) (string, error) {
	var cfg model.ConnectorConfig
	if len(conn.Config) > 0 {
		if err := json.Unmarshal(conn.Config, &cfg); err != nil {
			return "", apperr.Configuration("connector %s has malformed config: %v", conn.ID, err)
		}
	}
	if cfg.APIKey == "" {
		return "", apperr.Configuration("connector %s config is missing api_key", conn.ID)
	}
	if box == nil {
		return cfg.APIKey, nil
	}
	apiKey, err := box.Open(cfg.APIKey)
	if err != nil {
		return "", apperr.Configuration("connector %s api_key cannot be decrypted: %v", conn.ID, err)
	}
	return apiKey, nil
}
