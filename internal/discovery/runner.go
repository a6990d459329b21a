package discovery

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadflow/internal/apperr"
	"github.com/sells-group/leadflow/internal/dedupe"
	"github.com/sells-group/leadflow/internal/model"
	"github.com/sells-group/leadflow/internal/secrets"
	"github.com/sells-group/leadflow/pkg/pdl"
)

// Orchestrator executes discovery runs: QUEUED -> RUNNING -> COMPLETED on
// success, RUNNING -> FAILED on any error. A failed run is never resumed;
// re-discovery creates a new run.
type Orchestrator struct {
	store        Store
	registry     *Registry
	box          *secrets.Box
	defaultLimit int
}

// NewOrchestrator creates an orchestrator. box decrypts connector API keys
// and may be nil when connectors store plaintext keys.
func NewOrchestrator(store Store, registry *Registry, box *secrets.Box, defaultLimit int) *Orchestrator {
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	return &Orchestrator{store: store, registry: registry, box: box, defaultLimit: defaultLimit}
}

// CreateRun validates a discovery request and persists a QUEUED run with
// the query JSON stored verbatim.
func (o *Orchestrator) CreateRun(ctx context.Context, workspaceID, campaignID, connectorID, label string, query Query, maxLimit int) (*model.SourceRun, error) {
	if maxLimit <= 0 {
		maxLimit = 1000
	}
	if query.Limit < 1 || query.Limit > maxLimit {
		return nil, apperr.Validation("limit must be in [1,%d], got %d", maxLimit, query.Limit)
	}

	exists, err := o.store.CampaignExists(ctx, workspaceID, campaignID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFound("campaign not found: %s", campaignID)
	}

	conn, err := o.store.GetConnector(ctx, workspaceID, connectorID)
	if err != nil {
		return nil, err
	}
	if !conn.Enabled {
		return nil, apperr.Validation("connector %s is disabled", connectorID)
	}

	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: marshal query")
	}

	run := &model.SourceRun{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		CampaignID:  campaignID,
		ConnectorID: connectorID,
		Label:       label,
		Query:       queryJSON,
	}
	if err := o.store.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	zap.L().Info("discovery run queued",
		zap.String("run_id", run.ID),
		zap.String("campaign_id", campaignID),
		zap.Int("limit", query.Limit),
	)
	return run, nil
}

// Execute drives one queued run to a terminal state and returns its stats.
// Any failure after the RUNNING transition is recorded into the run's
// FAILED state and then re-propagated so the caller can alert.
func (o *Orchestrator) Execute(ctx context.Context, runID string) (*Stats, error) {
	log := zap.L().With(zap.String("run_id", runID))

	run, conn, err := o.store.GetRunWithConnector(ctx, runID)
	if err != nil {
		return nil, err
	}

	if err := o.store.MarkRunning(ctx, runID); err != nil {
		return nil, err
	}
	log.Info("discovery run started", zap.String("connector", conn.ProviderKey))

	stats, err := o.execute(ctx, run, conn)
	if err != nil {
		if failErr := o.store.FailRun(ctx, runID, err.Error()); failErr != nil {
			log.Error("recording run failure failed", zap.Error(failErr))
		}
		log.Error("discovery run failed", zap.Error(err))
		return nil, err
	}

	log.Info("discovery run completed",
		zap.Int("fetched", stats.Fetched),
		zap.Int("created", stats.CandidatesCreated),
		zap.Int("approvable", stats.ApprovableCandidates),
	)
	return stats, nil
}

func (o *Orchestrator) execute(ctx context.Context, run *model.SourceRun, conn *model.SourceConnector) (*Stats, error) {
	client, err := o.buildClient(conn)
	if err != nil {
		return nil, err
	}

	query := parseQuery(run.Query, o.defaultLimit)

	people, err := client.FetchAllCandidates(ctx, query.Filters, query.Limit)
	if err != nil {
		return nil, err
	}

	rows, skipped := mapPeople(people)

	refs, err := o.store.FetchRefSets(ctx, run.WorkspaceID, run.CampaignID)
	if err != nil {
		return nil, err
	}

	classified := dedupe.Classify(rowKeys(rows), refs)

	now := time.Now().UTC()
	candidates := make([]model.Candidate, len(rows))
	for i, p := range rows {
		candidates[i] = model.Candidate{
			ID:                uuid.New().String(),
			WorkspaceID:       run.WorkspaceID,
			CampaignID:        run.CampaignID,
			SourceRunID:       run.ID,
			Email:             dedupe.NormalizeKey(p.WorkEmail),
			PersonProviderID:  p.ID,
			CompanyProviderID: p.JobCompanyID,
			FirstName:         p.FirstName,
			LastName:          p.LastName,
			Title:             p.JobTitle,
			CompanyName:       p.JobCompanyName,
			LinkedinURL:       p.LinkedinURL,
			ConfidenceScore:   p.Likelihood,
			Verification:      model.VerificationUnknown,
			Status:            classified.Outcomes[i].Status,
			CreatedAt:         now,
		}
	}

	stats := &Stats{
		Fetched:               len(people),
		CandidatesCreated:     len(candidates),
		ApprovableCandidates:  classified.Approvable(),
		SuppressedByBlocklist: classified.SuppressedByBlocklist,
		SuppressedByDuplicate: classified.SuppressedByDuplicate,
		SkippedMissingEmail:   skipped,
	}

	if err := o.store.CompleteRunWithCandidates(ctx, run.ID, *stats, candidates); err != nil {
		return nil, err
	}
	return stats, nil
}

// buildClient resolves and constructs the provider client for a connector.
func (o *Orchestrator) buildClient(conn *model.SourceConnector) (pdl.Client, error) {
	factory, err := o.registry.Resolve(conn)
	if err != nil {
		return nil, err
	}

	var cfg model.ConnectorConfig
	if len(conn.Config) > 0 {
		if err := json.Unmarshal(conn.Config, &cfg); err != nil {
			return nil, apperr.Configuration("connector %s has malformed config: %v", conn.ID, err)
		}
	}
	if cfg.APIKey == "" {
		return nil, apperr.Configuration("connector %s config is missing api_key", conn.ID)
	}

	apiKey := cfg.APIKey
	if o.box != nil {
		apiKey, err = o.box.Open(cfg.APIKey)
		if err != nil {
			return nil, apperr.Configuration("connector %s api_key cannot be decrypted: %v", conn.ID, err)
		}
	}

	return factory(apiKey)
}

// mapPeople drops records without a work email, counting them separately.
func mapPeople(people []pdl.Person) (kept []pdl.Person, skippedMissingEmail int) {
	for _, p := range people {
		if dedupe.NormalizeKey(p.WorkEmail) == "" {
			skippedMissingEmail++
			continue
		}
		kept = append(kept, p)
	}
	return kept, skippedMissingEmail
}

func rowKeys(people []pdl.Person) []dedupe.Row {
	rows := make([]dedupe.Row, len(people))
	for i, p := range people {
		rows[i] = dedupe.Row{
			Email:             p.WorkEmail,
			PersonProviderID:  p.ID,
			CompanyProviderID: p.JobCompanyID,
		}
	}
	return rows
}
