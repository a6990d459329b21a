package discovery

import (
	"context"

	"github.com/sells-group/leadflow/internal/apperr"
	"github.com/sells-group/leadflow/internal/dedupe"
	"github.com/sells-group/leadflow/internal/model"
	"github.com/sells-group/leadflow/pkg/pdl"
)

// mockStore is an in-memory Store for orchestrator tests.
type mockStore struct {
	connector      *model.SourceConnector
	campaignExists bool
	run            *model.SourceRun
	refs           dedupe.RefSets

	createdRun     *model.SourceRun
	markedRunning  []string
	failedRuns     map[string]string
	completedRunID string
	completedStats Stats
	completed      []model.Candidate
	completeErr    error
}

func (m *mockStore) GetConnector(ctx context.Context, workspaceID, connectorID string) (*model.SourceConnector, error) {
	if m.connector == nil {
		return nil, apperr.NotFound("connector not found: %s", connectorID)
	}
	return m.connector, nil
}

func (m *mockStore) CampaignExists(ctx context.Context, workspaceID, campaignID string) (bool, error) {
	return m.campaignExists, nil
}

func (m *mockStore) CreateRun(ctx context.Context, run *model.SourceRun) error {
	run.Status = model.RunStatusQueued
	m.createdRun = run
	return nil
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.SourceRun, error) {
	if m.run == nil || m.run.ID != runID {
		return nil, apperr.NotFound("run not found: %s", runID)
	}
	return m.run, nil
}

func (m *mockStore) GetRunWithConnector(ctx context.Context, runID string) (*model.SourceRun, *model.SourceConnector, error) {
	run, err := m.GetRun(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	if m.connector == nil {
		return nil, nil, apperr.NotFound("connector not found: %s", run.ConnectorID)
	}
	return run, m.connector, nil
}

func (m *mockStore) MarkRunning(ctx context.Context, runID string) error {
	m.markedRunning = append(m.markedRunning, runID)
	return nil
}

func (m *mockStore) FailRun(ctx context.Context, runID string, errMsg string) error {
	if m.failedRuns == nil {
		m.failedRuns = map[string]string{}
	}
	m.failedRuns[runID] = errMsg
	return nil
}

func (m *mockStore) CompleteRunWithCandidates(ctx context.Context, runID string, stats Stats, candidates []model.Candidate) error {
	if m.completeErr != nil {
		return m.completeErr
	}
	m.completedRunID = runID
	m.completedStats = stats
	m.completed = candidates
	return nil
}

func (m *mockStore) FetchRefSets(ctx context.Context, workspaceID, campaignID string) (dedupe.RefSets, error) {
	refs := m.refs
	if refs.BlockedEmails == nil {
		refs.BlockedEmails = map[string]bool{}
	}
	if refs.ExistingEmails == nil {
		refs.ExistingEmails = map[string]bool{}
	}
	if refs.ExistingPersonIDs == nil {
		refs.ExistingPersonIDs = map[string]bool{}
	}
	if refs.ExistingCompanyIDs == nil {
		refs.ExistingCompanyIDs = map[string]bool{}
	}
	return refs, nil
}

func (m *mockStore) ListRuns(ctx context.Context, workspaceID string, limit int) ([]model.SourceRun, error) {
	return nil, nil
}

func (m *mockStore) ListQueuedRunIDs(ctx context.Context, workspaceID string) ([]string, error) {
	return nil, nil
}

func (m *mockStore) ListCandidates(ctx context.Context, workspaceID, campaignID string, before *Cursor, pageSize int) ([]model.Candidate, error) {
	return nil, nil
}

// mockClient serves a canned people list.
type mockClient struct {
	people []pdl.Person
	err    error
	limit  int
}

func (m *mockClient) SearchPage(ctx context.Context, filters pdl.SearchFilters, cursor string, pageSize int) (*pdl.SearchPageResult, error) {
	return &pdl.SearchPageResult{Items: m.people}, m.err
}

func (m *mockClient) FetchAllCandidates(ctx context.Context, filters pdl.SearchFilters, limit int) ([]pdl.Person, error) {
	m.limit = limit
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.people) {
		return m.people[:limit], nil
	}
	return m.people, nil
}
