package server

import (
	"context"

	"github.com/sells-group/leadflow/internal/apperr"
	"github.com/sells-group/leadflow/internal/approval"
	"github.com/sells-group/leadflow/internal/dedupe"
	"github.com/sells-group/leadflow/internal/discovery"
	"github.com/sells-group/leadflow/internal/model"
)

// stubStore serves canned runs and candidates to handler tests.
type stubStore struct {
	run        *model.SourceRun
	candidates []model.Candidate
}

func (s *stubStore) GetConnector(ctx context.Context, workspaceID, connectorID string) (*model.SourceConnector, error) {
	return nil, apperr.NotFound("connector not found: %s", connectorID)
}

func (s *stubStore) CampaignExists(ctx context.Context, workspaceID, campaignID string) (bool, error) {
	return false, nil
}

func (s *stubStore) CreateRun(ctx context.Context, run *model.SourceRun) error { return nil }

func (s *stubStore) GetRun(ctx context.Context, runID string) (*model.SourceRun, error) {
	if s.run == nil || s.run.ID != runID {
		return nil, apperr.NotFound("run not found: %s", runID)
	}
	return s.run, nil
}

func (s *stubStore) GetRunWithConnector(ctx context.Context, runID string) (*model.SourceRun, *model.SourceConnector, error) {
	return nil, nil, apperr.NotFound("run not found: %s", runID)
}

func (s *stubStore) MarkRunning(ctx context.Context, runID string) error { return nil }

func (s *stubStore) FailRun(ctx context.Context, runID string, errMsg string) error { return nil }

func (s *stubStore) CompleteRunWithCandidates(ctx context.Context, runID string, stats discovery.Stats, candidates []model.Candidate) error {
	return nil
}

func (s *stubStore) FetchRefSets(ctx context.Context, workspaceID, campaignID string) (dedupe.RefSets, error) {
	return dedupe.RefSets{}, nil
}

func (s *stubStore) ListRuns(ctx context.Context, workspaceID string, limit int) ([]model.SourceRun, error) {
	return nil, nil
}

func (s *stubStore) ListQueuedRunIDs(ctx context.Context, workspaceID string) ([]string, error) {
	return nil, nil
}

func (s *stubStore) ListCandidates(ctx context.Context, workspaceID, campaignID string, before *discovery.Cursor, pageSize int) ([]model.Candidate, error) {
	if pageSize < 1 || pageSize > 100 {
		return nil, apperr.Validation("page size must be in [1,100], got %d", pageSize)
	}
	if len(s.candidates) > pageSize {
		return s.candidates[:pageSize], nil
	}
	return s.candidates, nil
}

// stubApprovalStore backs the engine in handler tests.
type stubApprovalStore struct {
	candidates  []model.Candidate
	rejectCount int64
}

func (s *stubApprovalStore) GetCandidates(ctx context.Context, workspaceID, campaignID string, ids []string) ([]model.Candidate, error) {
	return s.candidates, nil
}

func (s *stubApprovalStore) PromoteCandidates(ctx context.Context, workspaceID, campaignID string, candidates []model.Candidate) error {
	return nil
}

func (s *stubApprovalStore) RejectCandidates(ctx context.Context, workspaceID, campaignID string, ids []string) (int64, error) {
	return s.rejectCount, nil
}

var _ approval.Store = (*stubApprovalStore)(nil)
var _ discovery.Store = (*stubStore)(nil)
