package approval

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/leadflow/internal/apperr"
	"github.com/sells-group/leadflow/internal/model"
)

// DefaultMaxBatchSize caps candidate ids per approval or reject call.
const DefaultMaxBatchSize = 500

// Rejection reports why one candidate was not approved.
type Rejection struct {
	CandidateID string       `json:"candidateId"`
	Reason      RejectReason `json:"reason"`
}

// ApproveResult is the outcome of a bulk approval call. Rejected preserves
// input order and echoes every non-approved input id exactly once.
type ApproveResult struct {
	ApprovedCount int         `json:"approvedCount"`
	Rejected      []Rejection `json:"rejected"`
}

// Engine applies approval policies and promotes candidates to leads.
type Engine struct {
	store        Store
	maxBatchSize int
}

// NewEngine creates an approval engine.
func NewEngine(store Store, maxBatchSize int) *Engine {
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}
	return &Engine{store: store, maxBatchSize: maxBatchSize}
}

// Approve evaluates candidateIDs under policy and promotes the approved
// ones. One bad candidate id never blocks the rest: per-candidate failures
// come back in Rejected rather than aborting the batch. Promotion is
// all-or-nothing inside one transaction.
func (e *Engine) Approve(ctx context.Context, workspaceID, campaignID string, candidateIDs []string, policy Policy) (*ApproveResult, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	ids, err := e.canonicalIDs(candidateIDs)
	if err != nil {
		return nil, err
	}

	candidates, err := e.store.GetCandidates(ctx, workspaceID, campaignID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	result := &ApproveResult{Rejected: []Rejection{}}
	var approved []model.Candidate
	for _, id := range ids {
		c, ok := byID[id]
		switch {
		case !ok:
			result.Rejected = append(result.Rejected, Rejection{id, ReasonCandidateNotFound})
		case c.Status != model.CandidateStatusNew:
			result.Rejected = append(result.Rejected, Rejection{id, ReasonStatusNotNew})
		default:
			if reason := policy.Gate(c.Verification); reason != "" {
				result.Rejected = append(result.Rejected, Rejection{id, reason})
				continue
			}
			approved = append(approved, c)
		}
	}

	if len(approved) > 0 {
		if err := e.store.PromoteCandidates(ctx, workspaceID, campaignID, approved); err != nil {
			return nil, err
		}
	}
	result.ApprovedCount = len(approved)

	zap.L().Info("approval batch evaluated",
		zap.String("campaign_id", campaignID),
		zap.Int("approved", result.ApprovedCount),
		zap.Int("rejected", len(result.Rejected)),
	)
	return result, nil
}

// Reject unconditionally flips NEW candidates to REJECTED. Non-NEW and
// unknown ids are skipped silently; the returned count reflects rows
// actually transitioned.
func (e *Engine) Reject(ctx context.Context, workspaceID, campaignID string, candidateIDs []string) (int64, error) {
	ids, err := e.canonicalIDs(candidateIDs)
	if err != nil {
		return 0, err
	}

	rejected, err := e.store.RejectCandidates(ctx, workspaceID, campaignID, ids)
	if err != nil {
		return 0, err
	}

	zap.L().Info("candidates rejected",
		zap.String("campaign_id", campaignID),
		zap.Int64("count", rejected),
	)
	return rejected, nil
}

// canonicalIDs de-duplicates ids preserving order and enforces the batch cap.
func (e *Engine) canonicalIDs(ids []string) ([]string, error) {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, apperr.Validation("candidate ids are required")
	}
	if len(out) > e.maxBatchSize {
		return nil, apperr.Validation("at most %d candidate ids per call, got %d", e.maxBatchSize, len(out))
	}
	return out, nil
}
