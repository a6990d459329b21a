package approval

import (
	"context"

	"github.com/sells-group/leadflow/internal/model"
)

// fakeStore records calls and serves canned candidates for engine tests.
type fakeStore struct {
	candidates []model.Candidate

	getCalls      int
	promoted      []model.Candidate
	promoteCalls  int
	promoteErr    error
	rejectedIDs   []string
	rejectedCount int64
}

func (f *fakeStore) GetCandidates(ctx context.Context, workspaceID, campaignID string, ids []string) ([]model.Candidate, error) {
	f.getCalls++
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.Candidate
	for _, c := range f.candidates {
		if want[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) PromoteCandidates(ctx context.Context, workspaceID, campaignID string, candidates []model.Candidate) error {
	f.promoteCalls++
	if f.promoteErr != nil {
		return f.promoteErr
	}
	f.promoted = append(f.promoted, candidates...)
	return nil
}

func (f *fakeStore) RejectCandidates(ctx context.Context, workspaceID, campaignID string, ids []string) (int64, error) {
	f.rejectedIDs = append(f.rejectedIDs, ids...)
	return f.rejectedCount, nil
}
