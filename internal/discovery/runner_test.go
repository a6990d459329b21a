package discovery

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadflow/internal/apperr"
	"github.com/sells-group/leadflow/internal/dedupe"
	"github.com/sells-group/leadflow/internal/model"
	"github.com/sells-group/leadflow/pkg/pdl"
)

func testRegistry(client pdl.Client) *Registry {
	r := NewRegistry()
	r.Register(model.ConnectorLicensedProvider, "pdl", func(apiKey string) (pdl.Client, error) {
		return client, nil
	})
	return r
}

func testConnector() *model.SourceConnector {
	return &model.SourceConnector{
		ID:          "conn1",
		WorkspaceID: "ws1",
		Type:        model.ConnectorLicensedProvider,
		ProviderKey: "pdl",
		Config:      []byte(`{"api_key":"k"}`),
		Enabled:     true,
	}
}

func queuedRun(query string) *model.SourceRun {
	return &model.SourceRun{
		ID:          "r1",
		WorkspaceID: "ws1",
		CampaignID:  "cmp1",
		ConnectorID: "conn1",
		Query:       []byte(query),
		Status:      model.RunStatusQueued,
	}
}

func TestCreateRun(t *testing.T) {
	store := &mockStore{campaignExists: true, connector: testConnector()}
	orch := NewOrchestrator(store, testRegistry(&mockClient{}), nil, 0)

	run, err := orch.CreateRun(context.Background(), "ws1", "cmp1", "conn1", "q3 push",
		Query{Filters: pdl.SearchFilters{JobTitles: []string{"VP Sales"}}, Limit: 200}, 1000)
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)
	assert.Equal(t, "q3 push", run.Label)
	require.NotNil(t, store.createdRun)

	var stored Query
	require.NoError(t, json.Unmarshal(store.createdRun.Query, &stored))
	assert.Equal(t, 200, stored.Limit)
	assert.Equal(t, []string{"VP Sales"}, stored.Filters.JobTitles)
}

func TestCreateRun_LimitValidation(t *testing.T) {
	store := &mockStore{campaignExists: true, connector: testConnector()}
	orch := NewOrchestrator(store, testRegistry(&mockClient{}), nil, 0)

	for _, limit := range []int{0, -5, 1001} {
		_, err := orch.CreateRun(context.Background(), "ws1", "cmp1", "conn1", "", Query{Limit: limit}, 1000)
		require.Error(t, err, "limit %d", limit)
		assert.True(t, apperr.IsValidation(err), "limit %d", limit)
	}
	assert.Nil(t, store.createdRun)
}

func TestCreateRun_CampaignNotFound(t *testing.T) {
	store := &mockStore{campaignExists: false, connector: testConnector()}
	orch := NewOrchestrator(store, testRegistry(&mockClient{}), nil, 0)

	_, err := orch.CreateRun(context.Background(), "ws1", "cmp-missing", "conn1", "", Query{Limit: 10}, 1000)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestCreateRun_DisabledConnector(t *testing.T) {
	conn := testConnector()
	conn.Enabled = false
	store := &mockStore{campaignExists: true, connector: conn}
	orch := NewOrchestrator(store, testRegistry(&mockClient{}), nil, 0)

	_, err := orch.CreateRun(context.Background(), "ws1", "cmp1", "conn1", "", Query{Limit: 10}, 1000)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestExecute_FullRun(t *testing.T) {
	client := &mockClient{people: []pdl.Person{
		{ID: "p1", WorkEmail: "A@x.com", FirstName: "Ada", JobCompanyID: "co1"},
		{ID: "p2", WorkEmail: ""},
		{ID: "p3", WorkEmail: "blocked@x.com"},
		{ID: "p4", WorkEmail: "a@x.com"},
	}}
	store := &mockStore{
		run:       queuedRun(`{"filters":{},"limit":50}`),
		connector: testConnector(),
		refs: dedupe.RefSets{
			BlockedEmails: map[string]bool{"blocked@x.com": true},
		},
	}
	orch := NewOrchestrator(store, testRegistry(client), nil, 0)

	stats, err := orch.Execute(context.Background(), "r1")
	require.NoError(t, err)

	assert.Equal(t, 50, client.limit)
	assert.Equal(t, []string{"r1"}, store.markedRunning)
	assert.Equal(t, "r1", store.completedRunID)

	assert.Equal(t, 4, stats.Fetched)
	assert.Equal(t, 3, stats.CandidatesCreated)
	assert.Equal(t, 1, stats.SkippedMissingEmail)
	assert.Equal(t, 1, stats.SuppressedByBlocklist)
	assert.Equal(t, 1, stats.SuppressedByDuplicate)
	assert.Equal(t, 1, stats.ApprovableCandidates)
	// fetched = created + skipped; created = approvable + suppressed.
	assert.Equal(t, stats.Fetched, stats.CandidatesCreated+stats.SkippedMissingEmail)
	assert.Equal(t, stats.CandidatesCreated,
		stats.ApprovableCandidates+stats.SuppressedByBlocklist+stats.SuppressedByDuplicate)

	require.Len(t, store.completed, 3)
	first := store.completed[0]
	assert.Equal(t, "a@x.com", first.Email)
	assert.Equal(t, "p1", first.PersonProviderID)
	assert.Equal(t, "co1", first.CompanyProviderID)
	assert.Equal(t, model.VerificationUnknown, first.Verification)
	assert.Equal(t, model.CandidateStatusNew, first.Status)
	assert.Equal(t, "ws1", first.WorkspaceID)
	assert.Equal(t, "r1", first.SourceRunID)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, model.CandidateStatusSuppressed, store.completed[1].Status)
	assert.Equal(t, model.CandidateStatusSuppressed, store.completed[2].Status)
}

func TestExecute_DefaultLimitWhenQueryOmitsIt(t *testing.T) {
	client := &mockClient{}
	store := &mockStore{run: queuedRun(`{"filters":{}}`), connector: testConnector()}
	orch := NewOrchestrator(store, testRegistry(client), nil, 0)

	_, err := orch.Execute(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, 100, client.limit)
}

func TestExecute_ProviderFailureMarksRunFailed(t *testing.T) {
	client := &mockClient{err: eris.New("provider exploded")}
	store := &mockStore{run: queuedRun(`{"limit":10}`), connector: testConnector()}
	orch := NewOrchestrator(store, testRegistry(client), nil, 0)

	_, err := orch.Execute(context.Background(), "r1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider exploded")
	assert.Equal(t, "provider exploded", store.failedRuns["r1"])
	assert.Empty(t, store.completedRunID)
}

func TestExecute_UnsupportedConnector(t *testing.T) {
	conn := testConnector()
	conn.ProviderKey = "unheard-of"
	store := &mockStore{run: queuedRun(`{"limit":10}`), connector: conn}
	orch := NewOrchestrator(store, testRegistry(&mockClient{}), nil, 0)

	_, err := orch.Execute(context.Background(), "r1")
	require.Error(t, err)
	assert.True(t, apperr.IsConfiguration(err))
	// Resolution happens after MarkRunning, so the run lands in FAILED.
	assert.Contains(t, store.failedRuns["r1"], "unsupported connector")
}

func TestExecute_MissingAPIKey(t *testing.T) {
	conn := testConnector()
	conn.Config = []byte(`{}`)
	store := &mockStore{run: queuedRun(`{"limit":10}`), connector: conn}
	orch := NewOrchestrator(store, testRegistry(&mockClient{}), nil, 0)

	_, err := orch.Execute(context.Background(), "r1")
	require.Error(t, err)
	assert.True(t, apperr.IsConfiguration(err))
}

func TestExecute_RunNotFound(t *testing.T) {
	store := &mockStore{connector: testConnector()}
	orch := NewOrchestrator(store, testRegistry(&mockClient{}), nil, 0)

	_, err := orch.Execute(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
	assert.Empty(t, store.markedRunning)
}

func TestParseQuery(t *testing.T) {
	t.Run("well formed", func(t *testing.T) {
		q := parseQuery([]byte(`{"filters":{"job_titles":["CTO"]},"limit":25}`), 100)
		assert.Equal(t, 25, q.Limit)
		assert.Equal(t, []string{"CTO"}, q.Filters.JobTitles)
	})

	t.Run("missing limit falls back", func(t *testing.T) {
		q := parseQuery([]byte(`{"filters":{}}`), 100)
		assert.Equal(t, 100, q.Limit)
	})

	t.Run("malformed degrades to defaults", func(t *testing.T) {
		q := parseQuery([]byte(`{garbage`), 100)
		assert.Equal(t, 100, q.Limit)
		assert.Empty(t, q.Filters.JobTitles)
	})

	t.Run("empty input", func(t *testing.T) {
		q := parseQuery(nil, 100)
		assert.Equal(t, 100, q.Limit)
	})
}
