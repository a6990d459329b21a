package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/leadflow/internal/apperr"
	"github.com/sells-group/leadflow/internal/approval"
	"github.com/sells-group/leadflow/internal/discovery"
	"github.com/sells-group/leadflow/internal/model"
	"github.com/sells-group/leadflow/pkg/pdl"
)

const (
	defaultCandidatePageSize = 25
	maxCandidatePageSize     = 100
)

type createRunRequest struct {
	ConnectorID string            `json:"connectorId"`
	Label       string            `json:"runLabel,omitempty"`
	Filters     pdl.SearchFilters `json:"filters"`
	Limit       int               `json:"limit"`
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceID")
	campaignID := chi.URLParam(r, "campaignID")

	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	if req.ConnectorID == "" {
		writeError(w, apperr.Validation("connectorId is required"))
		return
	}

	run, err := s.orch.CreateRun(r.Context(), workspaceID, campaignID, req.ConnectorID, req.Label,
		discovery.Query{Filters: req.Filters, Limit: req.Limit}, s.maxLimit)
	if err != nil {
		writeError(w, err)
		return
	}

	// Execution is request-scoped from the pipeline's perspective but the
	// HTTP caller gets a 202 immediately; failures land in the run's stats.
	go func() {
		if _, err := s.orch.Execute(context.WithoutCancel(r.Context()), run.ID); err != nil {
			zap.L().Error("discovery run execution failed",
				zap.String("run_id", run.ID),
				zap.Error(err),
			)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"runId":  run.ID,
		"status": string(run.Status),
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceID")
	runID := chi.URLParam(r, "runID")

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		writeError(w, err)
		return
	}
	if run.WorkspaceID != workspaceID {
		writeError(w, apperr.NotFound("run not found: %s", runID))
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleVerifyRun(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceID")
	runID := chi.URLParam(r, "runID")

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		writeError(w, err)
		return
	}
	if run.WorkspaceID != workspaceID {
		writeError(w, apperr.NotFound("run not found: %s", runID))
		return
	}

	stats, err := s.worker.Run(r.Context(), runID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type candidatePage struct {
	Items      []model.Candidate `json:"items"`
	NextCursor string            `json:"nextCursor,omitempty"`
}

func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceID")
	campaignID := chi.URLParam(r, "campaignID")

	pageSize := defaultCandidatePageSize
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxCandidatePageSize {
			writeError(w, apperr.Validation("pageSize must be in [1,%d]", maxCandidatePageSize))
			return
		}
		pageSize = n
	}

	var cursor *discovery.Cursor
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		c, err := decodeCursor(raw)
		if err != nil {
			writeError(w, err)
			return
		}
		cursor = c
	}

	items, err := s.store.ListCandidates(r.Context(), workspaceID, campaignID, cursor, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}

	page := candidatePage{Items: items}
	if page.Items == nil {
		page.Items = []model.Candidate{}
	}
	if len(items) == pageSize {
		last := items[len(items)-1]
		page.NextCursor = encodeCursor(discovery.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	writeJSON(w, http.StatusOK, page)
}

type approveRequest struct {
	CandidateIDs           []string `json:"candidateIds"`
	AllowUnverified        bool     `json:"allowUnverified,omitempty"`
	ConfirmAllowUnverified bool     `json:"confirmAllowUnverified,omitempty"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceID")
	campaignID := chi.URLParam(r, "campaignID")

	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return
	}

	result, err := s.engine.Approve(r.Context(), workspaceID, campaignID, req.CandidateIDs, approval.DefaultPolicy{
		AllowUnverified:        req.AllowUnverified,
		ConfirmAllowUnverified: req.ConfirmAllowUnverified,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type rejectRequest struct {
	CandidateIDs []string `json:"candidateIds"`
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceID")
	campaignID := chi.URLParam(r, "campaignID")

	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return
	}

	count, err := s.engine.Reject(r.Context(), workspaceID, campaignID, req.CandidateIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"rejectedCount": count})
}
