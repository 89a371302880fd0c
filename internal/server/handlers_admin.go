package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fleetonboard/internal/app"
	"fleetonboard/internal/util"
	"fleetonboard/pkg/domain"
	"fleetonboard/pkg/store"
)

// queryFromRequest composes the board query from URL parameters:
// ?search=...&status=...&sort=submitted_at|applicant_name|email&dir=asc|desc
func queryFromRequest(r *http.Request) (store.ApplicationQuery, error) {
	q := store.ApplicationQuery{
		Search: r.URL.Query().Get("search"),
		Sort:   store.SortSubmittedAt,
		Desc:   true,
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.ApplicationStatus(raw)
		if !domain.ValidStatus(status) {
			return q, fmt.Errorf("unknown status %q", raw)
		}
		q.Status = status
	}
	switch sort := r.URL.Query().Get("sort"); sort {
	case "", string(store.SortSubmittedAt):
	case string(store.SortApplicantName):
		q.Sort = store.SortApplicantName
	case string(store.SortEmail):
		q.Sort = store.SortEmail
	default:
		return q, fmt.Errorf("unknown sort field %q", sort)
	}
	switch dir := r.URL.Query().Get("dir"); dir {
	case "", "desc":
	case "asc":
		q.Desc = false
	default:
		return q, fmt.Errorf("unknown sort direction %q", dir)
	}
	return q, nil
}

func (s *Server) handleAdminList(w http.ResponseWriter, r *http.Request, user domain.User) {
	q, err := queryFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	apps, err := s.app.ListApplications(q)
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("admin list failed", "err", err)
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"applications": apps})
}

func (s *Server) handleAdminGet(w http.ResponseWriter, r *http.Request, user domain.User) {
	id := r.PathValue("id")
	application, found, err := s.app.GetApplication(id)
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("admin get failed", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "application not found")
		return
	}
	writeJSON(w, http.StatusOK, application)
}

type bulkStatusRequest struct {
	IDs    []string                 `json:"ids"`
	Status domain.ApplicationStatus `json:"status"`
}

func (s *Server) handleAdminBulkStatus(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req bulkStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	touched, err := s.app.BulkUpdateStatus(r.Context(), req.IDs, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrNoApplicationIDs), errors.Is(err, app.ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			util.LoggerFromContext(r.Context()).Error("bulk status update failed", "err", err)
			writeError(w, http.StatusInternalServerError, "update failed")
		}
		return
	}
	util.LoggerFromContext(r.Context()).Info("bulk status update",
		"admin", user.ID, "status", req.Status, "requested", len(req.IDs), "updated", touched)
	writeJSON(w, http.StatusOK, map[string]any{"updated": touched})
}

func (s *Server) handleAdminExport(w http.ResponseWriter, r *http.Request, user domain.User) {
	q, err := queryFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=applications-%s.csv", time.Now().UTC().Format("2006-01-02")))
	if err := s.app.ExportCSV(w, q); err != nil {
		// Headers are already out; all we can do is log and cut the stream.
		util.LoggerFromContext(r.Context()).Error("csv export failed", "err", err)
	}
}

// handleAdminEvents streams application change events over SSE so the
// dashboard can re-fetch without polling. Events carry no row data.
func (s *Server) handleAdminEvents(w http.ResponseWriter, r *http.Request, user domain.User) {
	if s.events == nil {
		writeError(w, http.StatusServiceUnavailable, "change feed is not configured")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	events, err := s.events.Subscribe(r.Context())
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("change feed subscribe failed", "err", err)
		writeError(w, http.StatusInternalServerError, "subscribe failed")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
