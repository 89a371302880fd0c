package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"fleetonboard/internal/app"
	"fleetonboard/internal/util"
	"fleetonboard/pkg/domain"
	"fleetonboard/pkg/wizard"
)

const maxSubmissionBytes = 1 << 20

type submitResponse struct {
	ID     string                   `json:"id"`
	Status domain.ApplicationStatus `json:"status"`
}

type fieldErrorsResponse struct {
	Error  string              `json:"error"`
	Fields []wizard.FieldError `json:"fields,omitempty"`
}

// handleSubmit accepts a full wizard draft and walks it through every
// step gate before submission. Anonymous submissions are accepted; a
// bearer token, when present, links the application to the account.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSubmissionBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "submission too large")
		return
	}
	if msgs := validateSubmissionShape(body); len(msgs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "submission does not match the expected shape",
			"details": msgs,
		})
		return
	}
	var draft wizard.Draft
	if err := json.Unmarshal(body, &draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m := wizard.NewMachine(s.app)
	if token := bearerToken(r); token != "" {
		if user, ok := s.app.UserFromToken(token); ok {
			m.SetUserID(user.ID)
		}
	}
	m.Update(func(d *wizard.Draft) { *d = draft })

	for m.Step() < wizard.StepTerms {
		res := m.Advance()
		if res.Moved {
			continue
		}
		if res.Rejection != "" {
			writeJSON(w, http.StatusUnprocessableEntity, fieldErrorsResponse{Error: res.Rejection})
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, fieldErrorsResponse{
			Error:  "validation failed at step " + m.Step().String(),
			Fields: res.FieldErrors,
		})
		return
	}

	id, fieldErrs, err := m.Submit(r.Context())
	if len(fieldErrs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, fieldErrorsResponse{Error: "validation failed", Fields: fieldErrs})
		return
	}
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("application submit failed", "err", err)
		writeError(w, http.StatusInternalServerError, "submission failed")
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{ID: id, Status: domain.StatusPending})
}

func (s *Server) handleListMine(w http.ResponseWriter, r *http.Request, user domain.User) {
	apps, err := s.app.ListMyApplications(user.ID)
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("list own applications failed", "err", err)
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"applications": apps})
}

type uploadResponse struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request, user domain.User) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !s.allowedExts[ext] {
		writeError(w, http.StatusBadRequest, "file type not allowed")
		return
	}
	contentType := header.Header.Get("Content-Type")
	url, key, err := s.app.UploadDocument(r.Context(), header.Filename, file, header.Size, contentType)
	if err != nil {
		if errors.Is(err, app.ErrStorageUnavailable) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		util.LoggerFromContext(r.Context()).Error("document upload failed", "user", user.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse{URL: url, Key: key})
}
