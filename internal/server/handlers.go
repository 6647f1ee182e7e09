package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/feynlab/feynlab/internal/code"
	"github.com/feynlab/feynlab/internal/session"
	"github.com/feynlab/feynlab/internal/validate"
	"github.com/feynlab/feynlab/pkg/types"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": types.Version,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.State())
}

type startConceptRequest struct {
	Concept string                `json:"concept"`
	Modules []types.ConceptModule `json:"modules,omitempty"`
}

func (s *Server) handleStartConcept(w http.ResponseWriter, r *http.Request) {
	var req startConceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	if req.Concept == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "concept is required")
		return
	}
	s.svc.StartConcept(req.Concept, req.Modules)
	writeJSON(w, http.StatusOK, s.svc.State())
}

func (s *Server) handleNextModule(w http.ResponseWriter, r *http.Request) {
	if !s.svc.NextModule() {
		writeError(w, http.StatusConflict, ErrCodeConflict, "no next module available")
		return
	}
	writeJSON(w, http.StatusOK, s.svc.State())
}

func (s *Server) handleGetAdvice(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Advice())
}

type updateFieldRequest struct {
	Value string `json:"value"`
}

func (s *Server) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	id := types.FieldID(chi.URLParam(r, "fieldID"))
	var req updateFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	if err := s.svc.UpdateFieldValue(id, req.Value); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.State())
}

type submitFieldRequest struct {
	Value string `json:"value"`
}

func (s *Server) handleSubmitField(w http.ResponseWriter, r *http.Request) {
	id := types.FieldID(chi.URLParam(r, "fieldID"))
	var req submitFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	if req.Value == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "value is required")
		return
	}
	result, err := s.svc.Submit(r.Context(), id, req.Value)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExportCode(w http.ResponseWriter, r *http.Request) {
	codeStr, err := s.svc.ExportCode()
	if err != nil {
		s.log.Error().Err(err).Msg("export code failed")
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to encode session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": codeStr})
}

type importCodeRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleImportCode(w http.ResponseWriter, r *http.Request) {
	var req importCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	if err := s.svc.ImportCode(req.Code); err != nil {
		if errors.Is(err, code.ErrBadCode) {
			writeError(w, http.StatusBadRequest, ErrCodeBadCode, err.Error())
			return
		}
		s.log.Error().Err(err).Msg("import code failed")
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to decode session")
		return
	}
	writeJSON(w, http.StatusOK, s.svc.State())
}

func (s *Server) handleCheckpoint(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Checkpoint(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("checkpoint failed")
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to write checkpoint")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"checkpointed": true})
}

func (s *Server) handleRestoreCheckpoint(w http.ResponseWriter, r *http.Request) {
	if !s.svc.RollbackToCheckpoint(r.Context()) {
		writeError(w, http.StatusNotFound, ErrCodeNoCheckpoint, "no checkpoint available")
		return
	}
	writeJSON(w, http.StatusOK, s.svc.State())
}

// writeServiceError maps session errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrUnknownField):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, session.ErrFieldLocked):
		writeError(w, http.StatusConflict, ErrCodeFieldLocked, err.Error())
	case errors.Is(err, session.ErrValidationInFlight):
		writeError(w, http.StatusConflict, ErrCodeInFlight, err.Error())
	case errors.Is(err, validate.ErrMalformedVerdict):
		writeError(w, http.StatusBadGateway, ErrCodeVerdict, err.Error())
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
