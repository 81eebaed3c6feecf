package server

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/montero/internal/models"
	"github.com/hyperjump/montero/internal/storage"
	"github.com/hyperjump/montero/internal/validation"
)

func (s *Server) handleListCases(w http.ResponseWriter, r *http.Request) {
	cases, err := s.storage.ListCases(r.Context())
	if err != nil {
		s.logger.Error("list cases failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cases == nil {
		cases = []*models.Case{}
	}
	s.respondJSON(w, http.StatusOK, cases)
}

func (s *Server) handleGetCase(w http.ResponseWriter, r *http.Request) {
	id, ok := s.caseID(w, r)
	if !ok {
		return
	}
	c, err := s.storage.GetCase(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "case not found")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, c)
}

func (s *Server) handleCreateCase(w http.ResponseWriter, r *http.Request) {
	if !isJSON(r) {
		s.respondError(w, http.StatusUnsupportedMediaType, "request body must be JSON")
		return
	}
	var in models.CaseInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if missing := in.MissingRequired(); len(missing) > 0 {
		s.respondError(w, http.StatusBadRequest, "missing required fields: "+strings.Join(missing, ", "))
		return
	}
	if err := validation.ValidateCase(&in); err != nil {
		s.respondValidation(w, err)
		return
	}

	user := actingUser(r)
	c := models.NewCase(&in, user, s.now())
	if err := s.storage.CreateCase(r.Context(), c); err != nil {
		s.logger.Error("create case failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("case created", zap.Int64("id", c.ID), zap.String("user", user))
	s.respondJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateCase(w http.ResponseWriter, r *http.Request) {
	id, ok := s.caseID(w, r)
	if !ok {
		return
	}
	if !isJSON(r) {
		s.respondError(w, http.StatusUnsupportedMediaType, "request body must be JSON")
		return
	}
	var patch models.CasePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.ValidatePatch(&patch); err != nil {
		s.respondValidation(w, err)
		return
	}

	ctx := r.Context()
	c, err := s.storage.GetCase(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "case not found")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !patch.Apply(c, actingUser(r), s.now()) {
		s.respondJSON(w, http.StatusOK, map[string]string{"message": "no changes"})
		return
	}
	if err := s.storage.UpdateCase(ctx, c); err != nil {
		s.logger.Error("update case failed", zap.Int64("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCase(w http.ResponseWriter, r *http.Request) {
	id, ok := s.caseID(w, r)
	if !ok {
		return
	}
	err := s.storage.DeleteCase(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "case not found")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("case deleted", zap.Int64("id", id), zap.String("user", actingUser(r)))
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "case deleted"})
}

func (s *Server) caseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid case id")
		return 0, false
	}
	return id, true
}

func (s *Server) respondValidation(w http.ResponseWriter, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		s.respondJSON(w, http.StatusBadRequest, map[string]any{
			"error":  verr.Error(),
			"fields": verr.Fields,
		})
		return
	}
	s.respondError(w, http.StatusBadRequest, err.Error())
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}
