package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/echolens/echolens/internal/store"
)

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/version", s.handleVersion)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/reports", s.handleListReports)
		r.Get("/reports/{id}", s.handleGetReport)
		r.Delete("/reports/{id}", s.handleDeleteReport)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": versionInfo.Version,
		"commit":  versionInfo.Commit,
	})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.store.ListReports(r.Context())
	if err != nil {
		s.logger.Error("list reports failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	if reports == nil {
		reports = []store.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := s.store.GetReport(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		s.logger.Error("get report failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.store.DeleteReport(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		s.logger.Error("delete report failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete report")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
