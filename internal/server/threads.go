package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/forgeone/internal/apperr"
	"github.com/lazypower/forgeone/internal/engine"
	"github.com/lazypower/forgeone/internal/model"
)

func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	var in model.ThreadInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.engine.Threads.Create(r.Context(), owner(r), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleListThreads(w http.ResponseWriter, r *http.Request) {
	status, err := queryEnum(r, "status", model.ParseThreadStatus)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, offset, err := queryPage(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.engine.Threads.List(r.Context(), owner(r), status, limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageBody("threads", page))
}

func (s *Server) handleActiveThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := s.engine.Threads.Active(r.Context(), owner(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"threads": threads})
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	detail, err := s.engine.Threads.Get(r.Context(), owner(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleUpdateThread(w http.ResponseWriter, r *http.Request) {
	var patch model.ThreadPatch
	if err := decode(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.engine.Threads.Update(r.Context(), owner(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Threads.Delete(r.Context(), owner(r), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLinkMoment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MomentID string `json:"moment_id"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	req.MomentID = strings.TrimSpace(req.MomentID)
	if req.MomentID == "" {
		s.writeError(w, r, apperr.Validation("moment_id is required"))
		return
	}
	if err := s.engine.Threads.Link(r.Context(), owner(r), chi.URLParam(r, "id"), req.MomentID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Moment linked to thread"})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	period, err := engine.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rep, err := s.engine.Insights.Compute(r.Context(), owner(r), period)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
