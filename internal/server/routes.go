package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/forgeone/internal/engine"
	"github.com/lazypower/forgeone/internal/model"
)

// Moments

func (s *Server) handleCreateMoment(w http.ResponseWriter, r *http.Request) {
	var in model.MomentInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.engine.Journal.CreateMoment(r.Context(), owner(r), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleListMoments(w http.ResponseWriter, r *http.Request) {
	var (
		q   engine.MomentQuery
		err error
	)
	if q.Day, err = s.queryDay(r, "date"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if q.StateAfter, err = queryEnum(r, "state_after", model.ParseStateAfter); err != nil {
		s.writeError(w, r, err)
		return
	}
	if q.EnergyCost, err = queryEnum(r, "energy_cost", model.ParseEnergyCost); err != nil {
		s.writeError(w, r, err)
		return
	}
	if q.Limit, q.Offset, err = queryPage(r); err != nil {
		s.writeError(w, r, err)
		return
	}

	page, err := s.engine.Journal.ListMoments(r.Context(), owner(r), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageBody("moments", page))
}

func (s *Server) handleTodayMoments(w http.ResponseWriter, r *http.Request) {
	moments, err := s.engine.Journal.TodayMoments(r.Context(), owner(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"moments": moments})
}

func (s *Server) handleMomentTimeline(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tl, err := s.engine.Journal.MomentTimeline(r.Context(), owner(r), days)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"timeline": tl})
}

func (s *Server) handleGetMoment(w http.ResponseWriter, r *http.Request) {
	m, err := s.engine.Journal.GetMoment(r.Context(), owner(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleUpdateMoment(w http.ResponseWriter, r *http.Request) {
	var patch model.MomentPatch
	if err := decode(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.engine.UpdateMoment(r.Context(), owner(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMoment(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteMoment(r.Context(), owner(r), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Entries

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var in model.EntryInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := s.engine.Journal.CreateEntry(r.Context(), owner(r), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	var (
		q   engine.EntryQuery
		err error
	)
	if q.Day, err = s.queryDay(r, "date"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if q.From, err = s.queryTime(r, "startDate"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if q.To, err = s.queryTime(r, "endDate"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if q.Category, err = queryEnum(r, "category", model.ParseCategory); err != nil {
		s.writeError(w, r, err)
		return
	}
	if q.Limit, q.Offset, err = queryPage(r); err != nil {
		s.writeError(w, r, err)
		return
	}

	page, err := s.engine.Journal.ListEntries(r.Context(), owner(r), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageBody("entries", page))
}

func (s *Server) handleEntryTimeline(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tl, err := s.engine.Journal.EntryTimeline(r.Context(), owner(r), days)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"timeline": tl})
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.engine.Journal.GetEntry(r.Context(), owner(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var patch model.EntryPatch
	if err := decode(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := s.engine.Journal.UpdateEntry(r.Context(), owner(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Journal.DeleteEntry(r.Context(), owner(r), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	category, err := queryEnum(r, "category", model.ParseCategory)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	results, err := s.engine.Journal.SearchEntries(r.Context(), owner(r), r.URL.Query().Get("q"), category, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"total":   len(results),
	})
}
