package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lazypower/forgeone/internal/apperr"
	"github.com/lazypower/forgeone/internal/engine"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func statusOf(code string) int {
	switch code {
	case apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error": {...}}. Internal failures are logged
// with their cause and shown to the client only by code and message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		e = apperr.Internal(err, "An unexpected error occurred")
	}
	if e.Code == apperr.CodeInternal {
		s.log.Error(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "owner", owner(r), "err", err)
	}
	writeJSON(w, statusOf(e.Code), map[string]errorBody{
		"error": {Code: e.Code, Message: e.Message, Details: e.Details},
	})
}

// decode reads a JSON request body into v.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("Request body is required")
		}
		return apperr.Validation("Invalid JSON body", err.Error())
	}
	return nil
}

func queryInt(r *http.Request, name string) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation("Invalid input data", name+" must be an integer")
	}
	return n, nil
}

func queryPage(r *http.Request) (limit, offset int, err error) {
	if limit, err = queryInt(r, "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = queryInt(r, "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

// queryDay parses a YYYY-MM-DD query parameter in the engine's zone.
func (s *Server) queryDay(r *http.Request, name string) (time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return time.Time{}, nil
	}
	d, err := engine.ParseDay(v, s.engine.Journal.Location())
	if err != nil {
		return time.Time{}, apperr.Validation("Invalid input data", name+": "+err.Error())
	}
	return d, nil
}

// queryTime accepts RFC 3339 timestamps or bare dates.
func (s *Server) queryTime(r *http.Request, name string) (time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return s.queryDay(r, name)
}

func queryEnum[T ~string](r *http.Request, name string, parse func(string) (T, error)) (T, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return "", nil
	}
	out, err := parse(v)
	if err != nil {
		return "", apperr.Validation("Invalid input data", err.Error())
	}
	return out, nil
}

func pageBody[T any](key string, p engine.Page[T]) map[string]any {
	return map[string]any{
		key:       p.Items,
		"total":   p.Total,
		"hasMore": p.HasMore,
	}
}
