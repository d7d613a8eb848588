package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/grob/lucindex"
	"github.com/grob/lucindex/engine"
)

const contentTypeJSON = "application/json"

type server struct {
	h      *lucindex.Handle
	logger *slog.Logger
}

func newServer(h *lucindex.Handle, logger *slog.Logger) *server {
	return &server{h: h, logger: logger}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Get("/size", s.handleSize)
	r.Get("/stats", s.handleStats)
	r.Post("/records", s.handleAdd)
	r.Delete("/records", s.handleRemoveAll)
	r.Put("/records/{field}/{value}", s.handleUpdate)
	r.Delete("/records/{field}/{value}", s.handleRemove)
	r.Post("/search", s.handleSearch)
	r.Get("/search", s.handleParsedSearch)
	r.Post("/flush", s.handleFlush)
	return r
}

type jobResponse struct {
	Jobs []string `json:"jobs,omitempty"`
}

type searchRequest struct {
	Conditions map[string]any `json:"conditions"`
	Limit      int            `json:"limit"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (s *server) handleSize(w http.ResponseWriter, r *http.Request) {
	n, err := s.h.Size()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"size": n})
}

type statsResponse struct {
	Coordinator lucindex.Stats    `json:"coordinator"`
	Index       engine.IndexStats `json:"index"`
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	idx, err := s.h.IndexStats()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statsResponse{Coordinator: s.h.Stats(), Index: idx})
}

// handleAdd accepts one record or an array of records.
func (s *server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var body any
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	var recs []lucindex.Record
	switch body := body.(type) {
	case map[string]any:
		recs = append(recs, body)
	case []any:
		for i, v := range body {
			m, ok := v.(map[string]any)
			if !ok {
				s.writeError(w, badRequest("record %d is not an object", i))
				return
			}
			recs = append(recs, m)
		}
	default:
		s.writeError(w, badRequest("expected a record or an array of records"))
		return
	}

	if isSync(r) {
		for _, rec := range recs {
			if err := s.h.AddSync(rec); err != nil {
				s.writeError(w, err)
				return
			}
		}
		s.writeJSON(w, http.StatusOK, jobResponse{})
		return
	}
	var resp jobResponse
	for _, rec := range recs {
		job, err := s.h.Add(rec)
		if err != nil {
			s.writeError(w, err)
			return
		}
		resp.Jobs = append(resp.Jobs, job.ID.String())
	}
	s.writeJSON(w, http.StatusAccepted, resp)
}

func (s *server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	field, value := chi.URLParam(r, "field"), chi.URLParam(r, "value")
	var rec lucindex.Record
	if err := decodeJSON(r, &rec); err != nil {
		s.writeError(w, err)
		return
	}
	if isSync(r) {
		s.respondSync(w, s.h.UpdateSync(field, value, rec))
		return
	}
	s.respondJob(w)(s.h.Update(field, value, rec))
}

func (s *server) handleRemove(w http.ResponseWriter, r *http.Request) {
	field, value := chi.URLParam(r, "field"), chi.URLParam(r, "value")
	if isSync(r) {
		s.respondSync(w, s.h.RemoveSync(field, value))
		return
	}
	s.respondJob(w)(s.h.Remove(field, value))
}

func (s *server) handleRemoveAll(w http.ResponseWriter, r *http.Request) {
	s.respondJob(w)(s.h.RemoveAll())
}

func (s *server) handleFlush(w http.ResponseWriter, r *http.Request) {
	s.respondSync(w, s.h.Flush(r.Context()))
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	var q engine.Query = engine.MatchAllDocsQuery{}
	if len(req.Conditions) > 0 {
		bq, err := s.h.CreateQuery(req.Conditions)
		if err != nil {
			s.writeError(w, err)
			return
		}
		q = bq
	}
	s.search(w, q, req.Limit)
}

// handleParsedSearch runs ?q= through the query parser; ?field= sets the
// default field.
func (s *server) handleParsedSearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	limit := 0
	if v := params.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, badRequest("invalid limit %q", v))
			return
		}
		limit = n
	}
	q, err := s.h.ParseQuery(params.Get("field"), params.Get("q"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.search(w, q, limit)
}

func (s *server) search(w http.ResponseWriter, q engine.Query, limit int) {
	res, err := s.h.Query(q, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *server) respondJob(w http.ResponseWriter) func(*lucindex.Job, error) {
	return func(job *lucindex.Job, err error) {
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusAccepted, jobResponse{Jobs: []string{job.ID.String()}})
	}
}

func (s *server) respondSync(w http.ResponseWriter, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, jobResponse{})
}

func isSync(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("sync"))
	return ok
}

type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{fmt.Sprintf(format, args...)}
}

// decodeJSON keeps numbers as json.Number so integer fields get exact
// values.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

func statusOf(err error) int {
	var (
		reqErr   *requestError
		argErr   *lucindex.ArgumentError
		fieldErr *lucindex.FieldEncodingError
		queryErr *lucindex.QueryTypeError
		parseErr *engine.ParseError
	)
	switch {
	case errors.As(err, &reqErr), errors.As(err, &argErr), errors.As(err, &fieldErr),
		errors.As(err, &queryErr), errors.As(err, &parseErr):
		return http.StatusBadRequest
	case errors.Is(err, lucindex.ErrShutdown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= 500 {
		s.logger.Error("request failed", "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("writing response failed", "err", err)
	}
}
