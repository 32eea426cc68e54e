package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/company-directory/internal/pipeline"
	"github.com/jonathan/company-directory/internal/server/middleware"
)

// rescrapeRequest is the optional body of the rescrape actions.
type rescrapeRequest struct {
	Stages        []string `json:"stages" validate:"dive,oneof=directory enrich discover ingest dedupe"`
	SkipDirectory bool     `json:"skip_directory"`
	SkipEnrich    bool     `json:"skip_enrich"`
	SkipDiscover  bool     `json:"skip_discover"`
	Candidates    []string `json:"candidates" validate:"max=500,dive,url"`
}

// runErrorResponse carries the partial report of an aborted run.
type runErrorResponse struct {
	Error  string           `json:"error"`
	Code   string           `json:"code"`
	Report *pipeline.Report `json:"report,omitempty"`
}

// decodeRescrape turns an optional request body into run options.
func decodeRescrape(r *http.Request) (pipeline.Options, error) {
	var req rescrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return pipeline.Options{}, &ErrValidation{Field: "body", Message: "invalid JSON"}
	}

	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return pipeline.Options{}, &ErrValidation{Field: verrs[0].Namespace(), Message: "failed " + verrs[0].Tag()}
		}
		return pipeline.Options{}, &ErrValidation{Field: "body", Message: err.Error()}
	}

	opts := pipeline.Options{
		SkipDirectory: req.SkipDirectory,
		SkipEnrich:    req.SkipEnrich,
		SkipDiscover:  req.SkipDiscover,
		Candidates:    req.Candidates,
	}
	for _, name := range req.Stages {
		stage, err := pipeline.ParseStage(name)
		if err != nil {
			return pipeline.Options{}, &ErrValidation{Field: "stages", Message: err.Error()}
		}
		opts.Only = append(opts.Only, stage)
	}
	return opts, nil
}

func (s *Server) actor(r *http.Request) string {
	if subject, err := middleware.GetSubject(r); err == nil {
		return subject
	}
	return "anonymous"
}

// handleRescrape handles POST /actions/rescrape
func (s *Server) handleRescrape(w http.ResponseWriter, r *http.Request) {
	opts, err := decodeRescrape(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.log.Info().Str("actor", s.actor(r)).Msg("rescrape requested")
	report, err := s.pipeline.Run(r.Context(), opts)
	if err != nil {
		if report == nil {
			s.fail(w, err)
			return
		}
		s.log.Error().Err(err).Msg("rescrape aborted")
		s.jsonResponse(w, HTTPStatus(err), runErrorResponse{
			Error:  err.Error(),
			Code:   ErrorCode(err),
			Report: report,
		})
		return
	}

	s.jsonResponse(w, http.StatusOK, report)
}

// handleRescrapeStream handles POST /actions/rescrape/stream
func (s *Server) handleRescrapeStream(w http.ResponseWriter, r *http.Request) {
	opts, err := decodeRescrape(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	// Refuse before switching to an event stream so the client gets a 409.
	if s.pipeline.Running() {
		s.fail(w, pipeline.ErrRunInProgress)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	opts.OnProgress = func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent("progress", event); err != nil {
			s.log.Debug().Err(err).Msg("failed to write progress event")
		}
	}

	s.log.Info().Str("actor", s.actor(r)).Msg("streaming rescrape requested")
	report, err := s.pipeline.Run(r.Context(), opts)
	if err != nil {
		sse.WriteError(err)
		return
	}
	sse.WriteComplete(report)
}

// handleRestore handles POST /actions/restore
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	if err := s.pipeline.Restore(r.Context()); err != nil {
		s.fail(w, err)
		return
	}
	s.log.Info().Str("actor", s.actor(r)).Msg("canonical dataset restored from backup")
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "restored"})
}
