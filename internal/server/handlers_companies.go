package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/jonathan/company-directory/internal/reconcile"
	"github.com/jonathan/company-directory/internal/types"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

// Mention filters accepted by GET /companies.
const (
	mentionAll     = "all"
	mentionYes     = "yes"
	mentionNo      = "no"
	mentionUnknown = "unknown"
)

// companyQuery is the parsed filter of a company listing.
type companyQuery struct {
	Search  string
	Sources map[types.Source]bool
	Mention string
	Limit   int
	Offset  int
}

// companyListResponse is the body of GET /companies.
type companyListResponse struct {
	Companies []types.CompanyRecord `json:"companies"`
	Total     int                   `json:"total"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
}

// dataset loads the canonical dataset, collapsing concurrent reads.
func (s *Server) dataset(ctx context.Context) ([]types.CompanyRecord, error) {
	v, err, _ := s.reads.Do("dataset", func() (any, error) {
		return s.pipeline.Dataset(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	return v.([]types.CompanyRecord), nil
}

func parseCompanyQuery(r *http.Request) (companyQuery, error) {
	q := r.URL.Query()
	query := companyQuery{
		Search:  strings.TrimSpace(q.Get("search")),
		Sources: map[types.Source]bool{},
		Mention: mentionAll,
		Limit:   defaultPageLimit,
	}

	if raw := q.Get("source"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			src, err := types.ParseSource(part)
			if err != nil {
				return query, &ErrValidation{Field: "source", Message: err.Error()}
			}
			query.Sources[src] = true
		}
	}

	if raw := strings.ToLower(q.Get("mention")); raw != "" {
		switch raw {
		case mentionAll, mentionYes, mentionNo, mentionUnknown:
			query.Mention = raw
		default:
			return query, &ErrValidation{Field: "mention", Message: "must be one of all, yes, no, unknown"}
		}
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxPageLimit {
			return query, &ErrValidation{Field: "limit", Message: "must be between 1 and " + strconv.Itoa(maxPageLimit)}
		}
		query.Limit = limit
	}

	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return query, &ErrValidation{Field: "offset", Message: "must be a non-negative integer"}
		}
		query.Offset = offset
	}

	return query, nil
}

// filterCompanies returns the records matching q in dataset order.
func filterCompanies(records []types.CompanyRecord, q companyQuery) []types.CompanyRecord {
	// A Caser keeps state and is not safe for concurrent use.
	fold := cases.Fold()
	needle := fold.String(q.Search)

	out := make([]types.CompanyRecord, 0, len(records))
	for _, rec := range records {
		if len(q.Sources) > 0 && !q.Sources[rec.Source] {
			continue
		}
		if !matchesMention(rec.LinkedInMentions, q.Mention) {
			continue
		}
		if needle != "" &&
			!strings.Contains(fold.String(rec.Name), needle) &&
			!strings.Contains(fold.String(rec.Description), needle) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func matchesMention(m types.Mention, filter string) bool {
	switch filter {
	case mentionYes:
		return m == types.MentionTrue
	case mentionNo:
		return m == types.MentionFalse
	case mentionUnknown:
		return m == types.MentionUnknown
	default:
		return true
	}
}

// handleListCompanies handles GET /companies
func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	query, err := parseCompanyQuery(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	records, err := s.dataset(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}

	matched := filterCompanies(records, query)
	page := []types.CompanyRecord{}
	if query.Offset < len(matched) {
		end := min(query.Offset+query.Limit, len(matched))
		page = matched[query.Offset:end]
	}

	s.jsonResponse(w, http.StatusOK, companyListResponse{
		Companies: page,
		Total:     len(matched),
		Limit:     query.Limit,
		Offset:    query.Offset,
	})
}

// handleCompanyStats handles GET /companies/stats
func (s *Server) handleCompanyStats(w http.ResponseWriter, r *http.Request) {
	records, err := s.dataset(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, types.ComputeStats(records))
}

// handleGetCompanyByName handles GET /companies/by-name?name={name}
func (s *Server) handleGetCompanyByName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	key := reconcile.NormalizeName(name)
	if key == "" {
		s.fail(w, &ErrValidation{Field: "name", Message: "name query parameter is required"})
		return
	}

	records, err := s.dataset(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}

	for _, rec := range records {
		if reconcile.NormalizeName(rec.Name) == key {
			s.jsonResponse(w, http.StatusOK, rec)
			return
		}
	}
	s.fail(w, &ErrNotFound{Resource: "company", Key: name})
}
