package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/company-directory/internal/config"
	"github.com/jonathan/company-directory/internal/pipeline"
	"github.com/jonathan/company-directory/internal/store"
	"github.com/jonathan/company-directory/internal/types"
)

type fakePipeline struct {
	mu         sync.Mutex
	records    []types.CompanyRecord
	datasetErr error
	report     *pipeline.Report
	runErr     error
	restoreErr error
	running    bool
	lastOpts   pipeline.Options
	runs       int
	restores   int
}

func (f *fakePipeline) Run(_ context.Context, opts pipeline.Options) (*pipeline.Report, error) {
	f.mu.Lock()
	f.runs++
	f.lastOpts = opts
	report, err := f.report, f.runErr
	f.mu.Unlock()

	if opts.OnProgress != nil {
		opts.OnProgress(pipeline.ProgressEvent{
			Step:     string(pipeline.StageIngest),
			Category: pipeline.CategoryStarted,
			Message:  "ingest started",
		})
	}
	return report, err
}

func (f *fakePipeline) Dataset(context.Context) ([]types.CompanyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records, f.datasetErr
}

func (f *fakePipeline) Restore(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restores++
	return f.restoreErr
}

func (f *fakePipeline) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func testSettings() config.ServerConfig {
	settings := config.Default().Server
	settings.RateLimit.Enabled = false
	return settings
}

func newTestServer(t *testing.T, settings config.ServerConfig, p Pipeline) http.Handler {
	t.Helper()
	s, err := New(Config{Settings: settings, Pipeline: p, Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s.Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func sampleRecords() []types.CompanyRecord {
	ev := &types.MatchEvidence{Location: "short_desc", Snippet: "yc s25"}
	return []types.CompanyRecord{
		{
			Name:             "Acme Robotics",
			Description:      "Warehouse automation",
			YCProfileURL:     types.StringPtr("https://www.ycombinator.com/companies/acme"),
			LinkedInURL:      types.StringPtr("https://www.linkedin.com/company/acme"),
			LinkedInMentions: types.MentionTrue,
			LinkedInMatch:    ev,
			Source:           types.SourceYC,
		},
		{
			Name:             "Straße Labs",
			Description:      "Mapping for STRASSE networks",
			LinkedInURL:      types.StringPtr("https://www.linkedin.com/company/strasse"),
			LinkedInMentions: types.MentionTrue,
			LinkedInMatch:    ev,
			Source:           types.SourceLinkedIn,
		},
		{
			Name:             "Beta (YC S25)",
			Description:      "Payments",
			YCProfileURL:     types.StringPtr("https://www.ycombinator.com/companies/beta"),
			LinkedInMentions: types.MentionFalse,
			Source:           types.SourceYC,
		},
		{
			Name:   "Gamma",
			Source: types.SourceYC,
		},
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, testSettings(), &fakePipeline{running: true})

	rec := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["running"])
}

func TestNew_RequiresPipeline(t *testing.T) {
	_, err := New(Config{Settings: testSettings(), Logger: zerolog.Nop()})
	assert.Error(t, err)
}

func TestListCompanies(t *testing.T) {
	h := newTestServer(t, testSettings(), &fakePipeline{records: sampleRecords()})

	tests := []struct {
		name      string
		query     string
		wantNames []string
		wantTotal int
	}{
		{name: "all", query: "", wantNames: []string{"Acme Robotics", "Straße Labs", "Beta (YC S25)", "Gamma"}, wantTotal: 4},
		{name: "search is case-insensitive", query: "?search=ACME", wantNames: []string{"Acme Robotics"}, wantTotal: 1},
		{name: "search folds special cases", query: "?search=strasse", wantNames: []string{"Straße Labs"}, wantTotal: 1},
		{name: "search covers description", query: "?search=payments", wantNames: []string{"Beta (YC S25)"}, wantTotal: 1},
		{name: "network source", query: "?source=linkedin", wantNames: []string{"Straße Labs"}, wantTotal: 1},
		{name: "both sources", query: "?source=yc,linkedin", wantNames: []string{"Acme Robotics", "Straße Labs", "Beta (YC S25)", "Gamma"}, wantTotal: 4},
		{name: "mention yes", query: "?mention=yes", wantNames: []string{"Acme Robotics", "Straße Labs"}, wantTotal: 2},
		{name: "mention no", query: "?mention=no", wantNames: []string{"Beta (YC S25)"}, wantTotal: 1},
		{name: "mention unknown", query: "?mention=unknown", wantNames: []string{"Gamma"}, wantTotal: 1},
		{name: "page", query: "?limit=2&offset=1", wantNames: []string{"Straße Labs", "Beta (YC S25)"}, wantTotal: 4},
		{name: "offset past end", query: "?offset=10", wantNames: []string{}, wantTotal: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/companies"+tt.query, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			body := decode[companyListResponse](t, rec)
			names := make([]string, 0, len(body.Companies))
			for _, c := range body.Companies {
				names = append(names, c.Name)
			}
			assert.Equal(t, tt.wantNames, names)
			assert.Equal(t, tt.wantTotal, body.Total)
		})
	}
}

func TestListCompanies_InvalidQuery(t *testing.T) {
	h := newTestServer(t, testSettings(), &fakePipeline{records: sampleRecords()})

	for _, query := range []string{"?mention=maybe", "?source=crunchbase", "?limit=0", "?limit=abc", "?offset=-1"} {
		t.Run(query, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/companies"+query, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "validation_error", decode[map[string]string](t, rec)["code"])
		})
	}
}

func TestListCompanies_EmptyDatasetEncodesArray(t *testing.T) {
	h := newTestServer(t, testSettings(), &fakePipeline{})

	rec := do(t, h, http.MethodGet, "/companies", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"companies":[]`)
}

func TestListCompanies_CorruptDataset(t *testing.T) {
	corrupt := &store.CorruptionError{Document: store.DocDeduplicated, Path: "dedup.json", Cause: fmt.Errorf("unexpected EOF")}
	h := newTestServer(t, testSettings(), &fakePipeline{datasetErr: corrupt})

	rec := do(t, h, http.MethodGet, "/companies", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "data_corruption", decode[map[string]string](t, rec)["code"])
}

func TestCompanyStats(t *testing.T) {
	h := newTestServer(t, testSettings(), &fakePipeline{records: sampleRecords()})

	rec := do(t, h, http.MethodGet, "/companies/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decode[types.DatasetStats](t, rec)
	assert.Equal(t, types.DatasetStats{
		Total:           4,
		FromDirectory:   3,
		FromNetwork:     1,
		MentionsTrue:    2,
		MentionsFalse:   1,
		MentionsUnknown: 1,
	}, stats)
}

func TestGetCompanyByName(t *testing.T) {
	h := newTestServer(t, testSettings(), &fakePipeline{records: sampleRecords()})

	t.Run("normalized match", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/companies/by-name?name=BETA", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Beta (YC S25)", decode[types.CompanyRecord](t, rec).Name)
	})

	t.Run("not found", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/companies/by-name?name=Delta", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("empty key", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/companies/by-name?name=(stealth)", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func authSettings(t *testing.T, password string) config.ServerConfig {
	t.Helper()
	settings := testSettings()
	settings.BcryptCost = 10
	hash, err := (&config.PasswordConfig{BcryptCost: 10}).HashPassword(password)
	require.NoError(t, err)
	settings.AdminPasswordHash = hash
	settings.JWTSecret = "test-secret-key-with-enough-length"
	return settings
}

func TestToken_NotConfigured(t *testing.T) {
	h := newTestServer(t, testSettings(), &fakePipeline{})

	rec := do(t, h, http.MethodPost, "/auth/token", `{"password":"anything"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "auth_not_configured", decode[map[string]string](t, rec)["code"])
}

func TestToken_Validation(t *testing.T) {
	h := newTestServer(t, authSettings(t, "hunter2"), &fakePipeline{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "malformed", body: `{`, want: http.StatusBadRequest},
		{name: "missing password", body: `{}`, want: http.StatusBadRequest},
		{name: "too long", body: fmt.Sprintf(`{"password":%q}`, strings.Repeat("a", 73)), want: http.StatusBadRequest},
		{name: "wrong password", body: `{"password":"nope"}`, want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/auth/token", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestProtectedActions(t *testing.T) {
	fake := &fakePipeline{report: &pipeline.Report{}}
	h := newTestServer(t, authSettings(t, "hunter2"), fake)

	rec := do(t, h, http.MethodPost, "/actions/rescrape", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, fake.runs)

	rec = do(t, h, http.MethodPost, "/actions/rescrape", "", "Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/auth/token", `{"password":"hunter2"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token := decode[tokenResponse](t, rec)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.True(t, token.ExpiresAt.After(time.Now()))

	rec = do(t, h, http.MethodPost, "/actions/rescrape", "", "Authorization", "Bearer "+token.Token)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, fake.runs)

	rec = do(t, h, http.MethodPost, "/actions/restore", "", "Authorization", "Bearer "+token.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fake.restores)
}

func TestRescrape_Options(t *testing.T) {
	fake := &fakePipeline{report: &pipeline.Report{}}
	h := newTestServer(t, testSettings(), fake)

	body := `{"stages":["ingest","dedupe"],"skip_discover":true,"candidates":["https://www.linkedin.com/company/acme"]}`
	rec := do(t, h, http.MethodPost, "/actions/rescrape", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, []pipeline.Stage{pipeline.StageIngest, pipeline.StageDedupe}, fake.lastOpts.Only)
	assert.True(t, fake.lastOpts.SkipDiscover)
	assert.False(t, fake.lastOpts.SkipDirectory)
	assert.Equal(t, []string{"https://www.linkedin.com/company/acme"}, fake.lastOpts.Candidates)
}

func TestRescrape_InvalidBody(t *testing.T) {
	fake := &fakePipeline{report: &pipeline.Report{}}
	h := newTestServer(t, testSettings(), fake)

	for _, body := range []string{`{"candidates":["not a url"]}`, `{"stages":["publish"]}`, `[`} {
		rec := do(t, h, http.MethodPost, "/actions/rescrape", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Equal(t, 0, fake.runs)
}

func TestRescrape_InProgress(t *testing.T) {
	h := newTestServer(t, testSettings(), &fakePipeline{runErr: pipeline.ErrRunInProgress})

	rec := do(t, h, http.MethodPost, "/actions/rescrape", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "run_in_progress", decode[map[string]string](t, rec)["code"])
}

func TestRescrape_CorruptionReturnsPartialReport(t *testing.T) {
	report := &pipeline.Report{Stages: []pipeline.StageReport{
		{Name: pipeline.StageIngest, OK: false, Message: "dataset corrupt"},
	}}
	corrupt := &store.CorruptionError{Document: store.DocRaw, Path: "raw.json", Cause: fmt.Errorf("bad")}
	h := newTestServer(t, testSettings(), &fakePipeline{report: report, runErr: corrupt})

	rec := do(t, h, http.MethodPost, "/actions/rescrape", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decode[runErrorResponse](t, rec)
	assert.Equal(t, "data_corruption", body.Code)
	require.NotNil(t, body.Report)
	require.Len(t, body.Report.Stages, 1)
	assert.Equal(t, pipeline.StageIngest, body.Report.Stages[0].Name)
}

func TestRescrapeStream(t *testing.T) {
	fake := &fakePipeline{report: &pipeline.Report{Stages: []pipeline.StageReport{{Name: pipeline.StageIngest, OK: true}}}}
	h := newTestServer(t, testSettings(), fake)

	rec := do(t, h, http.MethodPost, "/actions/rescrape/stream", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	out := rec.Body.String()
	progress := strings.Index(out, "event: progress\n")
	complete := strings.Index(out, "event: complete\n")
	require.GreaterOrEqual(t, progress, 0, out)
	require.GreaterOrEqual(t, complete, 0, out)
	assert.Less(t, progress, complete)
	assert.Contains(t, out, `"message":"ingest started"`)
}

func TestRescrapeStream_Errors(t *testing.T) {
	t.Run("busy before streaming", func(t *testing.T) {
		h := newTestServer(t, testSettings(), &fakePipeline{running: true})
		rec := do(t, h, http.MethodPost, "/actions/rescrape/stream", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("run failure becomes error event", func(t *testing.T) {
		h := newTestServer(t, testSettings(), &fakePipeline{runErr: pipeline.ErrRunInProgress})
		rec := do(t, h, http.MethodPost, "/actions/rescrape/stream", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "event: error\n")
		assert.Contains(t, rec.Body.String(), `"code":"run_in_progress"`)
	})
}

func TestRestore(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "restored", err: nil, want: http.StatusOK},
		{name: "no backup", err: store.ErrNoBackup, want: http.StatusNotFound},
		{name: "busy", err: pipeline.ErrRunInProgress, want: http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, testSettings(), &fakePipeline{restoreErr: tt.err})
			rec := do(t, h, http.MethodPost, "/actions/restore", "")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCORS(t *testing.T) {
	settings := testSettings()
	settings.CORSOrigin = "https://dashboard.example.com"
	h := newTestServer(t, settings, &fakePipeline{})

	rec := do(t, h, http.MethodOptions, "/companies", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://dashboard.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestRateLimit(t *testing.T) {
	settings := testSettings()
	settings.RateLimit.Enabled = true
	settings.RateLimit.DefaultLimit = 2
	settings.RateLimit.DefaultWindow = time.Hour
	h := newTestServer(t, settings, &fakePipeline{})

	for i := 0; i < 2; i++ {
		rec := do(t, h, http.MethodGet, "/companies", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := do(t, h, http.MethodGet, "/companies", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decode[map[string]any](t, rec)["error"])

	// health checks are never limited
	rec = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_Blacklist(t *testing.T) {
	settings := testSettings()
	settings.RateLimit.Enabled = true
	settings.RateLimit.Blacklist = []string{"192.0.2.1"}
	h := newTestServer(t, settings, &fakePipeline{})

	rec := do(t, h, http.MethodGet, "/companies", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
