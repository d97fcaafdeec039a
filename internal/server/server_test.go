package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adscope/suggest-triage/internal/geodict"
	"github.com/adscope/suggest-triage/internal/georesolve"
	"github.com/adscope/suggest-triage/internal/model"
	"github.com/adscope/suggest-triage/internal/morph"
	"github.com/adscope/suggest-triage/internal/pipeline"
	"github.com/adscope/suggest-triage/internal/semantic"
	"github.com/adscope/suggest-triage/internal/signals"
	"github.com/adscope/suggest-triage/internal/store"
)

func testPipeline() *pipeline.Pipeline {
	dict := &geodict.Dictionaries{
		Cities:      map[string]string{"минск": "by", "киев": "ua"},
		Abbrevs:     map[string]string{},
		Regions:     map[string]string{},
		Countries:   map[string]string{},
		Districts:   map[string]string{},
		SmallCities: map[string]string{},
		Forbidden:   map[string]struct{}{},
		IgnoreNouns: map[string]struct{}{},
	}
	analyzer := morph.NewRuleAnalyzer()
	return pipeline.New(
		dict,
		analyzer,
		georesolve.NewResolver(dict, analyzer, georesolve.Config{Language: "ru"}),
		signals.NewClassifier(signals.DefaultLexicon(), dict, analyzer, "ru"),
		semantic.NewRefiner(nil, nil, semantic.DefaultConfig()),
		nil,
		pipeline.Config{Language: "ru", Workers: 2},
	)
}

func testServer(t *testing.T) (*Server, store.Store) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	return New(testPipeline(), st, 0), st
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)

	rec := doJSON(t, srv.Router(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestClassify(t *testing.T) {
	srv, _ := testServer(t)

	rec := doJSON(t, srv.Router(), http.MethodPost, "/v1/classify", classifyRequest{
		Seed:    "ремонт пылесосов",
		Country: "by",
		Candidates: []string{
			"ремонт пылесосов минск",
			"ремонт пылесосов киев",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp classifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Outcomes, 2)
	assert.Empty(t, resp.RunID)
	assert.Equal(t, model.LabelValid, resp.Outcomes[0].Label)
	assert.Equal(t, model.LabelTrash, resp.Outcomes[1].Label)
	assert.Equal(t, 2, resp.Stats.Total)
}

func TestClassifyPersistsRun(t *testing.T) {
	srv, st := testServer(t)

	rec := doJSON(t, srv.Router(), http.MethodPost, "/v1/classify", classifyRequest{
		Seed:       "ремонт пылесосов",
		Country:    "by",
		Candidates: []string{"ремонт пылесосов минск"},
		Persist:    true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp classifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.RunID)

	run, err := st.GetRun(context.Background(), resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)

	outcomes, err := st.ListOutcomes(context.Background(), resp.RunID)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "ремонт пылесосов минск", outcomes[0].Candidate)
}

func TestClassifyValidation(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.Router()

	cases := []struct {
		name string
		req  classifyRequest
	}{
		{"missing seed", classifyRequest{Country: "by", Candidates: []string{"x"}}},
		{"missing country", classifyRequest{Seed: "s", Candidates: []string{"x"}}},
		{"no candidates", classifyRequest{Seed: "s", Country: "by"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/v1/classify", tc.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/classify", bytes.NewBufferString("{broken"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRunAndList(t *testing.T) {
	srv, st := testServer(t)
	router := srv.Router()

	run, err := st.CreateRun(context.Background(), "ремонт пылесосов", "ru", "by")
	require.NoError(t, err)
	require.NoError(t, st.InsertOutcomes(context.Background(), run.ID, []model.Outcome{
		{Candidate: "ремонт пылесосов минск", Label: model.LabelValid, Stage: "signals"},
	}))
	require.NoError(t, st.CompleteRun(context.Background(), run.ID, &model.BatchStats{Total: 1, Valid: 1}))

	rec := doJSON(t, router, http.MethodGet, "/v1/runs/"+run.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Run      model.Run       `json:"run"`
		Outcomes []model.Outcome `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, run.ID, got.Run.ID)
	require.Len(t, got.Outcomes, 1)

	rec = doJSON(t, router, http.MethodGet, "/v1/runs?status=complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Runs []model.Run `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Runs, 1)
	assert.Equal(t, run.ID, list.Runs[0].ID)
}

func TestGetRunNotFound(t *testing.T) {
	srv, _ := testServer(t)

	rec := doJSON(t, srv.Router(), http.MethodGet, "/v1/runs/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/runs?limit=10&offset=bad", nil)
	assert.Equal(t, 10, queryInt(req, "limit", 50))
	assert.Equal(t, 0, queryInt(req, "offset", 0))
	assert.Equal(t, 50, queryInt(req, "missing", 50))
}
