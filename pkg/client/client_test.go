package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/clubrec/internal/domain"
	"github.com/kailas-cloud/clubrec/internal/domain/recommend/result"
	httpapi "github.com/kailas-cloud/clubrec/internal/transport/chi"
	healthuc "github.com/kailas-cloud/clubrec/internal/usecase/health"
)

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, u := range []string{"", "localhost:8080", "://bad"} {
		if _, err := New(u); err == nil {
			t.Errorf("New(%q): expected error", u)
		}
	}
}

func TestRecommend_SendsRequest(t *testing.T) {
	var got recommendRequest
	var auth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != pathRecommend {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		name := "Robotics Club"
		writeJSON(w, http.StatusOK, recommendResponse{Results: []Recommendation{
			{ItemID: "robotics-club", DisplayName: &name, Score: 0.91},
			{ItemID: "ghost", Score: 0.4},
		}})
	}), WithAPIKey("secret"))

	recs, err := c.Recommend(context.Background(), "I like robots", TopN(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auth != "Bearer secret" {
		t.Errorf("Authorization = %q", auth)
	}
	if got.QueryText != "I like robots" || got.TopN == nil || *got.TopN != 2 {
		t.Errorf("unexpected request body: %+v", got)
	}
	if len(recs) != 2 || *recs[0].DisplayName != "Robotics Club" || recs[1].DisplayName != nil {
		t.Errorf("unexpected results: %+v", recs)
	}
}

func TestRecommend_OmitsTopNByDefault(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		_ = json.NewDecoder(r.Body).Decode(&raw)
		if _, ok := raw["topN"]; ok {
			t.Error("topN should be omitted")
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": nil})
	}))

	recs, err := c.Recommend(context.Background(), "chess")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recs == nil || len(recs) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", recs)
	}
}

func TestRecommend_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     any
		sentinel error
		field    string
	}{
		{"validation", 400, errorResponse{Code: "validation_failed", Message: "queryText is required", Field: "queryText"}, ErrValidation, "queryText"},
		{"unauthorized", 401, errorResponse{Code: "unauthorized", Message: "invalid API key"}, ErrUnauthorized, ""},
		{"rate limited", 429, errorResponse{Code: "rate_limited", Message: "slow down"}, ErrRateLimited, ""},
		{"provider", 502, errorResponse{Code: "embedding_provider_error", Message: "could not understand your query"}, ErrUpstream, ""},
		{"index timeout", 504, errorResponse{Code: "vector_index_timeout", Message: "could not search the catalog"}, ErrUpstream, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}))

			_, err := c.Recommend(context.Background(), "x")
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("expected %v, got %v", tt.sentinel, err)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T", err)
			}
			if apiErr.Status != tt.status || apiErr.Field != tt.field {
				t.Errorf("unexpected APIError: %+v", apiErr)
			}
			if tt.status == 504 && !apiErr.Timeout() {
				t.Error("504 should report Timeout")
			}
		})
	}
}

func TestRecommend_NonJSONError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway from proxy", http.StatusBadGateway)
	}))

	_, err := c.Recommend(context.Background(), "x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Code != "" || apiErr.Message != "bad gateway from proxy" {
		t.Errorf("unexpected APIError: %+v", apiErr)
	}
	if !errors.Is(err, ErrUpstream) || errors.Is(err, ErrValidation) {
		t.Error("502 should match ErrUpstream only")
	}
}

func TestRecommend_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}), WithTimeout(50*time.Millisecond))

	_, err := c.Recommend(context.Background(), "x")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestHealth_Degraded(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != pathHealth {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeJSON(w, http.StatusServiceUnavailable, HealthStatus{
			Status: "degraded",
			Checks: map[string]string{"database": "ok", "embedding": "error"},
		})
	}))

	hs, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hs.Healthy() || hs.Checks["embedding"] != "error" {
		t.Errorf("unexpected health: %+v", hs)
	}
}

func TestObserver_CountsCalls(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "validation_failed", Message: "bad"})
	}), WithPrometheus(reg))

	_, _ = c.Recommend(context.Background(), "x")
	_, _ = c.Recommend(context.Background(), "y")

	if got := testutil.ToFloat64(c.obs.metrics.calls.WithLabelValues("recommend", "error")); got != 2 {
		t.Errorf("calls{recommend,error} = %v, want 2", got)
	}

	// A second client on the same registry reuses the collectors.
	if _, err := New("http://localhost", WithPrometheus(reg)); err != nil {
		t.Errorf("second client: %v", err)
	}
}

// --- round trip against the real router ---

type stubRecommender struct {
	results []result.Result
	err     error
}

func (s stubRecommender) Recommend(_ context.Context, _ string, _ *int) ([]result.Result, error) {
	return s.results, s.err
}

type stubHealth struct{}

func (stubHealth) Check(context.Context) healthuc.Report {
	return healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
	}
}

func TestRoundTrip_Server(t *testing.T) {
	rec := stubRecommender{results: []result.Result{
		result.New("robotics-club", 0.91).WithDisplay("Robotics Club", "Build robots"),
		result.New("ghost", 0.5),
	}}
	srv := httpapi.NewServer(rec, stubHealth{}, nil)
	c := newTestClient(t, srv.Router(httpapi.Options{APIKeys: []string{"k1"}}), WithAPIKey("k1"))

	recs, err := c.Recommend(context.Background(), "robots", TopN(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 2 || recs[0].ItemID != "robotics-club" || recs[0].Description != "Build robots" {
		t.Errorf("unexpected results: %+v", recs)
	}
	if recs[1].DisplayName != nil {
		t.Errorf("expected nil display name for unknown item, got %q", *recs[1].DisplayName)
	}

	hs, err := c.Health(context.Background())
	if err != nil || !hs.Healthy() {
		t.Errorf("unexpected health: %+v, %v", hs, err)
	}
}

func TestRoundTrip_ServerErrors(t *testing.T) {
	srv := httpapi.NewServer(stubRecommender{
		err: &domain.ValidationError{Field: "queryText", Reason: "is required"},
	}, stubHealth{}, nil)
	h := srv.Router(httpapi.Options{APIKeys: []string{"k1"}})

	c := newTestClient(t, h, WithAPIKey("k1"))
	_, err := c.Recommend(context.Background(), "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !errors.Is(err, ErrValidation) || apiErr.Field != "queryText" {
		t.Errorf("expected validation APIError on queryText, got %v", err)
	}

	anon := newTestClient(t, h)
	if _, err := anon.Recommend(context.Background(), "robots"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}
