package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/clubrec/internal/domain"
	"github.com/kailas-cloud/clubrec/internal/metrics"
)

var errBoom = errors.New("boom")

func TestBreaker_OpensAfterFailureRatio(t *testing.T) {
	b := NewBreaker[int](BreakerSettings{
		Name:         "test-open",
		MinRequests:  3,
		FailureRatio: 0.5,
		OpenTimeout:  time.Minute,
	}, nil)

	for range 3 {
		if _, err := b.Execute(func() (int, error) { return 0, errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("expected upstream error, got %v", err)
		}
	}

	if b.State() != "open" {
		t.Fatalf("state = %q, want open", b.State())
	}

	called := false
	_, err := b.Execute(func() (int, error) {
		called = true
		return 1, nil
	})
	if !errors.Is(err, domain.ErrUpstreamOpen) {
		t.Fatalf("expected ErrUpstreamOpen, got %v", err)
	}
	if called {
		t.Error("open breaker must not call upstream")
	}
	if v := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("test-open")); v != 2 {
		t.Errorf("state gauge = %v, want 2", v)
	}
	if v := testutil.ToFloat64(metrics.CircuitBreakerRejected.WithLabelValues("test-open")); v != 1 {
		t.Errorf("rejected = %v, want 1", v)
	}
}

func TestBreaker_IgnoresCallerErrors(t *testing.T) {
	b := NewBreaker[int](BreakerSettings{Name: "test-caller", MinRequests: 2, FailureRatio: 0.5}, nil)

	for range 5 {
		_, _ = b.Execute(func() (int, error) { return 0, domain.ErrVectorDimMismatch })
		_, _ = b.Execute(func() (int, error) { return 0, context.Canceled })
	}
	if b.State() != "closed" {
		t.Fatalf("state = %q, want closed", b.State())
	}
}

func TestBreaker_PassesValueThrough(t *testing.T) {
	b := NewBreaker[string](BreakerSettings{Name: "test-value"}, nil)
	v, err := b.Execute(func() (string, error) { return "ok", nil })
	if err != nil || v != "ok" {
		t.Fatalf("got (%q, %v)", v, err)
	}
}
