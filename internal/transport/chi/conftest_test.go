package chi

import (
	"context"

	"github.com/kailas-cloud/clubrec/internal/domain"
	"github.com/kailas-cloud/clubrec/internal/domain/recommend/result"
	healthuc "github.com/kailas-cloud/clubrec/internal/usecase/health"
)

type mockRecommender struct {
	results   []result.Result
	err       error
	tokens    int
	called    bool
	queryText string
	topN      *int
}

func (m *mockRecommender) Recommend(ctx context.Context, queryText string, topN *int) ([]result.Result, error) {
	m.called = true
	m.queryText = queryText
	m.topN = topN
	if m.tokens > 0 {
		domain.UsageFromContext(ctx).AddTokens(m.tokens)
	}
	return m.results, m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

func healthyReport() healthuc.Report {
	return healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
	}
}
