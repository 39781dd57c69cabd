package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kitbuilder587/study-finder/internal/cache/memory"
	"github.com/kitbuilder587/study-finder/internal/domain"
	"github.com/kitbuilder587/study-finder/internal/metrics"
	"github.com/kitbuilder587/study-finder/internal/search"
	searchMock "github.com/kitbuilder587/study-finder/internal/search/mock"
	"github.com/kitbuilder587/study-finder/internal/task"
)

func testPrefs() domain.Preferences {
	return domain.Preferences{
		Interests:     "computer science",
		Level:         "master",
		LanguageLevel: "B2",
		Budget:        1200,
	}
}

func testResults() []search.SearchResult {
	return []search.SearchResult{
		{Title: "TU Berlin - Computer Science (Berlin)", URL: "https://daad.de/1", Content: "Living costs around 950 EUR per month."},
		{Title: "LMU - Informatics (Munich)", URL: "https://daad.de/2", Content: "Expect 1,500€ monthly."},
		{Title: "RWTH Aachen - Data Science (Aachen)", URL: "https://daad.de/3", Content: "No fees."},
		{Title: "Uni Bonn - AI (Bonn)", URL: "https://daad.de/4", Content: "About 800 EUR."},
		{Title: "Uni Köln - CS (Köln)", URL: "https://daad.de/5", Content: "700 EUR."},
	}
}

type testDeps struct {
	client  *searchMock.Client
	cache   *memory.Cache
	metrics *metrics.Metrics
	svc     RecommendationService
}

func newTestService(t *testing.T, client *searchMock.Client, runnerTimeout time.Duration) testDeps {
	t.Helper()

	c := memory.New()
	t.Cleanup(c.Stop)

	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	svc := NewRecommendService(RecommendServiceDeps{
		Search:  client,
		Runner:  task.NewRunner(1, runnerTimeout),
		Cache:   c,
		Logger:  zap.NewNop(),
		Metrics: m,
		Config: RecommendConfig{
			Provider:         "mock",
			DirectoryDomains: []string{"daad.de"},
			MaxResults:       15,
			CacheTTL:         time.Minute,
			RetryAttempts:    3,
			RetryBaseDelay:   time.Millisecond,
		},
	})

	return testDeps{client: client, cache: c, metrics: m, svc: svc}
}

func TestRecommendService_Recommend(t *testing.T) {
	tests := []struct {
		name      string
		prefs     domain.Preferences
		client    *searchMock.Client
		wantErr   error
		wantLen   int
		wantCalls int
	}{
		{
			name:      "filters by budget and keeps three",
			prefs:     testPrefs(),
			client:    searchMock.New().WithResults(testResults()),
			wantLen:   3,
			wantCalls: 1,
		},
		{
			name: "missing interests",
			prefs: domain.Preferences{
				Level:         "master",
				LanguageLevel: "B2",
				Budget:        1000,
			},
			client:    searchMock.New().WithResults(testResults()),
			wantErr:   domain.ErrMissingField,
			wantCalls: 0,
		},
		{
			name:      "retries rate limit then succeeds",
			prefs:     testPrefs(),
			client:    searchMock.New().WithErrors(search.ErrRateLimit, search.ErrRateLimit).WithResults(testResults()),
			wantLen:   3,
			wantCalls: 3,
		},
		{
			name:      "rate limit exhausted degrades to empty",
			prefs:     testPrefs(),
			client:    searchMock.New().WithError(search.ErrRateLimit),
			wantLen:   0,
			wantCalls: 3,
		},
		{
			name:      "other errors are not retried",
			prefs:     testPrefs(),
			client:    searchMock.New().WithError(search.ErrSearchFailed),
			wantLen:   0,
			wantCalls: 1,
		},
		{
			name:      "empty results",
			prefs:     testPrefs(),
			client:    searchMock.New(),
			wantLen:   0,
			wantCalls: 1,
		},
		{
			name: "nothing within budget",
			prefs: domain.Preferences{
				Interests:     "art",
				Level:         "bachelor",
				LanguageLevel: "C1",
				Budget:        100,
			},
			client:    searchMock.New().WithResults(testResults()),
			wantLen:   0,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestService(t, tt.client, time.Second)

			recs, err := d.svc.Recommend(context.Background(), tt.prefs)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Recommend() error = %v, want %v", err, tt.wantErr)
				}
			} else {
				if err != nil {
					t.Fatalf("Recommend() unexpected error = %v", err)
				}
				if recs == nil {
					t.Fatal("Recommend() returned nil slice")
				}
				if len(recs) != tt.wantLen {
					t.Errorf("len(recs) = %d, want %d", len(recs), tt.wantLen)
				}
				for _, r := range recs {
					if r.MonthlyCosts > tt.prefs.Budget {
						t.Errorf("recommendation %q costs %d, over budget %d", r.ProgramName, r.MonthlyCosts, tt.prefs.Budget)
					}
				}
			}

			if got := tt.client.Calls(); got != tt.wantCalls {
				t.Errorf("search calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestRecommendService_RequestShape(t *testing.T) {
	client := searchMock.New().WithResults(testResults())
	d := newTestService(t, client, time.Second)

	recs, err := d.svc.Recommend(context.Background(), testPrefs())
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	req := client.LastRequest
	wantQuery := "computer science master degree program university Germany studium"
	if req.Query != wantQuery {
		t.Errorf("Query = %q, want %q", req.Query, wantQuery)
	}
	if len(req.IncludeDomains) != 1 || req.IncludeDomains[0] != "daad.de" {
		t.Errorf("IncludeDomains = %v, want [daad.de]", req.IncludeDomains)
	}
	if req.MaxResults != 15 {
		t.Errorf("MaxResults = %d, want 15", req.MaxResults)
	}

	first := recs[0]
	if first.University != "TU Berlin" || first.ProgramName != "Computer Science (Berlin)" || first.City != "Berlin" {
		t.Errorf("first recommendation = %+v", first)
	}
	if first.Requirements != "Language level: B2, Details: https://daad.de/1" {
		t.Errorf("Requirements = %q", first.Requirements)
	}
	if first.MonthlyCosts != 950 {
		t.Errorf("MonthlyCosts = %d, want 950", first.MonthlyCosts)
	}
}

func TestRecommendService_Timeout(t *testing.T) {
	client := searchMock.New().WithResults(testResults()).WithDelay(time.Second)
	d := newTestService(t, client, 50*time.Millisecond)

	start := time.Now()
	recs, err := d.svc.Recommend(context.Background(), testPrefs())
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if recs == nil || len(recs) != 0 {
		t.Errorf("recs = %v, want empty slice", recs)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("Recommend() took %v, deadline not enforced", elapsed)
	}
	if got := testutil.ToFloat64(d.metrics.SearchTimeoutsTotal); got != 1 {
		t.Errorf("SearchTimeoutsTotal = %v, want 1", got)
	}
}

func TestRecommendService_Cache(t *testing.T) {
	client := searchMock.New().WithResults(testResults())
	d := newTestService(t, client, time.Second)

	for i := 0; i < 3; i++ {
		if _, err := d.svc.Recommend(context.Background(), testPrefs()); err != nil {
			t.Fatalf("Recommend() error = %v", err)
		}
	}

	if got := client.Calls(); got != 1 {
		t.Errorf("search calls = %d, want 1", got)
	}
	if got := testutil.ToFloat64(d.metrics.CacheHitsTotal); got != 2 {
		t.Errorf("CacheHitsTotal = %v, want 2", got)
	}
}

func TestRecommendService_FailuresNotCached(t *testing.T) {
	client := searchMock.New().WithErrors(search.ErrSearchFailed).WithResults(testResults())
	d := newTestService(t, client, time.Second)

	recs, _ := d.svc.Recommend(context.Background(), testPrefs())
	if len(recs) != 0 {
		t.Fatalf("first call recs = %d, want 0", len(recs))
	}

	recs, _ = d.svc.Recommend(context.Background(), testPrefs())
	if len(recs) != 3 {
		t.Errorf("second call recs = %d, want 3", len(recs))
	}
	if got := client.Calls(); got != 2 {
		t.Errorf("search calls = %d, want 2", got)
	}
}

func TestRecommendService_ConcurrentRequestsShareSearch(t *testing.T) {
	client := searchMock.New().WithResults(testResults()).WithDelay(50 * time.Millisecond)
	d := newTestService(t, client, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recs, err := d.svc.Recommend(context.Background(), testPrefs())
			if err != nil || len(recs) != 3 {
				t.Errorf("Recommend() = %d recs, err %v", len(recs), err)
			}
		}()
	}
	wg.Wait()

	if got := client.Calls(); got != 1 {
		t.Errorf("search calls = %d, want 1", got)
	}
}

func TestRecommendService_CallerCancel(t *testing.T) {
	client := searchMock.New().WithResults(testResults()).WithDelay(time.Second)
	d := newTestService(t, client, 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	recs, err := d.svc.Recommend(ctx, testPrefs())
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("recs = %d, want 0", len(recs))
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("Recommend() did not return on caller cancel")
	}
}

func TestCacheKey(t *testing.T) {
	svc := NewRecommendService(RecommendServiceDeps{
		Search: searchMock.New(),
		Config: RecommendConfig{Provider: "mock"},
	}).(*recommendService)

	a := svc.cacheKey("Computer  Science MASTER", []string{"daad.de", "uni.de"})
	b := svc.cacheKey("computer science master", []string{"uni.de", "daad.de"})
	c := svc.cacheKey("computer science bachelor", []string{"daad.de", "uni.de"})

	if a != b {
		t.Errorf("cacheKey differs for equivalent queries: %s vs %s", a, b)
	}
	if a == c {
		t.Error("cacheKey equal for different queries")
	}
}

func TestFailureReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.ErrSearchTimeout, "timeout"},
		{search.ErrRateLimit, "rate_limit_exhausted"},
		{search.ErrEmptyResults, "no_results"},
		{context.Canceled, "canceled"},
		{errors.New("boom"), "search_error"},
	}

	for _, tt := range tests {
		if got := failureReason(tt.err); got != tt.want {
			t.Errorf("failureReason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestSearchPolicy(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	p := SearchPolicy(3, 5*time.Second, zap.NewNop(), m)

	if p.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", p.MaxAttempts)
	}
	if got := p.Backoff(1); got != 5*time.Second {
		t.Errorf("Backoff(1) = %v, want 5s", got)
	}
	if got := p.Backoff(2); got != 10*time.Second {
		t.Errorf("Backoff(2) = %v, want 10s", got)
	}
	if !p.Retryable(search.ErrRateLimit) {
		t.Error("rate limit should be retryable")
	}
	if p.Retryable(search.ErrSearchFailed) {
		t.Error("search failure should not be retryable")
	}

	p.OnRetry(1, 5*time.Second, search.ErrRateLimit)
	if got := testutil.ToFloat64(m.SearchRetriesTotal); got != 1 {
		t.Errorf("search retries = %v, want 1", got)
	}

	// без метрик и логгера не падает
	SearchPolicy(3, time.Second, nil, nil).OnRetry(1, time.Second, search.ErrRateLimit)
}
