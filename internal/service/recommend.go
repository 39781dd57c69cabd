package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kitbuilder587/study-finder/internal/cache"
	"github.com/kitbuilder587/study-finder/internal/domain"
	"github.com/kitbuilder587/study-finder/internal/extract"
	"github.com/kitbuilder587/study-finder/internal/metrics"
	"github.com/kitbuilder587/study-finder/internal/retry"
	"github.com/kitbuilder587/study-finder/internal/search"
	"github.com/kitbuilder587/study-finder/internal/task"
)

type RecommendationService interface {
	Recommend(ctx context.Context, prefs domain.Preferences) ([]domain.Recommendation, error)
}

type RecommendConfig struct {
	// метка провайдера для метрик и логов
	Provider         string
	DirectoryDomains []string
	MaxResults       int
	Region           string
	CacheTTL         time.Duration
	RetryAttempts    int
	RetryBaseDelay   time.Duration
	Limit            int
}

type RecommendServiceDeps struct {
	Search  search.SearchClient
	Runner  *task.Runner
	Cache   cache.Cache
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Config  RecommendConfig
}

type recommendService struct {
	search  search.SearchClient
	runner  *task.Runner
	cache   cache.Cache
	logger  *zap.Logger
	metrics *metrics.Metrics
	config  RecommendConfig
	policy  retry.Policy

	flights singleflight.Group
}

func NewRecommendService(deps RecommendServiceDeps) RecommendationService {
	if deps.Config.MaxResults == 0 {
		deps.Config.MaxResults = 15
	}
	if deps.Config.RetryAttempts == 0 {
		deps.Config.RetryAttempts = 3
	}
	if deps.Config.RetryBaseDelay == 0 {
		deps.Config.RetryBaseDelay = 5 * time.Second
	}
	if deps.Config.Limit == 0 {
		deps.Config.Limit = domain.MaxRecommendations
	}
	if deps.Config.Provider == "" {
		deps.Config.Provider = "unknown"
	}
	if deps.Runner == nil {
		deps.Runner = task.NewRunner(1, 90*time.Second)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	s := &recommendService{
		search:  deps.Search,
		runner:  deps.Runner,
		cache:   deps.Cache,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		config:  deps.Config,
	}

	s.policy = SearchPolicy(deps.Config.RetryAttempts, deps.Config.RetryBaseDelay, deps.Logger, deps.Metrics)

	return s
}

// SearchPolicy - ретраи поиска: только rate limit, экспоненциальная пауза от base.
// Один и тот же для сервиса и для CLI.
func SearchPolicy(attempts int, base time.Duration, logger *zap.Logger, m *metrics.Metrics) retry.Policy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return retry.Policy{
		MaxAttempts: attempts,
		Backoff:     retry.Exponential(base),
		Retryable:   search.IsRateLimit,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			logger.Warn("search rate limited, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err))
			if m != nil {
				m.RecordSearchRetry()
			}
		},
	}
}

// Recommend возвращает ошибку только на невалидный запрос.
// Любой сбой поиска превращается в пустой список.
func (s *recommendService) Recommend(ctx context.Context, prefs domain.Preferences) ([]domain.Recommendation, error) {
	startTime := time.Now()

	if s.metrics != nil {
		s.metrics.IncRequestsInFlight()
		defer s.metrics.DecRequestsInFlight()
	}

	if err := prefs.Validate(); err != nil {
		if s.metrics != nil {
			s.metrics.RecordRequest("recommend", "validation_error", time.Since(startTime))
		}
		return nil, err
	}

	query := extract.BuildQuery(prefs)
	log := s.logger.With(zap.String("query", query), zap.Int("budget", prefs.Budget))

	results, err := s.searchWithCache(ctx, query)
	if err != nil {
		log.Warn("search failed, returning no recommendations",
			zap.String("reason", failureReason(err)),
			zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordRecommendations(0)
			s.metrics.RecordRequest("recommend", "degraded", time.Since(startTime))
		}
		return []domain.Recommendation{}, nil
	}

	recs := extract.Select(results, prefs, s.config.Limit)

	for _, r := range results {
		log.Debug("search result",
			zap.String("title", r.Title),
			zap.String("url", r.URL),
			zap.Int("cost", extract.ExtractCost(r.Content)))
	}
	log.Info("recommendations built",
		zap.Int("results", len(results)),
		zap.Int("recommendations", len(recs)),
		zap.Duration("duration", time.Since(startTime)))

	if s.metrics != nil {
		s.metrics.RecordRecommendations(len(recs))
		s.metrics.RecordRequest("recommend", "success", time.Since(startTime))
	}

	return recs, nil
}

func (s *recommendService) searchWithCache(ctx context.Context, query string) ([]search.SearchResult, error) {
	key := s.cacheKey(query, s.config.DirectoryDomains)

	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			if results, ok := cached.([]search.SearchResult); ok {
				if s.metrics != nil {
					s.metrics.RecordCacheHit()
				}
				return results, nil
			}
		}
		if s.metrics != nil {
			s.metrics.RecordCacheMiss()
		}
	}

	// общий поиск не отменяется вместе с одним из ждущих запросов,
	// его ограничивает таймаут раннера
	flightCtx := context.WithoutCancel(ctx)
	ch := s.flights.DoChan(key, func() (any, error) {
		results, err := s.boundedSearch(flightCtx, query)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.Set(key, results, s.config.CacheTTL)
		}
		return results, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug("search shared with concurrent request", zap.String("key", key))
		}
		return res.Val.([]search.SearchResult), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// boundedSearch - ретраи внутри одного воркера с общим дедлайном
func (s *recommendService) boundedSearch(ctx context.Context, query string) ([]search.SearchResult, error) {
	req := search.SearchRequest{
		Query:          query,
		IncludeDomains: s.config.DirectoryDomains,
		MaxResults:     s.config.MaxResults,
		Region:         s.config.Region,
	}

	results, err := task.Run(ctx, s.runner, func(ctx context.Context) ([]search.SearchResult, error) {
		return retry.Do(ctx, s.policy, func(ctx context.Context) ([]search.SearchResult, error) {
			return s.searchOnce(ctx, req)
		})
	})
	if errors.Is(err, task.ErrDeadlineExceeded) {
		if s.metrics != nil {
			s.metrics.RecordSearchTimeout()
		}
		return nil, fmt.Errorf("%w after %s", domain.ErrSearchTimeout, s.runner.Timeout())
	}
	return results, err
}

func (s *recommendService) searchOnce(ctx context.Context, req search.SearchRequest) ([]search.SearchResult, error) {
	searchStart := time.Now()
	resp, err := s.search.Search(ctx, req)
	if err == nil && len(resp.Results) == 0 {
		err = search.ErrEmptyResults
	}

	if s.metrics != nil {
		s.metrics.RecordSearchRequest(s.config.Provider, searchStatus(err), time.Since(searchStart))
	}
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (s *recommendService) cacheKey(query string, domains []string) string {
	normalized := normalizeQuery(query)
	sortedDomains := make([]string, len(domains))
	copy(sortedDomains, domains)
	sort.Strings(sortedDomains)
	data := s.config.Provider + "|" + normalized + "|" + strings.Join(sortedDomains, ",")
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("search:%x", hash[:8])
}

func normalizeQuery(q string) string {
	q = strings.ToLower(q)
	return strings.Join(strings.Fields(q), " ")
}

func searchStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, search.ErrRateLimit):
		return "rate_limited"
	case errors.Is(err, search.ErrEmptyResults):
		return "empty"
	default:
		return "error"
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrSearchTimeout):
		return "timeout"
	case errors.Is(err, search.ErrRateLimit):
		return "rate_limit_exhausted"
	case errors.Is(err, search.ErrEmptyResults):
		return "no_results"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "search_error"
	}
}
