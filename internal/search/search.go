package search

import (
	"context"
	"errors"
)

var (
	ErrUnauthorized   = errors.New("invalid API key")
	ErrRateLimit      = errors.New("rate limit exceeded")
	ErrInvalidRequest = errors.New("invalid request parameters")
	ErrSearchFailed   = errors.New("search request failed")
	ErrEmptyResults   = errors.New("no results found")
)

const (
	ProviderDuckDuckGo = "duckduckgo"
	ProviderTavily     = "tavily"
)

type SearchClient interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

type SearchRequest struct {
	Query          string
	IncludeDomains []string
	ExcludeDomains []string
	MaxResults     int
	SafeSearch     bool
	Region         string
}

type SearchResponse struct {
	Query        string
	Results      []SearchResult
	ResponseTime float64
}

// SearchResult - заголовок, ссылка и сниппет одного результата
type SearchResult struct {
	Title   string
	URL     string
	Content string
	Score   float64
}

// IsRateLimit - единственный класс ошибок, который имеет смысл ретраить
func IsRateLimit(err error) bool {
	return errors.Is(err, ErrRateLimit)
}
