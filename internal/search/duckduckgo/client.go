package duckduckgo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kitbuilder587/study-finder/internal/search"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// пауза перед каждым запросом, DDG быстро банит частые запросы
	RequestDelay time.Duration
}

// Client ходит в html-версию DuckDuckGo и разбирает выдачу через goquery.
type Client struct {
	baseURL      string
	userAgent    string
	requestDelay time.Duration
	client       *http.Client
	logger       *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://html.duckduckgo.com/html/"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	return &Client{
		baseURL:      cfg.BaseURL,
		userAgent:    cfg.UserAgent,
		requestDelay: cfg.RequestDelay,
		client:       &http.Client{Timeout: cfg.Timeout},
		logger:       logger,
	}
}

func (c *Client) Search(ctx context.Context, req search.SearchRequest) (*search.SearchResponse, error) {
	if req.MaxResults == 0 {
		req.MaxResults = 15
	}

	if c.requestDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.requestDelay):
		}
	}

	start := time.Now()
	query := BuildSiteQuery(req.Query, req.IncludeDomains)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(query, req), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9,de;q=0.8")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", search.ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	// 202 с "anomaly" страницей - так DDG отвечает при превышении лимита
	case http.StatusAccepted, http.StatusForbidden, http.StatusTooManyRequests:
		c.logger.Warn("duckduckgo rate limited", zap.Int("status", resp.StatusCode))
		return nil, search.ErrRateLimit
	default:
		return nil, fmt.Errorf("%w: status %d", search.ErrSearchFailed, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	// капчу DDG иногда отдаёт с 200, без результатов
	if IsAnomalyPage(doc) {
		c.logger.Warn("duckduckgo rate limited", zap.Int("status", resp.StatusCode), zap.Bool("anomaly", true))
		return nil, search.ErrRateLimit
	}

	results := ParseResults(doc, req.MaxResults)
	c.logger.Debug("duckduckgo search done",
		zap.String("query", query),
		zap.Int("results", len(results)),
	)

	if len(results) == 0 {
		return nil, search.ErrEmptyResults
	}

	return &search.SearchResponse{
		Query:        query,
		Results:      results,
		ResponseTime: time.Since(start).Seconds(),
	}, nil
}

// селекторы страницы-проверки "are you a robot"
const anomalySelector = ".anomaly-modal, .anomaly-modal__title, #challenge-form, form[action*='anomaly']"

func IsAnomalyPage(doc *goquery.Document) bool {
	return doc.Find(anomalySelector).Length() > 0
}

func (c *Client) searchURL(query string, req search.SearchRequest) string {
	params := url.Values{}
	params.Set("q", query)
	if req.SafeSearch {
		params.Set("kp", "1")
	} else {
		params.Set("kp", "-2")
	}
	region := req.Region
	if region == "" {
		region = "wt-wt"
	}
	params.Set("kl", region)
	return c.baseURL + "?" + params.Encode()
}

// BuildSiteQuery дописывает site: операторы для ограничения выдачи каталогом
func BuildSiteQuery(query string, domains []string) string {
	sites := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.TrimSpace(d)
		if d != "" {
			sites = append(sites, "site:"+d)
		}
	}
	if len(sites) == 0 {
		return query
	}
	return query + " " + strings.Join(sites, " OR ")
}

// ParseResults вытаскивает заголовок, ссылку и сниппет из html выдачи.
// Рекламные блоки (result--ad) пропускаются.
func ParseResults(doc *goquery.Document, maxResults int) []search.SearchResult {
	var results []search.SearchResult

	doc.Find("div.result").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}

		link := s.Find("a.result__a").First()
		title := normalizeSpace(link.Text())
		href, _ := link.Attr("href")
		target := unwrapRedirect(href)
		if title == "" || target == "" {
			return true
		}

		results = append(results, search.SearchResult{
			Title:   title,
			URL:     target,
			Content: normalizeSpace(s.Find(".result__snippet").First().Text()),
		})
		return len(results) < maxResults
	})

	return results
}

// ссылки в выдаче вида //duckduckgo.com/l/?uddg=https%3A%2F%2F...
func unwrapRedirect(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") {
		return ""
	}
	return href
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
