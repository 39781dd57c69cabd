package duckduckgo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kitbuilder587/study-finder/internal/search"
)

const resultsPage = `<html><body>
<div class="result results_links result--ad">
  <h2 class="result__title"><a class="result__a" href="https://ads.example.com">Sponsored - Study anywhere</a></h2>
  <a class="result__snippet">Ad snippet</a>
</div>
<div class="result results_links results_links_deep web-result">
  <div class="links_main links_deep result__body">
    <h2 class="result__title">
      <a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.daad.de%2Fen%2Fstudy%2Ftu-berlin-cs&amp;rut=abc">TU Berlin - Computer Science M.Sc. (Berlin)</a>
    </h2>
    <a class="result__snippet" href="#">Tuition free. Living costs about <b>934 €</b> per month.</a>
  </div>
</div>
<div class="result results_links results_links_deep web-result">
  <div class="links_main links_deep result__body">
    <h2 class="result__title">
      <a rel="nofollow" class="result__a" href="https://www.daad.de/en/study/lmu-physics">LMU Munich - Physics</a>
    </h2>
    <a class="result__snippet" href="#">Semester fee
      and   more</a>
  </div>
</div>
<div class="result results_links web-result">
  <h2 class="result__title"><a class="result__a" href="">   </a></h2>
</div>
</body></html>`

func TestClient_Search(t *testing.T) {
	var gotQuery, gotKP, gotKL, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotKP = r.URL.Query().Get("kp")
		gotKL = r.URL.Query().Get("kl")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(resultsPage))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL + "/html/"}, zap.NewNop())

	resp, err := client.Search(context.Background(), search.SearchRequest{
		Query:          "computer science master degree program university Germany studium",
		IncludeDomains: []string{"daad.de"},
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if gotQuery != "computer science master degree program university Germany studium site:daad.de" {
		t.Errorf("q = %q", gotQuery)
	}
	if gotKP != "-2" {
		t.Errorf("kp = %q, want -2 (safe search off)", gotKP)
	}
	if gotKL != "wt-wt" {
		t.Errorf("kl = %q, want wt-wt", gotKL)
	}
	if gotUA == "" {
		t.Error("User-Agent header not set")
	}

	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2: %+v", len(resp.Results), resp.Results)
	}

	first := resp.Results[0]
	if first.Title != "TU Berlin - Computer Science M.Sc. (Berlin)" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.URL != "https://www.daad.de/en/study/tu-berlin-cs" {
		t.Errorf("URL = %q", first.URL)
	}
	if first.Content != "Tuition free. Living costs about 934 € per month." {
		t.Errorf("Content = %q", first.Content)
	}
	if resp.Results[1].Content != "Semester fee and more" {
		t.Errorf("Content = %q", resp.Results[1].Content)
	}
}

const anomalyPage = `<html><body>
<div class="anomaly-modal">
  <div class="anomaly-modal__title">Unfortunately, bots use DuckDuckGo too.</div>
  <div class="anomaly-modal__description">Please complete the following challenge.</div>
</div>
</body></html>`

func TestClient_Search_Statuses(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantErr    error
	}{
		{"anomaly page", http.StatusAccepted, "<html>anomaly</html>", search.ErrRateLimit},
		{"too many requests", http.StatusTooManyRequests, "", search.ErrRateLimit},
		{"forbidden", http.StatusForbidden, "", search.ErrRateLimit},
		{"server error", http.StatusInternalServerError, "", search.ErrSearchFailed},
		{"anomaly modal with 200", http.StatusOK, anomalyPage, search.ErrRateLimit},
		{"challenge form with 200", http.StatusOK, `<html><body><form id="challenge-form" action="/anomaly.js"></form></body></html>`, search.ErrRateLimit},
		{"no results", http.StatusOK, "<html><body><div class=\"no-results\"></div></body></html>", search.ErrEmptyResults},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := New(Config{BaseURL: server.URL}, zap.NewNop())
			_, err := client.Search(context.Background(), search.SearchRequest{Query: "test"})
			if err == nil {
				t.Fatal("Search() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr.Error()) {
				t.Errorf("Search() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClient_Search_DelayRespectsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, RequestDelay: time.Second}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Search(ctx, search.SearchRequest{Query: "test"})
	if err != context.DeadlineExceeded {
		t.Errorf("Search() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestIsAnomalyPage(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(anomalyPage))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !IsAnomalyPage(doc) {
		t.Error("IsAnomalyPage() = false for anomaly modal")
	}

	doc, err = goquery.NewDocumentFromReader(strings.NewReader(resultsPage))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if IsAnomalyPage(doc) {
		t.Error("IsAnomalyPage() = true for a results page")
	}
}

func TestParseResults_MaxResults(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resultsPage))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	results := ParseResults(doc, 1)
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
}

func TestBuildSiteQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		domains []string
		want    string
	}{
		{"no domains", "physics", nil, "physics"},
		{"one domain", "physics", []string{"daad.de"}, "physics site:daad.de"},
		{"two domains", "physics", []string{"daad.de", "studycheck.de"}, "physics site:daad.de OR site:studycheck.de"},
		{"blank domain skipped", "physics", []string{" ", "daad.de"}, "physics site:daad.de"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildSiteQuery(tt.query, tt.domains); got != tt.want {
				t.Errorf("BuildSiteQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnwrapRedirect(t *testing.T) {
	tests := []struct {
		href string
		want string
	}{
		{"//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fa&rut=x", "https://example.com/a"},
		{"https://example.com/b", "https://example.com/b"},
		{"https://duckduckgo.com/y.js?ad=1", ""},
		{"javascript:void(0)", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := unwrapRedirect(tt.href); got != tt.want {
			t.Errorf("unwrapRedirect(%q) = %q, want %q", tt.href, got, tt.want)
		}
	}
}
