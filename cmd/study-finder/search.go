package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kitbuilder587/study-finder/internal/config"
	"github.com/kitbuilder587/study-finder/internal/domain"
	"github.com/kitbuilder587/study-finder/internal/extract"
	"github.com/kitbuilder587/study-finder/internal/retry"
	"github.com/kitbuilder587/study-finder/internal/search"
	"github.com/kitbuilder587/study-finder/internal/service"
	"github.com/kitbuilder587/study-finder/internal/task"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run one directory search and print the parsed results",
	Long: `Search runs a single search against the configured provider, with the same
retry policy and deadline the service uses, and prints every result as it would
be parsed into a recommendation. No budget filter is applied.

Without a query argument the query is built from --interests and --level the
same way POST /recommend builds it.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("interests", "computer science", "study interests used to build the query")
	searchCmd.Flags().String("level", "master", "degree level used to build the query")
	searchCmd.Flags().String("language-level", "B2", "language level put into requirements")
	searchCmd.Flags().Int("max-results", 0, "maximum number of results to request (default from config)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	interests, _ := cmd.Flags().GetString("interests")
	level, _ := cmd.Flags().GetString("level")
	languageLevel, _ := cmd.Flags().GetString("language-level")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	asJSON, _ := cmd.Flags().GetBool("json")

	query := strings.Join(args, " ")
	if query == "" {
		query = extract.BuildQuery(domain.Preferences{Interests: interests, Level: level})
	}
	if maxResults <= 0 {
		maxResults = cfg.Search.MaxResults
	}

	client := newSearchClient(cfg, logger)
	policy := service.SearchPolicy(cfg.Search.RetryAttempts, cfg.Search.RetryBaseDelay, logger, nil)
	runner := task.NewRunner(1, cfg.Search.Timeout)

	req := search.SearchRequest{
		Query:          query,
		IncludeDomains: cfg.Search.DirectoryDomains,
		MaxResults:     maxResults,
		Region:         cfg.Search.Region,
	}

	logger.Info("searching", zap.String("query", query), zap.String("provider", cfg.Search.Provider))

	resp, err := task.Run(cmd.Context(), runner, func(ctx context.Context) (*search.SearchResponse, error) {
		return retry.Do(ctx, policy, func(ctx context.Context) (*search.SearchResponse, error) {
			return client.Search(ctx, req)
		})
	})
	if err != nil {
		return fmt.Errorf("search %q: %w", query, err)
	}

	recs := make([]domain.Recommendation, 0, len(resp.Results))
	for _, r := range resp.Results {
		recs = append(recs, extract.Parse(r, languageLevel))
	}

	if asJSON {
		return writeJSON(cmd.OutOrStdout(), recs)
	}
	writeText(cmd.OutOrStdout(), query, resp.Results, recs)
	return nil
}

func writeJSON(w io.Writer, recs []domain.Recommendation) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

func writeText(w io.Writer, query string, results []search.SearchResult, recs []domain.Recommendation) {
	fmt.Fprintf(w, "Query: %s\nResults: %d\n", query, len(results))
	for i, r := range results {
		rec := recs[i]
		fmt.Fprintf(w, "\n%d. %s\n   %s\n", i+1, r.Title, r.URL)
		fmt.Fprintf(w, "   university: %s | program: %s | city: %s | cost: %d\n",
			rec.University, rec.ProgramName, rec.City, rec.MonthlyCosts)
	}
}
