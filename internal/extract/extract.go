// Package extract builds the search query from a student's preferences and
// turns free-text search results into recommendations.
//
// Title parsing is heuristic: "University - Program (City)" is assumed and many
// real titles will not follow it.
package extract

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/kitbuilder587/study-finder/internal/domain"
	"github.com/kitbuilder587/study-finder/internal/search"
)

const titleSeparator = " - "

var (
	costPattern = regexp.MustCompile(`(\d+(?:,\d+)?)\s*(?:€|EUR)`)
	cityPattern = regexp.MustCompile(`\((.*?)\)`)
)

func BuildQuery(p domain.Preferences) string {
	return fmt.Sprintf("%s %s degree program university Germany studium", p.Interests, p.Level)
}

// ExtractCost берёт первое число перед € или EUR, запятые - разделители тысяч.
func ExtractCost(text string) int {
	m := costPattern.FindStringSubmatch(text)
	if m == nil {
		return domain.DefaultMonthlyCost
	}

	cost, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		// не влезло в int - точно дороже любого бюджета
		return math.MaxInt
	}
	return cost
}

func University(title string) string {
	if i := strings.Index(title, titleSeparator); i >= 0 {
		return title[:i]
	}
	return title
}

func ProgramName(title string) string {
	parts := strings.Split(title, titleSeparator)
	if len(parts) > 1 {
		return parts[1]
	}
	return parts[0]
}

func City(title string) string {
	if m := cityPattern.FindStringSubmatch(title); m != nil {
		return m[1]
	}
	return domain.DefaultCity
}

func Requirements(languageLevel, link string) string {
	return fmt.Sprintf("Language level: %s, Details: %s", languageLevel, link)
}

func Explanation(snippet string) string {
	return domain.Truncate(snippet, domain.MaxExplanationLen) + "..."
}

func Parse(r search.SearchResult, languageLevel string) domain.Recommendation {
	return domain.Recommendation{
		ProgramName:  domain.Truncate(ProgramName(r.Title), domain.MaxProgramNameLen),
		University:   domain.Truncate(University(r.Title), domain.MaxUniversityLen),
		City:         domain.Truncate(City(r.Title), domain.MaxCityLen),
		Requirements: Requirements(languageLevel, r.URL),
		MonthlyCosts: ExtractCost(r.Content),
		Explanation:  Explanation(r.Content),
	}
}

// Select разбирает результаты по порядку выдачи, отбрасывает всё что дороже
// бюджета и оставляет первые limit штук. Никогда не возвращает nil.
func Select(results []search.SearchResult, p domain.Preferences, limit int) []domain.Recommendation {
	recs := make([]domain.Recommendation, 0, limit)
	if limit <= 0 {
		return recs
	}

	for _, r := range results {
		rec := Parse(r, p.LanguageLevel)
		if rec.MonthlyCosts > p.Budget {
			continue
		}
		recs = append(recs, rec)
		if len(recs) == limit {
			break
		}
	}
	return recs
}
