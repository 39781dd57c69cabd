package telegram

import (
	"errors"
	"strconv"
	"strings"

	"github.com/kitbuilder587/study-finder/internal/domain"
)

var ErrCommandFormat = errors.New("expected: interests; level; language level; budget")

const argSeparator = ";"

// ParseRecommendArgs разбирает "интересы; уровень; язык; бюджет".
// Бюджет можно писать с валютой: "900", "900€", "900 EUR".
func ParseRecommendArgs(args string) (domain.Preferences, error) {
	var prefs domain.Preferences

	parts := strings.Split(args, argSeparator)
	if len(parts) != len(domain.RequiredFields) {
		return prefs, ErrCommandFormat
	}
	for i := range parts {
		parts[i] = normalizeSpaces(parts[i])
	}

	for i, field := range domain.RequiredFields {
		if parts[i] == "" {
			return prefs, domain.MissingFieldError(field)
		}
	}

	budget, err := parseBudget(parts[3])
	if err != nil {
		return prefs, err
	}

	prefs = domain.Preferences{
		Interests:     parts[0],
		Level:         parts[1],
		LanguageLevel: parts[2],
		Budget:        budget,
	}
	return prefs, nil
}

// LooksLikeRecommendArgs - обычный текст с тремя ";" считаем запросом
func LooksLikeRecommendArgs(text string) bool {
	return strings.Count(text, argSeparator) == len(domain.RequiredFields)-1
}

func parseBudget(s string) (int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "€")
	s = strings.TrimSuffix(strings.TrimSuffix(s, "EUR"), "eur")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")

	budget, err := strconv.Atoi(s)
	if err != nil || budget < 0 {
		return 0, domain.InvalidFieldError("budget")
	}
	return budget, nil
}

func normalizeSpaces(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
