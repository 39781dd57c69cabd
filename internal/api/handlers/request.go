package handlers

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/kitbuilder587/study-finder/internal/domain"
)

// RecommendRequest - тело POST /recommend, только для swagger.
// Разбор идёт через decodePreferences: нужен порядок проверки полей.
type RecommendRequest struct {
	Interests     string `json:"interests" example:"computer science"`
	Level         string `json:"level" example:"master"`
	LanguageLevel string `json:"language_level" example:"B2"`
	Budget        int    `json:"budget" example:"1200"`
}

type ErrorResponse struct {
	Error string `json:"error" example:"Missing required field: budget"`
}

var jsonNull = []byte("null")

// decodePreferences проверяет поля по порядку и приводит budget к int.
func decodePreferences(body []byte) (domain.Preferences, error) {
	var prefs domain.Preferences

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return prefs, domain.ErrNoData
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || len(raw) == 0 {
		return prefs, domain.ErrNoData
	}

	for _, field := range domain.RequiredFields {
		v, ok := raw[field]
		if !ok || bytes.Equal(bytes.TrimSpace(v), jsonNull) {
			return prefs, domain.MissingFieldError(field)
		}
	}

	var err error
	if prefs.Interests, err = decodeText("interests", raw["interests"]); err != nil {
		return prefs, err
	}
	if prefs.Level, err = decodeText("level", raw["level"]); err != nil {
		return prefs, err
	}
	if prefs.LanguageLevel, err = decodeText("language_level", raw["language_level"]); err != nil {
		return prefs, err
	}
	if prefs.Budget, err = decodeBudget(raw["budget"]); err != nil {
		return prefs, err
	}

	return prefs, nil
}

// строки как есть, числа и bool - их литералом, массивы и объекты нельзя
func decodeText(field string, v json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, nil
	}

	var scalar any
	if err := json.Unmarshal(v, &scalar); err != nil {
		return "", domain.InvalidFieldError(field)
	}
	switch scalar.(type) {
	case float64, bool:
		return string(bytes.TrimSpace(v)), nil
	default:
		return "", domain.InvalidFieldError(field)
	}
}

// budget: число (дробная часть отбрасывается) или строка с числом
func decodeBudget(v json.RawMessage) (int, error) {
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return numberToInt(string(n))
	}

	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return numberToInt(strings.TrimSpace(s))
	}

	return 0, domain.InvalidFieldError("budget")
}

func numberToInt(s string) (int, error) {
	if i, err := strconv.Atoi(s); err == nil {
		return i, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, domain.InvalidFieldError("budget")
	}
	f = math.Trunc(f)
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, domain.InvalidFieldError("budget")
	}
	return int(f), nil
}
