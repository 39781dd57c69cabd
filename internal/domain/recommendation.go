package domain

import "fmt"

const (
	MaxProgramNameLen = 100
	MaxUniversityLen  = 100
	MaxCityLen        = 50
	MaxExplanationLen = 200

	DefaultCity        = "Various Cities"
	DefaultMonthlyCost = 1000

	// сколько рекомендаций отдаём клиенту
	MaxRecommendations = 3
)

// Recommendation - одна найденная программа, живёт только в рамках запроса
type Recommendation struct {
	ProgramName  string `json:"programName"`
	University   string `json:"university"`
	City         string `json:"city"`
	Requirements string `json:"requirements"`
	MonthlyCosts int    `json:"monthlyCosts"`
	Explanation  string `json:"explanation"`
}

// Preferences - то, что студент прислал в /recommend
type Preferences struct {
	Interests     string
	Level         string
	LanguageLevel string
	Budget        int
}

// порядок важен: ошибка называет первое отсутствующее поле
var RequiredFields = []string{"interests", "level", "language_level", "budget"}

func (p *Preferences) Validate() error {
	if p.Interests == "" {
		return MissingFieldError("interests")
	}
	if p.Level == "" {
		return MissingFieldError("level")
	}
	if p.LanguageLevel == "" {
		return MissingFieldError("language_level")
	}
	return nil
}

// FieldError привязывает ошибку валидации к имени поля из запроса
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err, e.Field)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func MissingFieldError(field string) error {
	return &FieldError{Field: field, Err: ErrMissingField}
}

func InvalidFieldError(field string) error {
	return &FieldError{Field: field, Err: ErrInvalidField}
}

// Truncate режет по символам, а не по байтам
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
