package telegram

import (
	"errors"
	"testing"

	"github.com/kitbuilder587/study-finder/internal/domain"
)

func TestParseRecommendArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		want    domain.Preferences
		wantErr error
	}{
		{
			name: "plain",
			args: "computer science; master; B2; 1200",
			want: domain.Preferences{Interests: "computer science", Level: "master", LanguageLevel: "B2", Budget: 1200},
		},
		{
			name: "extra spaces",
			args: "  mechanical   engineering ;bachelor;  C1 ;900  ",
			want: domain.Preferences{Interests: "mechanical engineering", Level: "bachelor", LanguageLevel: "C1", Budget: 900},
		},
		{
			name: "budget with euro sign",
			args: "physics; phd; B2; 1100€",
			want: domain.Preferences{Interests: "physics", Level: "phd", LanguageLevel: "B2", Budget: 1100},
		},
		{
			name: "budget with EUR and thousands separator",
			args: "physics; phd; B2; 1,100 EUR",
			want: domain.Preferences{Interests: "physics", Level: "phd", LanguageLevel: "B2", Budget: 1100},
		},
		{
			name:    "too few parts",
			args:    "physics; phd; 1100",
			wantErr: ErrCommandFormat,
		},
		{
			name:    "too many parts",
			args:    "a; b; c; 1; 2",
			wantErr: ErrCommandFormat,
		},
		{
			name:    "empty args",
			args:    "",
			wantErr: ErrCommandFormat,
		},
		{
			name:    "empty level",
			args:    "physics; ; B2; 1000",
			wantErr: domain.ErrMissingField,
		},
		{
			name:    "budget not a number",
			args:    "physics; phd; B2; cheap",
			wantErr: domain.ErrInvalidField,
		},
		{
			name:    "negative budget",
			args:    "physics; phd; B2; -5",
			wantErr: domain.ErrInvalidField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRecommendArgs(tt.args)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseRecommendArgs() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRecommendArgs() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseRecommendArgs() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLooksLikeRecommendArgs(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"cs; master; B2; 1000", true},
		{"привет", false},
		{"a; b", false},
		{"a;b;c;d;e", false},
	}

	for _, tt := range tests {
		if got := LooksLikeRecommendArgs(tt.text); got != tt.want {
			t.Errorf("LooksLikeRecommendArgs(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestNormalizeSpaces(t *testing.T) {
	if got := normalizeSpaces("  a \t b\n c "); got != "a b c" {
		t.Errorf("normalizeSpaces() = %q", got)
	}
}
