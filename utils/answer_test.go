package utils

import "testing"

func TestNormalizeAnswer(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"éléphant", "elephant"},
		{"  Soleil  ", "soleil"},
		{"Œuvre", "oeuvre"},
		{"GARÇON", "garcon"},
		{"naïve", "naive"},
		{"déjà", "deja"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeAnswer(tt.in); got != tt.want {
			t.Errorf("NormalizeAnswer(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAnswersMatch(t *testing.T) {
	tests := []struct {
		submitted string
		expected  string
		want      bool
	}{
		{"elephant", "éléphant", true},
		{"Éléphant", "elephant", true},
		{"soleil ", "Soleil", true},
		{"oeuvre", "œuvre", true},
		{"lune", "soleil", false},
		{"", "soleil", false},
		{"", "", false}, // empty never matches, even empty
	}
	for _, tt := range tests {
		if got := AnswersMatch(tt.submitted, tt.expected); got != tt.want {
			t.Errorf("AnswersMatch(%q, %q) = %v, want %v", tt.submitted, tt.expected, got, tt.want)
		}
	}
}
