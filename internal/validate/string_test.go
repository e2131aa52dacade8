package validate

import (
	"errors"
	"regexp"
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		constraints StringConstraints
		want        string
		wantErr     error
	}{
		{
			name:        "trimmed and returned",
			input:       "  Backend Engineer  ",
			constraints: StringConstraints{MaxLength: 50},
			want:        "Backend Engineer",
		},
		{
			name:        "empty rejected by default",
			input:       "",
			constraints: StringConstraints{MaxLength: 50},
			wantErr:     ErrEmpty,
		},
		{
			name:        "whitespace only is empty",
			input:       "   \t ",
			constraints: StringConstraints{MaxLength: 50},
			wantErr:     ErrEmpty,
		},
		{
			name:        "empty allowed when opted in",
			input:       "",
			constraints: StringConstraints{MaxLength: 50, AllowEmpty: true},
			want:        "",
		},
		{
			name:        "below minimum",
			input:       "ab",
			constraints: StringConstraints{MinLength: 3, MaxLength: 50},
			wantErr:     ErrStringTooShort,
		},
		{
			name:        "above maximum",
			input:       strings.Repeat("x", 51),
			constraints: StringConstraints{MaxLength: 50},
			wantErr:     ErrStringTooLong,
		},
		{
			name:        "length counts runes not bytes",
			input:       strings.Repeat("é", 50),
			constraints: StringConstraints{MaxLength: 50},
			want:        strings.Repeat("é", 50),
		},
		{
			name:        "pattern mismatch",
			input:       "seeker@42",
			constraints: StringConstraints{MaxLength: 50, AllowedPattern: regexp.MustCompile(`^[a-z]+$`)},
			wantErr:     ErrInvalidCharacters,
		},
		{
			name:        "no bounds set",
			input:       strings.Repeat("x", 10000),
			constraints: StringConstraints{},
			want:        strings.Repeat("x", 10000),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := String(tt.input, tt.constraints)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("String(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("String(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeString_EscapesHTML(t *testing.T) {
	got, err := SanitizeString(`<script>alert("hi")</script>`, StringConstraints{MaxLength: 100})
	if err != nil {
		t.Fatalf("SanitizeString error = %v", err)
	}
	if strings.Contains(got, "<") || strings.Contains(got, ">") {
		t.Errorf("SanitizeString left raw angle brackets: %q", got)
	}
	if !strings.Contains(got, "&lt;script&gt;") {
		t.Errorf("SanitizeString = %q, want escaped script tag", got)
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain name", "Jamie Rivera", "Jamie Rivera", false},
		{"with punctuation", "J. Rivera-Ortiz_2", "J. Rivera-Ortiz_2", false},
		{"trimmed", "  Jamie Rivera  ", "Jamie Rivera", false},
		{"empty", "", "", true},
		{"too long", strings.Repeat("a", 101), "", true},
		{"angle brackets rejected", "Jamie <img src=x>", "", true},
		{"emoji rejected", "Jamie 🚀", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DisplayName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DisplayName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestHeadline(t *testing.T) {
	if _, err := Headline(""); err != nil {
		t.Errorf("Headline(\"\") error = %v, want nil", err)
	}
	if _, err := Headline(strings.Repeat("a", 201)); !errors.Is(err, ErrStringTooLong) {
		t.Errorf("Headline over limit: error = %v, want %v", err, ErrStringTooLong)
	}
	got, err := Headline("Hiring Go engineers & SREs")
	if err != nil {
		t.Fatalf("Headline error = %v", err)
	}
	if got != "Hiring Go engineers &amp; SREs" {
		t.Errorf("Headline = %q, want ampersand escaped", got)
	}
}

func TestCaption(t *testing.T) {
	if _, err := Caption(""); err != nil {
		t.Errorf("Caption(\"\") error = %v, want nil", err)
	}
	if _, err := Caption(strings.Repeat("a", 2000)); err != nil {
		t.Errorf("Caption at limit: error = %v, want nil", err)
	}
	if _, err := Caption(strings.Repeat("a", 2001)); !errors.Is(err, ErrStringTooLong) {
		t.Errorf("Caption over limit: error = %v, want %v", err, ErrStringTooLong)
	}
}

func TestNotes(t *testing.T) {
	if _, err := Notes(""); err != nil {
		t.Errorf("Notes(\"\") error = %v, want nil", err)
	}
	if _, err := Notes(strings.Repeat("a", 5001)); !errors.Is(err, ErrStringTooLong) {
		t.Errorf("Notes over limit: error = %v, want %v", err, ErrStringTooLong)
	}
	got, err := Notes("  Candidate prefers mornings  ")
	if err != nil {
		t.Fatalf("Notes error = %v", err)
	}
	if got != "Candidate prefers mornings" {
		t.Errorf("Notes = %q, want trimmed", got)
	}
}
