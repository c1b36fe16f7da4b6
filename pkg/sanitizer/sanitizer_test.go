package sanitizer

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "trim spaces", input: "  Asha Rao  ", want: "Asha Rao"},
		{name: "multiple spaces between words", input: "Asha    Rao", want: "Asha Rao"},
		{name: "tabs and newlines", input: "Asha\t\nRao", want: "Asha Rao"},
		{name: "control characters", input: "Asha\x00Rao\x07", want: "Asha Rao"},
		{name: "empty string", input: "", want: ""},
		{name: "only whitespace", input: "   \t\n  ", want: ""},
		{name: "preserve special characters", input: " Zoë O'Brien-Näf ", want: "Zoë O'Brien-Näf"},
		{name: "devanagari", input: " आशा  राव ", want: "आशा राव"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(tt.input); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Asha.Rao@Example.COM "); got != "asha.rao@example.com" {
		t.Errorf("NormalizeEmail() = %q", got)
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Himalaya", "himalaya"},
		{"  HIMALAYA  ", "himalaya"},
		{"Neelgiri   Ground\tFloor", "neelgiri ground floor"},
	}

	for _, tt := range tests {
		if got := NormalizeKey(tt.input); got != tt.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestIdempotent(t *testing.T) {
	inputs := []string{"  Weekly   sync\t", "Asha\x00Rao", "", "Café"}
	fns := map[string]Strategy{
		"NormalizeName":  NormalizeName,
		"NormalizeTitle": NormalizeTitle,
		"NormalizeEmail": NormalizeEmail,
		"NormalizeKey":   NormalizeKey,
	}

	for name, fn := range fns {
		for _, in := range inputs {
			once := fn(in)
			if twice := fn(once); twice != once {
				t.Errorf("%s not idempotent for %q: %q then %q", name, in, once, twice)
			}
		}
	}
}
