package util

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"J. R. R. Tolkien", "j-r-r-tolkien"},
		{"J.R.R. Tolkien", "j-r-r-tolkien"},
		{"Ursula K. Le Guin", "ursula-k-le-guin"},
		{"Brontë", "bronte"},
		{"  leading and trailing  ", "leading-and-trailing"},
		{"UPPER_case_name", "upper-case-name"},
		{"many---dashes", "many-dashes"},
		{"🐉 Dragons!", "dragons"},
		{"", ""},
		{"---", ""},
	}

	for _, tt := range tests {
		if got := Slugify(tt.input); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCanonicalizeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"J.R.R. Tolkien", "j.r.r. tolkien"},
		{"  Ursula   K.  Le Guin ", "ursula k. le guin"},
		{"Brontë", "bronte"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := CanonicalizeName(tt.input); got != tt.want {
			t.Errorf("CanonicalizeName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
