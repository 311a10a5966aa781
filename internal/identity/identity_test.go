package identity

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "RAJ KUMAR", "RAJ KUMAR"},
		{"lowercase with trailing space", "raj kumar ", "RAJ KUMAR"},
		{"leading whitespace", "  anil", "ANIL"},
		{"internal whitespace collapsed", "raj   \t kumar", "RAJ KUMAR"},
		{"mixed case", "Raj Kumar", "RAJ KUMAR"},
		{"empty", "", ""},
		{"only whitespace", "   \t  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"raj kumar ", "  ANIL", "a  b   c", "", "X"}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}
