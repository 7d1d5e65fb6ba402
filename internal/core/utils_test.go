package core

import (
	"reflect"
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		input string
		n     int
		want  string
	}{
		{"binary search", 20, "binary search"},
		{"binary search", 6, "binar…"},
		{"héllo wörld", 5, "héll…"},
		{"abc", 0, "abc"},
		{"abc", 1, "…"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Truncate(tt.input, tt.n); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.want)
			}
		})
	}
}

func TestFirstLine(t *testing.T) {
	if got := FirstLine("\n\n  def search():\n    pass"); got != "def search():" {
		t.Errorf("Expected first non-blank line, got %q", got)
	}
	if got := FirstLine("   \n"); got != "" {
		t.Errorf("Expected empty string, got %q", got)
	}
}

func TestSplitCSV(t *testing.T) {
	got := SplitCSV(" algorithm, ,search ,")
	want := []string{"algorithm", "search"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitCSV() = %v, want %v", got, want)
	}
	if got := SplitCSV(""); got != nil {
		t.Errorf("Expected nil for empty input, got %v", got)
	}
}
