package resolve

import "testing"

func TestTokenSetRatioIdentical(t *testing.T) {
	t.Parallel()

	if got := TokenSetRatio("Coldplay", "Coldplay"); got != 100 {
		t.Fatalf("TokenSetRatio() = %v, want 100", got)
	}
}

func TestTokenSetRatioIgnoresWordOrder(t *testing.T) {
	t.Parallel()

	if got := TokenSetRatio("Coldplay Live", "Live Coldplay"); got != 100 {
		t.Fatalf("TokenSetRatio() = %v, want 100 for reordered tokens", got)
	}
}

func TestTokenSetRatioToleratesOneSidedBoilerplate(t *testing.T) {
	t.Parallel()

	got := TokenSetRatio("The Hives", "The Hives in Stockholm")
	if got != 100 {
		t.Fatalf("TokenSetRatio() = %v, want 100 when one side is a superset", got)
	}
}

func TestTokenSetRatioCaseAndPunctuation(t *testing.T) {
	t.Parallel()

	if got := TokenSetRatio("MÖTLEY CRÜE!", "mötley crüe"); got != 100 {
		t.Fatalf("TokenSetRatio() = %v, want 100 across case and punctuation", got)
	}
}

func TestTokenSetRatioDisjointNames(t *testing.T) {
	t.Parallel()

	got := TokenSetRatio("Coldplay", "Radiohead")
	if got >= 70 {
		t.Fatalf("TokenSetRatio() = %v, want well below the review thresholds for unrelated artists", got)
	}
}

func TestTokenSetRatioEmptyInput(t *testing.T) {
	t.Parallel()

	if got := TokenSetRatio("", "Coldplay"); got != 0 {
		t.Fatalf("TokenSetRatio(empty, x) = %v, want 0", got)
	}
	if got := TokenSetRatio("  !!  ", "Coldplay"); got != 0 {
		t.Fatalf("TokenSetRatio(punctuation only, x) = %v, want 0", got)
	}
}

func TestLevenshteinRatio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		left  string
		right string
		want  float64
	}{
		{name: "identical", left: "abba", right: "abba", want: 100},
		{name: "both empty", left: "", right: "", want: 100},
		{name: "one empty", left: "", right: "abba", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := levenshteinRatio(tt.left, tt.right); got != tt.want {
				t.Fatalf("levenshteinRatio(%q, %q) = %v, want %v", tt.left, tt.right, got, tt.want)
			}
		})
	}
}

func TestLevenshteinRatioSingleEdit(t *testing.T) {
	t.Parallel()

	// One substitution across 8 combined runes: 100 * (8-1)/8.
	got := levenshteinRatio("kent", "bent")
	want := 100 * 7.0 / 8.0
	if got != want {
		t.Fatalf("levenshteinRatio() = %v, want %v", got, want)
	}
}
