package plagiarism

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"intention", "execution", 5},
		{"a", "b", 1},
		{"ab", "ba", 2},
	}
	for _, tt := range tests {
		if got := Distance(tt.a, tt.b); got != tt.want {
			t.Errorf("Distance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
		if got := Distance(tt.b, tt.a); got != tt.want {
			t.Errorf("Distance(%q, %q) = %d, want %d", tt.b, tt.a, got, tt.want)
		}
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1.0},
		{"abc", "abc", 1.0},
		{"abc", "abd", 1.0 - 1.0/3.0},
		{"abc", "", 0.0},
		{"abc", "xyz", 0.0},
		{"kitten", "sitting", 1.0 - 3.0/7.0},
	}
	for _, tt := range tests {
		got := Score(tt.a, tt.b)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Score(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestScoreOneSubstitutionInThree(t *testing.T) {
	got := Score("abc", "abd")
	if math.Round(got*10000)/10000 != 0.6667 {
		t.Fatalf("Score(abc, abd) = %v", got)
	}
	// runtime division rounds up in the last place
	if got != 0.6666666666666667 {
		t.Fatalf("Score(abc, abd) = %v, want 0.6666666666666667", got)
	}
}

func TestScorePropertiesOnSamples(t *testing.T) {
	samples := []string{
		"",
		"a",
		"hello world",
		"hello, world!",
		"for (i = 0; i < n; i++) sum += i;",
		"for (j = 0; j < n; j++) total += j;",
		"\t\tindented",
	}
	s := NewScorer()
	for _, a := range samples {
		if a != "" {
			if got := s.Score(a, a); got != 1.0 {
				t.Errorf("Score(%q, itself) = %v", a, got)
			}
		}
		for _, b := range samples {
			ab := s.Score(a, b)
			ba := s.Score(b, a)
			if ab != ba {
				t.Errorf("asymmetric score for %q/%q: %v vs %v", a, b, ab, ba)
			}
			if ab < 0 || ab > 1 {
				t.Errorf("Score(%q, %q) = %v out of range", a, b, ab)
			}
		}
	}
}

func TestScorerReusesBuffersAcrossSizes(t *testing.T) {
	s := NewScorer()
	long1 := "the quick brown fox jumps over the lazy dog"
	long2 := "the quick brown cat jumps over the lazy dog"
	if got := s.Distance(long1, long2); got != 3 {
		t.Fatalf("long distance = %d, want 3", got)
	}
	// a shorter pair after a longer one must not see stale cells
	if got := s.Distance("abc", "abd"); got != 1 {
		t.Fatalf("short distance after long = %d, want 1", got)
	}
	if got := s.Distance(long1, long1); got != 0 {
		t.Fatalf("self distance = %d", got)
	}
}

func BenchmarkScorer(b *testing.B) {
	a := make([]byte, 2000)
	c := make([]byte, 2000)
	for i := range a {
		a[i] = byte('a' + i%26)
		c[i] = byte('a' + (i*7)%26)
	}
	sa, sc := string(a), string(c)
	s := NewScorer()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Score(sa, sc)
	}
}
