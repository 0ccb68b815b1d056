package plagiarism

// Scorer computes edit distances with two reusable DP rows. The rows grow to
// the longest text seen and are kept between calls. A Scorer is not safe for
// concurrent use.
type Scorer struct {
	prev []int
	curr []int
}

func NewScorer() *Scorer {
	return &Scorer{}
}

// Distance returns the Levenshtein distance between a and b over bytes,
// with unit cost for insertion, deletion and substitution.
func (s *Scorer) Distance(a, b string) int {
	// Distance is symmetric; keep the shorter text on the row axis.
	if len(b) > len(a) {
		a, b = b, a
	}
	la, lb := len(a), len(b)
	if lb == 0 {
		return la
	}

	if cap(s.prev) < lb+1 {
		s.prev = make([]int, lb+1)
		s.curr = make([]int, lb+1)
	}
	prev := s.prev[:lb+1]
	curr := s.curr[:lb+1]

	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		ai := a[i-1]
		for j := 1; j <= lb; j++ {
			cost := 1
			if ai == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[lb]
}

// Score returns 1 - distance/max(len(a), len(b)). Two empty texts score 1.
func (s *Scorer) Score(a, b string) float64 {
	longest := max(len(a), len(b))
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(s.Distance(a, b))/float64(longest)
}

// Distance is a convenience wrapper allocating a fresh Scorer.
func Distance(a, b string) int {
	return NewScorer().Distance(a, b)
}

// Score is a convenience wrapper allocating a fresh Scorer.
func Score(a, b string) float64 {
	return NewScorer().Score(a, b)
}
