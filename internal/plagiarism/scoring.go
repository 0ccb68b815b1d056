package plagiarism

import (
	"sort"

	"github.com/RishiKendai/dupcheck/internal/models"
)

// PairSimilarity represents similarity between a pair of files
type PairSimilarity struct {
	A     models.FileRecord
	B     models.FileRecord
	Score float64
	Risk  string
}

// GetRiskLevel returns the risk band of a pair score
func GetRiskLevel(score float64) string {
	if score < 0.3 {
		return "clean"
	} else if score < 0.6 {
		return "suspicious"
	} else if score < 0.85 {
		return "highly suspicious"
	}
	return "near copy"
}

// TopPairs returns up to k pairs scoring at least threshold, highest first.
// Ties keep corpus order. k <= 0 returns every qualifying pair.
func TopPairs(files []models.FileRecord, m *ScoreMatrix, threshold float64, k int) []PairSimilarity {
	pairs := make([]PairSimilarity, 0)
	for i := 0; i < m.Size(); i++ {
		for j := i + 1; j < m.Size(); j++ {
			score := m.At(i, j)
			if score < threshold {
				continue
			}
			pairs = append(pairs, PairSimilarity{
				A:     files[i],
				B:     files[j],
				Score: score,
				Risk:  GetRiskLevel(score),
			})
		}
	}

	sort.SliceStable(pairs, func(a, b int) bool {
		return pairs[a].Score > pairs[b].Score
	})

	if k > 0 && len(pairs) > k {
		pairs = pairs[:k]
	}
	return pairs
}

// Summary aggregates the off-diagonal cells of a matrix
type Summary struct {
	Files     int
	Pairs     int
	MeanScore float64
	MaxScore  float64
	Flagged   int // pairs at or above the threshold
}

// Summarize computes corpus-wide statistics over all pairs
func Summarize(m *ScoreMatrix, threshold float64) Summary {
	s := Summary{Files: m.Size()}
	sum := 0.0
	for i := 0; i < m.Size(); i++ {
		for j := i + 1; j < m.Size(); j++ {
			score := m.At(i, j)
			sum += score
			s.Pairs++
			if score > s.MaxScore {
				s.MaxScore = score
			}
			if score >= threshold {
				s.Flagged++
			}
		}
	}
	if s.Pairs > 0 {
		s.MeanScore = sum / float64(s.Pairs)
	}
	return s
}
