package plagiarism

import "fmt"

// ScoreMatrix is a square, symmetric table of pair scores. Off-diagonal
// cells hold similarities in [0,1]; the diagonal is always 0.
type ScoreMatrix struct {
	n     int
	cells []float64
}

func NewScoreMatrix(n int) *ScoreMatrix {
	return &ScoreMatrix{n: n, cells: make([]float64, n*n)}
}

// Size returns N for an N×N matrix
func (m *ScoreMatrix) Size() int {
	return m.n
}

func (m *ScoreMatrix) At(i, j int) float64 {
	return m.cells[i*m.n+j]
}

// setPair writes (i,j) and (j,i). Callers own the pair exclusively, so
// concurrent calls on distinct pairs never touch the same cell.
func (m *ScoreMatrix) setPair(i, j int, score float64) {
	m.cells[i*m.n+j] = score
	m.cells[j*m.n+i] = score
}

// Row returns a copy of row i
func (m *ScoreMatrix) Row(i int) []float64 {
	row := make([]float64, m.n)
	copy(row, m.cells[i*m.n:(i+1)*m.n])
	return row
}

// Rows returns the matrix as a fresh slice of rows
func (m *ScoreMatrix) Rows() [][]float64 {
	rows := make([][]float64, m.n)
	for i := range rows {
		rows[i] = m.Row(i)
	}
	return rows
}

// FromRows rebuilds a matrix from stored rows, checking shape, symmetry,
// the zero diagonal and that every score lies in [0,1].
func FromRows(rows [][]float64) (*ScoreMatrix, error) {
	m := NewScoreMatrix(len(rows))
	for i, row := range rows {
		if len(row) != m.n {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(row), m.n)
		}
		copy(m.cells[i*m.n:], row)
	}
	for i := 0; i < m.n; i++ {
		if m.At(i, i) != 0 {
			return nil, fmt.Errorf("diagonal cell %d is %v, want 0", i, m.At(i, i))
		}
		for j := i + 1; j < m.n; j++ {
			if v := m.At(i, j); v < 0 || v > 1 {
				return nil, fmt.Errorf("cell (%d,%d) is %v, outside [0,1]", i, j, v)
			}
			if m.At(i, j) != m.At(j, i) {
				return nil, fmt.Errorf("cells (%d,%d) and (%d,%d) differ", i, j, j, i)
			}
		}
	}
	return m, nil
}
