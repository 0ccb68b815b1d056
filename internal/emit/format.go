package emit

import (
	"bufio"
	"io"
	"strconv"

	"github.com/RishiKendai/dupcheck/internal/models"
	"github.com/RishiKendai/dupcheck/internal/plagiarism"
)

// FormatScore renders a cell the way a default C++ stream does for
// precision 6: %g style with trailing zeros trimmed ("0", "1", "0.666667").
// A precision of -1 gives the shortest exact representation.
func FormatScore(v float64, precision int) string {
	return strconv.FormatFloat(v, 'g', precision, 64)
}

// WriteIndex writes one "<id>: <path>" line per file
func WriteIndex(w io.Writer, files []models.FileRecord) error {
	bw := bufio.NewWriter(w)
	for _, f := range files {
		bw.WriteString(strconv.Itoa(f.ID))
		bw.WriteString(": ")
		bw.WriteString(f.Path)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteMatrix writes one line per row, every value followed by a space
func WriteMatrix(w io.Writer, m *plagiarism.ScoreMatrix, precision int) error {
	bw := bufio.NewWriter(w)
	var buf []byte
	for i := 0; i < m.Size(); i++ {
		for j := 0; j < m.Size(); j++ {
			buf = strconv.AppendFloat(buf[:0], m.At(i, j), 'g', precision, 64)
			bw.Write(buf)
			bw.WriteByte(' ')
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
