package plagiarism

import "strings"

// Normalize flattens raw file content into the text that gets compared:
// every '\n' and '\r' is dropped and each run of spaces becomes one space.
// Runs are measured after line breaks are gone, so "a \n b" becomes "a b".
// All other bytes, tabs included, pass through unchanged.
func Normalize(raw []byte) string {
	var b strings.Builder
	b.Grow(len(raw))

	prevSpace := false
	for _, c := range raw {
		switch c {
		case '\n', '\r':
			continue
		case ' ':
			if prevSpace {
				continue
			}
			prevSpace = true
		default:
			prevSpace = false
		}
		b.WriteByte(c)
	}

	return b.String()
}
