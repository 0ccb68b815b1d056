package plagiarism

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"newlines and space run", "a\n\nb   c", "ab c"},
		{"carriage returns", "x\r\ny\r\n", "xy"},
		{"run split by newline", "a \n b", "a b"},
		{"leading and trailing runs", "   a   ", " a "},
		{"tabs untouched", "a\t\tb", "a\t\tb"},
		{"tab between spaces", "a \t b", "a \t b"},
		{"only whitespace", " \n \r\n  ", " "},
		{"punctuation untouched", "f(x) {  return x;  }", "f(x) { return x; }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize([]byte(tt.in)); got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"a\n\nb   c",
		"  int main() {\r\n    return 0;\r\n  }\r\n",
		"\t \t  \n\n  x",
	}
	for _, in := range inputs {
		once := Normalize([]byte(in))
		twice := Normalize([]byte(once))
		if once != twice {
			t.Errorf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeIgnoresReformatting(t *testing.T) {
	a := "int main() {\n  return 0;\n}\n"
	b := "int main() {\r\n      return 0;\r\n}"
	if Normalize([]byte(a)) != Normalize([]byte(b)) {
		t.Fatalf("reformatted inputs normalized differently: %q vs %q",
			Normalize([]byte(a)), Normalize([]byte(b)))
	}
}
