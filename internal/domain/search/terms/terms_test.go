package terms

import (
	"slices"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", []string{}},
		{"whitespace only", "   ", []string{}},
		{"single", "pain", []string{"pain"}},
		{"trims", " pain , hospital ", []string{"pain", "hospital"}},
		{"drops empty pieces", "pain,, ,hospital,", []string{"pain", "hospital"}},
		{"only commas", " , ,, ", []string{}},
		{"keeps duplicates", "pain,pain", []string{"pain", "pain"}},
		{"keeps order", "b,a,c", []string{"b", "a", "c"}},
		{"phrase", "pain management, er visit", []string{"pain management", "er visit"}},
		{"inner whitespace kept", "back  pain", []string{"back  pain"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Parse(tc.raw)
			if got == nil {
				t.Fatal("Parse returned nil, want empty slice")
			}
			if !slices.Equal(got, tc.want) {
				t.Errorf("Parse(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestParse_NoBlankEntries(t *testing.T) {
	inputs := []string{"a, ,b", "\t,\n", " x ,y\t, z"}
	for _, in := range inputs {
		for _, term := range Parse(in) {
			if term == "" {
				t.Errorf("Parse(%q) produced an empty term", in)
			}
			if term != trimmed(term) {
				t.Errorf("Parse(%q) produced untrimmed term %q", in, term)
			}
		}
	}
}

func trimmed(s string) string {
	got := Parse(s)
	if len(got) == 0 {
		return ""
	}
	return got[0]
}

func TestMaxThreshold(t *testing.T) {
	if got := MaxThreshold(nil); got != 1 {
		t.Errorf("MaxThreshold(nil) = %d, want 1", got)
	}
	if got := MaxThreshold([]string{"a"}); got != 1 {
		t.Errorf("MaxThreshold(1 term) = %d, want 1", got)
	}
	if got := MaxThreshold([]string{"a", "b", "c"}); got != 3 {
		t.Errorf("MaxThreshold(3 terms) = %d, want 3", got)
	}
}

func TestClampThreshold(t *testing.T) {
	two := []string{"pain", "hospital"}
	tests := []struct {
		threshold int
		terms     []string
		want      int
	}{
		{0, two, 1},
		{-5, two, 1},
		{1, two, 1},
		{2, two, 2},
		{3, two, 2},
		{7, nil, 1},
	}
	for _, tc := range tests {
		if got := ClampThreshold(tc.threshold, tc.terms); got != tc.want {
			t.Errorf("ClampThreshold(%d, %q) = %d, want %d", tc.threshold, tc.terms, got, tc.want)
		}
	}
}
