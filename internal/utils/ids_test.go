package utils

import "testing"

func TestSplitIDList(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{",,", nil},
		{"a", []string{"a"}},
		{"a, b,,c", []string{"a", "b", "c"}},
		{" a ,b ", []string{"a", "b"}},
	}
	for _, tc := range cases {
		got := SplitIDList(tc.in)
		if len(got) != len(tc.want) {
			t.Fatalf("SplitIDList(%q) = %v, want %v", tc.in, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("SplitIDList(%q) = %v, want %v", tc.in, got, tc.want)
			}
		}
	}
}

func TestAtoiDefault(t *testing.T) {
	if got := AtoiDefault("42", 0); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	if got := AtoiDefault("", 10); got != 10 {
		t.Fatalf("expected default 10, got %d", got)
	}
	if got := AtoiDefault("x", 5); got != 5 {
		t.Fatalf("expected default 5, got %d", got)
	}
	if got := AtoiDefault("-3", 0); got != -3 {
		t.Fatalf("expected -3, got %d", got)
	}
}
