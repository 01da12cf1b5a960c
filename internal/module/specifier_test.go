package module

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		referrer  string
		specifier string
		expected  string
	}{
		{"", "lodash", "lodash"},
		{"app/main", "lodash", "lodash"},
		{"app/main", "./util", "app/util"},
		{"app/main", "../shared/x", "shared/x"},
		{"app/sub/mod", "./a/b", "app/sub/a/b"},
		{"app/main", "./a/./b", "app/a/b"},
		{"app/main", "./a/../b", "app/b"},
		{"main", "./util", "util"},
		{"", "./util", "util"},
		{"", "/abs/path", "/abs/path"},
		{"x/y", "/abs/../z", "/z"},
		{"a/b", "../../up", "../up"},
		{"a", "../../up", "../../up"},
		{"", ".", "."},
	}

	for i, tt := range tests {
		if got := Normalize(tt.referrer, tt.specifier); got != tt.expected {
			t.Errorf("tests[%d] - Normalize(%q, %q) = %q, want %q",
				i, tt.referrer, tt.specifier, got, tt.expected)
		}
	}
}
