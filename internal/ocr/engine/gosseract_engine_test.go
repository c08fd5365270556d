package engine

import "testing"

func TestCleanLine(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{input: "  埃 塞 俄 比 亚  ", expected: "埃塞俄比亚"},
		{input: "海拔 1900-2100 m", expected: "海拔 1900-2100 m"},
		{input: "Geisha\t 瑰 夏", expected: "Geisha 瑰夏"},
		{input: "\n", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			if got := cleanLine(tc.input); got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}
