package utils

import "testing"

func TestFormatCredits(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 credits"},
		{1, "1 credit"},
		{100, "100 credits"},
		{1500, "1,500 credits"},
		{2000000, "2,000,000 credits"},
	}
	for _, tc := range cases {
		if got := FormatCredits(tc.in); got != tc.want {
			t.Errorf("FormatCredits(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
