package service

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"0712345678":       "254712345678",
		"+254 712 345 678": "254712345678",
		"254112345678":     "254112345678",
		"712345678":        "254712345678",
		"0112345678":       "254112345678",
		"0212345678":       "",
		"12345":            "",
		"":                 "",
		"441234567890":     "",
	}
	for in, want := range cases {
		if got := NormalizePhone(in); got != want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}
