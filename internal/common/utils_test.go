package common

import "testing"

func TestHasAnyFold(t *testing.T) {
	if !HasAnyFold("Patchy Light Rain", "drizzle", "rain") {
		t.Fatalf("expected match")
	}
	if HasAnyFold("Sunny", "cloud") {
		t.Fatalf("unexpected match")
	}
}

func TestMaskSecret(t *testing.T) {
	cases := map[string]string{
		"":             "-",
		"abc":          "***",
		"abcd1234":     "****1234",
		"ключ-секрет1": "********рет1",
	}
	for in, want := range cases {
		if got := MaskSecret(in); got != want {
			t.Fatalf("MaskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}
