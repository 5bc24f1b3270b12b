package phone

import "testing"

func TestNormalizerE164(t *testing.T) {
	n := NewNormalizer("ar")
	cases := map[string]string{
		"+54 9 11 2233-4455":           "+5491122334455",
		"5491122334455@s.whatsapp.net": "+5491122334455",
		"+31 6 12345678":               "+31612345678",
	}
	for input, want := range cases {
		got, err := n.E164(input)
		if err != nil {
			t.Fatalf("E164(%q): %v", input, err)
		}
		if got != want {
			t.Fatalf("E164(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNormalizerRejectsGarbage(t *testing.T) {
	n := NewNormalizer("AR")
	for _, input := range []string{"", "hola", "123"} {
		if _, err := n.E164(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
	if got := n.NormalizeE164("  hola "); got != "hola" {
		t.Fatalf("expected trimmed fallback, got %q", got)
	}
}

func TestDigits(t *testing.T) {
	if got := Digits("+54 9 11"); got != "54911" {
		t.Fatalf("unexpected digits %q", got)
	}
}
