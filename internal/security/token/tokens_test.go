package tokens

import (
	"regexp"
	"testing"
)

var hex64 = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestNewValue(t *testing.T) {
	a, b := NewValue(), NewValue()
	if !hex64.MatchString(a) {
		t.Fatalf("unexpected token format: %q", a)
	}
	if a == b {
		t.Fatalf("expected distinct values")
	}
}

func TestNewSecret(t *testing.T) {
	s, err := NewSecret(32)
	if err != nil {
		t.Fatal(err)
	}
	if len(s) != 43 {
		t.Fatalf("expected 43 chars, got %d", len(s))
	}
	if _, err := NewSecret(0); err == nil {
		t.Fatalf("expected error for zero size")
	}
}
