package lobby

import (
	"strings"
	"testing"
)

func TestNewCodeShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := newCode()
		if err != nil {
			t.Fatalf("newCode() error: %v", err)
		}
		if len(code) != codeLength {
			t.Fatalf("newCode() = %q, want length %d", code, codeLength)
		}
		for _, ch := range code {
			if !strings.ContainsRune(codeAlphabet, ch) {
				t.Fatalf("newCode() = %q contains %q, outside alphabet", code, ch)
			}
		}
	}
}

func TestNewCodeSpread(t *testing.T) {
	// Not a distribution test; just make sure the generator doesn't get
	// stuck returning the same code.
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code, err := newCode()
		if err != nil {
			t.Fatalf("newCode() error: %v", err)
		}
		seen[code] = true
	}
	if len(seen) < 990 {
		t.Errorf("1000 generated codes produced only %d distinct values", len(seen))
	}
}
