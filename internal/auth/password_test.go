package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	Cost = bcrypt.MinCost

	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !CheckPassword("s3cret-pass", hash) {
		t.Error("Expected password to match its hash")
	}
	if CheckPassword("wrong-pass1", hash) {
		t.Error("Expected wrong password not to match")
	}
}

func TestValidatePasswordStrength(t *testing.T) {
	cases := map[string]bool{
		"short1":      false,
		"lettersonly": false,
		"1234567890":  false,
		"letters123":  true,
	}
	for pw, ok := range cases {
		if err := ValidatePasswordStrength(pw); (err == nil) != ok {
			t.Errorf("ValidatePasswordStrength(%q) = %v, want ok=%v", pw, err, ok)
		}
	}
}
