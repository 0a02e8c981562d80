package mission

import (
	"crypto/sha256"
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"uc_coin/internal/types"
)

// MatchCode compares a submitted code against the mission's code.
// Surrounding whitespace is trimmed; the comparison is case-sensitive.
// A bcrypt PromoCodeHash wins over a plaintext PromoCode. Plaintext codes are
// compared as SHA-256 digests so timing does not depend on code length.
func MatchCode(m types.Mission, code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	if m.PromoCodeHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(m.PromoCodeHash), []byte(code)) == nil
	}
	want := strings.TrimSpace(m.PromoCode)
	if want == "" {
		return false
	}
	a := sha256.Sum256([]byte(code))
	b := sha256.Sum256([]byte(want))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// HashCode produces a PromoCodeHash for catalog authors.
func HashCode(code string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(code)), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
