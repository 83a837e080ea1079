// api/util/secrets.go

package util

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
)

// GenerateClientSecret returns a URL-safe random client secret.
func GenerateClientSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate client secret: %w", err)
	}
	return "evz_" + base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateTempPassword returns a random temporary password that satisfies
// the password policy.
func GenerateTempPassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate temporary password: %w", err)
	}
	// Mixed-case base32 keeps the value typeable; the suffix guarantees the
	// digit and symbol classes.
	raw := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf)
	return "Tmp-" + strings.ToLower(raw[:6]) + raw[6:12] + "!7", nil
}

// GenerateNumericCode returns an n-digit one-time code.
func GenerateNumericCode(n int) (string, error) {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		sb.WriteByte(byte('0' + d.Int64()))
	}
	return sb.String(), nil
}

// GenerateRecoveryCodes returns count codes of the form XXXX-XXXX drawn
// from an unambiguous alphabet (no 0/O, 1/I).
func GenerateRecoveryCodes(count int) ([]string, error) {
	const alphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
	codes := make([]string, count)
	for i := range codes {
		var sb strings.Builder
		for j := 0; j < 8; j++ {
			if j == 4 {
				sb.WriteByte('-')
			}
			idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
			if err != nil {
				return nil, fmt.Errorf("failed to generate recovery code: %w", err)
			}
			sb.WriteByte(alphabet[idx.Int64()])
		}
		codes[i] = sb.String()
	}
	return codes, nil
}

// NormalizeRecoveryCode maps user input to canonical form: upper case, no
// spaces, a single dash in the middle.
func NormalizeRecoveryCode(code string) string {
	cleaned := strings.ToUpper(strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '\t':
			return -1
		}
		return r
	}, code))
	if len(cleaned) != 8 {
		return cleaned
	}
	return cleaned[:4] + "-" + cleaned[4:]
}

// GenerateChallenge returns a base64 random challenge for passkey
// ceremonies.
func GenerateChallenge() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate challenge: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
