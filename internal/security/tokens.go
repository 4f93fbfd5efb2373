package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
	"regexp"

	"github.com/overleaf/overleaf-sub002/internal/models"
)

const (
	readOnlyTokenLength      = 12
	readAndWriteDigits       = 10
	readAndWriteSuffixLength = 12
	readAndWritePrefixLength = 8
)

const (
	readOnlyCharset     = "abcdefghijklmnopqrstuvwxyz"
	readAndWriteCharset = "bcdfghjkmnpqrstvwxyz"
)

var (
	readOnlyTokenRe     = regexp.MustCompile(`^[a-z]{12}$`)
	readAndWriteTokenRe = regexp.MustCompile(`^[0-9]{10}[bcdfghjkmnpqrstvwxyz]{12}$`)
)

func randomString(charset string, length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(charset)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate token: %w", err)
		}
		out[i] = charset[n.Int64()]
	}
	return string(out), nil
}

// GenerateReadOnlyToken returns a new read-only sharing token.
func GenerateReadOnlyToken() (models.AccessToken, error) {
	s, err := randomString(readOnlyCharset, readOnlyTokenLength)
	return models.AccessToken(s), err
}

// GenerateReadAndWriteToken returns a new read-and-write sharing token and
// the short numeric prefix used for partial reveal.
func GenerateReadAndWriteToken() (models.AccessToken, string, error) {
	digits, err := randomString("0123456789", readAndWriteDigits)
	if err != nil {
		return "", "", err
	}
	suffix, err := randomString(readAndWriteCharset, readAndWriteSuffixLength)
	if err != nil {
		return "", "", err
	}
	token := digits + suffix
	return models.AccessToken(token), token[:readAndWritePrefixLength], nil
}

// ValidTokenFormat reports whether raw is shaped like a token of the given
// kind. Malformed tokens are rejected before any store lookup.
func ValidTokenFormat(kind models.TokenKind, raw string) bool {
	switch kind {
	case models.TokenKindReadOnly:
		return readOnlyTokenRe.MatchString(raw)
	case models.TokenKindReadAndWrite:
		return readAndWriteTokenRe.MatchString(raw)
	}
	return false
}

// TokensMatch compares two token values in constant time.
func TokensMatch(a, b models.AccessToken) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// GenerateInviteToken returns an opaque single-project invite token.
func GenerateInviteToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate invite token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateValidationToken returns the per-login session secret.
func GenerateValidationToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate validation token: %w", err)
	}
	return "v1." + base64.RawURLEncoding.EncodeToString(buf), nil
}
