package sync

import (
	"strings"

	"github.com/suvilkaushik/easysched-mvp/internal/utils"
)

const (
	usernameMinLen  = 4
	usernameMaxLen  = 64
	usernameBaseLen = 48
	passwordMinLen  = 12
)

const (
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*()-_=+"
)

// GenerateUsername derives a provider-acceptable username from a base
// (an existing username or the email local part). The base is lower-cased,
// restricted to [a-z0-9_.-] and length-bounded; a random suffix keeps
// colliding bases distinct.
func GenerateUsername(base string) string {
	raw := strings.ToLower(strings.TrimSpace(base))

	var b strings.Builder
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if len(cleaned) > usernameBaseLen {
		cleaned = cleaned[:usernameBaseLen]
	}

	suffix := strings.ToLower(utils.RandomString(3)) // 4 chars of [a-z0-9_-]
	candidate := cleaned + suffix
	if cleaned == "" {
		candidate = "user" + suffix
	}
	if len(candidate) < usernameMinLen {
		candidate += strings.ToLower(utils.RandomString(3))
	}
	if len(candidate) > usernameMaxLen {
		candidate = candidate[:usernameMaxLen]
	}
	return candidate
}

// GeneratePassword produces a password meeting the provider's complexity
// policy: at least one uppercase, lowercase, digit and symbol, minimum
// twelve characters.
func GeneratePassword() string {
	pick := func(set string) byte {
		return set[utils.RandomIndex(len(set))]
	}

	chars := []byte{
		pick(upperChars),
		pick(lowerChars),
		pick(digitChars),
		pick(symbolChars),
	}
	pool := upperChars + lowerChars + digitChars + symbolChars
	for len(chars) < passwordMinLen {
		chars = append(chars, pick(pool))
	}

	// Fisher-Yates so the mandatory classes are not position-predictable.
	for i := len(chars) - 1; i > 0; i-- {
		j := utils.RandomIndex(i + 1)
		chars[i], chars[j] = chars[j], chars[i]
	}
	return string(chars)
}
