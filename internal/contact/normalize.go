package contact

import "strings"

// Normalize reduces a phone number to digits only, then strips the leading
// zero run (trunk prefix). Idempotent: normalizing a normalized number is a
// no-op.
func Normalize(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r < '0' || r > '9' {
			return -1
		}
		return r
	}, phone)
	return strings.TrimLeft(digits, "0")
}

// Matches reports whether two phone numbers refer to the same line under
// differing trunk/country-prefix conventions: after normalization one must
// contain the other. Symmetric. Empty normalized forms never match, so a
// contact without a phone cannot swallow every dialed number.
func Matches(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}
