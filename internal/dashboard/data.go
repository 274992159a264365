package dashboard

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

func suffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// UniqueName returns prefix followed by a short random suffix, so records
// created by repeated runs never collide.
func UniqueName(prefix string) string {
	return prefix + " " + suffix()
}

// UniqueEmail returns a unique address on the reserved example.com domain.
func UniqueEmail(prefix string) string {
	local := strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(prefix), "."), ".")
	if local == "" {
		local = "qa"
	}
	return local + "+" + suffix() + "@example.com"
}

// Slug lower-cases name and joins words with dashes.
func Slug(name string) string {
	return strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(name), "-"), "-")
}
