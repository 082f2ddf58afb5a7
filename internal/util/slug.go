// Package util provides common utility functions.
package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// Matches spaces, underscores, dots, and slashes (for replacement with dashes).
	wordSeparatorRe = regexp.MustCompile(`[\s_./]+`)
	// Matches non-alphanumeric characters (except dashes).
	nonAlphanumericRe = regexp.MustCompile(`[^a-z0-9-]`)
	// Matches multiple consecutive dashes.
	multipleDashRe = regexp.MustCompile(`-+`)
)

// accentFolder strips combining marks after canonical decomposition, so
// "Brontë" and "Bronte" produce the same slug.
var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify converts a display name to a canonical slug.
// The slug is the identity key for authors and aliases, so two spellings
// that normalize identically resolve to the same entity.
//
// Normalization rules:
//  1. Fold accented characters to their base form
//  2. Trim whitespace and lowercase
//  3. Replace separators (spaces, underscores, dots, slashes) with dashes
//  4. Remove non-alphanumeric characters (except dashes)
//  5. Collapse multiple dashes, trim leading/trailing dashes
//
// Examples:
//
//	"J. R. R. Tolkien" → "j-r-r-tolkien"
//	"Ursula K. Le Guin" → "ursula-k-le-guin"
//	"Brontë"            → "bronte"
func Slugify(input string) string {
	s := input
	if folded, _, err := transform.String(accentFolder, s); err == nil {
		s = folded
	}

	s = strings.ToLower(strings.TrimSpace(s))
	s = wordSeparatorRe.ReplaceAllString(s, "-")
	s = nonAlphanumericRe.ReplaceAllString(s, "")
	s = multipleDashRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	return s
}

// CanonicalizeName produces a comparison form of a display name:
// accent-folded, lowercased, with runs of whitespace collapsed to one
// space. Unlike Slugify it keeps word boundaries readable, so it suits
// exact-name lookups rather than URL identifiers.
func CanonicalizeName(input string) string {
	s := input
	if folded, _, err := transform.String(accentFolder, s); err == nil {
		s = folded
	}
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}
