package model

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidSource is returned when a law source identifier cannot be
// normalized to a valid slug.
var ErrInvalidSource = errors.New("invalid law source identifier")

// sourcePattern matches a valid law source slug as used in Brocardi URLs.
// Slugs are lowercase latin letters, digits, and hyphens, e.g.
// "codice-civile", "codice-penale", "costituzione".
var sourcePattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// NormalizeSource converts user input into a canonical law source slug.
// It accepts plain slugs, slugs with stray slashes, and full URLs:
//
//	"codice-civile"                        -> "codice-civile"
//	"/codice-civile/"                      -> "codice-civile"
//	"https://www.brocardi.it/codice-civile/" -> "codice-civile"
//
// Design decision: We validate by pattern rather than against a fixed list
// of known codes because Brocardi adds sources over time; the authoritative
// list is fetched by the sources command.
func NormalizeSource(input string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(input))

	// Strip URL scheme and host if a full URL was pasted.
	for _, scheme := range []string{"https://", "http://"} {
		if rest, ok := strings.CutPrefix(s, scheme); ok {
			if _, path, found := strings.Cut(rest, "/"); found {
				s = path
			} else {
				s = ""
			}
			break
		}
	}

	// A path like "codice-civile/libro-primo" identifies the source by its
	// first segment.
	s = strings.Trim(s, "/")
	if first, _, found := strings.Cut(s, "/"); found {
		s = first
	}

	if !sourcePattern.MatchString(s) {
		return "", ErrInvalidSource
	}
	return s, nil
}

// IsValidSource reports whether input normalizes to a valid source slug.
func IsValidSource(input string) bool {
	_, err := NormalizeSource(input)
	return err == nil
}
