package model

import (
	"strings"
	"time"
)

// Article represents a single legal article scraped from Brocardi.
// The site-relative link (e.g. "/codice-civile/libro-primo/titolo-i/art1.html")
// is the article's identity: references between articles are expressed as
// links, and the citation graph is keyed by them.
//
// Design decision: We keep the link rather than inventing a synthetic ID
// because:
//  1. Links are stable and unique on the site
//  2. References extracted from article bodies are already links
//  3. It makes datasets exported as JSON directly comparable across runs
type Article struct {
	// Link is the site-relative URL of the article. Identity field.
	Link string `json:"link"`

	// Source is the law source slug this article belongs to
	// (e.g. "codice-civile", "costituzione").
	Source string `json:"source"`

	// Name is the article heading, e.g. "Art. 1414 Codice Civile".
	// Extracted from the page header and NFC-normalized.
	Name string `json:"name"`

	// Hierarchy holds the structural path segments between the source and
	// the article file, e.g. ["libro-quarto", "titolo-ii", "capo-x"].
	// Used for sub-network grouping and report breakdowns.
	Hierarchy []string `json:"hierarchy"`

	// Text is the cleaned article body: editorial annotations in square or
	// round brackets removed, whitespace collapsed.
	Text string `json:"text"`

	// References contains the site-relative links cited by the article body,
	// in document order. May point at articles of other law sources.
	References []string `json:"references"`

	// FetchedAt is when the article page was fetched. Zero for articles
	// loaded from exported datasets that lack the field.
	FetchedAt time.Time `json:"fetched_at,omitempty"`
}

// HierarchyPath returns the hierarchy joined with "/". Empty string when the
// article sits directly under the source root.
func (a *Article) HierarchyPath() string {
	return strings.Join(a.Hierarchy, "/")
}

// Book returns the top hierarchy segment (the "book" of a code), or empty
// string for articles without hierarchy (e.g. preleggi articles at the root).
func (a *Article) Book() string {
	if len(a.Hierarchy) == 0 {
		return ""
	}
	return a.Hierarchy[0]
}

// HierarchyFromLink derives hierarchy segments from a site-relative article
// link. For "/codice-civile/libro-primo/titolo-i/art1.html" it returns
// ["libro-primo", "titolo-i"]: the leading empty segment, the source slug,
// and the file name are dropped.
func HierarchyFromLink(link string) []string {
	parts := strings.Split(strings.TrimPrefix(link, "/"), "/")
	if len(parts) <= 2 {
		return nil
	}
	// Drop the source slug and the trailing file name.
	segs := parts[1 : len(parts)-1]
	out := make([]string, len(segs))
	copy(out, segs)
	return out
}
