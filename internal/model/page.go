package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// MaxPageSize is the maximum size of raw page content to keep in memory and
// store. Brocardi article pages are small; anything larger is truncated.
const MaxPageSize = 5 * 1024 * 1024 // 5 MB

// Page represents a fetched web page before parsing.
// The raw bytes are kept so stored pages can be re-parsed without
// re-fetching when extraction rules change.
type Page struct {
	// URL is the site-relative URL of the page.
	URL string `json:"url"`

	// Source is the law source slug the page was fetched for.
	Source string `json:"source"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the MIME type from the Content-Type header.
	ContentType string `json:"content_type"`

	// Raw contains the response body, capped at MaxPageSize.
	Raw []byte `json:"-"`

	// Hash is the SHA-256 hash of Raw, used for change detection between
	// scrapes of the same page.
	Hash string `json:"hash"`

	// FetchedAt is when the page was fetched.
	FetchedAt time.Time `json:"fetched_at"`
}

// ComputeHash calculates and sets the SHA-256 hash of the raw content.
// Call after setting Raw.
func (p *Page) ComputeHash() {
	if len(p.Raw) == 0 {
		p.Hash = ""
		return
	}
	sum := sha256.Sum256(p.Raw)
	p.Hash = hex.EncodeToString(sum[:])
}

// TruncateRaw enforces the MaxPageSize limit on the raw content.
func (p *Page) TruncateRaw() {
	if len(p.Raw) > MaxPageSize {
		p.Raw = p.Raw[:MaxPageSize]
	}
}

// IsHTML reports whether the content type indicates an HTML document.
func (p *Page) IsHTML() bool {
	return p.ContentType == "text/html" ||
		(len(p.ContentType) > 9 && p.ContentType[:9] == "text/html")
}
