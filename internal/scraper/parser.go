package scraper

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/lexgraph/lexgraph/internal/model"
)

// CSS classes marking the interesting parts of Brocardi pages.
// These are stable across the site; if the site ever changes its markup,
// this is the single place to update.
const (
	classSourceIndex = "content-box content-ext-guide"
	classBookIndex   = "section_content content-box content-ext-guide"
	classArticleName = "hbox-header"
	classArticleBody = "corpoDelTesto"
)

// Reference href prefixes that are never citations: dictionary entries and
// footnote anchors.
const (
	dictionaryPrefix = "/dizionario"
	footnotePrefix   = "#nota_"
)

// Parser extracts structured data from Brocardi HTML pages.
//
// Design decision: We use golang.org/x/net/html rather than regex because:
//  1. It correctly handles the malformed HTML found in the wild
//  2. Class-based element lookup is straightforward on the node tree
//  3. Standard library extension, well-maintained
type Parser struct {
	// source is the law source slug the parsed pages belong to.
	source string

	// scopeSameSource restricts extracted references to the article's own
	// law source when true. When false all references are kept except
	// dictionary entries and footnote anchors.
	scopeSameSource bool
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithSameSourceReferences restricts reference extraction to the parser's
// own law source.
func WithSameSourceReferences() ParserOption {
	return func(p *Parser) {
		p.scopeSameSource = true
	}
}

// NewParser creates a Parser for pages of the given law source.
func NewParser(source string, opts ...ParserOption) *Parser {
	p := &Parser{source: source}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseSourceList extracts law source slugs from the fonti.html page.
// Sources appear as links inside the content box; hrefs look like
// "/codice-civile/".
func ParseSourceList(content io.Reader) ([]string, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	container := findByClass(doc, "div", classSourceIndex)
	if container == nil {
		return nil, nil
	}

	seen := make(map[string]bool)
	sources := make([]string, 0)
	for _, href := range collectHrefs(container) {
		if !strings.HasPrefix(href, "/") {
			continue
		}
		slug, err := model.NormalizeSource(href)
		if err != nil || seen[slug] {
			continue
		}
		seen[slug] = true
		sources = append(sources, slug)
	}
	return sources, nil
}

// ParseBookLinks extracts book links from a law source's index page.
func (p *Parser) ParseBookLinks(content io.Reader) ([]string, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	container := findByClass(doc, "div", classBookIndex)
	if container == nil {
		return nil, nil
	}

	return collectHrefs(container), nil
}

// ParseArticleLinks extracts article links from a book page.
// Article links end in ".html" and live under the parser's law source.
func (p *Parser) ParseArticleLinks(content io.Reader) ([]string, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	prefix := "/" + p.source
	seen := make(map[string]bool)
	links := make([]string, 0)
	for _, href := range collectHrefs(doc) {
		if !strings.HasSuffix(href, ".html") || !strings.HasPrefix(href, prefix) {
			continue
		}
		if seen[href] {
			continue
		}
		seen[href] = true
		links = append(links, href)
	}
	return links, nil
}

// ErrNoArticle reports a page carrying none of the article markup:
// neither the heading nor the body element is present.
var ErrNoArticle = errors.New("page has no article markup")

// ParseArticle extracts an article from its page.
// The returned article carries the page link, heading, hierarchy, cleaned
// body text, and extracted references. Pages with a heading but no body
// yield an article with empty text, matching how the site renders repealed
// articles; pages with neither return ErrNoArticle.
func (p *Parser) ParseArticle(link string, content io.Reader) (*model.Article, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	article := &model.Article{
		Link:      link,
		Source:    p.source,
		Hierarchy: model.HierarchyFromLink(link),
	}

	header := findByClass(doc, "h1", classArticleName)
	if header != nil {
		article.Name = norm.NFC.String(strings.TrimSpace(nodeText(header)))
	}

	body := findByClass(doc, "div", classArticleBody)
	if header == nil && body == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoArticle, link)
	}
	if body == nil {
		return article, nil
	}

	article.Text = CleanText(nodeText(body))
	article.References = p.extractReferences(body)

	return article, nil
}

// extractReferences collects citation hrefs from an article body,
// dropping dictionary entries and footnote anchors. Duplicates are kept:
// an article citing the same target twice still produces one edge, but the
// raw count is preserved for the dataset export.
func (p *Parser) extractReferences(body *html.Node) []string {
	refs := make([]string, 0)
	walkNodes(body, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "a" {
			return
		}
		href := getAttr(n, "href")
		if href == "" {
			return
		}
		if strings.HasPrefix(href, dictionaryPrefix) || strings.HasPrefix(href, footnotePrefix) {
			return
		}
		if p.scopeSameSource && !strings.HasPrefix(href, "/"+p.source+"/") {
			return
		}
		refs = append(refs, href)
	})
	return refs
}

// Editorial annotation patterns removed from article text: bracketed
// amendment notes like "[abrogato]" and parenthesized cross-notes like
// "(1)". Applied before whitespace collapsing.
var (
	squareBracketRe = regexp.MustCompile(`\s?\[[^\]]*\]`)
	roundBracketRe  = regexp.MustCompile(`\s?\([^)]*\)`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

// CleanText normalizes article body text: editorial annotations are
// stripped, all whitespace runs collapse to single spaces, and the result
// is NFC-normalized and trimmed.
func CleanText(text string) string {
	text = squareBracketRe.ReplaceAllString(text, "")
	text = roundBracketRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return norm.NFC.String(strings.TrimSpace(text))
}

// findByClass returns the first element with the given tag whose class
// attribute contains every class in want (space-separated), in document
// order. Returns nil when absent.
func findByClass(root *html.Node, tag, want string) *html.Node {
	wanted := strings.Fields(want)

	var found *html.Node
	walkNodes(root, func(n *html.Node) {
		if found != nil || n.Type != html.ElementNode || n.Data != tag {
			return
		}
		classes := strings.Fields(getAttr(n, "class"))
		for _, w := range wanted {
			if !containsString(classes, w) {
				return
			}
		}
		found = n
	})
	return found
}

// collectHrefs returns all non-empty href attributes of anchors under root,
// in document order.
func collectHrefs(root *html.Node) []string {
	hrefs := make([]string, 0)
	walkNodes(root, func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := getAttr(n, "href"); href != "" {
				hrefs = append(hrefs, href)
			}
		}
	})
	return hrefs
}

// nodeText returns the concatenated text content of a node subtree.
func nodeText(root *html.Node) string {
	var sb strings.Builder
	walkNodes(root, func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
	})
	return sb.String()
}

// walkNodes calls fn for every node in the subtree, depth-first.
func walkNodes(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkNodes(c, fn)
	}
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// containsString reports whether list contains s.
func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
