package model

import "strings"

// Dataset is an ordered collection of articles with constant-time lookup by
// link. The order is the scrape order, which keeps exports and graph node
// numbering deterministic.
type Dataset struct {
	articles []*Article
	byLink   map[string]int
}

// NewDataset creates an empty Dataset.
func NewDataset() *Dataset {
	return &Dataset{
		articles: make([]*Article, 0),
		byLink:   make(map[string]int),
	}
}

// Add appends an article, replacing any previous article with the same link.
// Replacement keeps the original position so re-scrapes don't reshuffle
// node ordering.
func (d *Dataset) Add(a *Article) {
	if i, ok := d.byLink[a.Link]; ok {
		d.articles[i] = a
		return
	}
	d.byLink[a.Link] = len(d.articles)
	d.articles = append(d.articles, a)
}

// Len returns the number of articles in the dataset.
func (d *Dataset) Len() int {
	return len(d.articles)
}

// Articles returns the articles in insertion order.
// The returned slice is shared; callers must not modify it.
func (d *Dataset) Articles() []*Article {
	return d.articles
}

// ByLink returns the article with the given link, or nil if absent.
func (d *Dataset) ByLink(link string) *Article {
	if i, ok := d.byLink[link]; ok {
		return d.articles[i]
	}
	return nil
}

// Contains reports whether an article with the given link is present.
func (d *Dataset) Contains(link string) bool {
	_, ok := d.byLink[link]
	return ok
}

// FilterByPrefix returns a new Dataset containing only articles whose link
// starts with at least one of the given prefixes. An empty prefix list
// returns the dataset unchanged.
//
// This is how sub-networks are carved out: filtering by
// "/codice-civile/libro-primo" before building the graph restricts the
// analysis to one book of the civil code.
func (d *Dataset) FilterByPrefix(prefixes []string) *Dataset {
	if len(prefixes) == 0 {
		return d
	}

	out := NewDataset()
	for _, a := range d.articles {
		for _, p := range prefixes {
			if strings.HasPrefix(a.Link, p) {
				out.Add(a)
				break
			}
		}
	}
	return out
}

// ReferenceStats counts how many extracted references resolve to articles
// inside the dataset and how many dangle (point outside it).
func (d *Dataset) ReferenceStats() (resolved, dangling int) {
	for _, a := range d.articles {
		for _, ref := range a.References {
			if d.Contains(ref) {
				resolved++
			} else {
				dangling++
			}
		}
	}
	return resolved, dangling
}
