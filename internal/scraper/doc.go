// Package scraper crawls the Brocardi website and extracts legal articles.
//
// The site is organized as: a source index page (fonti.html) listing law
// sources, a page per source listing its books, book pages listing article
// links, and one page per article. The Spider walks that structure with a
// politeness delay; the Parser turns article pages into model.Article
// values, including the cross-references that form the citation graph.
package scraper
