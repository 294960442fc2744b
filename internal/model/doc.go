// Package model defines the core data structures shared across lexgraph.
// It contains the scraped article representation, the in-memory dataset,
// law source identifiers, and the report structures produced by scraping
// and graph analysis.
package model
