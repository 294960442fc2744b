// Package config provides configuration structures and utilities for lexgraph.
// It defines scraping options, analysis preferences, and the per-source
// configuration file format.
package config
