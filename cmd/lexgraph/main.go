// Package main is the entry point for the lexgraph command.
// lexgraph scrapes Italian legal texts from www.brocardi.it, stores the
// articles and their cross-references, and analyzes the resulting citation
// network.
package main

// main executes the lexgraph command.
func main() {
	Execute()
}
