// Package main provides the entry point for the specvalidate CLI.
//
// specvalidate serves a specification document locally, renders it with the
// document processor, then runs the markup validator and the link checker
// on the generated HTML. The exit status is 0 only if every enabled stage
// passed.
//
// Usage:
//
//	specvalidate [document]
//	specvalidate spec.html --no-links
//
// See --help for all available options.
package main

// main is the entry point for specvalidate.
func main() {
	Execute()
}
