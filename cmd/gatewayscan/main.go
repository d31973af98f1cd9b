// Package main provides the entry point for the gatewayscan CLI.
//
// gatewayscan crawls candidate web sites and reports whether they show
// evidence of a Braintree payment integration. Each candidate's root page
// and its payment sub-pages (checkout, cart, billing, ...) are fetched,
// their markup and scripts aggregated, and a fixed bank of signals scored
// against the result.
//
// Usage:
//
//	gatewayscan scan <url> [url...]
//	gatewayscan scan --list <file>
//	gatewayscan history
//
// See --help for all available options.
package main

// main is the entry point for gatewayscan.
func main() {
	Execute()
}
