// Package detect scores aggregated page text against a fixed bank of
// Braintree integration signals.
//
// Each Signal is a named predicate over lower-cased text: a substring test,
// a conjunction of substring tests, or a regular expression search. The
// Detector lower-cases its input once, evaluates every signal independently
// and returns the matched names in bank order. Classification is a single
// threshold comparison on the hit count; signals carry no weight.
package detect
