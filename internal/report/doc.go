// Package report provides result output for gatewayscan.
//
// This package contains writers for different output formats:
//   - SimpleWriter: a human-readable block per candidate for terminal display
//   - JSONWriter: one JSON object per result for tool integration
//   - MarkdownWriter: a run summary with totals and a status pie chart
//   - XLSXExporter: a spreadsheet of stored results for the history command
//
// Report writing is kept apart from the result types in the model package
// so new output formats do not touch the core data structures.
package report
