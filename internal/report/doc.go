// Package report renders batch results.
//
// A Summary is built once from the aggregated batch and then handed to one
// or more writers:
//   - SimpleWriter: human-readable text for the terminal
//   - JSONWriter: the general.json document
//   - MarkdownWriter: the summary.md document
//
// Persist writes the on-disk artifacts of a batch into the output directory.
package report
