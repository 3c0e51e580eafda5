// Package metrics records probe outcomes in a private Prometheus registry.
//
// The Recorder is fed from the batch processor's outcome hook. It can serve
// the registry over HTTP for scraping during long runs, and it keeps simple
// per-kind counters that the CLI prints at the end of a batch.
package metrics
