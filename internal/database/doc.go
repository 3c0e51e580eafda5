// Package database stores batch results in a SQLite file.
//
// Each batch may write a results.db next to its JSON artifacts. The file
// holds the run, one row per alive host, the technologies detected on it and
// the dead targets with their failure kind. It is an export format for ad-hoc
// SQL queries; httpdoom never reads it back on later runs.
//
// The driver is modernc.org/sqlite, which is CGO-free.
package database
