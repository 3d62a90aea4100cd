// Package progress reports how far a scrape run has got. Workers share one
// Tracker per run; increments are serialized and echoed to the operator log.
package progress
