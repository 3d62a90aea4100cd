// Package crawler defines the contracts shared by the scrape pipeline. The
// dispatcher drives a Processor per URL; the worker behind it fetches and
// extracts pages.
package crawler
