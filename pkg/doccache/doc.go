// Package doccache memoizes document-indexing results (a search index plus the
// chunks it was built from) keyed by a document fingerprint.
//
// Entries expire after a retention window. Expiry is checked lazily on every
// Get and Contains, and a background worker sweeps the whole store once a day
// at local midnight so entries nobody reads again are still reclaimed. Sweep
// results are handed to a Reporter rather than printed.
//
// A Cache is constructed explicitly with New and owned by the host process,
// which should call StopCleanup from its shutdown path.
package doccache
