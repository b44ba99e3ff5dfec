// Package store keeps collections of documents in an embedded SQLite
// database (modernc.org/sqlite, no cgo) and answers the two source queries a
// stream can start from: a sorted search and a grouped facet count.
//
// Documents are stored as JSON objects in field order. Term matching uses
// json_each, so a multi-valued field matches when any element does.
package store
