// Package store persists courses and their attached resources in a local
// SQLite database. Resource files are copied into the database as
// gzip-compressed blobs so the course collection survives the originals
// moving or disappearing; opening a resource inflates the blob into a
// temporary file. The schema migrates in place from older databases that
// only recorded file paths.
package store
