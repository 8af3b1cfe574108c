// Package upload implements the source adapter for a directory of manually
// uploaded files, plus a watcher that triggers a sync when files land.
//
// Remote ids are slash-separated paths relative to the upload directory.
// Hidden files and directories (leading ".") are ignored; the adapter keeps
// its manifest of seen ids under .ingest/ in the upload directory.
package upload
