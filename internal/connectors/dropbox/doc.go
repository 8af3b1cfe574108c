// Package dropbox implements the source adapter for Dropbox.
//
// Items are keyed by their lower-cased path: deleted entries returned by
// list_folder carry no file id, so the path is the only key present on both
// the live and the deleted listing. A rename is seen as a delete plus a create.
package dropbox
