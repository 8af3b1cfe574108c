// Package web implements the source adapter for a configured list of web
// pages. Each URL is one item keyed by the URL itself.
package web
