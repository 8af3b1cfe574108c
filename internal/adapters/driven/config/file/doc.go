// Package file loads the ingest worker configuration from a TOML file.
//
// Every key is optional; missing keys take the defaults from
// domain.DefaultSyncSettings and domain.DefaultSchedulerConfig.
package file
