// Package queue provides the message queues that carry sync triggers in and
// landed events out, plus the trigger wire codec.
//
// Backends are chosen by DSN scheme: "memory://" for a single process and
// "postgres://" for a shared queue table consumed with FOR UPDATE SKIP LOCKED.
package queue
