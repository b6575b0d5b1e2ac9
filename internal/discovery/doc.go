// Package discovery scans transcript roots for Markdown files and admits the
// ones eligible for processing.
//
// Scanning is lazy: the walker yields paths as the tree is traversed, so huge
// directory hierarchies never get materialized up front. Each call is
// self-contained and restartable. A missing root fails the call fast with
// RootNotFoundError; unreadable entries inside the tree are counted and
// skipped without aborting the scan.
package discovery
