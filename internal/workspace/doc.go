// Package workspace fixes the on-disk layout every run shares: per-cell
// build, install, and consumer directories plus the overlay and log trees,
// all rooted under one configurable directory.
//
// Generated directories are namespaced by cell name (e.g. build/release-static)
// so concurrent cells never collide. The run history database lives beside
// them and survives cleanup, which only removes the generated trees.
package workspace
