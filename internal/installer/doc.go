// Package installer applies resolved components to disk.
//
// Add and Update change a project incrementally and commit by writing the
// lock file last, so an interrupted run never leaves a lock that refers to
// files that were not written. InstallProfile materializes a whole profile in
// a sibling staging directory and promotes it with a rename, restoring the
// previous profile if promotion fails.
package installer
