// Package platform provides the filesystem primitives the installer commits
// through: atomic single-file replacement, content comparison against what
// is on disk, sibling staging directories, and directory swaps with
// rollback. Permission handling is a no-op on Windows.
package platform
