// Package lockfile computes content hashes over file bundles and reads and
// writes lock files.
//
// A lock file records, per qualified component name, the registry it came
// from, the installed version, a bundle hash over exactly that component's
// files, the files themselves, and install/update timestamps. Lock files are
// only ever replaced whole.
package lockfile
