// Package errs defines the error kinds surfaced by resolution, fetching, and
// installation. Each kind maps to a distinct process exit code at the CLI boundary.
package errs
