// Package cli defines the Cobra command tree for the compkg CLI. Each file
// registers one top-level command with the root command. Commands parse
// flags, build an installer or resolver from the loaded configuration, and
// format results; the pipelines themselves live in internal/installer and
// internal/registry.
package cli
