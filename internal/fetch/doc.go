// Package fetch retrieves component packuments, files, and registry indexes
// over HTTP. Identical requests within one invocation share a single round
// trip through an explicit Cache; failed requests are never cached.
package fetch
