package lockfile

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// File is one path and its content in a bundle.
type File struct {
	Path    string
	Content []byte
}

// HashContent returns the hex SHA-256 digest of data.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashBundle hashes a set of files independently of their order. Each file
// contributes a "path:hash" line; lines are sorted by path and joined with
// newlines before hashing, so renames and edits both change the result.
func HashBundle(files []File) string {
	sorted := make([]File, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	lines := make([]string, len(sorted))
	for i, f := range sorted {
		lines[i] = f.Path + ":" + HashContent(f.Content)
	}
	return HashContent([]byte(strings.Join(lines, "\n")))
}

// Paths returns the file paths of a bundle, sorted.
func Paths(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	sort.Strings(out)
	return out
}
