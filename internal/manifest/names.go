package manifest

import (
	"regexp"
	"strings"

	"github.com/agentx-labs/compkg/internal/errs"
)

// Separator joins a namespace and a component name.
const Separator = "/"

var (
	segmentPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	profilePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9._-]*$`)
)

// QualifiedName is the unique key of a component across registries.
type QualifiedName struct {
	Namespace string
	Name      string
}

func (q QualifiedName) String() string {
	return q.Namespace + Separator + q.Name
}

// ParseQualified parses "namespace/name". Bare names and names with more than
// one separator are rejected.
func ParseQualified(s string) (QualifiedName, error) {
	parts := strings.Split(s, Separator)
	switch {
	case len(parts) == 1:
		return QualifiedName{}, errs.Validationf("component %q must include a registry prefix (namespace/name)", s)
	case len(parts) > 2:
		return QualifiedName{}, errs.Validationf("component %q has more than one %q separator; nested namespaces are not supported", s, Separator)
	}
	if err := validateSegment("namespace", parts[0]); err != nil {
		return QualifiedName{}, err
	}
	if err := validateSegment("component", parts[1]); err != nil {
		return QualifiedName{}, err
	}
	return QualifiedName{Namespace: parts[0], Name: parts[1]}, nil
}

// SplitVersion splits "ref@version". A trailing "@" is an error.
func SplitVersion(s string) (ref, version string, err error) {
	i := strings.LastIndex(s, "@")
	if i < 0 {
		return s, "", nil
	}
	ref, version = s[:i], s[i+1:]
	if version == "" {
		return "", "", errs.Validationf("%q has an empty version after '@'", s)
	}
	if ref == "" {
		return "", "", errs.Validationf("%q is missing a component name", s)
	}
	return ref, version, nil
}

// ValidateProfileName checks a profile name: a leading letter followed by
// letters, digits, dots, underscores, or hyphens.
func ValidateProfileName(name string) error {
	if !profilePattern.MatchString(name) {
		return errs.Validationf("invalid profile name %q: must start with a letter and contain only letters, digits, '.', '_' or '-'", name)
	}
	return nil
}

func validateSegment(what, s string) error {
	if s == "" {
		return errs.Validationf("%s name is empty", what)
	}
	if !segmentPattern.MatchString(s) {
		return errs.Validationf("invalid %s name %q", what, s)
	}
	return nil
}

// ParseRef parses a top-level "namespace/name[@version]" argument.
func ParseRef(s string) (QualifiedName, string, error) {
	ref, version, err := SplitVersion(s)
	if err != nil {
		return QualifiedName{}, "", err
	}
	q, err := ParseQualified(ref)
	if err != nil {
		return QualifiedName{}, "", err
	}
	return q, version, nil
}
