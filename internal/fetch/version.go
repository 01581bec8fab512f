package fetch

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/agentx-labs/compkg/internal/errs"
	"github.com/agentx-labs/compkg/internal/manifest"
)

// SelectVersion picks the concrete version to install from a packument.
// An exact version or a dist-tag name is honored as given; an empty request
// (or "latest") uses dist-tags.latest, falling back to the highest semver
// among published versions.
func SelectVersion(p *manifest.Packument, requested string) (string, error) {
	if requested != "" && requested != "latest" {
		if _, ok := p.Versions[requested]; ok {
			return requested, nil
		}
		if tagged, ok := p.DistTags[requested]; ok {
			if _, ok := p.Versions[tagged]; ok {
				return tagged, nil
			}
		}
		return "", errs.NotFoundf("version %s of %s not found", requested, p.Name)
	}

	if tagged, ok := p.DistTags["latest"]; ok {
		if _, ok := p.Versions[tagged]; ok {
			return tagged, nil
		}
	}

	var best *semver.Version
	bestRaw := ""
	for raw := range p.Versions {
		v, err := semver.NewVersion(strings.TrimPrefix(raw, "v"))
		if err != nil {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best, bestRaw = v, raw
		}
	}
	if best == nil {
		return "", errs.NotFoundf("no latest version published for %s", p.Name)
	}
	return bestRaw, nil
}

// CompareVersions compares two version strings using semver. ok is false
// when either side is not a semantic version.
func CompareVersions(a, b string) (cmp int, ok bool) {
	av, err := semver.NewVersion(strings.TrimPrefix(a, "v"))
	if err != nil {
		return 0, false
	}
	bv, err := semver.NewVersion(strings.TrimPrefix(b, "v"))
	if err != nil {
		return 0, false
	}
	return av.Compare(bv), true
}
