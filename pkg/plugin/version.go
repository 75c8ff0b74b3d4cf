package plugin

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// VersionPolicy decides how an incompatible version range is reported.
type VersionPolicy int

const (
	// VersionPolicyLenient records incompatibility as a warning.
	VersionPolicyLenient VersionPolicy = iota
	// VersionPolicyStrict records incompatibility as an error.
	VersionPolicyStrict
)

var versionLiteral = regexp.MustCompile(`v?(\d+|[xX*])(\.(\d+|[xX*]))?(\.(\d+|[xX*]))?(-[0-9A-Za-z.-]+)?`)

// Intersects reports whether some version satisfies both ranges. Either value
// may also be an exact version.
//
// The smallest member of an intersection of bounded intervals is the lower
// bound of one of them, so it is enough to probe every lower bound each range
// can have: each literal, the version right after it and 0.0.0.
func Intersects(a, b string) (bool, error) {
	ca, err := semver.NewConstraint(normalizeRange(a))
	if err != nil {
		return false, fmt.Errorf("invalid version range %q: %w", a, err)
	}
	cb, err := semver.NewConstraint(normalizeRange(b))
	if err != nil {
		return false, fmt.Errorf("invalid version range %q: %w", b, err)
	}

	for _, v := range candidateVersions(a, b) {
		if ca.Check(v) && cb.Check(v) {
			return true, nil
		}
	}
	return false, nil
}

func normalizeRange(r string) string {
	r = strings.TrimSpace(r)
	if r == "" || r == "latest" {
		return "*"
	}
	return r
}

func candidateVersions(ranges ...string) []*semver.Version {
	zero, _ := semver.NewVersion("0.0.0")
	candidates := []*semver.Version{zero}
	seen := map[string]bool{zero.String(): true}

	add := func(v semver.Version) {
		if !seen[v.String()] {
			seen[v.String()] = true
			candidates = append(candidates, &v)
		}
	}

	for _, r := range ranges {
		for _, lit := range versionLiteral.FindAllString(r, -1) {
			v, err := semver.NewVersion(wildcardsToZero(lit))
			if err != nil {
				continue
			}
			add(*v)
			add(v.IncPatch())
			if v.Prerelease() != "" {
				if release, err := v.SetPrerelease(""); err == nil {
					add(release)
				}
			}
		}
	}
	return candidates
}

func wildcardsToZero(lit string) string {
	lit = strings.TrimPrefix(lit, "v")
	parts := strings.SplitN(lit, "-", 2)
	nums := strings.Split(parts[0], ".")
	for i, n := range nums {
		if n == "x" || n == "X" || n == "*" {
			nums[i] = "0"
		}
	}
	for len(nums) < 3 {
		nums = append(nums, "0")
	}
	out := strings.Join(nums, ".")
	if len(parts) == 2 {
		out += "-" + parts[1]
	}
	return out
}

// comparePluginVersionToCli records a finding when the plugin's declared
// version range cannot be satisfied together with the host's.
func (f *Facility) comparePluginVersionToCli(pluginName, pluginVerPropName, pluginVerVal, cliVerPropName, cliVerVal string) {
	cliCmdName := f.CliCmdName()

	ok, err := Intersects(cliVerVal, pluginVerVal)
	if err != nil {
		f.record(pluginName, SeverityWarning, fmt.Sprintf(
			"Failed to compare the version value (%s) of the plugin's '%s' property with the version value (%s) "+
				"of the %s command's '%s' property.\nReason = %s",
			pluginVerVal, pluginVerPropName, cliVerVal, cliCmdName, cliVerPropName, err.Error()))
		return
	}
	if ok {
		return
	}

	sev := SeverityWarning
	if f.versionPolicy == VersionPolicyStrict {
		sev = SeverityError
	}
	f.record(pluginName, sev, fmt.Sprintf(
		"The version value (%s) of the plugin's '%s' property is incompatible with the version value (%s) "+
			"of the %s command's '%s' property.",
		pluginVerVal, pluginVerPropName, cliVerVal, cliCmdName, cliVerPropName))
}
