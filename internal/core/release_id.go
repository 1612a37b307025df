package core

import (
	"regexp"
	"strings"

	"productmd/internal/types"
)

var (
	releaseShortRe   = regexp.MustCompile(`^[a-z]+([a-z0-9]*-?[a-z0-9]+)*$`)
	releaseVersionRe = regexp.MustCompile(`^([^0-9].*|[0-9]+(\.[0-9]+)*)$`)
	releaseTypeRe    = regexp.MustCompile(`^(fast|ga|updates|eus|aus|els|tus|e4s|ci)(-testing)?$`)
)

// ReleaseID is the structured form of a release identifier such as
// "rhel-7.2-eus@rhel-7".
type ReleaseID struct {
	Short   string
	Version string
	Type    types.ReleaseType

	// Base is set for layered products.
	Base *ReleaseID
}

func (r ReleaseID) IsLayered() bool { return r.Base != nil }

func (r ReleaseID) String() string {
	out := r.Short + "-" + r.Version
	if r.Type != types.ReleaseTypeGA && r.Type != "" {
		out += "-" + string(r.Type)
	}
	if r.Base != nil {
		out += "@" + r.Base.String()
	}
	return out
}

func IsValidReleaseShort(short string) bool { return releaseShortRe.MatchString(short) }

// IsValidReleaseVersion accepts numeric dotted versions and arbitrary
// tokens that do not start with a digit ("rawhide").
func IsValidReleaseVersion(version string) bool { return releaseVersionRe.MatchString(version) }

func IsValidReleaseType(releaseType string) bool { return releaseTypeRe.MatchString(releaseType) }

// SplitVersion splits a numeric dotted version into its components. A
// non-numeric version is returned as a single component.
func SplitVersion(version string) []string {
	if !numericVersionRe.MatchString(version) {
		return []string{version}
	}
	return strings.Split(version, ".")
}

// MajorVersion returns the first dotted component ("7.2" gives "7").
func MajorVersion(version string) string {
	major, _, _ := strings.Cut(version, ".")
	return major
}

// MinorVersion returns the second dotted component, if any.
func MinorVersion(version string) (string, bool) {
	parts := strings.Split(version, ".")
	if len(parts) < 2 {
		return "", false
	}
	return parts[1], true
}

// CreateReleaseID validates its arguments and encodes them as
// short-version[-type][@bp_short-bp_version[-bp_type]].
func CreateReleaseID(short string, version string, releaseType types.ReleaseType, base *ReleaseID) (string, error) {
	id := ReleaseID{Short: short, Version: version, Type: releaseType, Base: base}
	if err := id.Validate(); err != nil {
		return "", err
	}
	return id.String(), nil
}

func (r ReleaseID) Validate() error {
	if !IsValidReleaseShort(r.Short) {
		return invalidf("invalid release short name: %q", r.Short)
	}
	if !IsValidReleaseVersion(r.Version) {
		return invalidf("invalid release version: %q", r.Version)
	}
	if !IsValidReleaseType(string(r.Type)) {
		return invalidf("invalid release type: %q", r.Type)
	}
	if r.Base != nil {
		if r.Base.Base != nil {
			return invalidf("base product %q cannot be layered", r.Base.Short)
		}
		if err := r.Base.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ParseReleaseID is the inverse of CreateReleaseID. An explicit "-ga"
// suffix is accepted and a missing type means ga.
func ParseReleaseID(releaseID string) (ReleaseID, error) {
	release, baseProduct, layered := strings.Cut(releaseID, "@")
	out, err := parseReleasePart(release)
	if err != nil {
		return ReleaseID{}, wrapf(err, "invalid release id %q", releaseID)
	}
	if layered {
		base, err := parseReleasePart(baseProduct)
		if err != nil {
			return ReleaseID{}, wrapf(err, "invalid release id %q", releaseID)
		}
		out.Base = &base
	}
	return out, nil
}

func parseReleasePart(value string) (ReleaseID, error) {
	out, err := looseRelease(strings.Split(value, "-"))
	if err != nil {
		return ReleaseID{}, err
	}
	if err := out.Validate(); err != nil {
		return ReleaseID{}, err
	}
	return out, nil
}

// splitReleaseType peels a trailing release type ("updates" or
// "updates-testing") off dash-separated parts.
func splitReleaseType(parts []string) (types.ReleaseType, []string) {
	n := len(parts)
	if n >= 2 && "-"+parts[n-1] == types.ReleaseTypeTestingSuffix && IsValidReleaseType(parts[n-2]+"-"+parts[n-1]) {
		return types.ReleaseType(parts[n-2] + "-" + parts[n-1]), parts[:n-2]
	}
	if n >= 1 && IsValidReleaseType(parts[n-1]) {
		return types.ReleaseType(parts[n-1]), parts[:n-1]
	}
	return types.ReleaseTypeGA, parts
}
