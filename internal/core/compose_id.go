package core

import (
	"regexp"
	"strconv"
	"strings"

	"productmd/internal/types"
)

var dateTypeRespinRe = regexp.MustCompile(`.*(\d{8})(\.[a-z]+)?(\.(\d+))?.*`)

// legacyVariantTokens may sit between the release part and the date of
// a compose id; see ComposeInfo.CreateComposeID.
var legacyVariantTokens = []string{"Client", "Server"}

// ComposeID is the structured form of a compose identifier such as
// "rhel-7.2-eus-20160101.n.1".
type ComposeID struct {
	// Release carries the release and, for layered products, the base
	// product. Short names are not validated here; compose ids commonly
	// use capitalised shorts such as "RHEL".
	Release ReleaseID
	// Variant is the legacy Client/Server token, usually empty.
	Variant string
	Date    string
	Type    types.ComposeType
	Respin  int
}

func releaseTypeSuffix(releaseType types.ReleaseType) string {
	lowered := strings.ToLower(string(releaseType))
	if lowered == "" || lowered == string(types.ReleaseTypeGA) {
		return ""
	}
	return "-" + lowered
}

func (c ComposeID) String() string {
	var b strings.Builder
	b.WriteString(c.Release.Short)
	b.WriteString("-")
	b.WriteString(c.Release.Version)
	b.WriteString(releaseTypeSuffix(c.Release.Type))
	if base := c.Release.Base; base != nil {
		b.WriteString("-")
		b.WriteString(base.Short)
		b.WriteString("-")
		b.WriteString(base.Version)
		b.WriteString(releaseTypeSuffix(base.Type))
	}
	if c.Variant != "" {
		b.WriteString("-")
		b.WriteString(c.Variant)
	}
	suffix, _ := types.ComposeTypeSuffix(c.Type)
	b.WriteString("-")
	b.WriteString(c.Date)
	b.WriteString(suffix)
	b.WriteString(".")
	b.WriteString(strconv.Itoa(c.Respin))
	return b.String()
}

// GetDateTypeRespin extracts the date, compose type and respin from a
// compose id. ok is false when the id carries no 8-digit date. A
// missing respin means 0 and a missing type code means production.
func GetDateTypeRespin(composeID string) (date string, composeType types.ComposeType, respin int, ok bool, err error) {
	match := dateTypeRespinRe.FindStringSubmatch(composeID)
	if match == nil {
		return "", "", 0, false, nil
	}
	date = match[1]
	composeType = types.ComposeTypeProduction
	if code := match[2]; code != "" {
		resolved, known := types.ComposeTypeFromCode(code[1:])
		if !known {
			return "", "", 0, false, invalidf("unknown compose type: %s", code)
		}
		composeType = resolved
	}
	if match[4] != "" {
		respin, err = strconv.Atoi(match[4])
		if err != nil {
			return "", "", 0, false, invalidf("invalid respin in compose id %q", composeID)
		}
	}
	return date, composeType, respin, true, nil
}

// ParseComposeID splits a compose id into its parts. The boundary
// between a layered release and its base product is located by a
// "-<numeric version>[-<release type>]-" run followed by at least a
// short name and a version. More than one such run cannot be resolved
// and is reported as an error instead of guessed.
func ParseComposeID(composeID string) (ComposeID, error) {
	date, composeType, respin, ok, err := GetDateTypeRespin(composeID)
	if err != nil {
		return ComposeID{}, err
	}
	if !ok {
		return ComposeID{}, invalidf("compose id %q carries no date", composeID)
	}
	cut := strings.LastIndex(composeID, "-"+date)
	if cut <= 0 {
		return ComposeID{}, invalidf("compose id %q has no release part", composeID)
	}
	out := ComposeID{Date: date, Type: composeType, Respin: respin}

	prefix := composeID[:cut]
	for _, token := range legacyVariantTokens {
		if trimmed, found := strings.CutSuffix(prefix, "-"+token); found {
			out.Variant = token
			prefix = trimmed
			break
		}
	}

	parts := strings.Split(prefix, "-")
	splits := layeredSplits(parts)
	switch len(splits) {
	case 0:
		release, err := looseRelease(parts)
		if err != nil {
			return ComposeID{}, wrapf(err, "invalid compose id %q", composeID)
		}
		out.Release = release
	case 1:
		release, err := looseRelease(parts[:splits[0]])
		if err != nil {
			return ComposeID{}, wrapf(err, "invalid compose id %q", composeID)
		}
		base, err := looseRelease(parts[splits[0]:])
		if err != nil {
			return ComposeID{}, wrapf(err, "invalid compose id %q", composeID)
		}
		release.Base = &base
		out.Release = release
	default:
		return ComposeID{}, ambiguousf("cannot split compose id %q into release and base product: %d candidate splits", composeID, len(splits))
	}
	return out, nil
}

// layeredSplits returns every index at which a base product could start.
func layeredSplits(parts []string) []int {
	var out []int
	for j := 1; j < len(parts); j++ {
		if !numericVersionRe.MatchString(parts[j]) {
			continue
		}
		next := j + 1
		switch {
		case next+1 < len(parts) && "-"+parts[next+1] == types.ReleaseTypeTestingSuffix && IsValidReleaseType(parts[next]+"-"+parts[next+1]):
			next += 2
		case next < len(parts) && IsValidReleaseType(parts[next]):
			next++
		}
		rest := parts[next:]
		if len(rest) < 2 || numericVersionRe.MatchString(rest[0]) {
			continue
		}
		if _, err := looseRelease(rest); err != nil {
			continue
		}
		out = append(out, next)
	}
	return out
}

// looseRelease reads short-version[-type] without enforcing the
// lowercase short name rule.
func looseRelease(parts []string) (ReleaseID, error) {
	releaseType, rest := splitReleaseType(parts)
	if len(rest) < 2 {
		releaseType, rest = types.ReleaseTypeGA, parts
	}
	if len(rest) < 2 {
		return ReleaseID{}, invalidf("expected short-version[-type], got %q", strings.Join(parts, "-"))
	}
	out := ReleaseID{
		Short:   strings.Join(rest[:len(rest)-1], "-"),
		Version: rest[len(rest)-1],
		Type:    releaseType,
	}
	if out.Short == "" || !IsValidReleaseVersion(out.Version) {
		return ReleaseID{}, invalidf("expected short-version[-type], got %q", strings.Join(parts, "-"))
	}
	return out, nil
}
