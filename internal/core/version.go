package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	debversion "github.com/knqyf263/go-deb-version"
)

// FormatRevision is one frozen wire-format shape. The zero value means
// "not chosen" and resolves to the entity's stamped or default revision.
type FormatRevision int

const (
	RevisionUnset FormatRevision = iota
	Revision00
	Revision03
	Revision10
	Revision11
	Revision12
	Revision20
)

// DefaultRevision is written when nothing else selects a revision.
const DefaultRevision = Revision20

var revisionNumbers = map[FormatRevision][2]int{
	Revision00: {0, 0},
	Revision03: {0, 3},
	Revision10: {1, 0},
	Revision11: {1, 1},
	Revision12: {1, 2},
	Revision20: {2, 0},
}

// writableRevisions are the revisions an entity can be encoded to.
var writableRevisions = []FormatRevision{Revision10, Revision11, Revision12, Revision20}

func (r FormatRevision) Major() int { return revisionNumbers[r][0] }

func (r FormatRevision) Minor() int { return revisionNumbers[r][1] }

func (r FormatRevision) String() string {
	if _, ok := revisionNumbers[r]; !ok {
		return "unset"
	}
	return fmt.Sprintf("%d.%d", r.Major(), r.Minor())
}

func (r FormatRevision) IsV1() bool { return r.Major() == 1 && r != RevisionUnset }

func (r FormatRevision) IsV2() bool { return r.Major() == 2 }

// UsesLocations reports whether artifacts are described by Location objects.
func (r FormatRevision) UsesLocations() bool { return r >= Revision20 }

// SupportedRevisions lists the revisions entities can be written as.
func SupportedRevisions() []FormatRevision {
	return append([]FormatRevision(nil), writableRevisions...)
}

// ParseVersionString splits a "major.minor[.patch]" string. Extra
// components are ignored, missing ones are an error.
func ParseVersionString(value string) (int, int, error) {
	parts := strings.Split(value, ".")
	if len(parts) < 2 {
		return 0, 0, invalidf("invalid version string: %q", value)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil || major < 0 {
		return 0, 0, invalidf("invalid version string: %q", value)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil || minor < 0 {
		return 0, 0, invalidf("invalid version string: %q", value)
	}
	return major, minor, nil
}

// RevisionOf maps a numeric version onto a known revision. Newer minors
// of a known major map to that major's newest revision.
func RevisionOf(major int, minor int) (FormatRevision, error) {
	switch major {
	case 0:
		switch {
		case minor < 3:
			return Revision00, nil
		case minor == 3:
			return Revision03, nil
		}
	case 1:
		switch minor {
		case 0:
			return Revision10, nil
		case 1:
			return Revision11, nil
		default:
			return Revision12, nil
		}
	case 2:
		return Revision20, nil
	}
	return RevisionUnset, unsupportedVersion(fmt.Sprintf("%d.%d", major, minor))
}

// ParseRevision parses a header version string into a revision.
func ParseRevision(value string) (FormatRevision, error) {
	major, minor, err := ParseVersionString(value)
	if err != nil {
		return RevisionUnset, err
	}
	return RevisionOf(major, minor)
}

// DetectRevision reads header.version from a parsed manifest tree.
func DetectRevision(tree Tree) (FormatRevision, error) {
	header, ok := tree["header"].(map[string]any)
	if !ok {
		return RevisionUnset, invalidf("cannot determine metadata version: missing header")
	}
	version, ok := header["version"].(string)
	if !ok {
		return RevisionUnset, invalidf("cannot determine metadata version: missing header.version")
	}
	return ParseRevision(version)
}

func unsupportedVersion(version string) error {
	supported := make([]string, 0, len(writableRevisions))
	for _, revision := range writableRevisions {
		supported = append(supported, revision.String())
	}
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(fmt.Sprintf("Unsupported metadata version: %s. Supported versions: %s", version, strings.Join(supported, ", ")))
}

// Versioned carries the per-instance output revision shared by every
// manifest entity.
type Versioned struct {
	output FormatRevision
}

// OutputVersion returns the revision Encode writes when not forced.
func (v *Versioned) OutputVersion() FormatRevision {
	if v.output == RevisionUnset {
		return DefaultRevision
	}
	return v.output
}

func (v *Versioned) SetOutputVersion(revision FormatRevision) error {
	if !isWritable(revision) {
		return unsupportedVersion(revision.String())
	}
	v.output = revision
	return nil
}

// SetOutputVersionString accepts the "major.minor" form.
func (v *Versioned) SetOutputVersionString(value string) error {
	revision, err := ParseRevision(value)
	if err != nil {
		return err
	}
	return v.SetOutputVersion(revision)
}

// stamp records the revision a manifest was read from. Restructuring
// legacy decoders upgrade to the oldest equivalent writable revision.
func (v *Versioned) stamp(revision FormatRevision) {
	if revision < Revision10 {
		revision = Revision10
	}
	v.output = revision
}

// target resolves the revision for one encode call.
func (v *Versioned) target(force FormatRevision) (FormatRevision, error) {
	revision := force
	if revision == RevisionUnset {
		revision = v.OutputVersion()
	}
	if !isWritable(revision) {
		return RevisionUnset, unsupportedVersion(revision.String())
	}
	return revision, nil
}

func isWritable(revision FormatRevision) bool {
	for _, candidate := range writableRevisions {
		if candidate == revision {
			return true
		}
	}
	return false
}

var numericVersionRe = regexp.MustCompile(`^\d+(\.\d+)*$`)

// versionCache memoizes parsed release versions while ordering many
// releases.
type versionCache struct {
	deb map[string]debversion.Version
}

func newVersionCache() *versionCache {
	return &versionCache{deb: map[string]debversion.Version{}}
}

// debVersion returns a parsed Debian version, caching the result.
// Numeric dotted versions compare component-wise under Debian rules.
func (c *versionCache) debVersion(value string) (debversion.Version, error) {
	if parsed, ok := c.deb[value]; ok {
		return parsed, nil
	}
	parsed, err := debversion.NewVersion(value)
	if err != nil {
		return debversion.Version{}, err
	}
	c.deb[value] = parsed
	return parsed, nil
}

// compare orders two release versions. Numeric versions compare by
// component, non-numeric tokens such as "Rawhide" compare as text, and a
// mix of both cannot be ordered.
func (c *versionCache) compare(a string, b string) (int, error) {
	if a == b {
		return 0, nil
	}
	numericA := numericVersionRe.MatchString(a)
	numericB := numericVersionRe.MatchString(b)
	switch {
	case numericA && numericB:
		v1, err := c.debVersion(a)
		if err != nil {
			return 0, invalidf("invalid release version %q: %v", a, err)
		}
		v2, err := c.debVersion(b)
		if err != nil {
			return 0, invalidf("invalid release version %q: %v", b, err)
		}
		return v1.Compare(v2), nil
	case !numericA && !numericB:
		return strings.Compare(a, b), nil
	default:
		return 0, invalidf("cannot compare versions %q and %q", a, b)
	}
}
