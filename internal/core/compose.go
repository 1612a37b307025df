package core

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"productmd/internal/types"
)

var (
	composeIDRe   = regexp.MustCompile(`.*\d{8}(\.nightly|\.n|\.ci|\.test|\.t|\.development|\.d)?(\.\d+)?`)
	composeDateRe = regexp.MustCompile(`^\d{8}$`)
	labelRes      = buildLabelRes()
)

func buildLabelRes() []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(types.LabelNames()))
	for _, labelName := range types.LabelNames() {
		out = append(out, regexp.MustCompile(`^`+regexp.QuoteMeta(labelName)+`-\d+\.\d+$`))
	}
	return out
}

// VerifyLabel accepts an empty label or "<Milestone>-<major>.<minor>".
func VerifyLabel(label string) error {
	if label == "" {
		return nil
	}
	for _, re := range labelRes {
		if re.MatchString(label) {
			return nil
		}
	}
	return invalidf("label in unknown format: %s", label)
}

// CompareLabels orders milestone labels by milestone, then version.
func CompareLabels(a string, b string) (int, error) {
	nameA, versionA, err := splitLabel(a)
	if err != nil {
		return 0, err
	}
	nameB, versionB, err := splitLabel(b)
	if err != nil {
		return 0, err
	}
	if c := cmp.Compare(types.LabelRank(nameA), types.LabelRank(nameB)); c != 0 {
		return c, nil
	}
	return slices.Compare(versionA, versionB), nil
}

func splitLabel(label string) (string, []int, error) {
	if err := VerifyLabel(label); err != nil || label == "" {
		return "", nil, invalidf("label in unknown format: %s", label)
	}
	cut := strings.LastIndex(label, "-")
	name, version := label[:cut], label[cut+1:]
	var parts []int
	for _, part := range strings.Split(version, ".") {
		number, err := strconv.Atoi(part)
		if err != nil {
			return "", nil, invalidf("label in unknown format: %s", label)
		}
		parts = append(parts, number)
	}
	return name, parts, nil
}

// Compose identifies one dated build.
type Compose struct {
	ID     string
	Type   types.ComposeType
	Date   string
	Respin int
	// Label is an optional milestone such as "Beta-1.0".
	Label string
	Final bool
}

func (c Compose) Validate() error {
	if c.ID == "" {
		return invalidf("compose: field 'id' must not be blank")
	}
	if !composeIDRe.MatchString(c.ID) {
		return invalidf("compose: field 'id' has invalid value: %s", c.ID)
	}
	if !composeDateRe.MatchString(c.Date) {
		return invalidf("compose: field 'date' has invalid value: %s", c.Date)
	}
	if types.ComposeTypeRank(c.Type) < 0 {
		return invalidf("compose: field 'type' has invalid value: %s", c.Type)
	}
	if c.Respin < 0 {
		return invalidf("compose: field 'respin' must be non-negative: %d", c.Respin)
	}
	return VerifyLabel(c.Label)
}

// Compare orders composes by date, compose type and respin.
func (c Compose) Compare(other Compose) int {
	if r := strings.Compare(c.Date, other.Date); r != 0 {
		return r
	}
	if r := cmp.Compare(types.ComposeTypeRank(c.Type), types.ComposeTypeRank(other.Type)); r != 0 {
		return r
	}
	return cmp.Compare(c.Respin, other.Respin)
}

// IsGA reports a final release candidate.
func (c Compose) IsGA() bool {
	if c.Label == "" {
		return false
	}
	name, _, _ := strings.Cut(c.Label, "-")
	return name == "RC" && c.Final
}

// FullLabel prefixes the label with the release, "f-23 Beta-1.0".
func (c Compose) FullLabel(release Release) string {
	if c.Label == "" {
		return ""
	}
	return release.Short + "-" + release.Version + " " + c.Label
}

// LabelMajorVersion drops the minor label version: "Beta-1.2" gives
// "Beta-1".
func (c Compose) LabelMajorVersion() string {
	if c.Label == "" {
		return ""
	}
	if cut := strings.LastIndex(c.Label, "."); cut >= 0 {
		return c.Label[:cut]
	}
	return c.Label
}

func (c Compose) TypeSuffix() (string, error) {
	suffix, ok := types.ComposeTypeSuffix(c.Type)
	if !ok {
		return "", invalidf("invalid compose type: %s", c.Type)
	}
	return suffix, nil
}

func (c Compose) encode() (map[string]any, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	out := map[string]any{
		"id":     c.ID,
		"type":   string(c.Type),
		"date":   c.Date,
		"respin": c.Respin,
	}
	if c.Label != "" {
		out["label"] = c.Label
		out["final"] = c.Final
	}
	return out, nil
}

// decodeCompose reads payload.compose. Pre-0.3 manifests did not store
// date, type and respin separately; they are derived from the id.
func decodeCompose(payload map[string]any, at string, revision FormatRevision) (Compose, error) {
	m, err := childMap(payload, at, "compose")
	if err != nil {
		return Compose{}, err
	}
	at = joinPath(at, "compose")
	var out Compose
	if out.ID, err = reqString(m, at, "id"); err != nil {
		return Compose{}, err
	}
	if out.Label, err = optString(m, at, "label"); err != nil {
		return Compose{}, err
	}
	if out.Final, err = optBool(m, at, "final", false); err != nil {
		return Compose{}, err
	}
	if revision == Revision00 {
		date, composeType, respin, _, err := GetDateTypeRespin(out.ID)
		if err != nil {
			return Compose{}, err
		}
		out.Date, out.Type, out.Respin = date, composeType, respin
	} else {
		composeType, err := reqString(m, at, "type")
		if err != nil {
			return Compose{}, err
		}
		out.Type = types.ComposeType(composeType)
		if out.Date, err = reqString(m, at, "date"); err != nil {
			return Compose{}, err
		}
		respin, err := reqInt(m, at, "respin")
		if err != nil {
			return Compose{}, err
		}
		out.Respin = int(respin)
	}
	if err := out.Validate(); err != nil {
		return Compose{}, err
	}
	return out, nil
}
