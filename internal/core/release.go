package core

import (
	"strings"

	"productmd/internal/types"
)

// BaseProduct is the product a layered release runs on.
type BaseProduct struct {
	Name    string
	Version string
	Short   string
	Type    types.ReleaseType
}

// Release describes the released product. Short names are free-form
// here ("Fedora", "RHEL"); the lowercase rule only applies to release
// ids.
type Release struct {
	Name      string
	Version   string
	Short     string
	Type      types.ReleaseType
	IsLayered bool
	// Internal marks releases not meant for public consumption.
	Internal bool
}

func validateProduct(kind string, version string, releaseType types.ReleaseType) error {
	if !IsValidReleaseVersion(version) {
		return invalidf("%s: field 'version' has invalid value: %q", kind, version)
	}
	if !IsValidReleaseType(string(releaseType)) {
		return invalidf("%s: field 'type' has invalid value: %q", kind, releaseType)
	}
	return nil
}

func (b BaseProduct) Validate() error { return validateProduct("base product", b.Version, b.Type) }

func (r Release) Validate() error { return validateProduct("release", r.Version, r.Type) }

func (b BaseProduct) MajorVersion() string { return MajorVersion(b.Version) }

func (r Release) MajorVersion() string { return MajorVersion(r.Version) }

func (r Release) MinorVersion() (string, bool) { return MinorVersion(r.Version) }

func (b BaseProduct) TypeSuffix() string { return releaseTypeSuffix(b.Type) }

func (r Release) TypeSuffix() string { return releaseTypeSuffix(r.Type) }

func (b BaseProduct) String() string { return b.Short + "-" + b.Version }

func (r Release) String() string { return r.Short + "-" + r.Version }

func (b BaseProduct) releaseID() ReleaseID {
	return ReleaseID{Short: b.Short, Version: b.Version, Type: b.Type}
}

func (r Release) releaseID() ReleaseID {
	return ReleaseID{Short: r.Short, Version: r.Version, Type: r.Type}
}

// compareProducts orders two products of the same name and short by
// version.
func compareProducts(cache *versionCache, nameA, shortA, versionA, nameB, shortB, versionB string) (int, error) {
	if nameA != nameB {
		return 0, invalidf("comparing incompatible products: %s vs %s", nameA, nameB)
	}
	if shortA != shortB {
		return 0, invalidf("comparing incompatible products: %s vs %s", shortA, shortB)
	}
	return cache.compare(versionA, versionB)
}

func (b BaseProduct) Compare(other BaseProduct) (int, error) {
	return b.compare(newVersionCache(), other)
}

func (b BaseProduct) compare(cache *versionCache, other BaseProduct) (int, error) {
	return compareProducts(cache, b.Name, b.Short, b.Version, other.Name, other.Short, other.Version)
}

// Compare fails for products of different names and when only one side
// is layered.
func (r Release) Compare(other Release) (int, error) {
	return r.compare(newVersionCache(), other)
}

func (r Release) compare(cache *versionCache, other Release) (int, error) {
	if r.IsLayered != other.IsLayered {
		return 0, invalidf("comparing layered with non-layered product: %s vs %s", r, other)
	}
	return compareProducts(cache, r.Name, r.Short, r.Version, other.Name, other.Short, other.Version)
}

func (b BaseProduct) encode() (map[string]any, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return map[string]any{
		"name":    b.Name,
		"version": b.Version,
		"short":   b.Short,
		"type":    string(b.Type),
	}, nil
}

func (r Release) encode() (map[string]any, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	out := map[string]any{
		"name":     r.Name,
		"version":  r.Version,
		"short":    r.Short,
		"type":     string(r.Type),
		"internal": r.Internal,
	}
	if r.IsLayered {
		out["is_layered"] = true
	}
	return out, nil
}

type productFields struct {
	name, version, short string
	releaseType          types.ReleaseType
}

func decodeProductFields(m map[string]any, at string) (productFields, error) {
	var out productFields
	var err error
	if out.name, err = reqString(m, at, "name"); err != nil {
		return productFields{}, err
	}
	if out.version, err = reqString(m, at, "version"); err != nil {
		return productFields{}, err
	}
	if out.short, err = reqString(m, at, "short"); err != nil {
		return productFields{}, err
	}
	releaseType, err := optString(m, at, "type")
	if err != nil {
		return productFields{}, err
	}
	if releaseType == "" {
		releaseType = string(types.ReleaseTypeGA)
	}
	out.releaseType = types.ReleaseType(strings.ToLower(releaseType))
	return out, nil
}

func decodeBaseProduct(payload map[string]any, at string) (BaseProduct, error) {
	m, err := childMap(payload, at, "base_product")
	if err != nil {
		return BaseProduct{}, err
	}
	fields, err := decodeProductFields(m, joinPath(at, "base_product"))
	if err != nil {
		return BaseProduct{}, err
	}
	out := BaseProduct{Name: fields.name, Version: fields.version, Short: fields.short, Type: fields.releaseType}
	if err := out.Validate(); err != nil {
		return BaseProduct{}, err
	}
	return out, nil
}

// decodeRelease reads the release of a payload. Manifests up to 0.3
// stored it under "product" and had no internal flag.
func decodeRelease(payload map[string]any, at string, revision FormatRevision) (Release, error) {
	key := "release"
	if revision <= Revision03 {
		key = "product"
	}
	m, err := childMap(payload, at, key)
	if err != nil {
		return Release{}, err
	}
	at = joinPath(at, key)
	fields, err := decodeProductFields(m, at)
	if err != nil {
		return Release{}, err
	}
	out := Release{Name: fields.name, Version: fields.version, Short: fields.short, Type: fields.releaseType}
	if out.IsLayered, err = optBool(m, at, "is_layered", false); err != nil {
		return Release{}, err
	}
	if revision > Revision03 {
		if out.Internal, err = optBool(m, at, "internal", false); err != nil {
			return Release{}, err
		}
	}
	if err := out.Validate(); err != nil {
		return Release{}, err
	}
	return out, nil
}
