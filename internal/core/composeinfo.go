package core

import (
	"slices"
	"sort"
	"strconv"

	"productmd/internal/types"
)

// ComposeInfo describes one compose: its identity, the release it
// builds and the variant tree.
type ComposeInfo struct {
	Versioned

	Header      Header
	Compose     Compose
	Release     Release
	BaseProduct BaseProduct
	Variants    *VariantTree[*Variant]
}

func NewComposeInfo() *ComposeInfo {
	return &ComposeInfo{
		Header:   Header{Type: types.EntityKindComposeInfo},
		Variants: NewVariantTree[*Variant](),
	}
}

func (c *ComposeInfo) Validate() error {
	if err := c.Compose.Validate(); err != nil {
		return err
	}
	if err := c.Release.Validate(); err != nil {
		return err
	}
	if c.Release.IsLayered {
		if err := c.BaseProduct.Validate(); err != nil {
			return err
		}
	}
	return c.Variants.Validate()
}

// Encode writes the manifest tree. force selects the revision for this
// call only; RevisionUnset uses OutputVersion.
func (c *ComposeInfo) Encode(force FormatRevision) (Tree, error) {
	revision, err := c.target(force)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	payload := map[string]any{}
	if payload["compose"], err = c.Compose.encode(); err != nil {
		return nil, err
	}
	if payload["release"], err = c.Release.encode(); err != nil {
		return nil, err
	}
	if c.Release.IsLayered {
		if payload["base_product"], err = c.BaseProduct.encode(); err != nil {
			return nil, err
		}
	}
	if payload["variants"], err = encodeVariants(c.Variants, revision); err != nil {
		return nil, err
	}
	return Tree{
		"header":  encodeHeader(types.EntityKindComposeInfo, revision),
		"payload": payload,
	}, nil
}

// Decode replaces c with the manifest in tree. c is left untouched when
// decoding fails.
func (c *ComposeInfo) Decode(tree Tree, opts DecodeOptions) error {
	header, revision, err := decodeHeader(tree, types.EntityKindComposeInfo)
	if err != nil {
		return err
	}
	payload, err := childMap(tree, "", "payload")
	if err != nil {
		return err
	}
	out := NewComposeInfo()
	out.Header = header
	if out.Compose, err = decodeCompose(payload, "payload", revision); err != nil {
		return err
	}
	if out.Release, err = decodeRelease(payload, "payload", revision); err != nil {
		return err
	}
	if out.Release.IsLayered {
		if out.BaseProduct, err = decodeBaseProduct(payload, "payload"); err != nil {
			return err
		}
	}
	if out.Variants, err = decodeVariants(payload, "payload", revision, opts); err != nil {
		return err
	}
	out.stamp(revision)
	*c = *out
	return nil
}

// ReleaseID returns "short-version", with the base product appended for
// layered releases. major trims both versions to their major component.
func (c *ComposeInfo) ReleaseID(major bool) string {
	version := c.Release.Version
	if major {
		version = c.Release.MajorVersion()
	}
	out := c.Release.Short + "-" + version
	if c.Release.IsLayered {
		out += "-" + c.BaseProduct.Short + "-" + c.BaseProduct.Version
	}
	return out
}

func (c *ComposeInfo) String() string {
	out := c.ReleaseID(false)
	if c.Compose.Label != "" {
		out += " (" + c.Compose.Label + ")"
	}
	return out
}

// CreateComposeID builds the compose id from release, base product and
// compose fields.
func (c *ComposeInfo) CreateComposeID() string {
	id := ComposeID{
		Release: c.Release.releaseID(),
		Date:    c.Compose.Date,
		Type:    c.Compose.Type,
		Respin:  c.Compose.Respin,
	}
	if c.Release.IsLayered {
		base := c.BaseProduct.releaseID()
		id.Release.Base = &base
	}
	if legacyDualCompose(c.Release, c.BaseProduct) {
		if keys := c.Variants.Keys(RootHandle); len(keys) > 0 && slices.Contains(legacyVariantTokens, keys[0]) {
			id.Variant = keys[0]
		}
	}
	return id.String()
}

// legacyDualCompose reports the RHEL 5 releases that were built as two
// composes, told apart by a Client or Server token in the id.
func legacyDualCompose(release Release, base BaseProduct) bool {
	return release.Short == "RHEL" && release.MajorVersion() == "5" &&
		base.Short == "RHEL" && base.MajorVersion() == "5"
}

// VariantComposeID is the compose id of a variant. Layered products get
// their own id derived from the variant release and the parent release.
func (c *ComposeInfo) VariantComposeID(h Handle) (string, error) {
	v, ok := c.Variants.Get(h)
	if !ok {
		return "", notFoundf("unknown variant handle %d", h)
	}
	if v.Type != types.VariantTypeLayeredProduct {
		return c.Compose.ID, nil
	}
	suffix, err := c.Compose.TypeSuffix()
	if err != nil {
		return "", err
	}
	return v.Release.Short + "-" + v.Release.Version +
		"-" + c.Release.Short + "-" + c.Release.MajorVersion() +
		"-" + c.Compose.Date + suffix + "." + strconv.Itoa(c.Compose.Respin), nil
}

// Variant resolves a variant by key, uid or dash-joined path.
func (c *ComposeInfo) Variant(name string) (*Variant, error) {
	h, err := c.Variants.Lookup(RootHandle, name)
	if err != nil {
		return nil, err
	}
	return c.Variants.MustGet(h), nil
}

// AddVariant stores v under the root, or under parent when parent is
// not RootHandle.
func (c *ComposeInfo) AddVariant(parent Handle, v *Variant) (Handle, error) {
	h := c.Variants.NewVariant(v)
	if err := c.Variants.Add(parent, h, ""); err != nil {
		return 0, err
	}
	return h, nil
}

func (c *ComposeInfo) GetVariants(filter VariantFilter) []*Variant {
	handles := c.Variants.GetVariants(RootHandle, filter)
	out := make([]*Variant, 0, len(handles))
	for _, h := range handles {
		out = append(out, c.Variants.MustGet(h))
	}
	return out
}

// Compare orders by release, then base product, then compose.
func (c *ComposeInfo) Compare(other *ComposeInfo) (int, error) {
	return c.compare(newVersionCache(), other)
}

func (c *ComposeInfo) compare(cache *versionCache, other *ComposeInfo) (int, error) {
	if r, err := c.Release.compare(cache, other.Release); err != nil || r != 0 {
		return r, err
	}
	if c.Release.IsLayered {
		if r, err := c.BaseProduct.compare(cache, other.BaseProduct); err != nil || r != 0 {
			return r, err
		}
	}
	return c.Compose.Compare(other.Compose), nil
}

// SortComposeInfos sorts in place. The first incomparable pair aborts
// the sort with an error; the slice order is then unspecified.
func SortComposeInfos(infos []*ComposeInfo) error {
	cache := newVersionCache()
	var failure error
	sort.SliceStable(infos, func(i, j int) bool {
		if failure != nil {
			return false
		}
		r, err := infos[i].compare(cache, infos[j])
		if err != nil {
			failure = err
			return false
		}
		return r < 0
	})
	return failure
}
