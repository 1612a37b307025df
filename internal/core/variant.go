package core

import (
	"regexp"
	"slices"
	"strings"

	"productmd/internal/types"
)

var variantIDRe = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// Variant is one partition of a compose, such as "Server" or its
// "optional" child with uid "Server-optional".
type Variant struct {
	ID   string
	UID  string
	Name string
	Type types.VariantType
	// Arches is kept sorted and free of duplicates by NewVariant and
	// SetArches.
	Arches []string
	Paths  *VariantPaths
	// Release is only meaningful for layered-product variants.
	Release Release
}

func NewVariant(id string, uid string, name string, variantType types.VariantType, arches []string) *Variant {
	v := &Variant{ID: id, UID: uid, Name: name, Type: variantType, Paths: NewVariantPaths()}
	v.SetArches(arches)
	if variantType == types.VariantTypeLayeredProduct {
		v.Release.IsLayered = true
	}
	return v
}

func (v *Variant) SetArches(arches []string) { v.Arches = sortedUnique(arches) }

func (v *Variant) HasArch(arch string) bool { return slices.Contains(v.Arches, arch) }

func (v *Variant) String() string { return v.UID }

func (v *Variant) variantID() string { return v.ID }

func (v *Variant) variantUID() string { return v.UID }

func (v *Variant) variantType() types.VariantType { return v.Type }

func (v *Variant) variantArches() []string {
	if v.Arches == nil {
		return []string{}
	}
	return v.Arches
}

func (v *Variant) validateUnder(parent *Variant, hasParent bool) error {
	if !variantIDRe.MatchString(v.ID) {
		return invalidf("variant: field 'id' has invalid value: %q", v.ID)
	}
	if hasParent {
		if want := parent.UID + "-" + v.ID; v.UID != want {
			return invalidf("UID '%s' doesn't align with parent UID '%s'", v.UID, want)
		}
	} else if strings.ReplaceAll(v.UID, "-", "") != v.ID {
		return invalidf("UID '%s' doesn't align with parent UID '%s'", v.UID, v.ID)
	}
	if strings.TrimSpace(v.Name) == "" {
		return invalidf("variant %s: field 'name' must not be blank", v.UID)
	}
	if !slices.Contains(types.ComposeVariantTypes(), v.Type) {
		return invalidf("variant %s: field 'type' has invalid value: %s", v.UID, v.Type)
	}
	if len(v.Arches) == 0 {
		return invalidf("variant %s: field 'arches' must not be blank", v.UID)
	}
	if v.Type == types.VariantTypeLayeredProduct {
		if err := v.Release.Validate(); err != nil {
			return wrapf(err, "variant %s", v.UID)
		}
	}
	return nil
}

func isSortedUnique(values []string) bool {
	for i := 1; i < len(values); i++ {
		if values[i-1] >= values[i] {
			return false
		}
	}
	return true
}

func sortedUnique(values []string) []string {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}

// encodeVariants flattens the tree into the uid-keyed "variants" map.
func encodeVariants(tree *VariantTree[*Variant], revision FormatRevision) (map[string]any, error) {
	out := map[string]any{}
	err := tree.Walk(func(h Handle, v *Variant) error {
		entry := map[string]any{
			"id":     v.ID,
			"uid":    v.UID,
			"name":   v.Name,
			"type":   string(v.Type),
			"arches": sortedUnique(v.Arches),
			"paths":  v.Paths.encode(sortedUnique(v.Arches), revision),
		}
		if v.Type == types.VariantTypeLayeredProduct {
			release := v.Release
			release.IsLayered = true
			encoded, err := release.encode()
			if err != nil {
				return wrapf(err, "variant %s", v.UID)
			}
			entry["release"] = encoded
		}
		if keys := tree.Keys(h); len(keys) > 0 {
			ids := make([]string, 0, len(keys))
			for _, child := range tree.Children(h) {
				ids = append(ids, tree.MustGet(child).ID)
			}
			entry["variants"] = sortedUnique(ids)
		}
		if _, taken := out[v.UID]; taken {
			return duplicatef("variant UID already exists: %s", v.UID)
		}
		out[v.UID] = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// decodeVariants rebuilds the tree from a uid-keyed map. Top-level
// variants are the uids whose dash-stripped prefix is not itself a uid.
func decodeVariants(payload map[string]any, at string, revision FormatRevision, opts DecodeOptions) (*VariantTree[*Variant], error) {
	all, err := childMap(payload, at, "variants")
	if err != nil {
		return nil, err
	}
	at = joinPath(at, "variants")
	tree := NewVariantTree[*Variant]()
	var top []string
	for uid := range all {
		if cut := strings.LastIndex(uid, "-"); cut >= 0 {
			if _, hasParent := all[uid[:cut]]; hasParent {
				continue
			}
		}
		top = append(top, uid)
	}
	slices.Sort(top)
	d := variantDecoder{all: all, at: at, revision: revision, opts: opts, tree: tree}
	for _, uid := range top {
		h, err := d.decode(uid)
		if err != nil {
			return nil, err
		}
		if err := tree.Add(RootHandle, h, ""); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

type variantDecoder struct {
	all      map[string]any
	at       string
	revision FormatRevision
	opts     DecodeOptions
	tree     *VariantTree[*Variant]
}

func (d variantDecoder) decode(key string) (Handle, error) {
	at := joinPath(d.at, key)
	m, err := childMap(d.all, d.at, key)
	if err != nil {
		return 0, err
	}
	v := &Variant{}
	if v.ID, err = reqString(m, at, "id"); err != nil {
		return 0, err
	}
	if v.UID, err = reqString(m, at, "uid"); err != nil {
		return 0, err
	}
	if v.Name, err = reqString(m, at, "name"); err != nil {
		return 0, err
	}
	variantType, err := reqString(m, at, "type")
	if err != nil {
		return 0, err
	}
	v.Type = types.VariantType(variantType)
	if _, ok := m["arches"]; !ok {
		return 0, invalidf("%s: missing required key", joinPath(at, "arches"))
	}
	arches, err := stringList(m, at, "arches", d.opts)
	if err != nil {
		return 0, err
	}
	if d.opts.ZeroCopy && isSortedUnique(arches) {
		v.Arches = arches
	} else {
		v.SetArches(arches)
	}
	if v.Type == types.VariantTypeLayeredProduct {
		if v.Release, err = decodeRelease(m, at, d.revision); err != nil {
			return 0, err
		}
		v.Release.IsLayered = true
	}
	paths, err := childMap(m, at, "paths")
	if err != nil {
		return 0, err
	}
	if v.Paths, err = decodeVariantPaths(paths, joinPath(at, "paths"), v.Arches, d.revision); err != nil {
		return 0, err
	}

	var childUIDs []string
	if raw, ok := m["variants"]; ok && raw != nil {
		ids, err := stringList(m, at, "variants", d.opts)
		if err != nil {
			return 0, err
		}
		for _, id := range sortedUnique(ids) {
			childUIDs = append(childUIDs, v.UID+"-"+id)
		}
	} else {
		// Older producers did not link children; find them by uid prefix.
		for _, uid := range sortedKeys(d.all) {
			rest, found := strings.CutPrefix(uid, key+"-")
			if found && !strings.Contains(rest, "-") {
				childUIDs = append(childUIDs, uid)
			}
		}
	}

	h := d.tree.NewVariant(v)
	for _, uid := range childUIDs {
		child, err := d.decode(uid)
		if err != nil {
			return 0, err
		}
		if err := d.tree.Add(h, child, ""); err != nil {
			return 0, err
		}
	}
	return h, nil
}
