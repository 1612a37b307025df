package core

import (
	"maps"
	"slices"
	"strings"

	"productmd/internal/types"
)

// RpmEntry is one package of an RPM manifest.
type RpmEntry struct {
	Path string
	// Sigkey is the lowercase signing key id, empty for unsigned packages.
	Sigkey   string
	Category types.RpmCategory

	location artifactLocation
}

// Location returns the explicit location, or one synthesized from Path.
func (e *RpmEntry) Location() Location {
	return e.location.resolve(localLocation(e.Path, nil, ""))
}

func (e *RpmEntry) ExplicitLocation() (Location, bool) { return e.location.get() }

// SetLocation attaches location and points Path at its local_path.
func (e *RpmEntry) SetLocation(location Location) error {
	if err := location.Validate(); err != nil {
		return err
	}
	e.location.set(location)
	e.Path = location.LocalPath
	return nil
}

// RpmRecord is the input of Rpms.Add.
type RpmRecord struct {
	Variant string
	// Arch is the tree architecture; source packages are filed under
	// the binary arches they were built for.
	Arch     string
	NEVRA    string
	Path     string
	Sigkey   string
	Category types.RpmCategory
	// SRPMNEVRA is required for binary and debug packages and must be
	// empty for source packages.
	SRPMNEVRA string
}

// Rpms maps variant, arch, source package and package NEVRA to the
// packages of a compose.
type Rpms struct {
	Versioned

	Header  Header
	Compose Compose

	rpms map[string]map[string]map[string]map[string]*RpmEntry
}

func NewRpms() *Rpms {
	return &Rpms{
		Header: Header{Type: types.EntityKindRpms},
		rpms:   map[string]map[string]map[string]map[string]*RpmEntry{},
	}
}

// normalizeNEVRA requires an explicit epoch and returns the canonical
// N-E:V-R.A form.
func normalizeNEVRA(value string) (string, NEVRA, error) {
	if !strings.Contains(value, ":") {
		return "", NEVRA{}, invalidf("missing epoch in N-E:V-R.A: %s", value)
	}
	parsed, err := ParseNEVRA(value)
	if err != nil {
		return "", NEVRA{}, invalidf("invalid N-E:V-R.A: %s", value)
	}
	return parsed.String(), parsed, nil
}

// Add files a package. Nothing is stored when a check fails.
func (r *Rpms) Add(record RpmRecord) error {
	_, err := r.add(record)
	return err
}

func (r *Rpms) add(record RpmRecord) (*RpmEntry, error) {
	if !types.IsRPMArch(record.Arch) {
		return nil, invalidf("arch not found in RPM arches: %s", record.Arch)
	}
	if types.IsSourceArch(record.Arch) {
		return nil, invalidf("source arch is not allowed, map source files under binary arches: %s", record.Arch)
	}
	if !types.IsRpmCategory(record.Category) {
		return nil, invalidf("invalid category value: %s", record.Category)
	}
	if strings.HasPrefix(record.Path, "/") {
		return nil, invalidf("relative path expected: %s", record.Path)
	}
	nevra, parsed, err := normalizeNEVRA(record.NEVRA)
	if err != nil {
		return nil, err
	}
	isSource := record.Category == types.RpmCategorySource
	if isSource && record.SRPMNEVRA != "" {
		return nil, invalidf("expected blank srpm_nevra for source package: %s", nevra)
	}
	if !isSource && record.SRPMNEVRA == "" {
		return nil, invalidf("missing srpm_nevra for package: %s", nevra)
	}
	if isSource != types.IsSourceArch(parsed.Arch) {
		return nil, invalidf("invalid category/arch combination: %s/%s", record.Category, nevra)
	}
	srpm := nevra
	if !isSource {
		if srpm, _, err = normalizeNEVRA(record.SRPMNEVRA); err != nil {
			return nil, err
		}
	}

	arches := r.rpms[record.Variant]
	if arches == nil {
		arches = map[string]map[string]map[string]*RpmEntry{}
		r.rpms[record.Variant] = arches
	}
	srpms := arches[record.Arch]
	if srpms == nil {
		srpms = map[string]map[string]*RpmEntry{}
		arches[record.Arch] = srpms
	}
	packages := srpms[srpm]
	if packages == nil {
		packages = map[string]*RpmEntry{}
		srpms[srpm] = packages
	}
	entry := &RpmEntry{Path: record.Path, Sigkey: strings.ToLower(record.Sigkey), Category: record.Category}
	packages[nevra] = entry
	return entry, nil
}

func (r *Rpms) Variants() []string { return sortedKeys(r.rpms) }

func (r *Rpms) Arches(variant string) []string { return sortedKeys(r.rpms[variant]) }

func (r *Rpms) SRPMs(variant string, arch string) []string {
	return sortedKeys(r.rpms[variant][arch])
}

// Packages returns the packages built from srpm, keyed by NEVRA.
func (r *Rpms) Packages(variant string, arch string, srpm string) map[string]*RpmEntry {
	return maps.Clone(r.rpms[variant][arch][srpm])
}

func (r *Rpms) Get(variant string, arch string, srpm string, nevra string) (*RpmEntry, bool) {
	entry, ok := r.rpms[variant][arch][srpm][nevra]
	return entry, ok
}

func (r *Rpms) Delete(variant string) { delete(r.rpms, variant) }

// Len counts packages across all variants and arches.
func (r *Rpms) Len() int {
	total := 0
	_ = r.each(func(_, _, _, _ string, _ *RpmEntry) error {
		total++
		return nil
	})
	return total
}

// each visits every package in sorted key order.
func (r *Rpms) each(fn func(variant, arch, srpm, nevra string, entry *RpmEntry) error) error {
	for _, variant := range sortedKeys(r.rpms) {
		for _, arch := range sortedKeys(r.rpms[variant]) {
			for _, srpm := range sortedKeys(r.rpms[variant][arch]) {
				packages := r.rpms[variant][arch][srpm]
				for _, nevra := range sortedKeys(packages) {
					if err := fn(variant, arch, srpm, nevra, packages[nevra]); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// Locations lists the location of every package.
func (r *Rpms) Locations() []Location {
	var out []Location
	_ = r.each(func(_, _, _, _ string, entry *RpmEntry) error {
		out = append(out, entry.Location())
		return nil
	})
	return out
}

func (r *Rpms) Encode(force FormatRevision) (Tree, error) {
	revision, err := r.target(force)
	if err != nil {
		return nil, err
	}
	tree, payload, err := encodeEnvelope(types.EntityKindRpms, revision, r.Compose)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	err = r.each(func(variant, arch, srpm, nevra string, entry *RpmEntry) error {
		encoded := map[string]any{
			"sigkey":   nullableString(entry.Sigkey),
			"category": string(entry.Category),
		}
		if revision.UsesLocations() {
			encoded["location"] = entry.Location().Encode()
		} else {
			encoded["path"] = entry.Path
		}
		nestedMap(out, variant, arch, srpm)[nevra] = encoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	payload["rpms"] = out
	return tree, nil
}

// nestedMap walks keys below m, creating missing levels.
func nestedMap(m map[string]any, keys ...string) map[string]any {
	for _, key := range keys {
		next, ok := m[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[key] = next
		}
		m = next
	}
	return m
}

// Decode replaces r with the manifest in tree. r is left untouched when
// decoding fails.
func (r *Rpms) Decode(tree Tree, opts DecodeOptions) error {
	header, revision, payload, compose, err := decodeEnvelope(tree, types.EntityKindRpms)
	if err != nil {
		return err
	}
	out := NewRpms()
	out.Header, out.Compose = header, compose
	if revision <= Revision03 {
		err = out.decodeLegacy(payload)
	} else {
		err = out.decodeCurrent(payload, revision)
	}
	if err != nil {
		return err
	}
	out.stamp(revision)
	*r = *out
	return nil
}

func (r *Rpms) decodeCurrent(payload map[string]any, revision FormatRevision) error {
	variants, err := childMap(payload, "payload", "rpms")
	if err != nil {
		return err
	}
	return walkLevels(variants, "payload.rpms", 3, func(at string, keys []string, value any) error {
		m, err := asMap(value, at)
		if err != nil {
			return err
		}
		category, err := reqString(m, at, "category")
		if err != nil {
			return err
		}
		sigkey, err := optString(m, at, "sigkey")
		if err != nil {
			return err
		}
		record := RpmRecord{
			Variant:  keys[0],
			Arch:     keys[1],
			NEVRA:    keys[3],
			Sigkey:   sigkey,
			Category: types.RpmCategory(category),
		}
		if record.Category != types.RpmCategorySource {
			record.SRPMNEVRA = keys[2]
		}
		var location Location
		if revision.UsesLocations() {
			if location, err = decodeArtifactLocation(m, at); err != nil {
				return err
			}
			record.Path = location.LocalPath
		} else if record.Path, err = reqString(m, at, "path"); err != nil {
			return err
		}
		entry, err := r.add(record)
		if err != nil {
			return wrapf(err, "%s", at)
		}
		if revision.UsesLocations() {
			entry.location.set(location)
		}
		return nil
	})
}

// decodeLegacy reads the 0.x "manifest" layout, where source packages
// were listed under a separate "src" arch and binaries had type
// "package".
func (r *Rpms) decodeLegacy(payload map[string]any) error {
	manifest, err := childMap(payload, "payload", "manifest")
	if err != nil {
		return err
	}
	for _, variant := range sortedKeys(manifest) {
		variantAt := joinPath("payload.manifest", variant)
		arches, err := asMap(manifest[variant], variantAt)
		if err != nil {
			return err
		}
		sources, _, err := optChildMap(arches, variantAt, "src")
		if err != nil {
			return err
		}
		for _, arch := range sortedKeys(arches) {
			if arch == "src" {
				continue
			}
			archAt := joinPath(variantAt, arch)
			srpms, err := asMap(arches[arch], archAt)
			if err != nil {
				return err
			}
			for _, srpm := range sortedKeys(srpms) {
				srpmAt := joinPath(archAt, srpm)
				packages, err := asMap(srpms[srpm], srpmAt)
				if err != nil {
					return err
				}
				for _, nevra := range sortedKeys(packages) {
					if err := r.addLegacy(variant, arch, srpm, nevra, packages[nevra], joinPath(srpmAt, nevra)); err != nil {
						return err
					}
				}
				if raw, ok := sources[srpm]; ok {
					if err := r.addLegacy(variant, arch, "", srpm, raw, joinPath(joinPath(variantAt, "src"), srpm)); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func (r *Rpms) addLegacy(variant, arch, srpm, nevra string, value any, at string) error {
	m, err := asMap(value, at)
	if err != nil {
		return err
	}
	path, err := reqString(m, at, "path")
	if err != nil {
		return err
	}
	sigkey, err := optString(m, at, "sigkey")
	if err != nil {
		return err
	}
	category := types.RpmCategorySource
	if srpm != "" {
		kind, err := reqString(m, at, "type")
		if err != nil {
			return err
		}
		category = types.RpmCategory(kind)
		if kind == "package" {
			category = types.RpmCategoryBinary
		}
	}
	_, err = r.add(RpmRecord{
		Variant:   variant,
		Arch:      arch,
		NEVRA:     nevra,
		Path:      path,
		Sigkey:    sigkey,
		Category:  category,
		SRPMNEVRA: srpm,
	})
	if err != nil {
		return wrapf(err, "%s", at)
	}
	return nil
}

// walkLevels descends depth mapping levels below m and calls fn for
// every leaf with the keys leading to it, in sorted key order.
func walkLevels(m map[string]any, at string, depth int, fn func(at string, keys []string, value any) error) error {
	return walkLevelsFrom(m, at, depth, nil, fn)
}

func walkLevelsFrom(m map[string]any, at string, depth int, keys []string, fn func(at string, keys []string, value any) error) error {
	for _, key := range sortedKeys(m) {
		path := joinPath(at, key)
		next := append(slices.Clone(keys), key)
		if depth == 0 {
			if err := fn(path, next, m[key]); err != nil {
				return err
			}
			continue
		}
		child, err := asMap(m[key], path)
		if err != nil {
			return err
		}
		if err := walkLevelsFrom(child, path, depth-1, next, fn); err != nil {
			return err
		}
	}
	return nil
}
