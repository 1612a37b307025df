package core

import (
	"maps"
	"regexp"
	"strings"

	"productmd/internal/types"
)

var moduleUIDRe = regexp.MustCompile(`^(.*/)?(?P<name>[^:]+):(?P<stream>[^:]+)(:(?P<version>[^:]+))?(:(?P<context>[^:]+))?$`)

// ModuleUID is NAME:STREAM[:VERSION[:CONTEXT]].
type ModuleUID struct {
	Name    string
	Stream  string
	Version string
	Context string
}

// ParseModuleUID parses a module uid, optionally prefixed by a path.
func ParseModuleUID(uid string) (ModuleUID, error) {
	if !strings.Contains(uid, ":") {
		return ModuleUID{}, invalidf("missing stream in uid: %s", uid)
	}
	match := moduleUIDRe.FindStringSubmatch(uid)
	if match == nil {
		return ModuleUID{}, invalidf("invalid uid format: %s", uid)
	}
	return ModuleUID{
		Name:    match[moduleUIDRe.SubexpIndex("name")],
		Stream:  match[moduleUIDRe.SubexpIndex("stream")],
		Version: match[moduleUIDRe.SubexpIndex("version")],
		Context: match[moduleUIDRe.SubexpIndex("context")],
	}, nil
}

func (u ModuleUID) String() string {
	out := u.Name + ":" + u.Stream
	if u.Version != "" {
		out += ":" + u.Version
	}
	if u.Context != "" {
		out += ":" + u.Context
	}
	return out
}

// ModuleEntry is one module build of a module manifest.
type ModuleEntry struct {
	UID     ModuleUID
	KojiTag string
	// ModulemdPaths maps an RPM category to the modulemd document path.
	ModulemdPaths map[string]string
	Rpms          []string

	location artifactLocation
}

// primaryPath is the binary modulemd path, else the first by category.
func (e *ModuleEntry) primaryPath() string {
	if path, ok := e.ModulemdPaths[string(types.RpmCategoryBinary)]; ok {
		return path
	}
	for _, category := range sortedKeys(e.ModulemdPaths) {
		return e.ModulemdPaths[category]
	}
	return ""
}

// Location returns the explicit location, or one synthesized from the
// primary modulemd path.
func (e *ModuleEntry) Location() Location {
	return e.location.resolve(localLocation(e.primaryPath(), nil, ""))
}

func (e *ModuleEntry) ExplicitLocation() (Location, bool) { return e.location.get() }

// SetLocation attaches location and points the binary modulemd path at
// its local_path.
func (e *ModuleEntry) SetLocation(location Location) error {
	if err := location.Validate(); err != nil {
		return err
	}
	e.location.set(location)
	if e.ModulemdPaths == nil {
		e.ModulemdPaths = map[string]string{}
	}
	e.ModulemdPaths[string(types.RpmCategoryBinary)] = location.LocalPath
	return nil
}

// ModuleRecord is the input of Modules.Add.
type ModuleRecord struct {
	Variant      string
	Arch         string
	UID          string
	KojiTag      string
	ModulemdPath string
	Category     types.RpmCategory
	Rpms         []string
}

// Modules maps variant, arch and module uid to the modules of a compose.
type Modules struct {
	Versioned

	Header  Header
	Compose Compose

	modules map[string]map[string]map[string]*ModuleEntry
}

func NewModules() *Modules {
	return &Modules{
		Header:  Header{Type: types.EntityKindModules},
		modules: map[string]map[string]map[string]*ModuleEntry{},
	}
}

// Add records a module build. Adding the same uid again merges the
// modulemd path of another category and appends rpms.
func (m *Modules) Add(record ModuleRecord) error {
	if record.Variant == "" {
		return invalidf("non-empty variant is expected")
	}
	if !types.IsRPMArch(record.Arch) {
		return invalidf("arch not found in RPM arches: %s", record.Arch)
	}
	if !types.IsRpmCategory(record.Category) {
		return invalidf("invalid category value: %s", record.Category)
	}
	uid, err := ParseModuleUID(record.UID)
	if err != nil {
		return err
	}
	if strings.HasPrefix(record.ModulemdPath, "/") {
		return invalidf("relative path expected: %s", record.ModulemdPath)
	}
	if record.KojiTag == "" {
		return invalidf("non-empty 'koji_tag' is expected")
	}
	if record.ModulemdPath == "" {
		return invalidf("non-empty 'modulemd_path' is expected")
	}
	if len(record.Rpms) == 0 {
		return invalidf("empty array 'rpms'")
	}
	entry := m.entry(record.Variant, record.Arch, uid)
	entry.KojiTag = record.KojiTag
	entry.ModulemdPaths[string(record.Category)] = record.ModulemdPath
	entry.Rpms = append(entry.Rpms, record.Rpms...)
	return nil
}

func (m *Modules) entry(variant string, arch string, uid ModuleUID) *ModuleEntry {
	arches := m.modules[variant]
	if arches == nil {
		arches = map[string]map[string]*ModuleEntry{}
		m.modules[variant] = arches
	}
	uids := arches[arch]
	if uids == nil {
		uids = map[string]*ModuleEntry{}
		arches[arch] = uids
	}
	entry := uids[uid.String()]
	if entry == nil {
		entry = &ModuleEntry{ModulemdPaths: map[string]string{}}
		uids[uid.String()] = entry
	}
	entry.UID = uid
	return entry
}

func (m *Modules) Variants() []string { return sortedKeys(m.modules) }

func (m *Modules) Arches(variant string) []string { return sortedKeys(m.modules[variant]) }

func (m *Modules) UIDs(variant string, arch string) []string {
	return sortedKeys(m.modules[variant][arch])
}

func (m *Modules) Get(variant string, arch string, uid string) (*ModuleEntry, bool) {
	entry, ok := m.modules[variant][arch][uid]
	return entry, ok
}

func (m *Modules) Delete(variant string) { delete(m.modules, variant) }

func (m *Modules) Len() int {
	total := 0
	for _, arches := range m.modules {
		for _, uids := range arches {
			total += len(uids)
		}
	}
	return total
}

// Encode writes the modules at the output revision, or at force when set.
// 2.0 output carries only the binary modulemd path as the location: the
// koji_tag and the debug and source modulemd paths are not written.
func (m *Modules) Encode(force FormatRevision) (Tree, error) {
	revision, err := m.target(force)
	if err != nil {
		return nil, err
	}
	tree, payload, err := encodeEnvelope(types.EntityKindModules, revision, m.Compose)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	for _, variant := range m.Variants() {
		for _, arch := range m.Arches(variant) {
			for _, uid := range m.UIDs(variant, arch) {
				entry := m.modules[variant][arch][uid]
				rpms := append([]string{}, entry.Rpms...)
				var encoded map[string]any
				if revision.UsesLocations() {
					encoded = map[string]any{
						"name":     entry.UID.Name,
						"stream":   entry.UID.Stream,
						"version":  entry.UID.Version,
						"context":  entry.UID.Context,
						"arch":     arch,
						"location": entry.Location().Encode(),
						"rpms":     rpms,
					}
				} else {
					encoded = map[string]any{
						"metadata": map[string]any{
							"uid":      uid,
							"name":     entry.UID.Name,
							"stream":   entry.UID.Stream,
							"version":  entry.UID.Version,
							"context":  entry.UID.Context,
							"koji_tag": entry.KojiTag,
						},
						"modulemd_path": maps.Clone(entry.ModulemdPaths),
						"rpms":          rpms,
					}
				}
				nestedMap(out, variant, arch)[uid] = encoded
			}
		}
	}
	payload["modules"] = out
	return tree, nil
}

// Decode replaces m with the manifest in tree. m is left untouched when
// decoding fails.
func (m *Modules) Decode(tree Tree, opts DecodeOptions) error {
	header, revision, payload, compose, err := decodeEnvelope(tree, types.EntityKindModules)
	if err != nil {
		return err
	}
	variants, err := childMap(payload, "payload", "modules")
	if err != nil {
		return err
	}
	out := NewModules()
	out.Header, out.Compose = header, compose
	err = walkLevels(variants, "payload.modules", 2, func(at string, keys []string, value any) error {
		fields, err := asMap(value, at)
		if err != nil {
			return err
		}
		uid, err := ParseModuleUID(keys[2])
		if err != nil {
			return wrapf(err, "%s", at)
		}
		entry := out.entry(keys[0], keys[1], uid)
		if revision.UsesLocations() {
			return decodeModuleV2(entry, fields, at, opts)
		}
		return decodeModuleV1(entry, fields, at, opts)
	})
	if err != nil {
		return err
	}
	out.stamp(revision)
	*m = *out
	return nil
}

func decodeModuleV1(entry *ModuleEntry, fields map[string]any, at string, opts DecodeOptions) error {
	metadata, err := childMap(fields, at, "metadata")
	if err != nil {
		return err
	}
	metadataAt := joinPath(at, "metadata")
	if entry.KojiTag, err = optString(metadata, metadataAt, "koji_tag"); err != nil {
		return err
	}
	if _, ok := fields["modulemd_path"]; !ok {
		return invalidf("%s: missing required key", joinPath(at, "modulemd_path"))
	}
	if entry.ModulemdPaths, err = stringMap(fields, at, "modulemd_path", opts); err != nil {
		return err
	}
	for _, category := range sortedKeys(entry.ModulemdPaths) {
		if !types.IsRpmCategory(types.RpmCategory(category)) {
			return invalidf("%s: invalid category value: %s", joinPath(at, "modulemd_path"), category)
		}
	}
	return decodeModuleRpms(entry, fields, at, opts)
}

func decodeModuleV2(entry *ModuleEntry, fields map[string]any, at string, opts DecodeOptions) error {
	location, err := decodeArtifactLocation(fields, at)
	if err != nil {
		return err
	}
	if err := entry.SetLocation(location); err != nil {
		return err
	}
	return decodeModuleRpms(entry, fields, at, opts)
}

func decodeModuleRpms(entry *ModuleEntry, fields map[string]any, at string, opts DecodeOptions) error {
	if _, ok := fields["rpms"]; !ok {
		return invalidf("%s: missing required key", joinPath(at, "rpms"))
	}
	rpms, err := stringList(fields, at, "rpms", opts)
	if err != nil {
		return err
	}
	entry.Rpms = rpms
	return nil
}
