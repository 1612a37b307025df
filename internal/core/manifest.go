package core

import (
	"path"
	"strings"

	"productmd/internal/types"
)

// Manifest is a JSON-shaped versioned entity.
type Manifest interface {
	Encode(force FormatRevision) (Tree, error)
	Decode(tree Tree, opts DecodeOptions) error
	OutputVersion() FormatRevision
	SetOutputVersion(revision FormatRevision) error
	SetOutputVersionString(value string) error
	// Rebase points every artifact location at baseURL/local_path.
	Rebase(baseURL string) error
}

// NewManifest returns an empty entity of kind.
func NewManifest(kind types.EntityKind) (Manifest, error) {
	switch kind {
	case types.EntityKindComposeInfo:
		return NewComposeInfo(), nil
	case types.EntityKindRpms:
		return NewRpms(), nil
	case types.EntityKindImages:
		return NewImages(), nil
	case types.EntityKindModules:
		return NewModules(), nil
	case types.EntityKindExtraFiles:
		return NewExtraFiles(), nil
	default:
		return nil, invalidf("unsupported manifest type: %s", kind)
	}
}

var fileNameKinds = []struct {
	prefixes []string
	kind     types.EntityKind
}{
	{[]string{"composeinfo"}, types.EntityKindComposeInfo},
	{[]string{"rpms", "rpm-manifest"}, types.EntityKindRpms},
	{[]string{"images", "image-manifest"}, types.EntityKindImages},
	{[]string{"modules"}, types.EntityKindModules},
	{[]string{"extra_files"}, types.EntityKindExtraFiles},
}

// DetectKind returns the header type of tree, falling back to the
// conventional file name for manifests older than 1.1.
func DetectKind(tree Tree, name string) (types.EntityKind, error) {
	if kind, ok := KindOf(tree); ok {
		return kind, nil
	}
	base := strings.ToLower(path.Base(name))
	for _, candidate := range fileNameKinds {
		for _, prefix := range candidate.prefixes {
			if strings.HasPrefix(base, prefix) {
				return candidate.kind, nil
			}
		}
	}
	return "", invalidf("cannot determine manifest type of %s: no header.type and unknown file name", name)
}

func (c *ComposeInfo) Rebase(baseURL string) error {
	return c.Variants.Walk(func(_ Handle, v *Variant) error {
		if v.Paths == nil {
			return nil
		}
		for _, field := range v.Paths.Fields() {
			for arch, relPath := range v.Paths.Field(field) {
				location := v.Paths.location(field, arch, relPath)
				if err := v.Paths.SetLocation(field, arch, location.WithRemoteURL(baseURL)); err != nil {
					return wrapf(err, "variant %s %s.%s", v.UID, field, arch)
				}
			}
		}
		return nil
	})
}

func (r *Rpms) Rebase(baseURL string) error {
	return r.each(func(variant, arch, _, nevra string, entry *RpmEntry) error {
		if err := entry.SetLocation(entry.Location().WithRemoteURL(baseURL)); err != nil {
			return wrapf(err, "%s.%s %s", variant, arch, nevra)
		}
		return nil
	})
}

func (m *Images) Rebase(baseURL string) error {
	for _, image := range m.All() {
		if err := image.SetLocation(image.Location().WithRemoteURL(baseURL)); err != nil {
			return wrapf(err, "image %s", image.Path)
		}
	}
	return nil
}

func (m *Modules) Rebase(baseURL string) error {
	for _, variant := range m.Variants() {
		for _, arch := range m.Arches(variant) {
			for _, uid := range m.UIDs(variant, arch) {
				entry := m.modules[variant][arch][uid]
				if err := entry.SetLocation(entry.Location().WithRemoteURL(baseURL)); err != nil {
					return wrapf(err, "module %s", uid)
				}
			}
		}
	}
	return nil
}

func (e *ExtraFiles) Rebase(baseURL string) error {
	for _, variant := range e.Variants() {
		for _, arch := range e.Arches(variant) {
			for _, file := range e.files[variant][arch] {
				if err := file.SetLocation(file.Location().WithRemoteURL(baseURL)); err != nil {
					return wrapf(err, "extra file %s", file.File)
				}
			}
		}
	}
	return nil
}

// ArtifactLocations returns the location of every artifact a manifest
// describes, keyed by a readable label.
func ArtifactLocations(m Manifest) map[string]Location {
	out := map[string]Location{}
	switch typed := m.(type) {
	case *Rpms:
		_ = typed.each(func(variant, arch, _, nevra string, entry *RpmEntry) error {
			out[variant+"."+arch+" "+nevra] = entry.Location()
			return nil
		})
	case *Images:
		for _, variant := range typed.Variants() {
			for _, arch := range typed.Arches(variant) {
				for _, image := range typed.Get(variant, arch) {
					out[variant+"."+arch+" "+image.Path] = image.Location()
				}
			}
		}
	case *Modules:
		for _, variant := range typed.Variants() {
			for _, arch := range typed.Arches(variant) {
				for _, uid := range typed.UIDs(variant, arch) {
					out[variant+"."+arch+" "+uid] = typed.modules[variant][arch][uid].Location()
				}
			}
		}
	case *ExtraFiles:
		for _, variant := range typed.Variants() {
			for _, arch := range typed.Arches(variant) {
				for _, file := range typed.files[variant][arch] {
					out[variant+"."+arch+" "+file.File] = file.Location()
				}
			}
		}
	}
	return out
}
