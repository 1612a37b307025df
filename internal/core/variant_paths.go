package core

import (
	"maps"
	"slices"

	"productmd/internal/types"
)

type pathLocation struct {
	location Location
	// synthesized marks locations derived from the plain path on encode.
	synthesized bool
}

// VariantPaths maps path fields ("os_tree", "repository", ...) to
// per-arch paths relative to the compose root. From 2.0 on every path
// is written as a Location; explicit locations set by the caller or
// read from a 2.0 manifest are kept alongside the plain path.
type VariantPaths struct {
	fields    []types.VariantPathField
	paths     map[types.VariantPathField]map[string]string
	locations map[types.VariantPathField]map[string]pathLocation
}

func NewVariantPaths() *VariantPaths {
	return newVariantPaths(types.ComposePathFields())
}

func newVariantPaths(fields []types.VariantPathField) *VariantPaths {
	return &VariantPaths{
		fields:    fields,
		paths:     map[types.VariantPathField]map[string]string{},
		locations: map[types.VariantPathField]map[string]pathLocation{},
	}
}

func (p *VariantPaths) checkField(field types.VariantPathField) error {
	if !slices.Contains(p.fields, field) {
		return invalidf("unknown variant path field: %s", field)
	}
	return nil
}

// Set stores a plain path. A cached location that no longer points at
// path is dropped.
func (p *VariantPaths) Set(field types.VariantPathField, arch string, path string) error {
	if err := p.checkField(field); err != nil {
		return err
	}
	if path == "" {
		delete(p.paths[field], arch)
		delete(p.locations[field], arch)
		return nil
	}
	if p.paths[field] == nil {
		p.paths[field] = map[string]string{}
	}
	p.paths[field][arch] = path
	if cached, ok := p.locations[field][arch]; ok && (cached.synthesized || cached.location.LocalPath != path) {
		delete(p.locations[field], arch)
	}
	return nil
}

// SetLocation stores an explicit location and points the plain path at
// its local_path.
func (p *VariantPaths) SetLocation(field types.VariantPathField, arch string, location Location) error {
	if err := p.checkField(field); err != nil {
		return err
	}
	if err := location.Validate(); err != nil {
		return err
	}
	if p.paths[field] == nil {
		p.paths[field] = map[string]string{}
	}
	p.paths[field][arch] = location.LocalPath
	if p.locations[field] == nil {
		p.locations[field] = map[string]pathLocation{}
	}
	p.locations[field][arch] = pathLocation{location: location}
	return nil
}

func (p *VariantPaths) Get(field types.VariantPathField, arch string) (string, bool) {
	path, ok := p.paths[field][arch]
	return path, ok
}

// Location returns the explicit or previously synthesized location.
func (p *VariantPaths) Location(field types.VariantPathField, arch string) (Location, bool) {
	cached, ok := p.locations[field][arch]
	return cached.location, ok
}

// Field returns a copy of the arch to path mapping of field.
func (p *VariantPaths) Field(field types.VariantPathField) map[string]string {
	return maps.Clone(p.paths[field])
}

func (p *VariantPaths) Fields() []types.VariantPathField { return slices.Clone(p.fields) }

// location returns the cached location, synthesizing one from the
// plain path when none is stored.
func (p *VariantPaths) location(field types.VariantPathField, arch string, path string) Location {
	if cached, ok := p.locations[field][arch]; ok {
		return cached.location
	}
	synthesized := localLocation(path, nil, "")
	if p.locations[field] == nil {
		p.locations[field] = map[string]pathLocation{}
	}
	p.locations[field][arch] = pathLocation{location: synthesized, synthesized: true}
	return synthesized
}

// encode writes paths of the given arches only.
func (p *VariantPaths) encode(arches []string, revision FormatRevision) map[string]any {
	out := map[string]any{}
	for _, arch := range arches {
		for _, field := range p.fields {
			path := p.paths[field][arch]
			if path == "" {
				continue
			}
			byArch, ok := out[string(field)].(map[string]any)
			if !ok {
				byArch = map[string]any{}
				out[string(field)] = byArch
			}
			if revision.UsesLocations() {
				byArch[arch] = p.location(field, arch, path).Encode()
			} else {
				byArch[arch] = path
			}
		}
	}
	return out
}

func decodeVariantPaths(m map[string]any, at string, arches []string, revision FormatRevision) (*VariantPaths, error) {
	out := NewVariantPaths()
	for _, field := range out.fields {
		byArch, present, err := optChildMap(m, at, string(field))
		if err != nil {
			return nil, err
		}
		if !present {
			continue
		}
		fieldPath := joinPath(at, string(field))
		for _, arch := range arches {
			value, ok := byArch[arch]
			if !ok || value == nil {
				continue
			}
			entryPath := joinPath(fieldPath, arch)
			if revision.UsesLocations() {
				location, err := DecodeLocation(value, entryPath)
				if err != nil {
					return nil, err
				}
				if err := out.SetLocation(field, arch, location); err != nil {
					return nil, err
				}
				continue
			}
			path, ok := value.(string)
			if !ok {
				return nil, invalidf("%s: expected string, got %T", entryPath, value)
			}
			if err := out.Set(field, arch, path); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
