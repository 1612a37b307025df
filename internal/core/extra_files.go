package core

import (
	"strings"

	"productmd/internal/types"
)

// ExtraFile is a file copied into a tree next to the packages, such as
// a license or GPG key.
type ExtraFile struct {
	// File is the path relative to the compose root.
	File      string
	Size      int64
	Checksums map[string]string

	location artifactLocation
}

// Location returns the explicit location, or one synthesized from file,
// size and the preferred checksum.
func (f *ExtraFile) Location() Location {
	size := f.Size
	checksum, _ := preferredChecksum(f.Checksums)
	return f.location.resolve(localLocation(f.File, &size, checksum))
}

func (f *ExtraFile) ExplicitLocation() (Location, bool) { return f.location.get() }

// SetLocation attaches location and rewrites file, size and checksums
// to match it.
func (f *ExtraFile) SetLocation(location Location) error {
	if err := location.Validate(); err != nil {
		return err
	}
	f.location.set(location)
	f.File = location.LocalPath
	if location.Size != nil {
		f.Size = *location.Size
	}
	if location.Checksum != "" {
		f.Checksums = legacyChecksums(location)
	}
	return nil
}

// ExtraFiles maps variant and arch to the extra files of a compose.
type ExtraFiles struct {
	Versioned

	Header  Header
	Compose Compose

	files map[string]map[string][]*ExtraFile
}

func NewExtraFiles() *ExtraFiles {
	return &ExtraFiles{
		Header: Header{Type: types.EntityKindExtraFiles},
		files:  map[string]map[string][]*ExtraFile{},
	}
}

// Add appends a file to variant and arch.
func (e *ExtraFiles) Add(variant string, arch string, path string, size int64, checksums map[string]string) error {
	if variant == "" {
		return invalidf("non-empty variant is expected")
	}
	if !types.IsRPMArch(arch) {
		return invalidf("arch not found in RPM arches: %s", arch)
	}
	if path == "" {
		return invalidf("path can not be empty")
	}
	if strings.HasPrefix(path, "/") {
		return invalidf("relative path expected: %s", path)
	}
	if checksums == nil {
		return invalidf("checksums must be a mapping")
	}
	e.add(variant, arch, &ExtraFile{File: path, Size: size, Checksums: checksums})
	return nil
}

func (e *ExtraFiles) add(variant string, arch string, file *ExtraFile) {
	if e.files[variant] == nil {
		e.files[variant] = map[string][]*ExtraFile{}
	}
	e.files[variant][arch] = append(e.files[variant][arch], file)
}

func (e *ExtraFiles) Variants() []string { return sortedKeys(e.files) }

func (e *ExtraFiles) Arches(variant string) []string { return sortedKeys(e.files[variant]) }

// Get returns the files of variant and arch in insertion order.
func (e *ExtraFiles) Get(variant string, arch string) []*ExtraFile {
	return append([]*ExtraFile(nil), e.files[variant][arch]...)
}

func (e *ExtraFiles) Delete(variant string) { delete(e.files, variant) }

func (e *ExtraFiles) Len() int {
	total := 0
	for _, arches := range e.files {
		for _, files := range arches {
			total += len(files)
		}
	}
	return total
}

func (e *ExtraFiles) Encode(force FormatRevision) (Tree, error) {
	revision, err := e.target(force)
	if err != nil {
		return nil, err
	}
	tree, payload, err := encodeEnvelope(types.EntityKindExtraFiles, revision, e.Compose)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	for _, variant := range e.Variants() {
		for _, arch := range e.Arches(variant) {
			encoded := []any{}
			for _, file := range e.files[variant][arch] {
				if revision.UsesLocations() {
					encoded = append(encoded, map[string]any{
						"file":     baseName(file.File),
						"location": file.Location().Encode(),
					})
					continue
				}
				encoded = append(encoded, map[string]any{
					"file":      file.File,
					"size":      file.Size,
					"checksums": stringMapToAny(file.Checksums),
				})
			}
			nestedMap(out, variant)[arch] = encoded
		}
	}
	payload["extra_files"] = out
	return tree, nil
}

// Decode replaces e with the manifest in tree. e is left untouched when
// decoding fails.
func (e *ExtraFiles) Decode(tree Tree, opts DecodeOptions) error {
	header, revision, payload, compose, err := decodeEnvelope(tree, types.EntityKindExtraFiles)
	if err != nil {
		return err
	}
	variants, err := childMap(payload, "payload", "extra_files")
	if err != nil {
		return err
	}
	out := NewExtraFiles()
	out.Header, out.Compose = header, compose
	err = walkLevels(variants, "payload.extra_files", 1, func(at string, keys []string, value any) error {
		items, err := asList(value, at)
		if err != nil {
			return err
		}
		for i, item := range items {
			file, err := decodeExtraFile(item, indexPath(at, i), revision, opts)
			if err != nil {
				return err
			}
			out.add(keys[0], keys[1], file)
		}
		return nil
	})
	if err != nil {
		return err
	}
	out.stamp(revision)
	*e = *out
	return nil
}

func decodeExtraFile(value any, at string, revision FormatRevision, opts DecodeOptions) (*ExtraFile, error) {
	m, err := asMap(value, at)
	if err != nil {
		return nil, err
	}
	out := &ExtraFile{}
	if revision.UsesLocations() {
		location, err := decodeArtifactLocation(m, at)
		if err != nil {
			return nil, err
		}
		if err := out.SetLocation(location); err != nil {
			return nil, err
		}
		if out.Checksums == nil {
			out.Checksums = map[string]string{}
		}
		return out, nil
	}
	if out.File, err = reqString(m, at, "file"); err != nil {
		return nil, err
	}
	if out.Size, err = reqInt(m, at, "size"); err != nil {
		return nil, err
	}
	if _, ok := m["checksums"]; !ok {
		return nil, invalidf("%s: missing required key", joinPath(at, "checksums"))
	}
	if out.Checksums, err = stringMap(m, at, "checksums", opts); err != nil {
		return nil, err
	}
	return out, nil
}

// DumpForTree returns the extra_files.json document placed inside one
// tree, with basePath stripped from every file path.
func (e *ExtraFiles) DumpForTree(variant string, arch string, basePath string) (Tree, error) {
	files, ok := e.files[variant][arch]
	if !ok {
		return nil, notFoundf("no extra files for %s.%s", variant, arch)
	}
	data := make([]any, 0, len(files))
	for _, file := range files {
		data = append(data, map[string]any{
			"file":      relativeTo(file.File, basePath),
			"size":      file.Size,
			"checksums": stringMapToAny(file.Checksums),
		})
	}
	return Tree{
		"header": map[string]any{"version": "1.0"},
		"data":   data,
	}, nil
}

func relativeTo(path string, root string) string {
	root = strings.TrimRight(root, "/") + "/"
	if rest, ok := strings.CutPrefix(path, root); ok {
		return rest
	}
	return path
}
