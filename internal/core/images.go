package core

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"

	"productmd/internal/ports"
	"productmd/internal/types"
)

var implantMD5Re = regexp.MustCompile(`^[a-z0-9]{32}$`)

// DefaultImageFormat is assumed for entries written without a format.
const DefaultImageFormat = "iso"

// Image is one installation or cloud image of a compose.
type Image struct {
	Path  string
	Mtime int64
	Size  int64
	// VolumeID is the ISO volume label, empty when the image has none.
	VolumeID   string
	Type       string
	Format     string
	Arch       string
	DiscNumber int64
	DiscCount  int64
	// Checksums maps algorithm names to lowercase hex digests.
	Checksums map[string]string
	// ImplantMD5 is the md5 implanted by implantisomd5, or empty.
	ImplantMD5 string
	Bootable   bool
	// Subvariant names the image contents, e.g. "KDE"; may be empty.
	Subvariant string
	// Unified images carry the content of every variant.
	Unified            bool
	AdditionalVariants []string

	location artifactLocation
}

func (i *Image) String() string {
	return fmt.Sprintf("<Image:%s:%s:%s>", i.Path, i.Format, i.Arch)
}

func (i *Image) Validate() error {
	if strings.TrimSpace(i.Path) == "" {
		return invalidf("image: field 'path' must not be blank")
	}
	if strings.HasPrefix(i.Path, "/") {
		return invalidf("image %s: relative path expected", i.Path)
	}
	if i.Size < 0 {
		return invalidf("image %s: field 'size' must be non-negative: %d", i.Path, i.Size)
	}
	if i.VolumeID != "" && strings.TrimSpace(i.VolumeID) == "" {
		return invalidf("image %s: field 'volume_id' must not be blank", i.Path)
	}
	if !types.IsImageType(i.Type) {
		return invalidf("image %s: field 'type' has invalid value: %s", i.Path, i.Type)
	}
	if !types.IsImageFormat(i.Format) {
		return invalidf("image %s: field 'format' has invalid value: %s", i.Path, i.Format)
	}
	if strings.TrimSpace(i.Arch) == "" {
		return invalidf("image %s: field 'arch' must not be blank", i.Path)
	}
	if len(i.Checksums) == 0 {
		return invalidf("image %s: field 'checksums' must not be blank", i.Path)
	}
	if i.ImplantMD5 != "" && !implantMD5Re.MatchString(i.ImplantMD5) {
		return invalidf("image %s: field 'implant_md5' has invalid value: %s", i.Path, i.ImplantMD5)
	}
	return nil
}

// imageIdentity is the comparable form of every field but the location
// cache.
type imageIdentity struct {
	path, volumeID, imageType, format, arch string
	mtime, size, discNumber, discCount      int64
	checksums, implantMD5, subvariant       string
	bootable, unified                       bool
	additionalVariants                      string
}

func (i *Image) identity() imageIdentity {
	var sums []string
	for _, algorithm := range sortedKeys(i.Checksums) {
		sums = append(sums, algorithm+":"+i.Checksums[algorithm])
	}
	return imageIdentity{
		path:               i.Path,
		volumeID:           i.VolumeID,
		imageType:          i.Type,
		format:             i.Format,
		arch:               i.Arch,
		mtime:              i.Mtime,
		size:               i.Size,
		discNumber:         i.DiscNumber,
		discCount:          i.DiscCount,
		checksums:          strings.Join(sums, ","),
		implantMD5:         i.ImplantMD5,
		subvariant:         i.Subvariant,
		bootable:           i.Bootable,
		unified:            i.Unified,
		additionalVariants: strings.Join(i.AdditionalVariants, ","),
	}
}

// Location returns the explicit location, or one synthesized from
// path, size and the preferred checksum.
func (i *Image) Location() Location {
	size := i.Size
	checksum, _ := preferredChecksum(i.Checksums)
	return i.location.resolve(localLocation(i.Path, &size, checksum))
}

func (i *Image) ExplicitLocation() (Location, bool) { return i.location.get() }

// SetLocation attaches location and rewrites path, size and checksums
// to match it.
func (i *Image) SetLocation(location Location) error {
	if err := location.Validate(); err != nil {
		return err
	}
	i.location.set(location)
	i.Path = location.LocalPath
	if location.Size != nil {
		i.Size = *location.Size
	}
	if location.Checksum != "" {
		i.Checksums = legacyChecksums(location)
	}
	return nil
}

// AddChecksum records a digest. An empty value is computed from the
// image file under root. A value conflicting with a recorded digest of
// the same algorithm is rejected.
func (i *Image) AddChecksum(hasher ports.HasherPort, root string, algorithm types.ChecksumAlgorithm, value string) (string, error) {
	if existing, ok := i.Checksums[string(algorithm)]; ok {
		if value != "" && value != existing {
			return "", duplicatef("existing and added checksums do not match: %s vs %s", existing, value)
		}
		return existing, nil
	}
	if value == "" {
		computed, err := hasher.FileChecksum(filepath.Join(root, filepath.FromSlash(i.Path)), algorithm)
		if err != nil {
			return "", err
		}
		value = computed
	}
	if i.Checksums == nil {
		i.Checksums = map[string]string{}
	}
	i.Checksums[string(algorithm)] = value
	return value, nil
}

func (i *Image) encode(revision FormatRevision) map[string]any {
	out := map[string]any{
		"mtime":       i.Mtime,
		"volume_id":   nullableString(i.VolumeID),
		"type":        i.Type,
		"format":      i.Format,
		"arch":        i.Arch,
		"disc_number": i.DiscNumber,
		"disc_count":  i.DiscCount,
		"implant_md5": nullableString(i.ImplantMD5),
		"bootable":    i.Bootable,
	}
	if revision.UsesLocations() {
		out["location"] = i.Location().Encode()
	} else {
		out["path"] = i.Path
		out["size"] = i.Size
		out["checksums"] = stringMapToAny(i.Checksums)
	}
	if revision == Revision10 {
		out["payload"] = i.Subvariant
	} else {
		out["subvariant"] = i.Subvariant
		out["unified"] = i.Unified
	}
	if revision >= Revision12 {
		variants := i.AdditionalVariants
		if variants == nil {
			variants = []string{}
		}
		out["additional_variants"] = variants
	}
	return out
}

func decodeImage(value any, at string, revision FormatRevision, opts DecodeOptions) (*Image, error) {
	m, err := asMap(value, at)
	if err != nil {
		return nil, err
	}
	out := &Image{}
	if out.Mtime, err = reqInt(m, at, "mtime"); err != nil {
		return nil, err
	}
	if out.VolumeID, err = optString(m, at, "volume_id"); err != nil {
		return nil, err
	}
	if out.Type, err = reqString(m, at, "type"); err != nil {
		return nil, err
	}
	if out.Format, err = optString(m, at, "format"); err != nil {
		return nil, err
	}
	if out.Format == "" {
		out.Format = DefaultImageFormat
	}
	if out.Arch, err = reqString(m, at, "arch"); err != nil {
		return nil, err
	}
	if out.DiscNumber, err = reqInt(m, at, "disc_number"); err != nil {
		return nil, err
	}
	if out.DiscCount, err = reqInt(m, at, "disc_count"); err != nil {
		return nil, err
	}
	if out.ImplantMD5, err = optString(m, at, "implant_md5"); err != nil {
		return nil, err
	}
	if out.Bootable, err = optBool(m, at, "bootable", false); err != nil {
		return nil, err
	}
	subvariantKey := "subvariant"
	if revision <= Revision10 {
		subvariantKey = "payload"
	}
	if out.Subvariant, err = optString(m, at, subvariantKey); err != nil {
		return nil, err
	}
	if revision >= Revision11 {
		if out.Unified, err = optBool(m, at, "unified", false); err != nil {
			return nil, err
		}
	}
	if raw, ok := m["additional_variants"]; ok && raw != nil && revision >= Revision12 {
		if out.AdditionalVariants, err = stringList(m, at, "additional_variants", opts); err != nil {
			return nil, err
		}
	}

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
	} else {
		if out.Path, err = reqString(m, at, "path"); err != nil {
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
	}
	if err := out.Validate(); err != nil {
		return nil, wrapf(err, "%s", at)
	}
	return out, nil
}

// Images maps variant and arch to the images of a compose. Each
// variant/arch holds a set: adding an identical image twice keeps one.
type Images struct {
	Versioned

	Header  Header
	Compose Compose

	images map[string]map[string][]*Image
}

func NewImages() *Images {
	return &Images{
		Header: Header{Type: types.EntityKindImages},
		images: map[string]map[string][]*Image{},
	}
}

// Add files image under variant and arch.
func (m *Images) Add(variant string, arch string, image *Image) error {
	if !types.IsRPMArch(arch) {
		return invalidf("arch not found in RPM arches: %s", arch)
	}
	if err := image.Validate(); err != nil {
		return err
	}
	if m.images[variant] == nil {
		m.images[variant] = map[string][]*Image{}
	}
	identity := image.identity()
	for _, existing := range m.images[variant][arch] {
		if existing == image || existing.identity() == identity {
			return nil
		}
	}
	m.images[variant][arch] = append(m.images[variant][arch], image)
	return nil
}

func (m *Images) Variants() []string { return sortedKeys(m.images) }

func (m *Images) Arches(variant string) []string { return sortedKeys(m.images[variant]) }

// Get returns the images of variant and arch sorted by path.
func (m *Images) Get(variant string, arch string) []*Image {
	out := slices.Clone(m.images[variant][arch])
	sort.SliceStable(out, func(a, b int) bool { return out[a].Path < out[b].Path })
	return out
}

func (m *Images) Delete(variant string) { delete(m.images, variant) }

// All returns every image in variant, arch and path order.
func (m *Images) All() []*Image {
	var out []*Image
	for _, variant := range m.Variants() {
		for _, arch := range m.Arches(variant) {
			out = append(out, m.Get(variant, arch)...)
		}
	}
	return out
}

func (m *Images) Encode(force FormatRevision) (Tree, error) {
	revision, err := m.target(force)
	if err != nil {
		return nil, err
	}
	tree, payload, err := encodeEnvelope(types.EntityKindImages, revision, m.Compose)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	for _, variant := range m.Variants() {
		for _, arch := range m.Arches(variant) {
			var encoded []any
			for _, image := range m.Get(variant, arch) {
				if err := image.Validate(); err != nil {
					return nil, err
				}
				encoded = append(encoded, image.encode(revision))
			}
			nestedMap(out, variant)[arch] = encoded
		}
	}
	payload["images"] = out
	return tree, nil
}

// Decode replaces m with the manifest in tree. m is left untouched when
// decoding fails.
func (m *Images) Decode(tree Tree, opts DecodeOptions) error {
	header, revision, payload, compose, err := decodeEnvelope(tree, types.EntityKindImages)
	if err != nil {
		return err
	}
	variants, err := childMap(payload, "payload", "images")
	if err != nil {
		return err
	}
	out := NewImages()
	out.Header, out.Compose = header, compose
	err = walkLevels(variants, "payload.images", 1, func(at string, keys []string, value any) error {
		items, err := asList(value, at)
		if err != nil {
			return err
		}
		for i, item := range items {
			image, err := decodeImage(item, indexPath(at, i), revision, opts)
			if err != nil {
				return err
			}
			if err := out.Add(keys[0], keys[1], image); err != nil {
				return wrapf(err, "%s", indexPath(at, i))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	out.stamp(revision)
	*m = *out
	return nil
}
