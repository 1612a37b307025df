package core

import (
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/ini.v1"

	"productmd/internal/ports"
	"productmd/internal/types"
)

var treeinfoRevisions = []FormatRevision{Revision10, Revision11, Revision12}

// TreeProduct names a product in a .treeinfo file. Unlike Release it
// carries no release type.
type TreeProduct struct {
	Name    string
	Version string
	Short   string
}

func (p TreeProduct) validate(section string) error {
	// Versions like "rawhide" are accepted; numeric ones must be dotted.
	if p.Version != "" && p.Version[0] >= '0' && p.Version[0] <= '9' && !IsValidReleaseVersion(p.Version) {
		return invalidf("[%s] version has invalid value: %q", section, p.Version)
	}
	return nil
}

type TreeRelease struct {
	TreeProduct
	IsLayered bool
}

// TreeDetails is the [tree] section.
type TreeDetails struct {
	Arch string
	// Platforms lists the image platforms. Arch is implied.
	Platforms      []string
	BuildTimestamp int64
}

// AllPlatforms returns Platforms plus Arch, sorted.
func (t TreeDetails) AllPlatforms() []string {
	if t.Arch == "" {
		return sortedUnique(t.Platforms)
	}
	return sortedUnique(append(slices.Clone(t.Platforms), t.Arch))
}

// TreeVariant is a variant of an installable tree. Paths are plain
// strings relative to the tree root.
type TreeVariant struct {
	ID    string
	UID   string
	Name  string
	Type  types.VariantType
	paths map[types.VariantPathField]string
}

func NewTreeVariant(id string, uid string, name string, variantType types.VariantType) *TreeVariant {
	return &TreeVariant{ID: id, UID: uid, Name: name, Type: variantType, paths: map[types.VariantPathField]string{}}
}

// SetPath stores a path; an empty value removes it.
func (v *TreeVariant) SetPath(field types.VariantPathField, value string) error {
	if !slices.Contains(types.TreePathFields(), field) {
		return invalidf("unknown tree variant path field: %s", field)
	}
	if v.paths == nil {
		v.paths = map[types.VariantPathField]string{}
	}
	if value == "" {
		delete(v.paths, field)
		return nil
	}
	v.paths[field] = value
	return nil
}

func (v *TreeVariant) Path(field types.VariantPathField) string { return v.paths[field] }

func (v *TreeVariant) String() string { return v.UID }

func (v *TreeVariant) variantID() string { return v.ID }

func (v *TreeVariant) variantUID() string { return v.UID }

func (v *TreeVariant) variantType() types.VariantType { return v.Type }

func (v *TreeVariant) variantArches() []string { return nil }

func (v *TreeVariant) validateUnder(parent *TreeVariant, hasParent bool) error {
	if v.ID == "" {
		return invalidf("variant id can not be empty")
	}
	if strings.Contains(v.ID, "-") {
		return invalidf("invalid character '-' in variant ID: %s", v.ID)
	}
	if hasParent {
		if expected := parent.UID + "-" + v.ID; v.UID != expected {
			return invalidf("invalid variant UID: %s, expected: %s", v.UID, expected)
		}
	} else if v.UID == "" {
		return invalidf("variant uid can not be empty")
	}
	if !slices.Contains(types.TreeVariantTypes(), v.Type) {
		return invalidf("invalid variant type: %s", v.Type)
	}
	return nil
}

// section is where the variant is written: addons in "addon-UID", the
// rest in "variant-UID".
func (v *TreeVariant) section() string {
	if v.Type == types.VariantTypeAddon {
		return "addon-" + v.UID
	}
	return "variant-" + v.UID
}

// TreeChecksums maps tree-relative paths to "algorithm:digest".
type TreeChecksums struct {
	entries map[string]string
}

func newTreeChecksums() *TreeChecksums {
	return &TreeChecksums{entries: map[string]string{}}
}

// Add records the checksum of relPath. With an empty value the digest
// is computed from the file under rootDir.
func (c *TreeChecksums) Add(hasher ports.HasherPort, relPath string, algorithm types.ChecksumAlgorithm, value string, rootDir string) error {
	relPath = path.Clean(relPath)
	if path.IsAbs(relPath) {
		return invalidf("relative path expected: %s", relPath)
	}
	if !types.IsChecksumAlgorithm(algorithm) {
		return invalidf("unsupported checksum type: %s", algorithm)
	}
	if value == "" {
		if hasher == nil {
			return invalidf("no checksum value for %s and no hasher to compute one", relPath)
		}
		digest, err := hasher.FileChecksum(path.Join(rootDir, relPath), algorithm)
		if err != nil {
			return wrapf(err, "checksum of %s", relPath)
		}
		value = digest
	}
	checksum := FormatChecksum(algorithm, strings.ToLower(value))
	if _, _, err := ParseChecksum(checksum); err != nil {
		return err
	}
	c.entries[relPath] = checksum
	return nil
}

func (c *TreeChecksums) Get(relPath string) (types.ChecksumAlgorithm, string, bool) {
	checksum, ok := c.entries[relPath]
	if !ok {
		return "", "", false
	}
	algorithm, digest, _ := ParseChecksum(checksum)
	return algorithm, digest, true
}

func (c *TreeChecksums) Delete(relPath string) { delete(c.entries, path.Clean(relPath)) }

func (c *TreeChecksums) Paths() []string { return sortedKeys(c.entries) }

func (c *TreeChecksums) Len() int { return len(c.entries) }

// TreeImages maps platform and image type ("kernel", "boot.iso") to a
// tree-relative path.
type TreeImages struct {
	images map[string]map[string]string
}

func newTreeImages() *TreeImages {
	return &TreeImages{images: map[string]map[string]string{}}
}

func (i *TreeImages) Set(platform string, imageType string, relPath string) error {
	if platform == "" || imageType == "" {
		return invalidf("image platform and type can not be empty")
	}
	if path.IsAbs(relPath) {
		return invalidf("relative path expected: %s", relPath)
	}
	if i.images[platform] == nil {
		i.images[platform] = map[string]string{}
	}
	i.images[platform][imageType] = relPath
	return nil
}

func (i *TreeImages) Get(platform string, imageType string) (string, bool) {
	relPath, ok := i.images[platform][imageType]
	return relPath, ok
}

func (i *TreeImages) Platforms() []string { return sortedKeys(i.images) }

func (i *TreeImages) Types(platform string) []string { return sortedKeys(i.images[platform]) }

type Stage2 struct {
	MainImage string
	InstImage string
}

type Media struct {
	DiscNum    int64
	TotalDiscs int64
}

// TreeInfo is the .treeinfo document at the root of an installable tree.
type TreeInfo struct {
	Versioned

	Header      Header
	Release     TreeRelease
	BaseProduct TreeProduct
	Tree        TreeDetails
	Variants    *VariantTree[*TreeVariant]
	Checksums   *TreeChecksums
	Images      *TreeImages
	Stage2      Stage2
	Media       Media
}

func NewTreeInfo() *TreeInfo {
	t := &TreeInfo{
		Header:    Header{Type: types.EntityKindTreeInfo},
		Variants:  NewVariantTree[*TreeVariant](),
		Checksums: newTreeChecksums(),
		Images:    newTreeImages(),
	}
	t.output = Revision12
	return t
}

func treeinfoWritable(revision FormatRevision) bool {
	return slices.Contains(treeinfoRevisions, revision)
}

// SetOutputVersion accepts 1.x revisions only.
func (t *TreeInfo) SetOutputVersion(revision FormatRevision) error {
	if !treeinfoWritable(revision) {
		return unsupportedTreeinfoVersion(revision)
	}
	t.output = revision
	return nil
}

func (t *TreeInfo) SetOutputVersionString(value string) error {
	revision, err := ParseRevision(value)
	if err != nil {
		return err
	}
	return t.SetOutputVersion(revision)
}

func unsupportedTreeinfoVersion(revision FormatRevision) error {
	supported := make([]string, 0, len(treeinfoRevisions))
	for _, r := range treeinfoRevisions {
		supported = append(supported, r.String())
	}
	return ambiguousf("Unsupported treeinfo version: %s. Supported versions: %s", revision, strings.Join(supported, ", "))
}

// AddVariant attaches v under parent. Top-level variants are keyed by
// uid, nested ones by id.
func (t *TreeInfo) AddVariant(parent Handle, v *TreeVariant) (Handle, error) {
	h := t.Variants.NewVariant(v)
	key := ""
	if parent == RootHandle {
		key = v.UID
	}
	if err := t.Variants.Add(parent, h, key); err != nil {
		return 0, err
	}
	return h, nil
}

func (t *TreeInfo) Variant(name string) (*TreeVariant, error) {
	h, err := t.Variants.Lookup(RootHandle, name)
	if err != nil {
		return nil, err
	}
	return t.Variants.MustGet(h), nil
}

// DeleteVariant removes a variant and the checksum of its repomd.xml.
func (t *TreeInfo) DeleteVariant(name string) error {
	h, err := t.Variants.Delete(RootHandle, name)
	if err != nil {
		return err
	}
	if repository := t.Variants.MustGet(h).Path(types.PathRepository); repository != "" {
		t.Checksums.Delete(repository + "/repodata/repomd.xml")
	}
	return nil
}

func (t *TreeInfo) Validate() error {
	if err := t.Release.validate("release"); err != nil {
		return err
	}
	if t.Release.IsLayered {
		if err := t.BaseProduct.validate("base_product"); err != nil {
			return err
		}
	}
	if t.Tree.Arch == "" {
		return invalidf("[tree] arch can not be empty")
	}
	if err := t.Variants.Validate(); err != nil {
		return err
	}
	platforms := t.Tree.AllPlatforms()
	for _, platform := range t.Images.Platforms() {
		if !slices.Contains(platforms, platform) {
			return invalidf("platform '%s' is not listed in [tree] platforms %v", platform, platforms)
		}
	}
	for _, relPath := range t.Checksums.Paths() {
		if path.IsAbs(relPath) {
			return invalidf("relative path expected: %s", relPath)
		}
	}
	if path.IsAbs(t.Stage2.MainImage) || path.IsAbs(t.Stage2.InstImage) {
		return invalidf("[stage2] relative paths expected")
	}
	return nil
}

// Encode writes t as a 1.x .treeinfo with sorted sections and keys,
// followed by the [general] section older installers read.
func (t *TreeInfo) Encode(force FormatRevision) (*ini.File, error) {
	revision := force
	if revision == RevisionUnset {
		revision = t.output
	}
	if !treeinfoWritable(revision) {
		return nil, unsupportedTreeinfoVersion(revision)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	w := newINIWriter()
	w.set("header", "version", revision.String())
	if revision >= Revision11 {
		w.set("header", "type", string(types.EntityKindTreeInfo))
	}

	w.set("release", "name", t.Release.Name)
	w.set("release", "version", t.Release.Version)
	w.set("release", "short", t.Release.Short)
	if t.Release.IsLayered {
		w.set("release", "is_layered", "true")
		w.set("base_product", "name", t.BaseProduct.Name)
		w.set("base_product", "version", t.BaseProduct.Version)
		w.set("base_product", "short", t.BaseProduct.Short)
	}

	platforms := t.Tree.AllPlatforms()
	w.set("tree", "arch", t.Tree.Arch)
	w.set("tree", "platforms", strings.Join(platforms, ","))
	w.set("tree", "build_timestamp", strconv.FormatInt(t.Tree.BuildTimestamp, 10))

	roots := t.Variants.Keys(RootHandle)
	w.set("tree", "variants", strings.Join(roots, ","))
	if err := t.Variants.Walk(func(h Handle, v *TreeVariant) error {
		section := v.section()
		w.set(section, "id", v.ID)
		w.set(section, "uid", v.UID)
		w.set(section, "name", v.Name)
		w.set(section, "type", string(v.Type))
		for _, field := range types.TreePathFields() {
			w.setIf(section, string(field), v.Path(field))
		}
		if parent, ok := t.Variants.Parent(h); ok {
			w.set(section, "parent", t.Variants.MustGet(parent).UID)
		}
		if children := t.Variants.Children(h); len(children) > 0 {
			uids := make([]string, 0, len(children))
			for _, child := range children {
				uids = append(uids, t.Variants.MustGet(child).UID)
			}
			w.set(section, "addons", strings.Join(sortedUnique(uids), ","))
		}
		return nil
	}); err != nil {
		return nil, err
	}

	for _, relPath := range t.Checksums.Paths() {
		w.set("checksums", relPath, t.Checksums.entries[relPath])
	}
	for _, platform := range t.Images.Platforms() {
		for _, imageType := range t.Images.Types(platform) {
			w.set("images-"+platform, imageType, t.Images.images[platform][imageType])
		}
	}
	w.setIf("stage2", "mainimage", t.Stage2.MainImage)
	w.setIf("stage2", "instimage", t.Stage2.InstImage)
	if t.Media.DiscNum != 0 || t.Media.TotalDiscs != 0 {
		w.set("media", "discnum", strconv.FormatInt(t.Media.DiscNum, 10))
		w.set("media", "totaldiscs", strconv.FormatInt(t.Media.TotalDiscs, 10))
	}

	t.encodeGeneral(w, platforms, roots)
	return w.file()
}

func (t *TreeInfo) encodeGeneral(w *iniWriter, platforms []string, roots []string) {
	w.set("general", "; WARNING.0", "This section provides compatibility with pre-productmd treeinfos.")
	w.set("general", "; WARNING.1", "Read productmd documentation for details about new format.")
	w.set("general", "name", strings.TrimSpace(t.Release.Name+" "+t.Release.Version))
	w.set("general", "family", t.Release.Name)
	w.set("general", "version", t.Release.Version)
	w.set("general", "arch", t.Tree.Arch)
	w.set("general", "platforms", strings.Join(platforms, ","))
	w.set("general", "timestamp", strconv.FormatInt(t.Tree.BuildTimestamp, 10))
	if len(roots) == 0 {
		return
	}
	w.set("general", "variants", strings.Join(roots, ","))
	w.set("general", "variant", roots[0])
	first := t.Variants.MustGet(t.Variants.Children(RootHandle)[0])
	packages, repository := first.Path(types.PathPackages), first.Path(types.PathRepository)
	if t.Tree.Arch == "src" {
		packages, repository = first.Path(types.PathSourcePackages), first.Path(types.PathSourceRepository)
	}
	w.setIf("general", "packagedir", packages)
	w.setIf("general", "repository", repository)
}

// Decode replaces t with the content of f. Files without a [header]
// version are read as pre-productmd treeinfos. t is left untouched when
// decoding fails.
func (t *TreeInfo) Decode(f *ini.File) error {
	r := iniReader{f: f}
	revision := Revision00
	if version, ok := r.opt("header", "version"); ok {
		parsed, err := ParseRevision(version)
		if err != nil {
			return err
		}
		revision = parsed
	}
	if revision > Revision12 {
		return unsupportedTreeinfoVersion(revision)
	}
	declared, _ := r.opt("header", "type")
	if revision >= Revision11 && declared != string(types.EntityKindTreeInfo) {
		return invalidf("invalid metadata type '%s', expected '%s'", declared, types.EntityKindTreeInfo)
	}

	out := NewTreeInfo()
	out.Header.Version = revision.String()
	d := &treeinfoDecoder{r: r, out: out}
	var err error
	switch revision {
	case Revision00:
		err = d.decode00()
	case Revision03:
		err = d.decode03()
	default:
		err = d.decode10()
	}
	if err != nil {
		return err
	}
	if err := out.Validate(); err != nil {
		return err
	}
	if revision < Revision10 {
		log.Debug().Str("from", revision.String()).Msg("upgraded legacy treeinfo")
	}
	out.stamp(revision)
	*t = *out
	return nil
}

type treeinfoDecoder struct {
	r   iniReader
	out *TreeInfo
	// sectionFor and readPaths differ between 0.3 and 1.x files.
	sectionFor func(uid string, nested bool) (string, bool)
	readPaths  func(section string, v *TreeVariant) error
}

func (d *treeinfoDecoder) decode10() error {
	d.sectionFor, d.readPaths = d.variantSection10, d.variantPaths10
	if err := d.decodeRelease10("release"); err != nil {
		return err
	}
	if err := d.decodeTree10(); err != nil {
		return err
	}
	if err := d.decodeVariants10(); err != nil {
		return err
	}
	return d.decodeCommon(false)
}

func (d *treeinfoDecoder) decodeRelease10(section string) error {
	release := &d.out.Release
	var err error
	if release.Name, err = d.r.req(section, "name"); err != nil {
		return err
	}
	if release.Version, err = d.r.req(section, "version"); err != nil {
		return err
	}
	release.Short = d.r.optDefault(section, "short", release.Name)
	if release.IsLayered, err = d.r.optBool(section, "is_layered"); err != nil {
		return err
	}
	if !release.IsLayered {
		return nil
	}
	base := &d.out.BaseProduct
	if base.Name, err = d.r.req("base_product", "name"); err != nil {
		return err
	}
	if base.Version, err = d.r.req("base_product", "version"); err != nil {
		return err
	}
	base.Short = d.r.optDefault("base_product", "short", base.Name)
	return nil
}

// decodeTree10 reads [tree], falling back to [general] for files that
// predate it.
func (d *treeinfoDecoder) decodeTree10() error {
	section := "tree"
	if !d.r.hasSection(section) {
		section = "general"
	}
	tree := &d.out.Tree
	var err error
	if tree.Arch, err = d.r.req(section, "arch"); err != nil {
		return err
	}
	tree.Platforms = sortedUnique(splitList(d.r.optDefault(section, "platforms", "")))
	tree.BuildTimestamp = -1
	if section == "tree" {
		if tree.BuildTimestamp, err = d.r.reqInt(section, "build_timestamp"); err != nil {
			return err
		}
	}
	return nil
}

func (d *treeinfoDecoder) variantPaths10(section string, v *TreeVariant) error {
	for _, field := range types.TreePathFields() {
		if value, ok := d.r.opt(section, string(field)); ok {
			if err := v.SetPath(field, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *treeinfoDecoder) variantSection10(uid string, nested bool) (string, bool) {
	candidates := []string{"variant-" + uid, "addon-" + uid}
	if nested {
		candidates = []string{"addon-" + uid, "variant-" + uid}
	}
	for _, name := range candidates {
		if d.r.hasSection(name) {
			return name, true
		}
	}
	return "", false
}

func (d *treeinfoDecoder) decodeVariants10() error {
	for _, uid := range splitList(d.r.optDefault("tree", "variants", "")) {
		if err := d.decodeVariant10(RootHandle, uid); err != nil {
			return err
		}
	}
	return nil
}

func (d *treeinfoDecoder) decodeVariant10(parent Handle, uid string) error {
	nested := parent != RootHandle
	section, ok := d.sectionFor(uid, nested)
	if !ok {
		return invalidf("variant section not found: %s", uid)
	}
	v := NewTreeVariant("", uid, "", "")
	var err error
	if v.ID, err = d.r.req(section, "id"); err != nil {
		return err
	}
	if v.UID, err = d.r.req(section, "uid"); err != nil {
		return err
	}
	if v.Name, err = d.r.req(section, "name"); err != nil {
		return err
	}
	variantType, err := d.r.req(section, "type")
	if err != nil {
		return err
	}
	v.Type = types.VariantType(variantType)
	if err := d.readPaths(section, v); err != nil {
		return err
	}
	h, err := d.out.AddVariant(parent, v)
	if err != nil {
		return wrapf(err, "[%s]", section)
	}
	addons, ok := d.r.opt(section, "addons")
	if !ok {
		addons = d.r.optDefault(section, "variants", "")
	}
	for _, child := range splitList(addons) {
		if err := d.decodeVariant10(h, child); err != nil {
			return err
		}
	}
	return nil
}

// decodeCommon reads the sections shared by every revision. legacy
// turns on path fixing for absolute and "/os/" prefixed paths.
func (d *treeinfoDecoder) decodeCommon(legacy bool) error {
	fix := func(p string) string { return p }
	if legacy {
		fix = fixLegacyPath
	}
	if err := d.decodeChecksums(fix); err != nil {
		return err
	}
	for _, platform := range d.imagePlatforms() {
		section := "images-" + platform
		name := platform
		if arch := d.out.Tree.Arch; platform != arch {
			name = strings.TrimSuffix(platform, "-"+arch)
		}
		for _, imageType := range d.r.keys(section) {
			value, _ := d.r.opt(section, imageType)
			if err := d.out.Images.Set(name, imageType, fix(value)); err != nil {
				return wrapf(err, "[%s]", section)
			}
		}
	}
	d.out.Stage2.MainImage = fix(d.r.optDefault("stage2", "mainimage", ""))
	d.out.Stage2.InstImage = fix(d.r.optDefault("stage2", "instimage", ""))
	if legacy {
		return d.decodeMedia00()
	}
	if d.r.hasSection("media") {
		var err error
		if d.out.Media.DiscNum, err = d.r.reqInt("media", "discnum"); err != nil {
			return err
		}
		if d.out.Media.TotalDiscs, err = d.r.reqInt("media", "totaldiscs"); err != nil {
			return err
		}
	}
	return nil
}

// imagePlatforms returns the platform part of every [images-*] section.
func (d *treeinfoDecoder) imagePlatforms() []string {
	var out []string
	for _, name := range d.r.sectionNames() {
		if platform, ok := strings.CutPrefix(name, "images-"); ok {
			out = append(out, platform)
		}
	}
	return out
}

func (d *treeinfoDecoder) decodeChecksums(fix func(string) string) error {
	for _, key := range d.r.keys("checksums") {
		value, _ := d.r.opt("checksums", key)
		value = strings.TrimSpace(value)
		algorithm, digest, ok := strings.Cut(value, ":")
		if !ok {
			// Bare digests are classified by length.
			digest = value
			switch len(value) {
			case 32:
				algorithm = string(types.ChecksumMD5)
			case 40:
				algorithm = string(types.ChecksumSHA1)
			case 64:
				algorithm = string(types.ChecksumSHA256)
			default:
				return invalidf("[checksums] %s: cannot determine checksum type of %q", key, value)
			}
		}
		if err := d.out.Checksums.Add(nil, fix(key), types.ChecksumAlgorithm(algorithm), digest, ""); err != nil {
			return wrapf(err, "[checksums] %s", key)
		}
	}
	return nil
}

// fixLegacyPath makes a pre-productmd path relative to the tree root.
func fixLegacyPath(p string) string {
	if !strings.HasPrefix(p, "/") {
		return p
	}
	if _, rest, ok := strings.Cut(p, "/os/"); ok {
		return rest
	}
	return strings.TrimLeft(p, "/")
}
