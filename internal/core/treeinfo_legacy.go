package core

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"productmd/internal/types"
)

// Compatibility rules for .treeinfo files written before productmd
// (0.0) and by its first releases (0.3).

var (
	legacyVersionTokenRe = regexp.MustCompile(`^\d+(\.\d+)*$`)
	legacyVersionSplitRe = regexp.MustCompile(`[-_]`)
)

// legacyProduct maps a [general] family to a release name and short.
// An empty name keeps the family.
type legacyProduct struct {
	prefix bool
	family string
	name   string
	short  string
}

var legacyProducts = []legacyProduct{
	{prefix: true, family: "Red Hat Enterprise Linux", name: "Red Hat Enterprise Linux", short: "RHEL"},
	{family: "Subscription Asset Manager", short: "SAM"},
	{family: "Red Hat Storage", short: "RHS"},
	{family: "JBEAP", short: "JBEAP"},
	{family: "Red Hat Storage Software Appliance", short: "SSA"},
	{prefix: true, family: "Fedora", name: "Fedora", short: "Fedora"},
	{prefix: true, family: "CentOS", name: "CentOS", short: "CentOS"},
}

// legacyRootVariants names the variant of single-variant trees that
// carry no [general] variant option.
var legacyRootVariants = map[string]string{
	"Red Hat Enterprise Linux Server": "Server",
	"Red Hat Enterprise Linux Client": "Client",
	"CentOS":                          "CentOS",
}

// rhel5Addons returns the addons RHEL 5 trees shipped for a variant.
// The bool is false when the tree's own list applies.
func rhel5Addons(uid string, arch string, minor string) ([]string, bool) {
	switch uid {
	case "Client":
		return []string{"VT", "Workstation"}, true
	case "Server":
		switch arch {
		case "i386", "ia64", "x86_64":
			return []string{"Cluster", "ClusterStorage", "VT"}, true
		case "ppc":
			if minor == "0" {
				return nil, true
			}
			return []string{"Cluster", "ClusterStorage"}, true
		case "s390x":
			return nil, true
		}
	}
	return nil, false
}

func (d *treeinfoDecoder) isRHEL(majors ...string) bool {
	return d.out.Release.Short == "RHEL" && slices.Contains(majors, MajorVersion(d.out.Release.Version))
}

// ----------------------------------------------------------------------------
// 0.3
// ----------------------------------------------------------------------------

func (d *treeinfoDecoder) decode03() error {
	d.sectionFor, d.readPaths = d.variantSection03, d.variantPaths03
	release := &d.out.Release
	var err error
	if release.Name, err = d.r.req("product", "name"); err != nil {
		return err
	}
	if release.Version, err = d.r.req("product", "version"); err != nil {
		return err
	}
	if release.Short, err = d.r.req("product", "short"); err != nil {
		return err
	}
	if release.IsLayered, err = d.r.optBool("product", "is_layered"); err != nil {
		return err
	}
	if release.IsLayered {
		base := &d.out.BaseProduct
		if base.Name, err = d.r.req("base_product", "name"); err != nil {
			return err
		}
		if base.Version, err = d.r.req("base_product", "version"); err != nil {
			return err
		}
		base.Short = d.r.optDefault("base_product", "short", base.Name)
	}
	if err := d.decodeTree10(); err != nil {
		return err
	}
	if err := d.decodeVariants10(); err != nil {
		return err
	}
	return d.decodeCommon(false)
}

func (d *treeinfoDecoder) variantSection03(uid string, _ bool) (string, bool) {
	for _, name := range []string{"variant-" + uid, "addon-" + uid} {
		if d.r.hasSection(name) {
			return name, true
		}
	}
	return "", false
}

func (d *treeinfoDecoder) variantPaths03(_ string, v *TreeVariant) error {
	for _, field := range types.TreePathFields() {
		value, ok := d.r.lookup([][2]string{
			{"variant-" + v.UID, string(field)},
			{"variant-" + v.ID, string(field)},
			{"addon-" + v.UID, string(field)},
			{"addon-" + v.ID, string(field)},
		})
		if !ok {
			continue
		}
		if err := v.SetPath(field, value); err != nil {
			return err
		}
	}
	d.moveSourcePaths(v)
	return nil
}

// moveSourcePaths files the binary paths of a source tree under the
// source fields.
func (d *treeinfoDecoder) moveSourcePaths(v *TreeVariant) {
	if d.out.Tree.Arch != "src" {
		return
	}
	v.paths[types.PathSourcePackages] = v.paths[types.PathPackages]
	v.paths[types.PathSourceRepository] = v.paths[types.PathRepository]
	delete(v.paths, types.PathPackages)
	delete(v.paths, types.PathRepository)
	for _, field := range []types.VariantPathField{types.PathSourcePackages, types.PathSourceRepository} {
		if v.paths[field] == "" {
			delete(v.paths, field)
		}
	}
}

// ----------------------------------------------------------------------------
// 0.0
// ----------------------------------------------------------------------------

func (d *treeinfoDecoder) decode00() error {
	if err := d.decodeRelease00(); err != nil {
		return err
	}
	if err := d.decodeTree00(); err != nil {
		return err
	}
	roots, err := d.rootVariants00()
	if err != nil {
		return err
	}
	for _, uid := range roots {
		if err := d.decodeVariant00(RootHandle, uid); err != nil {
			return err
		}
	}
	return d.decodeCommon(true)
}

func (d *treeinfoDecoder) decodeRelease00() error {
	release := &d.out.Release
	var err error
	if release.Name, err = d.r.req("general", "family"); err != nil {
		return err
	}
	if release.Version, err = d.r.req("general", "version"); err != nil {
		return err
	}
	// "5.3-Server" and "Server_5.3" both give 5.3; the last numeric
	// token wins.
	for _, token := range legacyVersionSplitRe.Split(release.Version, -1) {
		if legacyVersionTokenRe.MatchString(token) {
			release.Version = token
		}
	}
	family := release.Name
	for _, product := range legacyProducts {
		if product.family != family && !(product.prefix && strings.HasPrefix(family, product.family)) {
			continue
		}
		if product.name != "" {
			release.Name = product.name
		}
		release.Short = product.short
		return nil
	}
	release.Short = ""
	return nil
}

func (d *treeinfoDecoder) decodeTree00() error {
	tree := &d.out.Tree
	var err error
	if tree.Arch, err = d.r.req("general", "arch"); err != nil {
		return err
	}
	platforms := []string{tree.Arch}
	if d.r.hasSection(tree.Arch) {
		platforms = append(platforms, splitList(d.r.optDefault(tree.Arch, "platforms", ""))...)
	}
	for _, platform := range d.imagePlatforms() {
		if platform != tree.Arch {
			platform = strings.TrimSuffix(platform, "-"+tree.Arch)
		}
		platforms = append(platforms, platform)
	}
	tree.Platforms = sortedUnique(platforms)

	tree.BuildTimestamp = -1
	if value, ok := d.r.opt("general", "timestamp"); ok {
		timestamp, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return invalidf("[general] timestamp: expected number, got %q", value)
		}
		tree.BuildTimestamp = int64(timestamp)
	}
	return nil
}

func (d *treeinfoDecoder) rootVariants00() ([]string, error) {
	variant, hasVariant := d.r.opt("general", "variant")
	if !hasVariant {
		family, err := d.r.req("general", "family")
		if err != nil {
			return nil, err
		}
		if uid, ok := legacyRootVariants[family]; ok {
			return []string{uid}, nil
		}
	}
	if variant != "" {
		return []string{variant}, nil
	}
	var out []string
	for _, name := range d.r.sectionNames() {
		if uid, ok := strings.CutPrefix(name, "variant-"); ok && !strings.Contains(uid, "-") {
			out = append(out, uid)
		}
	}
	if len(out) == 0 {
		out = []string{d.out.Release.Short}
	}
	return out, nil
}

// decodeVariant00 reads a top-level variant and, for plain variants,
// its addons. Addons themselves are not searched for further addons.
func (d *treeinfoDecoder) decodeVariant00(parent Handle, uid string) error {
	nested := parent != RootHandle
	id := uid[strings.LastIndex(uid, "-")+1:]
	v := NewTreeVariant(id, uid, "", "")

	candidates := []string{"addon-" + uid, "addon-" + id, "variant-" + uid, "variant-" + id}
	section := candidates[len(candidates)-1]
	for _, name := range candidates {
		if value, ok := d.r.opt(name, "type"); ok {
			v.Type, section = types.VariantType(value), name
			break
		}
		if d.r.hasSection(name) {
			section = name
			switch {
			case strings.Contains(name, "addon"):
				v.Type = types.VariantTypeAddon
			case strings.Contains(id, "optional"):
				v.Type = types.VariantTypeOptional
			default:
				v.Type = types.VariantTypeVariant
			}
			break
		}
	}
	if v.Type == "" {
		v.Type = types.VariantTypeVariant
	}
	if nested {
		v.Type = types.VariantTypeAddon
	}
	v.Name = d.r.optDefault(section, "name", id)
	if err := d.variantPaths00(v); err != nil {
		return err
	}
	h, err := d.out.AddVariant(parent, v)
	if err != nil {
		return wrapf(err, "variant %s", uid)
	}
	if nested || v.Type != types.VariantTypeVariant {
		return nil
	}

	addons := splitList(d.r.optDefault(section, "addons", d.r.optDefault(section, "variants", d.r.optDefault("general", "addons", ""))))
	if d.isRHEL("5") {
		minor, _ := MinorVersion(d.out.Release.Version)
		if fixed, ok := rhel5Addons(uid, d.out.Tree.Arch, minor); ok {
			addons = fixed
		}
	}
	for _, addon := range addons {
		addonUID := addon
		if !strings.HasPrefix(addonUID, uid+"-") {
			addonUID = uid + "-" + addonUID
		}
		if err := d.decodeVariant00(h, addonUID); err != nil {
			return err
		}
	}
	return nil
}

func (d *treeinfoDecoder) variantPaths00(v *TreeVariant) error {
	repository, ok := d.r.lookup([][2]string{
		{"variant-" + v.ID, "repository"},
		{"addon-" + v.ID, "repository"},
		{"general", "repository"},
	})
	if !ok {
		repository = "."
	}
	repository = strings.TrimRight(repository, "/")
	if repository == "" {
		repository = "."
	}
	repository = strings.TrimSuffix(repository, "/repodata")
	if repository == "." {
		switch {
		case d.isRHEL("5", "6"):
			// repositories are named after variants
			repository = v.ID
		case d.isRHEL("3", "4"):
			repository = ""
		}
	}

	var candidates [][2]string
	for _, name := range []string{"variant-" + v.UID, "addon-" + v.UID, "variant-" + v.ID, "addon-" + v.ID} {
		candidates = append(candidates, [2]string{name, "packages"}, [2]string{name, "packagedir"})
	}
	candidates = append(candidates,
		[2]string{"general", "packages"},
		[2]string{"general", "packagedir"},
		[2]string{"general", "packagedirs"},
	)
	packages, ok := d.r.lookup(candidates)
	if !ok {
		packages = repository
	}
	packages = strings.TrimRight(packages, "/")
	if packages == "" {
		packages = "."
	}
	switch {
	case d.isRHEL("5"):
		packages = v.ID
	case d.isRHEL("3", "4"):
		packages = "RedHat/RPMS"
	case d.out.Release.Short == "Fedora" && packages == ".":
		packages = "Packages"
	}

	if err := v.SetPath(types.PathRepository, repository); err != nil {
		return err
	}
	if err := v.SetPath(types.PathPackages, packages); err != nil {
		return err
	}
	d.moveSourcePaths(v)

	identity, _ := d.r.lookup([][2]string{
		{"variant-" + v.UID, "identity"},
		{"addon-" + v.UID, "identity"},
		{"variant-" + v.ID, "identity"},
		{"addon-" + v.ID, "identity"},
		{"general", "identity"},
	})
	return v.SetPath(types.PathIdentity, identity)
}

func (d *treeinfoDecoder) decodeMedia00() error {
	if !d.r.has("general", "discnum") && !d.r.has("general", "totaldiscs") {
		return nil
	}
	d.out.Media.DiscNum = 1
	if d.r.has("general", "discnum") {
		discnum, err := d.r.reqInt("general", "discnum")
		if err != nil {
			return err
		}
		d.out.Media.DiscNum = discnum
	}
	d.out.Media.TotalDiscs = d.out.Media.DiscNum
	if d.r.has("general", "totaldiscs") {
		total, err := d.r.reqInt("general", "totaldiscs")
		if err != nil {
			return err
		}
		d.out.Media.TotalDiscs = total
	}
	return nil
}
