package types

import "slices"

// Tables in this file are built once at package initialisation and only
// exposed through accessors that hand out copies.

var composeTypeOrder = []ComposeType{
	ComposeTypeTest,
	ComposeTypeCI,
	ComposeTypeNightly,
	ComposeTypeProduction,
	ComposeTypeDevelopment,
}

var composeTypeSuffix = map[ComposeType]string{
	ComposeTypeProduction:  "",
	ComposeTypeNightly:     ".n",
	ComposeTypeTest:        ".t",
	ComposeTypeCI:          ".ci",
	ComposeTypeDevelopment: ".d",
}

// composeTypeCodes maps every accepted date-type token to its compose type.
var composeTypeCodes = map[string]ComposeType{
	"t":           ComposeTypeTest,
	"test":        ComposeTypeTest,
	"ci":          ComposeTypeCI,
	"n":           ComposeTypeNightly,
	"nightly":     ComposeTypeNightly,
	"d":           ComposeTypeDevelopment,
	"development": ComposeTypeDevelopment,
}

var releaseTypeBases = []ReleaseType{
	ReleaseTypeFast,
	ReleaseTypeGA,
	ReleaseTypeUpdates,
	ReleaseTypeEUS,
	ReleaseTypeAUS,
	ReleaseTypeELS,
	ReleaseTypeTUS,
	ReleaseTypeE4S,
	ReleaseTypeCI,
}

var labelNames = []string{
	"EA",
	"DevelPhaseExit",
	"InternalAlpha",
	"Alpha",
	"InternalSnapshot",
	"Beta",
	"Snapshot",
	"RC",
	"Update",
	"SecurityFix",
}

var supportedMilestones = map[string]struct{}{
	"RC":          {},
	"Update":      {},
	"SecurityFix": {},
}

var composeVariantTypes = []VariantType{
	VariantTypeVariant,
	VariantTypeOptional,
	VariantTypeAddon,
	VariantTypeLayeredProduct,
}

var treeVariantTypes = []VariantType{
	VariantTypeVariant,
	VariantTypeOptional,
	VariantTypeAddon,
}

var rpmCategories = []RpmCategory{
	RpmCategoryBinary,
	RpmCategoryDebug,
	RpmCategorySource,
}

var checksumPreference = []ChecksumAlgorithm{
	ChecksumSHA256,
	ChecksumSHA512,
	ChecksumSHA1,
	ChecksumMD5,
}

var imageTypes = []string{
	"boot", "cd", "docker", "dvd", "ec2", "kvm", "live", "netinst", "p2v",
	"qcow2", "raw-xz", "rescue", "vagrant-libvirt", "vagrant-virtualbox",
}

var imageFormats = []string{
	"iso", "qcow", "qcow2", "raw", "raw.xz", "rhevm.ova", "sda.raw",
	"tar.gz", "tar.xz", "vagrant-libvirt.box", "vagrant-virtualbox.box",
	"vdi", "vmdk", "vmx", "vsphere.ova",
}

var rpmArches = []string{
	"aarch64",
	"alpha", "alphaev4", "alphaev45", "alphaev5", "alphaev56", "alphaev6",
	"alphaev67", "alphaev68", "alphaev7", "alphapca56",
	"amd64", "arm64", "armhfp",
	"armv5tejl", "armv5tel", "armv6hl", "armv6l", "armv7hl", "armv7hnl", "armv7l",
	"athlon", "geode",
	"i386", "i486", "i586", "i686", "ia32e", "ia64",
	"ppc", "ppc64", "ppc64iseries", "ppc64le", "ppc64p7", "ppc64pseries",
	"s390", "s390x",
	"sh3", "sh4", "sh4a",
	"sparc", "sparc64", "sparc64v", "sparcv8", "sparcv9", "sparcv9v",
	"x86_64",
	"src", "nosrc", "noarch",
}

var composePathFields = []VariantPathField{
	PathOSTree,
	PathPackages,
	PathRepository,
	PathIsos,
	PathJigdos,
	PathSourceTree,
	PathSourcePackages,
	PathSourceRepository,
	PathSourceIsos,
	PathSourceJigdos,
	PathDebugTree,
	PathDebugPackages,
	PathDebugRepository,
	PathIdentity,
}

var treePathFields = []VariantPathField{
	PathPackages,
	PathRepository,
	PathSourcePackages,
	PathSourceRepository,
	PathDebugPackages,
	PathDebugRepository,
	PathIdentity,
}

var (
	rpmArchSet     = toSet(rpmArches)
	imageTypeSet   = toSet(imageTypes)
	imageFormatSet = toSet(imageFormats)
)

func toSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, value := range values {
		out[value] = struct{}{}
	}
	return out
}

// ComposeTypes returns compose types from least to most important.
func ComposeTypes() []ComposeType { return slices.Clone(composeTypeOrder) }

// ComposeTypeRank returns the position of t in the importance order, or -1.
func ComposeTypeRank(t ComposeType) int { return slices.Index(composeTypeOrder, t) }

// ComposeTypeSuffix returns the date-type code written after the compose date.
func ComposeTypeSuffix(t ComposeType) (string, bool) {
	suffix, ok := composeTypeSuffix[t]
	return suffix, ok
}

// ComposeTypeFromCode resolves a date-type token such as "n" or "nightly".
func ComposeTypeFromCode(code string) (ComposeType, bool) {
	t, ok := composeTypeCodes[code]
	return t, ok
}

func ReleaseTypeBases() []ReleaseType { return slices.Clone(releaseTypeBases) }

func LabelNames() []string { return slices.Clone(labelNames) }

// LabelRank returns the position of a milestone name, or -1.
func LabelRank(name string) int { return slices.Index(labelNames, name) }

func IsSupportedMilestone(name string) bool {
	_, ok := supportedMilestones[name]
	return ok
}

func ComposeVariantTypes() []VariantType { return slices.Clone(composeVariantTypes) }

func TreeVariantTypes() []VariantType { return slices.Clone(treeVariantTypes) }

func RpmCategories() []RpmCategory { return slices.Clone(rpmCategories) }

func IsRpmCategory(c RpmCategory) bool { return slices.Contains(rpmCategories, c) }

// ChecksumPreference lists algorithms from most to least preferred.
func ChecksumPreference() []ChecksumAlgorithm { return slices.Clone(checksumPreference) }

func IsChecksumAlgorithm(a ChecksumAlgorithm) bool { return slices.Contains(checksumPreference, a) }

func ImageTypes() []string { return slices.Clone(imageTypes) }

func IsImageType(t string) bool {
	_, ok := imageTypeSet[t]
	return ok
}

func ImageFormats() []string { return slices.Clone(imageFormats) }

func IsImageFormat(f string) bool {
	_, ok := imageFormatSet[f]
	return ok
}

func RPMArches() []string { return slices.Clone(rpmArches) }

func IsRPMArch(arch string) bool {
	_, ok := rpmArchSet[arch]
	return ok
}

// IsSourceArch reports whether arch names source packages.
func IsSourceArch(arch string) bool { return arch == "src" || arch == "nosrc" }

func ComposePathFields() []VariantPathField { return slices.Clone(composePathFields) }

func TreePathFields() []VariantPathField { return slices.Clone(treePathFields) }
