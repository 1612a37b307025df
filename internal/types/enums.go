package types

type ComposeType string

const (
	ComposeTypeTest        ComposeType = "test"
	ComposeTypeCI          ComposeType = "ci"
	ComposeTypeNightly     ComposeType = "nightly"
	ComposeTypeProduction  ComposeType = "production"
	ComposeTypeDevelopment ComposeType = "development"
)

type ReleaseType string

const (
	ReleaseTypeFast    ReleaseType = "fast"
	ReleaseTypeGA      ReleaseType = "ga"
	ReleaseTypeUpdates ReleaseType = "updates"
	ReleaseTypeEUS     ReleaseType = "eus"
	ReleaseTypeAUS     ReleaseType = "aus"
	ReleaseTypeELS     ReleaseType = "els"
	ReleaseTypeTUS     ReleaseType = "tus"
	ReleaseTypeE4S     ReleaseType = "e4s"
	ReleaseTypeCI      ReleaseType = "ci"

	ReleaseTypeTestingSuffix = "-testing"
)

type VariantType string

const (
	VariantTypeVariant        VariantType = "variant"
	VariantTypeOptional       VariantType = "optional"
	VariantTypeAddon          VariantType = "addon"
	VariantTypeLayeredProduct VariantType = "layered-product"

	// VariantTypeSelf is a filter-only pseudo type selecting the container
	// a query starts from.
	VariantTypeSelf VariantType = "self"
)

type RpmCategory string

const (
	RpmCategoryBinary RpmCategory = "binary"
	RpmCategoryDebug  RpmCategory = "debug"
	RpmCategorySource RpmCategory = "source"
)

type ChecksumAlgorithm string

const (
	ChecksumMD5    ChecksumAlgorithm = "md5"
	ChecksumSHA1   ChecksumAlgorithm = "sha1"
	ChecksumSHA256 ChecksumAlgorithm = "sha256"
	ChecksumSHA512 ChecksumAlgorithm = "sha512"
)

// EntityKind is the header type tag of a versioned manifest.
type EntityKind string

const (
	EntityKindComposeInfo EntityKind = "productmd.composeinfo"
	EntityKindRpms        EntityKind = "productmd.rpms"
	EntityKindImages      EntityKind = "productmd.images"
	EntityKindModules     EntityKind = "productmd.modules"
	EntityKindExtraFiles  EntityKind = "productmd.extra_files"
	EntityKindTreeInfo    EntityKind = "productmd.treeinfo"
	EntityKindDiscInfo    EntityKind = "productmd.discinfo"
)

type VariantPathField string

const (
	PathOSTree           VariantPathField = "os_tree"
	PathPackages         VariantPathField = "packages"
	PathRepository       VariantPathField = "repository"
	PathIsos             VariantPathField = "isos"
	PathJigdos           VariantPathField = "jigdos"
	PathSourceTree       VariantPathField = "source_tree"
	PathSourcePackages   VariantPathField = "source_packages"
	PathSourceRepository VariantPathField = "source_repository"
	PathSourceIsos       VariantPathField = "source_isos"
	PathSourceJigdos     VariantPathField = "source_jigdos"
	PathDebugTree        VariantPathField = "debug_tree"
	PathDebugPackages    VariantPathField = "debug_packages"
	PathDebugRepository  VariantPathField = "debug_repository"
	PathIdentity         VariantPathField = "identity"
)

// Encoding selects the text or binary form of a generic manifest tree.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingYAML Encoding = "yaml"
	EncodingCBOR Encoding = "cbor"
	EncodingINI  Encoding = "ini"
	EncodingText Encoding = "text"
)
