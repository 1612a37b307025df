package app

import (
	"time"

	"productmd/internal/core"
	"productmd/internal/types"
)

type ValidateRequest struct {
	Path string
}

type ValidateResult struct {
	Kind      types.EntityKind
	Revision  core.FormatRevision
	ComposeID string
}

type ConvertRequest struct {
	Path   string
	Output string
	// Version is the target revision, empty for the source revision.
	Version string
	// Encoding overrides the encoding picked from the output name.
	Encoding types.Encoding
}

type ConvertResult struct {
	Kind     types.EntityKind
	From     core.FormatRevision
	To       core.FormatRevision
	Encoding types.Encoding
	Output   string
}

type InspectRequest struct {
	Path string
}

type InspectVariant struct {
	UID    string
	Type   types.VariantType
	Arches []string
	Count  int
}

type InspectResult struct {
	Kind      types.EntityKind
	Revision  core.FormatRevision
	ComposeID string
	Release   string
	Variants  []InspectVariant
	Entries   int
	// TotalSize is the sum of known artifact sizes in bytes.
	TotalSize int64
	// HumanSize is TotalSize formatted for display.
	HumanSize string
}

type VerifyRequest struct {
	ComposePath string
}

type VerifyFailure struct {
	Artifact string
	Path     string
	Reason   string
}

type VerifyResult struct {
	ComposeID string
	CheckedAt time.Time
	Checked   int
	Failures  []VerifyFailure
}

type PublishRequest struct {
	Path    string
	Output  string
	BaseURL string
}

type PublishResult struct {
	Kind      types.EntityKind
	Output    string
	Locations int
}

type ComposeIDResult struct {
	ID core.ComposeID
}

type ReleaseIDRequest struct {
	Short       string
	Version     string
	Type        types.ReleaseType
	BaseShort   string
	BaseVersion string
	BaseType    types.ReleaseType
}
