package app

import (
	"context"

	"github.com/inhies/go-bytesize"

	"productmd/internal/core"
)

func (s Service) Inspect(ctx context.Context, req InspectRequest) (InspectResult, error) {
	location, err := requirePath(req.Path, "metadata path")
	if err != nil {
		return InspectResult{}, err
	}
	doc, err := s.load(ctx, location)
	if err != nil {
		return InspectResult{}, err
	}
	result := InspectResult{Kind: doc.kind, Revision: doc.source}
	switch {
	case doc.treeinfo != nil:
		summarizeTreeInfo(doc.treeinfo, &result)
	case doc.discinfo != nil:
		result.Release = doc.discinfo.Description
		result.Entries = len(doc.discinfo.DiscNumbers)
		result.Variants = []InspectVariant{{UID: doc.discinfo.Arch, Arches: []string{doc.discinfo.Arch}}}
	default:
		summarizeManifest(doc.manifest, &result)
	}
	result.HumanSize = bytesize.New(float64(result.TotalSize)).String()
	return result, nil
}

func summarizeManifest(m core.Manifest, result *InspectResult) {
	if compose, ok := composeOf(m); ok {
		result.ComposeID = compose.ID
	}
	switch typed := m.(type) {
	case *core.ComposeInfo:
		result.Release = typed.ReleaseID(false)
		for _, v := range typed.GetVariants(core.VariantFilter{Recursive: true}) {
			result.Variants = append(result.Variants, InspectVariant{UID: v.UID, Type: v.Type, Arches: v.Arches})
		}
		result.Entries = len(result.Variants)
		return
	case *core.Rpms:
		for _, variant := range typed.Variants() {
			count := 0
			for _, arch := range typed.Arches(variant) {
				for _, srpm := range typed.SRPMs(variant, arch) {
					count += len(typed.Packages(variant, arch, srpm))
				}
			}
			result.Variants = append(result.Variants, InspectVariant{UID: variant, Arches: typed.Arches(variant), Count: count})
		}
	case *core.Images:
		for _, variant := range typed.Variants() {
			count := 0
			for _, arch := range typed.Arches(variant) {
				count += len(typed.Get(variant, arch))
			}
			result.Variants = append(result.Variants, InspectVariant{UID: variant, Arches: typed.Arches(variant), Count: count})
		}
	case *core.Modules:
		for _, variant := range typed.Variants() {
			count := 0
			for _, arch := range typed.Arches(variant) {
				count += len(typed.UIDs(variant, arch))
			}
			result.Variants = append(result.Variants, InspectVariant{UID: variant, Arches: typed.Arches(variant), Count: count})
		}
	case *core.ExtraFiles:
		for _, variant := range typed.Variants() {
			count := 0
			for _, arch := range typed.Arches(variant) {
				count += len(typed.Get(variant, arch))
			}
			result.Variants = append(result.Variants, InspectVariant{UID: variant, Arches: typed.Arches(variant), Count: count})
		}
	}
	locations := core.ArtifactLocations(m)
	result.Entries = len(locations)
	for _, location := range locations {
		if size := location.Size; size != nil {
			result.TotalSize += *size
		}
	}
}

func summarizeTreeInfo(t *core.TreeInfo, result *InspectResult) {
	result.Release = t.Release.Short + "-" + t.Release.Version
	for _, h := range t.Variants.GetVariants(core.RootHandle, core.VariantFilter{Recursive: true}) {
		v := t.Variants.MustGet(h)
		result.Variants = append(result.Variants, InspectVariant{UID: v.UID, Type: v.Type, Arches: []string{t.Tree.Arch}})
	}
	result.Entries = t.Checksums.Len()
}
