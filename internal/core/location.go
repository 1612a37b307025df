package core

import (
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/opencontainers/go-digest"

	"productmd/internal/ports"
	"productmd/internal/types"
)

// DefaultChecksumAlgorithm is used when computing new checksums.
const DefaultChecksumAlgorithm = types.ChecksumSHA256

const ociScheme = "oci://"

var ociReferenceRe = regexp.MustCompile(`^oci://([^/]+)/([^:@]+)(:([^@]+))?(@(sha256:[a-f0-9]{64}))$`)

// FileEntry is one file stored as a layer of an OCI artifact.
type FileEntry struct {
	File        string
	Size        int64
	Checksum    string
	LayerDigest string
}

func (f FileEntry) Validate() error {
	if f.File == "" {
		return invalidf("file entry: 'file' must not be blank")
	}
	if strings.HasPrefix(f.File, "/") {
		return invalidf("file entry: 'file' must be a relative path: %s", f.File)
	}
	if f.Size < 0 {
		return invalidf("file entry: 'size' must be non-negative: %d", f.Size)
	}
	if !checksumRe.MatchString(f.Checksum) {
		return invalidf("file entry: 'checksum' must be in 'algorithm:hexdigest' format: %s", f.Checksum)
	}
	layer, err := digest.Parse(f.LayerDigest)
	if err != nil || layer.Algorithm() != digest.SHA256 {
		return invalidf("file entry: 'layer_digest' must be a sha256 digest: %s", f.LayerDigest)
	}
	return nil
}

func (f FileEntry) Encode() map[string]any {
	return map[string]any{
		"file":         f.File,
		"size":         f.Size,
		"checksum":     f.Checksum,
		"layer_digest": f.LayerDigest,
	}
}

func decodeFileEntry(value any, at string) (FileEntry, error) {
	m, err := asMap(value, at)
	if err != nil {
		return FileEntry{}, err
	}
	var out FileEntry
	if out.File, err = reqString(m, at, "file"); err != nil {
		return FileEntry{}, err
	}
	if out.Size, err = reqInt(m, at, "size"); err != nil {
		return FileEntry{}, err
	}
	if out.Checksum, err = reqString(m, at, "checksum"); err != nil {
		return FileEntry{}, err
	}
	if out.LayerDigest, err = reqString(m, at, "layer_digest"); err != nil {
		return FileEntry{}, err
	}
	if err := out.Validate(); err != nil {
		return FileEntry{}, wrapf(err, "%s", at)
	}
	return out, nil
}

// Location says where an artifact lives and how to check it. A URL
// without a scheme is a path relative to the compose root.
type Location struct {
	URL string
	// Size is nil when unknown.
	Size *int64
	// Checksum is "algorithm:hexdigest", or empty when unknown.
	Checksum  string
	LocalPath string
	// Contents lists the files of a multi-file OCI artifact.
	Contents []FileEntry
}

// OCIReference holds the parts of an oci:// URL.
type OCIReference struct {
	Registry   string
	Repository string
	Tag        string
	Digest     string
}

func (l Location) IsHTTPS() bool { return strings.HasPrefix(l.URL, "https://") }

func (l Location) IsHTTP() bool { return strings.HasPrefix(l.URL, "http://") }

func (l Location) IsOCI() bool { return strings.HasPrefix(l.URL, ociScheme) }

func (l Location) IsRemote() bool { return l.IsHTTPS() || l.IsHTTP() || l.IsOCI() }

func (l Location) IsLocal() bool { return !l.IsRemote() }

func (l Location) HasContents() bool { return len(l.Contents) > 0 }

func (l Location) ChecksumAlgorithm() (types.ChecksumAlgorithm, bool) {
	algorithm, _, err := ParseChecksum(l.Checksum)
	return algorithm, err == nil
}

func (l Location) ChecksumValue() (string, bool) {
	_, value, err := ParseChecksum(l.Checksum)
	return value, err == nil
}

// OCI returns the parsed reference. ok is false for non-OCI or
// malformed URLs.
func (l Location) OCI() (OCIReference, bool) {
	if !l.IsOCI() {
		return OCIReference{}, false
	}
	match := ociReferenceRe.FindStringSubmatch(l.URL)
	if match == nil {
		return OCIReference{}, false
	}
	return OCIReference{
		Registry:   match[1],
		Repository: match[2],
		Tag:        match[4],
		Digest:     match[6],
	}, true
}

// Reference returns the OCI URL as a registry digest reference, ready
// for registry clients.
func (l Location) Reference() (name.Digest, error) {
	if _, ok := l.OCI(); !ok {
		return name.Digest{}, invalidf("location %q is not an OCI reference", l.URL)
	}
	ref, err := name.NewDigest(strings.TrimPrefix(l.URL, ociScheme))
	if err != nil {
		return name.Digest{}, invalidf("invalid OCI reference %q: %v", l.URL, err)
	}
	return ref, nil
}

func (l Location) Validate() error {
	if l.URL == "" {
		return invalidf("location: 'url' must not be blank")
	}
	if strings.HasPrefix(l.URL, "/") {
		return invalidf("location: 'url' must not be an absolute path: %s", l.URL)
	}
	if l.IsOCI() {
		ref, ok := l.OCI()
		if !ok {
			return invalidf("location: OCI URL must match 'oci://registry/repository@sha256:...' format: %s", l.URL)
		}
		if err := digest.Digest(ref.Digest).Validate(); err != nil {
			return invalidf("location: invalid OCI digest %s: %v", ref.Digest, err)
		}
	}
	if l.Size != nil && *l.Size < 0 {
		return invalidf("location: 'size' must be non-negative: %d", *l.Size)
	}
	if l.Checksum != "" && !checksumRe.MatchString(l.Checksum) {
		return invalidf("location: 'checksum' must be in 'algorithm:hexdigest' format: %s", l.Checksum)
	}
	if l.LocalPath == "" {
		return invalidf("location: 'local_path' must not be blank")
	}
	if strings.HasPrefix(l.LocalPath, "/") {
		return invalidf("location: 'local_path' must be a relative path: %s", l.LocalPath)
	}
	if l.HasContents() && !l.IsOCI() {
		return invalidf("location: 'contents' can only be used with OCI URLs: %s", l.URL)
	}
	for _, entry := range l.Contents {
		if err := entry.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Equal compares everything but Contents.
func (l Location) Equal(other Location) bool {
	if l.URL != other.URL || l.Checksum != other.Checksum || l.LocalPath != other.LocalPath {
		return false
	}
	if (l.Size == nil) != (other.Size == nil) {
		return false
	}
	return l.Size == nil || *l.Size == *other.Size
}

func (l Location) Encode() map[string]any {
	contents := make([]any, 0, len(l.Contents))
	for _, entry := range l.Contents {
		contents = append(contents, entry.Encode())
	}
	return map[string]any{
		"url":        l.URL,
		"size":       nullableInt(l.Size),
		"checksum":   nullableString(l.Checksum),
		"local_path": l.LocalPath,
		"contents":   contents,
	}
}

// DecodeLocation reads and validates a location object found at the
// dotted path at.
func DecodeLocation(value any, at string) (Location, error) {
	m, err := asMap(value, at)
	if err != nil {
		return Location{}, err
	}
	var out Location
	if out.URL, err = reqString(m, at, "url"); err != nil {
		return Location{}, err
	}
	if out.Size, err = optInt(m, at, "size"); err != nil {
		return Location{}, err
	}
	if out.Checksum, err = optString(m, at, "checksum"); err != nil {
		return Location{}, err
	}
	if out.LocalPath, err = reqString(m, at, "local_path"); err != nil {
		return Location{}, err
	}
	if raw, ok := m["contents"]; ok && raw != nil {
		items, err := asList(raw, joinPath(at, "contents"))
		if err != nil {
			return Location{}, err
		}
		for i, item := range items {
			entry, err := decodeFileEntry(item, indexPath(joinPath(at, "contents"), i))
			if err != nil {
				return Location{}, err
			}
			out.Contents = append(out.Contents, entry)
		}
	}
	if err := out.Validate(); err != nil {
		return Location{}, wrapf(err, "%s", at)
	}
	return out, nil
}

// localLocation synthesizes a location for a legacy relative path.
func localLocation(relPath string, size *int64, checksum string) Location {
	return Location{URL: relPath, Size: size, Checksum: checksum, LocalPath: relPath}
}

// FromLocalFile builds a location for relPath under baseDir. Size and
// checksum are only filled when computeIntegrity is set.
func FromLocalFile(hasher ports.HasherPort, relPath string, baseDir string, computeIntegrity bool) (Location, error) {
	out := localLocation(relPath, nil, "")
	if !computeIntegrity {
		return out, nil
	}
	fullPath := filepath.Join(baseDir, relPath)
	size, err := hasher.FileSize(fullPath)
	if err != nil {
		return Location{}, err
	}
	sum, err := hasher.FileChecksum(fullPath, DefaultChecksumAlgorithm)
	if err != nil {
		return Location{}, err
	}
	out.Size = &size
	out.Checksum = FormatChecksum(DefaultChecksumAlgorithm, sum)
	return out, nil
}

// WithRemoteURL returns a copy served from baseURL/local_path.
func (l Location) WithRemoteURL(baseURL string) Location {
	out := l
	out.URL = strings.TrimRight(baseURL, "/") + "/" + l.LocalPath
	out.Contents = slices.Clone(l.Contents)
	return out
}

// LocalizedPath is where the artifact lands when a compose is
// materialised under outputDir.
func (l Location) LocalizedPath(outputDir string) string {
	return filepath.Join(outputDir, "compose", filepath.FromSlash(l.LocalPath))
}

func (l Location) VerifySize(hasher ports.HasherPort, filePath string) (bool, error) {
	if l.Size == nil {
		return true, nil
	}
	size, err := hasher.FileSize(filePath)
	if err != nil {
		return false, err
	}
	return size == *l.Size, nil
}

func (l Location) VerifyChecksum(hasher ports.HasherPort, filePath string) (bool, error) {
	if l.Checksum == "" {
		return true, nil
	}
	algorithm, expected, err := ParseChecksum(l.Checksum)
	if err != nil {
		return false, err
	}
	actual, err := hasher.FileChecksum(filePath, algorithm)
	if err != nil {
		return false, err
	}
	return strings.ToLower(actual) == expected, nil
}

// Verify checks size first and skips hashing on a size mismatch.
func (l Location) Verify(hasher ports.HasherPort, filePath string) (bool, error) {
	ok, err := l.VerifySize(hasher, filePath)
	if err != nil || !ok {
		return false, err
	}
	return l.VerifyChecksum(hasher, filePath)
}

// baseName returns the final slash-separated element of a manifest path.
func baseName(p string) string { return path.Base(p) }
