package app

import (
	"context"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"productmd/internal/core"
	"productmd/internal/shared"
)

// Verify checks the image and extra file locations of a compose against
// the files on disk. A compose without extra_files.json only checks
// images.
func (s Service) Verify(ctx context.Context, req VerifyRequest) (VerifyResult, error) {
	compose, err := s.OpenCompose(ctx, req.ComposePath)
	if err != nil {
		return VerifyResult{}, err
	}
	if shared.IsURL(compose.Root) {
		return VerifyResult{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("verify needs a local compose, got " + compose.Root)
	}
	images, err := compose.Images(ctx)
	if err != nil {
		return VerifyResult{}, err
	}
	locations := core.ArtifactLocations(images)
	extra, err := compose.ExtraFiles(ctx)
	switch {
	case err == nil:
		for label, location := range core.ArtifactLocations(extra) {
			locations[label] = location
		}
	case errbuilder.CodeOf(err) != errbuilder.CodeNotFound:
		return VerifyResult{}, err
	}

	result := VerifyResult{ComposeID: images.Compose.ID, CheckedAt: timeNow(s.Clock)}
	for _, label := range sortedKeys(locations) {
		location := locations[label]
		filePath := compose.Path(location.LocalPath)
		result.Checked++
		reason, err := s.verifyLocation(location, filePath)
		if err != nil {
			return VerifyResult{}, err
		}
		if reason != "" {
			result.Failures = append(result.Failures, VerifyFailure{Artifact: label, Path: filePath, Reason: reason})
		}
	}
	log.Debug().
		Str("compose", result.ComposeID).
		Int("checked", result.Checked).
		Int("failures", len(result.Failures)).
		Msg("compose verified")
	return result, nil
}

// verifyLocation returns a failure reason, or "" when the file matches.
// Missing files are reported as failures rather than errors.
func (s Service) verifyLocation(location core.Location, filePath string) (string, error) {
	ok, err := location.VerifySize(s.Hasher, filePath)
	if err != nil {
		if errbuilder.CodeOf(err) == errbuilder.CodeNotFound {
			return "missing", nil
		}
		return "", err
	}
	if !ok {
		return "size mismatch", nil
	}
	ok, err = location.VerifyChecksum(s.Hasher, filePath)
	if err != nil {
		if errbuilder.CodeOf(err) == errbuilder.CodeNotFound {
			return "missing", nil
		}
		return "", err
	}
	if !ok {
		return "checksum mismatch", nil
	}
	return "", nil
}

func timeNow(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock().UTC()
}
