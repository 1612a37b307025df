package core

import (
	"regexp"

	"productmd/internal/types"
)

var checksumRe = regexp.MustCompile(`^(sha256|sha512|sha1|md5):([a-f0-9]+)$`)

// ParseChecksum splits an "algorithm:hexdigest" string.
func ParseChecksum(checksum string) (types.ChecksumAlgorithm, string, error) {
	match := checksumRe.FindStringSubmatch(checksum)
	if match == nil {
		return "", "", invalidf("invalid checksum format: %s", checksum)
	}
	return types.ChecksumAlgorithm(match[1]), match[2], nil
}

func FormatChecksum(algorithm types.ChecksumAlgorithm, digest string) string {
	return string(algorithm) + ":" + digest
}

// preferredChecksum picks the strongest digest of a legacy checksum table.
func preferredChecksum(checksums map[string]string) (string, bool) {
	for _, algorithm := range types.ChecksumPreference() {
		if digest, ok := checksums[string(algorithm)]; ok && digest != "" {
			return FormatChecksum(algorithm, digest), true
		}
	}
	return "", false
}
