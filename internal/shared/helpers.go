// Package shared provides small helpers used by the adapters and the
// application service.
package shared

import (
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// IsURL reports whether location is an http(s) URL rather than a path.
func IsURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// JoinLocation appends elements to a path or URL.
func JoinLocation(base string, elem ...string) string {
	if IsURL(base) {
		return strings.TrimRight(base, "/") + "/" + path.Join(elem...)
	}
	return filepath.Join(append([]string{base}, elem...)...)
}

// HTTPStatusError creates an error for non-2xx HTTP responses. Missing
// resources map to CodeNotFound.
func HTTPStatusError(status int, url string) error {
	code := errbuilder.CodeInternal
	if status == http.StatusNotFound {
		code = errbuilder.CodeNotFound
	}
	return errbuilder.New().
		WithCode(code).
		WithMsg(fmt.Sprintf("status=%d url=%s", status, url))
}

// TrimCompression strips a ".gz" suffix, reporting whether it was there.
func TrimCompression(name string) (string, bool) {
	trimmed, ok := strings.CutSuffix(name, ".gz")
	return trimmed, ok
}
