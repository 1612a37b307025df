package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var nvraRe = regexp.MustCompile(`^(.*/)?(?P<name>.*)-((?P<epoch>\d+):)?(?P<version>.*)-(?P<release>.*)\.(?P<arch>.*)$`)

// NEVRA is an RPM package coordinate.
type NEVRA struct {
	Name    string
	Epoch   int
	Version string
	Release string
	Arch    string
}

// ParseNEVRA parses N-[E:]V-R.A, optionally with a directory prefix and
// a ".rpm" suffix. A missing epoch is 0.
func ParseNEVRA(value string) (NEVRA, error) {
	value = strings.TrimSuffix(value, ".rpm")
	match := nvraRe.FindStringSubmatch(value)
	if match == nil {
		return NEVRA{}, invalidf("invalid N-E:V-R.A: %s", value)
	}
	out := NEVRA{
		Name:    match[nvraRe.SubexpIndex("name")],
		Version: match[nvraRe.SubexpIndex("version")],
		Release: match[nvraRe.SubexpIndex("release")],
		Arch:    match[nvraRe.SubexpIndex("arch")],
	}
	if epoch := match[nvraRe.SubexpIndex("epoch")]; epoch != "" {
		parsed, err := strconv.Atoi(epoch)
		if err != nil {
			return NEVRA{}, invalidf("invalid epoch in %s", value)
		}
		out.Epoch = parsed
	}
	return out, nil
}

// String always includes the epoch.
func (n NEVRA) String() string {
	return fmt.Sprintf("%s-%d:%s-%s.%s", n.Name, n.Epoch, n.Version, n.Release, n.Arch)
}
