package core

// artifactLocation holds the Location of one manifest entry: either one
// set by the caller or read from a 2.0 manifest, or one synthesized from
// the entry's legacy fields and reused while those fields are unchanged.
type artifactLocation struct {
	explicit    *Location
	synthesized *Location
}

func (a *artifactLocation) set(location Location) {
	a.explicit = &location
	a.synthesized = nil
}

func (a *artifactLocation) get() (Location, bool) {
	if a.explicit == nil {
		return Location{}, false
	}
	return *a.explicit, true
}

// resolve returns the explicit location, else the cached synthesized
// one when it still matches fresh.
func (a *artifactLocation) resolve(fresh Location) Location {
	if a.explicit != nil {
		return *a.explicit
	}
	if a.synthesized == nil || !a.synthesized.Equal(fresh) {
		a.synthesized = &fresh
	}
	return *a.synthesized
}

// legacyChecksums flattens a location checksum into the one-entry table
// 1.x manifests carry.
func legacyChecksums(location Location) map[string]string {
	algorithm, value, err := ParseChecksum(location.Checksum)
	if err != nil {
		return map[string]string{}
	}
	return map[string]string{string(algorithm): value}
}

func stringMapToAny(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for key, value := range m {
		out[key] = value
	}
	return out
}

// decodeArtifactLocation reads the "location" key of a 2.0 entry.
func decodeArtifactLocation(m map[string]any, at string) (Location, error) {
	raw, ok := m["location"]
	if !ok {
		return Location{}, invalidf("%s: missing required key", joinPath(at, "location"))
	}
	return DecodeLocation(raw, joinPath(at, "location"))
}
