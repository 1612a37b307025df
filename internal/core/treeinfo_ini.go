package core

import (
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// LoadINI parses .treeinfo content. Inline "#" and ";" are part of the
// value, as they are for the tools writing these files.
func LoadINI(data []byte) (*ini.File, error) {
	f, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, data)
	if err != nil {
		return nil, invalidf("cannot parse treeinfo: %v", err)
	}
	return f, nil
}

// iniWriter collects sections and keys and emits them sorted.
type iniWriter struct {
	sections map[string]map[string]string
}

func newINIWriter() *iniWriter {
	return &iniWriter{sections: map[string]map[string]string{}}
}

func (w *iniWriter) set(section string, key string, value string) {
	if w.sections[section] == nil {
		w.sections[section] = map[string]string{}
	}
	w.sections[section][key] = value
}

// setIf writes value when it is not empty.
func (w *iniWriter) setIf(section string, key string, value string) {
	if value != "" {
		w.set(section, key, value)
	}
}

func (w *iniWriter) file() (*ini.File, error) {
	f := ini.Empty()
	for _, name := range sortedKeys(w.sections) {
		section, err := f.NewSection(name)
		if err != nil {
			return nil, invalidf("cannot create section [%s]: %v", name, err)
		}
		keys := w.sections[name]
		for _, key := range sortedKeys(keys) {
			if _, err := section.NewKey(key, keys[key]); err != nil {
				return nil, invalidf("cannot write [%s] %s: %v", name, key, err)
			}
		}
	}
	return f, nil
}

// iniReader wraps a parsed file with lookups that never create
// sections as a side effect.
type iniReader struct {
	f *ini.File
}

func (r iniReader) hasSection(name string) bool {
	_, err := r.f.GetSection(name)
	return err == nil
}

func (r iniReader) has(section string, key string) bool {
	s, err := r.f.GetSection(section)
	return err == nil && s.HasKey(key)
}

func (r iniReader) opt(section string, key string) (string, bool) {
	s, err := r.f.GetSection(section)
	if err != nil || !s.HasKey(key) {
		return "", false
	}
	return s.Key(key).String(), true
}

func (r iniReader) optDefault(section string, key string, fallback string) string {
	if value, ok := r.opt(section, key); ok {
		return value
	}
	return fallback
}

func (r iniReader) req(section string, key string) (string, error) {
	value, ok := r.opt(section, key)
	if !ok {
		return "", invalidf("[%s] %s: missing required key", section, key)
	}
	return value, nil
}

func (r iniReader) reqInt(section string, key string) (int64, error) {
	value, err := r.req(section, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, invalidf("[%s] %s: expected integer, got %q", section, key, value)
	}
	return n, nil
}

func (r iniReader) optBool(section string, key string) (bool, error) {
	value, ok := r.opt(section, key)
	if !ok {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "yes", "true", "on":
		return true, nil
	case "0", "no", "false", "off":
		return false, nil
	}
	return false, invalidf("[%s] %s: expected boolean, got %q", section, key, value)
}

// lookup returns the first present option of candidates, given as
// section and key pairs.
func (r iniReader) lookup(candidates [][2]string) (string, bool) {
	for _, candidate := range candidates {
		if value, ok := r.opt(candidate[0], candidate[1]); ok {
			return value, true
		}
	}
	return "", false
}

func (r iniReader) sectionNames() []string {
	var out []string
	for _, name := range r.f.SectionStrings() {
		if name == ini.DefaultSection {
			continue
		}
		out = append(out, name)
	}
	return out
}

func (r iniReader) keys(section string) []string {
	s, err := r.f.GetSection(section)
	if err != nil {
		return nil
	}
	return s.KeyStrings()
}

// splitList splits a comma separated option, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
