// Package discovery extracts protobuf schema details from the vendor's
// bundled extension asset. The vendor moves the Metadata message's field
// numbers between releases, so the bridge scrapes the current numbers out
// of the minified JavaScript at runtime instead of compiling a schema.
package discovery

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// FieldMap holds the protobuf field numbers of the vendor's Metadata
// message, keyed by symbolic name.
type FieldMap struct {
	APIKey           uint32
	IDEName          uint32
	IDEVersion       uint32
	ExtensionVersion uint32
	SessionID        uint32
	Locale           uint32
}

// DefaultFieldMap is the baseline layout, used when the asset cannot be
// found or does not match the expected pattern.
var DefaultFieldMap = FieldMap{
	APIKey:           1,
	IDEName:          2,
	IDEVersion:       3,
	ExtensionVersion: 4,
	SessionID:        5,
	Locale:           6,
}

// Source locates and parses the extension asset. The field map is
// computed once per process; the asset does not change while the IDE is
// running.
type Source struct {
	// AssetPath overrides the platform search list when non-empty.
	AssetPath string

	once sync.Once
	fm   FieldMap
}

// FieldMap returns the discovered Metadata field numbers, falling back to
// DefaultFieldMap when the asset is absent or unrecognizable.
func (s *Source) FieldMap() FieldMap {
	s.once.Do(func() {
		s.fm = DefaultFieldMap
		src, ok := s.readAsset()
		if !ok {
			return
		}
		if fm, ok := ParseFieldMap(src); ok {
			s.fm = fm
		}
	})
	return s.fm
}

// ModelEnum parses the vendor's model enum out of the asset. Unlike the
// field map this is a maintenance surface, so a missing asset is an error
// rather than a silent default.
func (s *Source) ModelEnum() ([]EnumEntry, error) {
	src, ok := s.readAsset()
	if !ok {
		return nil, os.ErrNotExist
	}
	return ParseModelEnum(src), nil
}

func (s *Source) readAsset() (string, bool) {
	for _, path := range s.candidates() {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		return string(data), true
	}
	return "", false
}

func (s *Source) candidates() []string {
	if s.AssetPath != "" {
		return []string{s.AssetPath}
	}
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"/Applications/Windsurf.app/Contents/Resources/app/extensions/windsurf/dist/extension.js",
			filepath.Join(home, "Applications/Windsurf.app/Contents/Resources/app/extensions/windsurf/dist/extension.js"),
		}
	case "windows":
		return []string{
			filepath.Join(os.Getenv("ProgramFiles"), "Windsurf", "resources", "app", "extensions", "windsurf", "dist", "extension.js"),
			filepath.Join(os.Getenv("LOCALAPPDATA"), "Programs", "Windsurf", "resources", "app", "extensions", "windsurf", "dist", "extension.js"),
		}
	default:
		return []string{
			filepath.Join(home, ".local/share/windsurf/resources/app/extensions/windsurf/dist/extension.js"),
			"/usr/share/windsurf/resources/app/extensions/windsurf/dist/extension.js",
			"/opt/windsurf/resources/app/extensions/windsurf/dist/extension.js",
		}
	}
}
