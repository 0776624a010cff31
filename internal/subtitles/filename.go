package subtitles

import (
	"path/filepath"
	"strings"
)

// DefaultOutputName is used when the caller supplies no download name.
const DefaultOutputName = "translated_subtitle"

// OutputName returns a download file name ending in ".srt". Directory parts
// are stripped so the name is safe for a Content-Disposition header.
func OutputName(name string) string {
	name = strings.TrimSpace(name)
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		name = DefaultOutputName
	}
	name = strings.Map(func(r rune) rune {
		if r == '"' || r < ' ' {
			return '_'
		}
		return r
	}, name)
	if !strings.HasSuffix(strings.ToLower(name), ".srt") {
		name += ".srt"
	}
	return name
}
