// Package filename provides utilities for turning arbitrary titles into safe
// artifact filenames.
package filename

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// Sanitize converts an arbitrary string into a filename-safe name. Only
// alphanumeric runes, dashes, underscores, and dots survive; spaces become
// underscores. An input that sanitizes to nothing yields a timestamped
// fallback so callers always get a usable name.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		}
	}

	s := strings.TrimSpace(b.String())
	s = strings.ReplaceAll(s, " ", "_")
	if s == "" {
		return fmt.Sprintf("video_%d", time.Now().Unix())
	}
	return s
}

// BaseNoExt returns the final path element with its extension removed.
// "processed/intro_clip.mp4" becomes "intro_clip".
func BaseNoExt(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// StripStagePrefix removes the "stage_<uuid>_" prefix the upload endpoint
// prepends to staged files, recovering the name the user saw.
func StripStagePrefix(name string) string {
	if !strings.HasPrefix(name, "stage_") {
		return name
	}
	rest := name[len("stage_"):]
	// uuid is 36 bytes followed by an underscore
	if len(rest) > 37 && rest[36] == '_' {
		return rest[37:]
	}
	return name
}
