package subtitle

import (
	"fmt"
	"strings"
)

// Style carries the caption appearance settings the UI stores on caption
// rows. Zero values fall back to the defaults in ForceStyle.
type Style struct {
	FontName        string  `json:"fontName,omitempty"`
	FontSize        int     `json:"fontSize,omitempty"`
	PrimaryColor    string  `json:"primaryColor,omitempty"`
	OutlineColor    string  `json:"outlineColor,omitempty"`
	BackgroundColor string  `json:"backgroundColor,omitempty"`
	Alignment       string  `json:"alignment,omitempty"`
	BorderStyle     string  `json:"borderStyle,omitempty"`
	LetterSpacing   float64 `json:"letterSpacing,omitempty"`
	ShadowBlur      float64 `json:"shadowBlur,omitempty"`
}

// fontFaces maps the display names the UI offers to the face names the
// renderer finds installed. Unknown names pass through unchanged.
var fontFaces = map[string]string{
	"Bebas Neue":       "Bebas Neue",
	"Luckiest Guy":     "Luckiest Guy",
	"Anton":            "Anton",
	"Bangers":          "Bangers",
	"Roboto":           "Roboto Black",
	"Archivo Black":    "Archivo Black",
	"Oswald":           "Oswald Bold",
	"Fredoka One":      "Fredoka One",
	"Titan One":        "Titan One",
	"Permanent Marker": "Permanent Marker",
}

// FontFace resolves a display font name to its installed face name.
func FontFace(name string) string {
	if face, ok := fontFaces[name]; ok {
		return face
	}
	return name
}

// ASSColor converts a "#RRGGBB" web color into the ASS "&H00BBGGRR" form.
// Anything unparsable becomes opaque white.
func ASSColor(hex string) string {
	v := strings.TrimPrefix(hex, "#")
	if len(v) != 6 || !isHex(v) {
		return "&H00FFFFFF"
	}
	r, g, b := v[0:2], v[2:4], v[4:6]
	return fmt.Sprintf("&H00%s%s%s", strings.ToUpper(b), strings.ToUpper(g), strings.ToUpper(r))
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// MapAlignment translates the UI alignment values (2 bottom, 10 middle,
// 6 top) into ASS numpad alignment (2, 5, 8).
func MapAlignment(ui string) string {
	switch ui {
	case "10":
		return "5"
	case "6":
		return "8"
	case "2", "":
		return "2"
	default:
		return ui
	}
}

// ForceStyle builds the ASS force_style override string for a burn-in.
func ForceStyle(s Style) string {
	fontName := s.FontName
	if fontName == "" {
		fontName = "Arial Black"
	}
	fontSize := s.FontSize
	if fontSize == 0 {
		fontSize = 24
	}
	primary := s.PrimaryColor
	if primary == "" {
		primary = "#ffffff"
	}
	outline := s.OutlineColor
	if outline == "" {
		outline = "#000000"
	}
	background := s.BackgroundColor
	if background == "" {
		background = "#000000"
	}
	borderStyle := s.BorderStyle
	if borderStyle == "" {
		borderStyle = "1"
	}

	return fmt.Sprintf(
		"Fontname=%s,FontSize=%d,PrimaryColour=%s,OutlineColour=%s,BackColour=%s,BorderStyle=%s,Alignment=%s,Spacing=%g,Blur=%g,Outline=2,Shadow=2",
		FontFace(fontName), fontSize,
		ASSColor(primary), ASSColor(outline), ASSColor(background),
		borderStyle, MapAlignment(s.Alignment),
		s.LetterSpacing, s.ShadowBlur,
	)
}

// EscapeFilterPath makes a filesystem path safe inside an ffmpeg filter
// argument: backslashes become forward slashes and colons are escaped.
func EscapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	return strings.ReplaceAll(p, ":", `\:`)
}

// BurnFilter builds the complete subtitles video filter for a burn-in.
func BurnFilter(srtPath string, s Style) string {
	return fmt.Sprintf("subtitles='%s':force_style='%s'", EscapeFilterPath(srtPath), ForceStyle(s))
}

// FallbackFilter rebuilds the burn filter with the stock font in place
// of the requested one, used when a specialty font fails to render.
func FallbackFilter(srtPath string, s Style) string {
	s.FontName = "Arial Black"
	return BurnFilter(srtPath, s)
}
