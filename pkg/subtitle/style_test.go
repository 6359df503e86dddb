package subtitle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestASSColor(t *testing.T) {
	tests := []struct {
		hex  string
		want string
	}{
		{"#ffffff", "&H00FFFFFF"},
		{"#000000", "&H00000000"},
		{"#ff0000", "&H000000FF"}, // red lands in the low byte
		{"#00ff00", "&H0000FF00"},
		{"#0000ff", "&H00FF0000"},
		{"#123abc", "&H00BC3A12"},
		{"ffffff", "&H00FFFFFF"}, // bare hex accepted
		{"#fff", "&H00FFFFFF"},   // malformed falls back to white
		{"#zzzzzz", "&H00FFFFFF"},
		{"", "&H00FFFFFF"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ASSColor(tt.hex), tt.hex)
	}
}

func TestMapAlignment(t *testing.T) {
	assert.Equal(t, "2", MapAlignment("2"))
	assert.Equal(t, "5", MapAlignment("10"))
	assert.Equal(t, "8", MapAlignment("6"))
	assert.Equal(t, "2", MapAlignment(""))
	// Raw ASS values pass through
	assert.Equal(t, "7", MapAlignment("7"))
}

func TestFontFace(t *testing.T) {
	assert.Equal(t, "Roboto Black", FontFace("Roboto"))
	assert.Equal(t, "Oswald Bold", FontFace("Oswald"))
	assert.Equal(t, "Bangers", FontFace("Bangers"))
	assert.Equal(t, "Comic Sans MS", FontFace("Comic Sans MS"))
}

func TestForceStyle_Defaults(t *testing.T) {
	got := ForceStyle(Style{})
	want := "Fontname=Arial Black,FontSize=24," +
		"PrimaryColour=&H00FFFFFF,OutlineColour=&H00000000,BackColour=&H00000000," +
		"BorderStyle=1,Alignment=2,Spacing=0,Blur=0,Outline=2,Shadow=2"
	assert.Equal(t, want, got)
}

func TestForceStyle_CustomStyle(t *testing.T) {
	got := ForceStyle(Style{
		FontName:      "Roboto",
		FontSize:      36,
		PrimaryColor:  "#ff0000",
		Alignment:     "10",
		BorderStyle:   "3",
		LetterSpacing: 1.5,
		ShadowBlur:    2,
	})
	assert.Contains(t, got, "Fontname=Roboto Black")
	assert.Contains(t, got, "FontSize=36")
	assert.Contains(t, got, "PrimaryColour=&H000000FF")
	assert.Contains(t, got, "Alignment=5")
	assert.Contains(t, got, "BorderStyle=3")
	assert.Contains(t, got, "Spacing=1.5")
	assert.Contains(t, got, "Blur=2")
}

func TestEscapeFilterPath(t *testing.T) {
	assert.Equal(t, `C\:/captions/a.srt`, EscapeFilterPath(`C:\captions\a.srt`))
	assert.Equal(t, "/data/captions/a.srt", EscapeFilterPath("/data/captions/a.srt"))
}

func TestBurnFilter(t *testing.T) {
	got := BurnFilter("/data/captions/v.srt", Style{})
	assert.Contains(t, got, "subtitles='/data/captions/v.srt'")
	assert.Contains(t, got, ":force_style='Fontname=Arial Black")
}

func TestFallbackFilter(t *testing.T) {
	style := Style{FontName: "Oswald", FontSize: 36}
	filter := BurnFilter("/c/v.srt", style)
	assert.Contains(t, filter, "Fontname=Oswald Bold")

	fixed := FallbackFilter("/c/v.srt", style)
	assert.Contains(t, fixed, "subtitles='/c/v.srt'")
	assert.Contains(t, fixed, "Fontname=Arial Black,")
	assert.Contains(t, fixed, "FontSize=36") // rest of the style survives
	assert.NotContains(t, fixed, "Fontname=Oswald Bold")
}

func TestFallbackFilter_EmptyFont(t *testing.T) {
	fixed := FallbackFilter("/c/v.srt", Style{})
	assert.Equal(t, 1, strings.Count(fixed, "Fontname="))
	assert.Contains(t, fixed, "Fontname=Arial Black,")
	assert.NotContains(t, fixed, "Arial BlackArial Black")
}
