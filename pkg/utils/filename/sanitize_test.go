package filename

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "My Video", "My_Video"},
		{"keeps extension", "clip one.mp4", "clip_one.mp4"},
		{"strips shell characters", `rm -rf / ; "echo"`, "rm_-rf___echo"},
		{"strips path separators", "a/b\\c", "abc"},
		{"unicode letters survive", "émission spéciale", "émission_spéciale"},
		{"trims outer space", "  padded  ", "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitize_EmptyFallsBack(t *testing.T) {
	got := Sanitize("///???")
	assert.True(t, strings.HasPrefix(got, "video_"), "got %q", got)
}

func TestBaseNoExt(t *testing.T) {
	assert.Equal(t, "intro_clip", BaseNoExt("processed/intro_clip.mp4"))
	assert.Equal(t, "raw_abc", BaseNoExt("raw_abc"))
	assert.Equal(t, "archive.tar", BaseNoExt("/tmp/archive.tar.gz"))
}

func TestStripStagePrefix(t *testing.T) {
	assert.Equal(t, "movie.mp4", StripStagePrefix("stage_123e4567-e89b-12d3-a456-426614174000_movie.mp4"))
	assert.Equal(t, "movie.mp4", StripStagePrefix("movie.mp4"))
	assert.Equal(t, "stage_short", StripStagePrefix("stage_short"))
}
