// Package subtitle emits SRT caption files and builds the ASS style
// overrides used when captions are burned into video.
package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Word is a single recognized word with its own timing.
type Word struct {
	Start float64
	End   float64
	Text  string
}

// Segment is one recognized utterance. Words is populated when the
// recognizer ran in word-timing mode.
type Segment struct {
	Start float64
	End   float64
	Text  string
	Words []Word
}

// FormatTimestamp renders seconds as the SRT "HH:MM:SS,mmm" form.
// Milliseconds are truncated, not rounded.
func FormatTimestamp(t float64) string {
	if t < 0 {
		t = 0
	}
	whole := int(t)
	hrs := whole / 3600
	mins := (whole % 3600) / 60
	secs := whole % 60
	millis := int((t - float64(whole)) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hrs, mins, secs, millis)
}

// WriteSRT writes segments as an SRT document: sequential indices from 1,
// uppercased text, empty cues skipped. In word mode each word becomes its
// own cue; segments without word timings fall back to one cue per segment.
func WriteSRT(w io.Writer, segments []Segment, wordLevel bool) error {
	bw := bufio.NewWriter(w)
	idx := 1

	writeCue := func(start, end float64, text string) {
		fmt.Fprintf(bw, "%d\n", idx)
		fmt.Fprintf(bw, "%s --> %s\n", FormatTimestamp(start), FormatTimestamp(end))
		fmt.Fprintf(bw, "%s\n\n", strings.ToUpper(text))
		idx++
	}

	for _, seg := range segments {
		if wordLevel && len(seg.Words) > 0 {
			for _, word := range seg.Words {
				text := strings.TrimSpace(word.Text)
				if text == "" {
					continue
				}
				writeCue(word.Start, word.End, text)
			}
			continue
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		writeCue(seg.Start, seg.End, text)
	}

	return bw.Flush()
}
