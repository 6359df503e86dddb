package ytdlp

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// downloadPercentRe matches yt-dlp progress lines:
//
//	[download]  42.3% of 10.00MiB at 1.00MiB/s ETA 00:05
var downloadPercentRe = regexp.MustCompile(`\[download\]\s+([0-9]+(?:\.[0-9]+)?)%`)

// ParseProgressLine extracts the percent from a yt-dlp progress line.
func ParseProgressLine(line string) (float64, bool) {
	m := downloadPercentRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return pct, true
}

// Download fetches a URL into dest using the given format selector,
// merging split streams into mp4. progressFn, when non-nil, receives
// download percentages (0-100) as yt-dlp reports them.
func (c *Client) Download(ctx context.Context, url, format, dest string, progressFn func(percent float64)) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("ytdlp: url is required")
	}
	if strings.TrimSpace(dest) == "" {
		return fmt.Errorf("ytdlp: dest is required")
	}

	args := []string{
		"-o", dest,
		"--no-playlist",
		"--merge-output-format", "mp4",
		"--socket-timeout", "30",
		"--retries", "3",
		"--fragment-retries", "3",
		"--newline",
		"--no-colors",
	}
	if format != "" {
		args = append(args, "--format", format)
	}
	args = append(args, url)

	if progressFn != nil {
		c.lineFn = func(line string) {
			if pct, ok := ParseProgressLine(line); ok {
				progressFn(pct)
			}
		}
		defer func() { c.lineFn = nil }()
	}

	stdout, stderr, err := c.exec(ctx, args...)
	if err != nil {
		return wrapExecError(c.PathOrDefault(), args, stdout, stderr, err)
	}
	return nil
}
