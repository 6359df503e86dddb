// Package platform classifies source URLs and builds the fetcher format
// selector for each target resolution.
package platform

import (
	"fmt"
	"net/url"
	"strings"
)

// Platform identifies where a source URL points.
type Platform string

const (
	YouTube   Platform = "youtube"
	TikTok    Platform = "tiktok"
	Instagram Platform = "instagram"
	// Direct covers everything else, including plain media file URLs.
	Direct Platform = "direct"
)

// Detect returns the platform for a URL. Unknown hosts are Direct.
func Detect(rawURL string) Platform {
	u := strings.ToLower(rawURL)
	switch {
	case strings.Contains(u, "youtube.com") || strings.Contains(u, "youtu.be"):
		return YouTube
	case strings.Contains(u, "tiktok.com"):
		return TikTok
	case strings.Contains(u, "instagram.com") || strings.Contains(u, "instagr.am"):
		return Instagram
	default:
		return Direct
	}
}

// IsValidURL reports whether s is an absolute http(s) URL with a host.
func IsValidURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// mediaExtensions are the file suffixes treated as directly fetchable
// media rather than a page for the fetcher to scrape.
var mediaExtensions = []string{".mp4", ".webm", ".mov", ".avi", ".mkv", ".flv"}

// IsDirectMediaURL reports whether the URL points straight at a media file.
func IsDirectMediaURL(rawURL string) bool {
	if Detect(rawURL) != Direct {
		return false
	}
	u := strings.ToLower(rawURL)
	// Ignore query strings when checking the suffix.
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	for _, ext := range mediaExtensions {
		if strings.HasSuffix(u, ext) {
			return true
		}
	}
	return false
}

// FormatSelector builds the yt-dlp format string for a resolution cap.
// "max" removes the height caps entirely.
func FormatSelector(resolution string) string {
	if resolution == "" {
		resolution = "720"
	}
	if resolution == "max" {
		return "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	}
	return fmt.Sprintf(
		"bestvideo[height<=%[1]s][ext=mp4]+bestaudio[ext=m4a]/best[height<=%[1]s][ext=mp4]/best",
		resolution,
	)
}

// ValidResolution reports whether resolution is one the API accepts.
func ValidResolution(resolution string) bool {
	switch resolution {
	case "360", "480", "720", "1080", "max":
		return true
	}
	return false
}
