package utils

import (
	"regexp"
	"strings"
)

var driveFilePatterns = []*regexp.Regexp{
	regexp.MustCompile(`https?://drive\.google\.com/file/d/([A-Za-z0-9_-]+)`),
	regexp.MustCompile(`https?://drive\.google\.com/open\?id=([A-Za-z0-9_-]+)`),
	regexp.MustCompile(`https?://drive\.google\.com/uc\?id=([A-Za-z0-9_-]+)`),
}

// NormalizeGoogleDriveURL rewrites known Google Drive share links to the
// embeddable preview form. Any other URL is returned trimmed but unchanged.
func NormalizeGoogleDriveURL(url string) string {
	trimmed := strings.TrimSpace(url)

	for _, pattern := range driveFilePatterns {
		if m := pattern.FindStringSubmatch(trimmed); len(m) == 2 && m[1] != "" {
			return "https://drive.google.com/file/d/" + m[1] + "/preview"
		}
	}

	return trimmed
}
