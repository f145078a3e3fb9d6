package utils

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and collapses every run of non-alphanumeric
// characters into a single hyphen
func Slugify(s string) string {
	slug := strings.ToLower(strings.TrimSpace(s))
	slug = nonSlugChars.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// TimestampedSlug appends a base-36 millisecond timestamp to the slug of
// title so two courses with the same title never collide
func TimestampedSlug(title string, now time.Time) string {
	base := Slugify(title)
	if base == "" {
		base = "course"
	}
	return base + "-" + strconv.FormatInt(now.UnixMilli(), 36)
}
