// Package urls normalizes the URLs stored on media and people records.
package urls

import (
	"regexp"
	"strings"
)

var (
	youTubePattern = regexp.MustCompile(`(?:youtube\.com/(?:watch\?.*v=|embed/)|youtu\.be/)([A-Za-z0-9_-]{11})`)
	canonicalWatch = regexp.MustCompile(`^https://www\.youtube\.com/watch\?v=[A-Za-z0-9_-]{11}$`)
	absolutePrefix = regexp.MustCompile(`(?i)^https?://`)
)

// YouTubeID extracts the 11-character video id from a watch, embed or youtu.be link.
func YouTubeID(raw string) (string, bool) {
	m := youTubePattern.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// NormalizeYouTube returns the canonical https://www.youtube.com/watch?v=<id> form of raw.
func NormalizeYouTube(raw string) (string, bool) {
	id, ok := YouTubeID(strings.TrimSpace(raw))
	if !ok {
		return "", false
	}
	return "https://www.youtube.com/watch?v=" + id, true
}

// IsCanonicalYouTube reports whether u is already in canonical watch form.
func IsCanonicalYouTube(u string) bool {
	return canonicalWatch.MatchString(u)
}

// YouTubeThumbnail returns the hqdefault thumbnail for a YouTube link, or "" for anything else.
func YouTubeThumbnail(u string) string {
	id, ok := YouTubeID(u)
	if !ok {
		return ""
	}
	return "https://img.youtube.com/vi/" + id + "/hqdefault.jpg"
}

// IsAbsolute reports whether u starts with http:// or https://.
func IsAbsolute(u string) bool {
	return absolutePrefix.MatchString(u)
}

// Absolute prefixes a relative upload path (e.g. "uploads/a.jpg") with base.
// Absolute URLs and empty strings are returned unchanged.
func Absolute(base, u string) string {
	if u == "" || IsAbsolute(u) {
		return u
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(u, "/")
}

// Resolve returns the first non-empty candidate made absolute against base.
// Candidates are given in priority order, e.g. Resolve(base, s.Photo, s.ImageURL).
func Resolve(base string, candidates ...string) string {
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return Absolute(base, c)
		}
	}
	return ""
}
