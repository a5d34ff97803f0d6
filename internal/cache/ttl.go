package cache

import (
	"strings"
	"time"
)

// mimeTTLs gives each MIME family a sensible default lifetime: media and
// static assets rarely change and are cached longest, markup and data
// formats shortest.
var mimeTTLs = []struct {
	substr string
	ttl    time.Duration
}{
	{"image/", 24 * time.Hour},
	{"font", 24 * time.Hour},
	{"video/", 24 * time.Hour},
	{"audio/", 24 * time.Hour},
	{"text/css", time.Hour},
	{"javascript", time.Hour},
	{"text/html", 5 * time.Minute},
	{"json", time.Minute},
}

// defaultTTL applies when mime matches none of the known families.
const defaultTTL = 10 * time.Minute

// TTLForMIME derives a cache expiry duration from an upstream MIME type
// (spec.md §4.G: "expiry derived from MIME").
func TTLForMIME(mime string) time.Duration {
	mime = strings.ToLower(mime)
	for _, entry := range mimeTTLs {
		if strings.Contains(mime, entry.substr) {
			return entry.ttl
		}
	}
	return defaultTTL
}
