package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CacheControl holds the response directives the cache honors.
type CacheControl struct {
	MaxAge    time.Duration
	HasMaxAge bool
	NoStore   bool
}

// ParseCacheControl reads max-age and no-store from every Cache-Control
// header value. An unparseable or negative max-age is ignored.
func ParseCacheControl(h http.Header) CacheControl {
	var cc CacheControl
	for _, line := range h.Values("Cache-Control") {
		for _, directive := range strings.Split(line, ",") {
			name, value, _ := strings.Cut(strings.TrimSpace(directive), "=")
			switch strings.ToLower(strings.TrimSpace(name)) {
			case "no-store":
				cc.NoStore = true
			case "max-age":
				secs, err := strconv.ParseInt(strings.Trim(strings.TrimSpace(value), `"`), 10, 64)
				if err != nil || secs < 0 {
					continue
				}
				if secs > int64(maxAgeCap/time.Second) {
					secs = int64(maxAgeCap / time.Second)
				}
				cc.MaxAge = time.Duration(secs) * time.Second
				cc.HasMaxAge = true
			}
		}
	}
	return cc
}

// maxAgeCap keeps max-age arithmetic away from Duration overflow.
const maxAgeCap = 365 * 24 * time.Hour
