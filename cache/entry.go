package cache

import (
	"net/http"
	"sort"
	"time"
)

// HeaderField is one response header line.
type HeaderField struct {
	Name  string
	Value string
}

// Entry is an immutable cached response.
type Entry struct {
	Body       []byte
	StatusCode int
	Header     []HeaderField
	InsertedAt time.Time
	TTL        time.Duration
}

// NewEntry snapshots a response. Header names are canonicalized and ordered
// by name; values keep their original order. The body is copied.
func NewEntry(statusCode int, header http.Header, body []byte, insertedAt time.Time, ttl time.Duration) Entry {
	names := make([]string, 0, len(header))
	for name := range header {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]HeaderField, 0, len(names))
	for _, name := range names {
		canonical := http.CanonicalHeaderKey(name)
		for _, v := range header[name] {
			fields = append(fields, HeaderField{Name: canonical, Value: v})
		}
	}

	return Entry{
		Body:       append([]byte(nil), body...),
		StatusCode: statusCode,
		Header:     fields,
		InsertedAt: insertedAt,
		TTL:        ttl,
	}
}

// IsExpired reports whether now - InsertedAt >= TTL.
func (e Entry) IsExpired(now time.Time) bool {
	return now.Sub(e.InsertedAt) >= e.TTL
}

// HTTPHeader rebuilds an http.Header from the stored fields.
func (e Entry) HTTPHeader() http.Header {
	h := make(http.Header, len(e.Header))
	for _, f := range e.Header {
		h.Add(f.Name, f.Value)
	}
	return h
}
