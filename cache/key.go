package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Param is one query parameter.
type Param struct {
	Name  string
	Value string
}

// Key identifies a cacheable request: a normalized URL plus the sorted set of
// its query parameters. Keys are comparable and immutable.
type Key struct {
	url   string
	query string
}

// NewKey builds a key from a URL and extra query parameters. Parameters
// already present in rawURL are merged with params before sorting, so the
// original ordering never affects equality.
func NewKey(rawURL string, params []Param) Key {
	base, merged := splitURL(rawURL)
	merged = append(merged, params...)

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Name != merged[j].Name {
			return merged[i].Name < merged[j].Name
		}
		return merged[i].Value < merged[j].Value
	})

	values := make([]string, 0, len(merged))
	for _, p := range merged {
		values = append(values, url.QueryEscape(p.Name)+"="+url.QueryEscape(p.Value))
	}

	return Key{url: base, query: strings.Join(values, "&")}
}

// splitURL lowercases scheme and host, drops the fragment and strips the query
// string into params. Unparseable URLs are used verbatim.
func splitURL(rawURL string) (string, []Param) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL, nil
	}

	params := splitQuery(u.RawQuery)

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""

	return u.String(), params
}

// splitQuery splits a raw query on "&" without dropping anything: a pair
// whose escapes do not decode keeps its raw text, and ";" is not a
// separator.
func splitQuery(raw string) []Param {
	if raw == "" {
		return nil
	}

	var params []Param
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		params = append(params, Param{Name: unescapeOrRaw(name), Value: unescapeOrRaw(value)})
	}
	return params
}

func unescapeOrRaw(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return s
}

// URL returns the normalized URL without its query string.
func (k Key) URL() string { return k.url }

// String returns the canonical form: URL, then "?" and the sorted query when
// there is one.
func (k Key) String() string {
	if k.query == "" {
		return k.url
	}
	return k.url + "?" + k.query
}

// Digest returns a short SHA-256 fingerprint of the canonical form, suitable
// for log fields.
func (k Key) Digest() string {
	sum := sha256.Sum256([]byte(k.String()))
	return hex.EncodeToString(sum[:8])
}
