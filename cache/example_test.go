package cache_test

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jonwraymond/adminops/cache"
)

func ExampleNewKey() {
	a := cache.NewKey("https://splunk.example.com:8089/services/search/jobs", []cache.Param{
		{Name: "output_mode", Value: "json"},
		{Name: "count", Value: "10"},
	})
	b := cache.NewKey("https://splunk.example.com:8089/services/search/jobs?count=10", []cache.Param{
		{Name: "output_mode", Value: "json"},
	})

	fmt.Println(a == b)
	fmt.Println(a)
	// Output:
	// true
	// https://splunk.example.com:8089/services/search/jobs?count=10&output_mode=json
}

func ExampleResponseCache_ShouldCacheRequest() {
	c, _ := cache.New(cache.Config{
		DefaultTTL: time.Minute,
		Policies: map[string]cache.Policy{
			"/services/search/jobs": cache.NoCache(),
			"/services/server/info": cache.CacheWithTTL(time.Hour),
		},
	})

	fmt.Println(c.ShouldCacheRequest(http.MethodGet, "/services/server/info"))
	fmt.Println(c.ShouldCacheRequest(http.MethodGet, "/services/search/jobs/123"))
	fmt.Println(c.ShouldCacheRequest(http.MethodGet, "/services/apps/local"))
	fmt.Println(c.ShouldCacheRequest(http.MethodPost, "/services/server/info"))
	// Output:
	// ttl=1h0m0s
	// no-cache
	// ttl=1m0s
	// no-cache
}
