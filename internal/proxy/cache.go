package proxy

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/iTrooz/respcache/internal/cache"
)

// newRequestCache binds a cache instance to one proxied request. The method
// rides in as an extra parameter, so a query string like ?method=POST cannot
// spoof the real verb in the key.
func (s *Server) newRequestCache(requ *http.Request) *cache.Cache {
	u := targetURL(requ)
	return cache.New(s.cacheCfg, cache.Request{
		URI:    cacheAddress(u),
		Params: requestParams(requ),
	}, cache.Options{
		Freshness: s.freshness,
		Extra:     map[string]any{"method": requ.Method},
	})
}

// getCachedResponse returns a cached HTTP response if available
func (s *Server) getCachedResponse(requ *http.Request, rc *cache.Cache) *http.Response {
	raw, err := rc.Get()
	// If cache lookup fails, only log as error if the request should be cached
	if err != nil {
		if s.shouldBeCached(requ, nil) {
			logrus.Errorf("Failed to get cached data for %s: %v", requ.URL, err)
		} else {
			logrus.Debugf("Cache lookup failed for %s (caching disabled by rules): %v", requ.URL, err)
		}
		return nil
	}
	if raw == nil {
		logrus.Debugf("No cached data found for %s", requ.URL)
		return nil
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		logrus.Errorf("Failed to decode cached record for %s: %v", requ.URL, err)
		return nil
	}

	resp := fromRecord(requ, &rec)
	resp.Header.Set(headerCache, "HIT")
	resp.Header.Set(headerCacheKey, rc.Key())
	return resp
}

// shouldBeCached determines if a response should be cached based on rules
func (s *Server) shouldBeCached(requ *http.Request, resp *http.Response) bool {
	matched := false
	for _, rule := range s.rules {
		if rule.Match(requ, resp) {
			matched = true
			break
		}
	}

	if s.config.Rules.Mode == "whitelist" {
		return matched
	}
	return !matched
}

// cacheResponse stores a response in the cache
func (s *Server) cacheResponse(requ *http.Request, resp *http.Response, rc *cache.Cache) {
	rec, err := toRecord(resp)
	if err != nil {
		logrus.Errorf("Failed to read response for %s: %v", requ.URL.String(), err)
		return
	}
	if err := rc.Save(rec); err != nil {
		logrus.Errorf("Failed to cache response for %s: %v", requ.URL.String(), err)
		return
	}
	resp.Header.Set(headerCacheKey, rc.Key())
}
