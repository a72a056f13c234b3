package proxy

import (
	"net/http"
	"strings"

	"github.com/iTrooz/respcache/internal/config"
)

// Rule decides whether a request, and later its response, is cacheable
type Rule interface {
	Match(requ *http.Request, resp *http.Response) bool
}

// ConfigRule implements Rule interface for config-based rules
type ConfigRule struct {
	config.CacheRule
}

// Match checks the target URL prefix, the method list and, when a response
// is present, the status patterns. At request time resp is nil and status
// patterns are skipped, so cached answers are served before the upstream is
// ever contacted. An empty method or status list matches anything.
func (r *ConfigRule) Match(requ *http.Request, resp *http.Response) bool {
	// Check if URL starts with base URI
	if !strings.HasPrefix(targetURL(requ).String(), r.BaseURI) {
		return false
	}

	// Check if method matches
	if len(r.Methods) > 0 {
		methodMatches := false
		for _, m := range r.Methods {
			if strings.EqualFold(m, requ.Method) {
				methodMatches = true
				break
			}
		}
		if !methodMatches {
			return false
		}
	}

	// Check if status code matches (if specified)
	if resp != nil && len(r.Statuses) > 0 {
		statusMatches := false
		for _, pattern := range r.Statuses {
			if config.MatchesStatusCode(resp.StatusCode, pattern) {
				statusMatches = true
				break
			}
		}
		if !statusMatches {
			return false
		}
	}

	return true
}
