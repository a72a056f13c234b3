package proxy

import (
	"net/http"
	"net/url"
	"strings"
)

// targetURL reconstructs the absolute URL of a proxied request. Intercepted
// HTTPS requests arrive with a relative URL, the host lives on the request.
func targetURL(requ *http.Request) *url.URL {
	if requ.URL.IsAbs() {
		return requ.URL
	}

	u := *requ.URL
	u.Host = requ.Host
	u.Scheme = "http"
	if requ.TLS != nil {
		u.Scheme = "https"
	}
	return &u
}

// cacheAddress maps a URL to the logical address its entries live under:
// host plus path, with scheme-default ports stripped so http://host:80/x and
// http://host/x share a directory.
func cacheAddress(u *url.URL) string {
	host := u.Host
	switch {
	case u.Scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}
	return host + u.Path
}

// requestParams flattens the query into a parameter map, single values as
// strings and repeated keys as slices.
func requestParams(requ *http.Request) map[string]any {
	query := requ.URL.Query()
	params := make(map[string]any, len(query))
	for k, vs := range query {
		if len(vs) == 1 {
			params[k] = vs[0]
		} else {
			params[k] = vs
		}
	}
	return params
}
