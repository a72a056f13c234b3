package proxy

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"reflect"
	"testing"
)

func TestCacheAddress(t *testing.T) {
	tests := []struct {
		name   string
		rawURL string
		want   string
	}{
		{
			name:   "host and path",
			rawURL: "http://example.com/api/users",
			want:   "example.com/api/users",
		},
		{
			name:   "default http port stripped",
			rawURL: "http://example.com:80/api",
			want:   "example.com/api",
		},
		{
			name:   "default https port stripped",
			rawURL: "https://example.com:443/api",
			want:   "example.com/api",
		},
		{
			name:   "custom port kept",
			rawURL: "http://example.com:8080/api",
			want:   "example.com:8080/api",
		},
		{
			name:   "query does not leak into the address",
			rawURL: "http://example.com/api?page=1",
			want:   "example.com/api",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.rawURL)
			if err != nil {
				t.Fatalf("Failed to parse URL %s: %v", tt.rawURL, err)
			}
			if got := cacheAddress(u); got != tt.want {
				t.Errorf("cacheAddress(%q) = %v, want %v", tt.rawURL, got, tt.want)
			}
		})
	}
}

func TestTargetURL(t *testing.T) {
	abs, _ := url.Parse("https://example.com/api")
	if got := targetURL(&http.Request{URL: abs}); got.String() != "https://example.com/api" {
		t.Errorf("targetURL() = %v", got)
	}

	rel, _ := url.Parse("/api/users")
	requ := &http.Request{URL: rel, Host: "example.com"}
	if got := targetURL(requ).String(); got != "http://example.com/api/users" {
		t.Errorf("targetURL() = %v, want http://example.com/api/users", got)
	}

	requ.TLS = &tls.ConnectionState{}
	if got := targetURL(requ).String(); got != "https://example.com/api/users" {
		t.Errorf("targetURL() = %v, want https://example.com/api/users", got)
	}
}

func TestRequestParams(t *testing.T) {
	u, _ := url.Parse("http://example.com/api?a=1&tag=x&tag=y")
	params := requestParams(&http.Request{URL: u, Method: "GET"})

	if params["a"] != "1" {
		t.Errorf("params[a] = %v, want 1", params["a"])
	}
	if !reflect.DeepEqual(params["tag"], []string{"x", "y"}) {
		t.Errorf("params[tag] = %v, want [x y]", params["tag"])
	}
	if _, ok := params["method"]; ok {
		t.Error("method leaked into query parameters")
	}
}
