// Caching forward proxy built around the response cache
package proxy

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/elazarl/goproxy"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iTrooz/respcache/internal/cache"
	"github.com/iTrooz/respcache/internal/config"
)

// Headers the proxy adds to the traffic it touches.
const (
	headerCache     = "X-Cache"
	headerCacheKey  = "X-Cache-Key"
	headerRequestID = "X-Request-Id"
	headerPurgeAll  = "X-Purge-All"
)

// PurgeMethod invalidates cached entries. It clears the directory of the
// request URL, or everything with X-Purge-All: true or a bare "/" path.
const PurgeMethod = "PURGE"

// Server represents the caching proxy server
type Server struct {
	config    *config.Config
	cacheCfg  cache.Config
	freshness cache.Freshness
	rules     []Rule
	proxy     *goproxy.ProxyHttpServer
}

// New creates a new proxy server
func New(cfg *config.Config) (*Server, error) {
	freshness, err := cfg.GetFreshness()
	if err != nil {
		return nil, fmt.Errorf("invalid cache freshness: %w", err)
	}

	rules := make([]Rule, 0, len(cfg.Rules.Rules))
	for _, r := range cfg.Rules.Rules {
		rules = append(rules, &ConfigRule{CacheRule: r})
	}

	s := &Server{
		config:    cfg,
		cacheCfg:  cfg.Resolve(),
		freshness: freshness,
		rules:     rules,
		proxy:     goproxy.NewProxyHttpServer(),
	}
	s.proxy.Verbose = logrus.GetLevel() >= logrus.DebugLevel

	if err := s.setupHTTPSHandler(); err != nil {
		return nil, err
	}
	s.setupHandlers()

	return s, nil
}

func (s *Server) setupHandlers() {
	s.proxy.OnRequest().DoFunc(func(requ *http.Request, ctx *goproxy.ProxyCtx) (*http.Request, *http.Response) {
		if requ.Header.Get(headerRequestID) == "" {
			requ.Header.Set(headerRequestID, uuid.NewString())
		}

		if requ.Method == PurgeMethod {
			return requ, s.handlePurge(requ)
		}

		rc := s.newRequestCache(requ)
		ctx.UserData = rc

		if resp := s.getCachedResponse(requ, rc); resp != nil {
			logrus.Infof("Serving from cache: %s %s [%s]", requ.Method, requ.URL, requ.Header.Get(headerRequestID))
			return requ, resp
		}
		return requ, nil
	})

	s.proxy.OnResponse().DoFunc(func(resp *http.Response, ctx *goproxy.ProxyCtx) *http.Response {
		if resp == nil {
			// Upstream unreachable, goproxy reports the error itself.
			return nil
		}
		if ctx.Req != nil && ctx.Req.Method == PurgeMethod {
			return resp
		}
		if resp.Header.Get(headerCache) == "HIT" {
			return resp
		}

		if rc, ok := ctx.UserData.(*cache.Cache); ok && s.shouldBeCached(ctx.Req, resp) {
			s.cacheResponse(ctx.Req, resp, rc)
		}
		resp.Header.Set(headerCache, "MISS")
		logrus.Infof("Forwarded request: %s %s -> %d [%s]",
			ctx.Req.Method, targetURL(ctx.Req), resp.StatusCode, ctx.Req.Header.Get(headerRequestID))
		return resp
	})
}

// handlePurge answers the PURGE method locally, the request never reaches
// the upstream.
func (s *Server) handlePurge(requ *http.Request) *http.Response {
	rc := s.newRequestCache(requ)
	u := targetURL(requ)

	all := strings.EqualFold(requ.Header.Get(headerPurgeAll), "true") || u.Path == "" || u.Path == "/"
	var err error
	if all {
		err = rc.ClearAll()
	} else {
		err = rc.ClearByURI(cacheAddress(u))
	}
	if err != nil {
		logrus.Errorf("Purge failed for %s: %v", u, err)
		return goproxy.NewResponse(requ, goproxy.ContentTypeText, http.StatusInternalServerError, "purge failed\n")
	}

	if all {
		logrus.Infof("Purged all cached entries")
	} else {
		logrus.Infof("Purged entries under %s", cacheAddress(u))
	}
	return goproxy.NewResponse(requ, goproxy.ContentTypeText, http.StatusOK, "purged\n")
}

// Handler exposes the proxy handler for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.proxy
}

// Start starts the proxy server
func (s *Server) Start() error {
	logrus.Infof("Starting caching proxy on port %d", s.config.Server.Port)
	if s.cacheCfg.Disabled {
		logrus.Warnf("Caching is disabled, all requests go upstream")
	} else {
		logrus.Infof("Cache folder: %s", s.cacheCfg.Root)
		logrus.Infof("Cache freshness: %s", s.freshness)
	}
	logrus.Infof("Rules mode: %s", s.config.Rules.Mode)

	if port := s.config.Server.HTTPS.TransparentPort; port > 0 {
		go s.StartTransparentHTTPS(fmt.Sprintf(":%d", port))
	}

	return http.ListenAndServe(fmt.Sprintf(":%d", s.config.Server.Port), s.proxy)
}
