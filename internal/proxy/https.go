package proxy

import (
	"bufio"
	"bytes"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/elazarl/goproxy"
	"github.com/inconshreveable/go-vhost"
	"github.com/sirupsen/logrus"

	"github.com/iTrooz/respcache/internal/config"
)

func loadCertificate(cfg *config.Config) (*tls.Certificate, error) {
	https := cfg.Server.HTTPS
	if https.CACertFile == "" || https.CAKeyFile == "" {
		logrus.Debugf("No CA certificate configured, using goproxy default certificate")
		return nil, nil // Use default goproxy certificate
	}

	cert, err := tls.LoadX509KeyPair(https.CACertFile, https.CAKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load CA certificate and key: %w", err)
	}
	logrus.Debugf("Loaded CA certificate from %s", https.CACertFile)
	return &cert, nil
}

// setupHTTPSHandler wires TLS interception. Without MITM enabled, CONNECT
// tunnels pass through untouched and HTTPS responses stay uncached.
func (s *Server) setupHTTPSHandler() error {
	if !s.config.Server.HTTPS.MITM {
		return nil
	}

	caCert, err := loadCertificate(s.config)
	if err != nil {
		return err
	}
	s.proxy.CertStore = newCertStore()

	if caCert == nil {
		logrus.Warnf("TLS interception enabled but no CA certificate loaded, using goproxy default certificate")
		s.proxy.OnRequest().HandleConnect(goproxy.AlwaysMitm)
		return nil
	}

	// Make goproxy use our provided CA certificate
	customCaMitm := &goproxy.ConnectAction{
		Action:    goproxy.ConnectMitm,
		TLSConfig: goproxy.TLSConfigFromCA(caCert),
	}
	customAlwaysMitm := goproxy.FuncHttpsHandler(func(host string, ctx *goproxy.ProxyCtx) (*goproxy.ConnectAction, string) {
		logrus.Debugf("Handling CONNECT request for %s", host)
		return customCaMitm, host
	})
	s.proxy.OnRequest().HandleConnect(customAlwaysMitm)
	return nil
}

// StartTransparentHTTPS accepts raw TLS connections and feeds them to the
// proxy as CONNECT requests, using SNI to recover the destination host.
func (s *Server) StartTransparentHTTPS(httpsAddr string) {
	ln, err := net.Listen("tcp", httpsAddr)
	if err != nil {
		logrus.Fatalf("Error listening for https connections - %v", err)
	}
	logrus.Infof("Transparent HTTPS listener on %s", httpsAddr)
	for {
		c, err := ln.Accept()
		if err != nil {
			logrus.Errorf("Error accepting new connection - %v", err)
			continue
		}
		go func(c net.Conn) {
			tlsConn, err := vhost.TLS(c)
			if err != nil {
				logrus.Errorf("Error accepting new connection - %v", err)
				return
			}
			if tlsConn.Host() == "" {
				logrus.Errorf("Cannot support non-SNI enabled clients")
				return
			}
			connectReq := &http.Request{
				Method: http.MethodConnect,
				URL: &url.URL{
					Opaque: tlsConn.Host(),
					Host:   net.JoinHostPort(tlsConn.Host(), "443"),
				},
				Host:       tlsConn.Host(),
				Header:     make(http.Header),
				RemoteAddr: c.RemoteAddr().String(),
			}
			resp := dumbResponseWriter{tlsConn}
			s.proxy.ServeHTTP(resp, connectReq)
		}(c)
	}
}

// dumbResponseWriter adapts a hijacked TLS connection to the ResponseWriter
// goproxy expects for the synthetic CONNECT request.
type dumbResponseWriter struct {
	net.Conn
}

func (dumb dumbResponseWriter) Header() http.Header {
	panic("Header() should not be called on this ResponseWriter")
}

func (dumb dumbResponseWriter) Write(buf []byte) (int, error) {
	if bytes.Equal(buf, []byte("HTTP/1.0 200 OK\r\n\r\n")) {
		// Discard the faux CONNECT response, the client never sent CONNECT.
		return len(buf), nil
	}
	return dumb.Conn.Write(buf)
}

func (dumb dumbResponseWriter) WriteHeader(code int) {
	panic("WriteHeader() should not be called on this ResponseWriter")
}

func (dumb dumbResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return dumb.Conn, bufio.NewReadWriter(bufio.NewReader(dumb.Conn), bufio.NewWriter(dumb.Conn)), nil
}
