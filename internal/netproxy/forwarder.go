// Package netproxy runs a local forward proxy that chains to an
// authenticated upstream. Chrome has no flag for proxy credentials, so the
// browser is pointed at this local listener and the Proxy-Authorization
// header is injected on the upstream hop.
package netproxy

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/elazarl/goproxy"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/sockpuppet-cli/internal/config"
)

// Forwarder is the local proxy listener. Start it before launching the
// browser and Stop it after the browser is gone.
type Forwarder struct {
	cfg    config.ProxyConfig
	logger *zap.Logger
	proxy  *goproxy.ProxyHttpServer
	server *http.Server

	mu      sync.Mutex
	addr    string
	group   *errgroup.Group
	started bool
}

// NewForwarder builds the forwarder from the proxy section of the config.
// The upstream URL must parse; credentials are optional.
func NewForwarder(cfg config.ProxyConfig, logger *zap.Logger) (*Forwarder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("netproxy")

	upstream, err := url.Parse(cfg.URL)
	if err != nil || upstream.Host == "" {
		return nil, fmt.Errorf("invalid upstream proxy url %q: %w", cfg.URL, err)
	}
	if upstream.Scheme == "" {
		upstream.Scheme = "http"
	}

	proxy := goproxy.NewProxyHttpServer()
	proxy.Logger = zap.NewStdLog(log)

	// For plain HTTP the credentials ride in the proxy URL and net/http
	// emits the Proxy-Authorization header itself.
	transportUpstream := *upstream
	if cfg.Username != "" {
		transportUpstream.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	proxy.Tr = &http.Transport{
		Proxy:               http.ProxyURL(&transportUpstream),
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	// CONNECT tunnels bypass the transport, so the header is injected on
	// the CONNECT request directly.
	if cfg.Username != "" {
		auth := basicProxyAuth(cfg.Username, cfg.Password)
		proxy.ConnectDial = proxy.NewConnectDialToProxyWithHandler(upstream.String(), func(req *http.Request) {
			req.Header.Set("Proxy-Authorization", auth)
		})
	} else {
		proxy.ConnectDial = proxy.NewConnectDialToProxy(upstream.String())
	}

	log.Debug("Forwarder configured.",
		zap.String("upstream_host", upstream.Host),
		zap.Bool("authenticated", cfg.Username != ""))

	return &Forwarder{
		cfg:    cfg,
		logger: log,
		proxy:  proxy,
	}, nil
}

// Start binds the local listener and serves in the background. The bound
// address is available from Addr afterwards; with an empty ListenAddr an
// ephemeral loopback port is chosen.
func (f *Forwarder) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return errors.New("forwarder already started")
	}

	listenAddr := f.cfg.ListenAddr
	if listenAddr == "" {
		listenAddr = "127.0.0.1:0"
	}
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("failed to bind proxy listener on %q: %w", listenAddr, err)
	}

	f.addr = ln.Addr().String()
	f.server = &http.Server{
		Handler:           f.proxy,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	f.group, _ = errgroup.WithContext(ctx)
	f.group.Go(func() error {
		if err := f.server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("proxy listener failed: %w", err)
		}
		return nil
	})

	f.started = true
	f.logger.Info("Local proxy forwarder listening.", zap.String("addr", f.addr))
	return nil
}

// Addr returns the bound listener address, empty before Start.
func (f *Forwarder) Addr() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addr
}

// Stop drains the listener and waits for the serve goroutine. Safe to call
// without a prior Start.
func (f *Forwarder) Stop(ctx context.Context) error {
	f.mu.Lock()
	server, group, started := f.server, f.group, f.started
	f.started = false
	f.mu.Unlock()

	if !started {
		return nil
	}
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("proxy shutdown failed: %w", err)
	}
	return group.Wait()
}

func basicProxyAuth(username, password string) string {
	token := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return "Basic " + token
}
