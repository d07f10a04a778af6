package host

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/1ureka/nexremote/internal/discovery"
	"github.com/1ureka/nexremote/internal/transport"
	"github.com/1ureka/nexremote/internal/util"
	"golang.org/x/sync/errgroup"
)

// Listen names the addresses Serve binds. An empty address disables that
// listener.
type Listen struct {
	SecureAddr    string // ":8765"
	InsecureAddr  string // ":8766"
	DiscoveryAddr string // ":37020"
}

// Serve runs the wss and ws endpoints and the discovery responder until ctx
// is done. The certificate fingerprint is logged so clients can pin it.
func (h *Host) Serve(ctx context.Context, l Listen) error {
	// Listeners started before a later setup error stop with this cancel.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	handler := h.Handler(gctx)

	if l.SecureAddr != "" {
		cert, err := SelfSignedCert(h.opts.Name)
		if err != nil {
			return fmt.Errorf("generate certificate: %w", err)
		}
		util.LogInfo("certificate fingerprint %s", transport.Fingerprint(cert.Certificate[0]))

		ln, err := tls.Listen("tcp", l.SecureAddr, &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		})
		if err != nil {
			return fmt.Errorf("listen %s: %w", l.SecureAddr, err)
		}
		g.Go(func() error { return serveHTTP(gctx, ln, handler) })
	}

	if l.InsecureAddr != "" {
		ln, err := net.Listen("tcp", l.InsecureAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", l.InsecureAddr, err)
		}
		g.Go(func() error { return serveHTTP(gctx, ln, handler) })
	}

	if l.DiscoveryAddr != "" {
		r, err := discovery.NewResponder(l.DiscoveryAddr, discovery.HostRecord{
			ID:           h.opts.ID,
			Name:         h.opts.Name,
			SecurePort:   portOf(l.SecureAddr),
			InsecurePort: portOf(l.InsecureAddr),
			Version:      Version,
		})
		if err != nil {
			return err
		}
		g.Go(func() error { return r.Serve(gctx) })
	}

	return g.Wait()
}

func serveHTTP(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	util.LogInfo("listening on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func portOf(addr string) int {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(p)
	return n
}
