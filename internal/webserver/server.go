// Package webserver wires the HTTP/WebSocket surface: handshake,
// security headers, health/version/robots endpoints, pprof profiling,
// Prometheus metrics, a join-QR endpoint, and the background reapers.
// Grounded on the teacher's web.go (ServePage) and celebrity.go's
// per-game websocket wiring.
package webserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/seednode-labs/quickdraw/internal/config"
	"github.com/seednode-labs/quickdraw/internal/dispatch"
	"github.com/seednode-labs/quickdraw/internal/game"
	"github.com/seednode-labs/quickdraw/internal/metrics"
)

const requestTimeout = 10 * time.Second

// Serve builds the full HTTP mux and runs the server until ctx is
// cancelled, then shuts it down gracefully. version is the release
// version string reported by /version.
func Serve(ctx context.Context, cfg *config.Config, registry *game.Registry, trick *game.TrickGenerator, version string) error {
	cfg.Prefix = strings.TrimSuffix(cfg.Prefix, "/")

	errorRouter := dispatch.NewErrorRouter(registry)
	gameHandler := dispatch.NewGameHandler(registry, trick, errorRouter, cfg.MinPlayers)
	drawHandler := dispatch.NewDrawHandler(registry)
	chatHandler := dispatch.NewChatHandler(registry, gameHandler, cfg.PostWinPause)
	d := dispatch.New(registry, drawHandler, chatHandler, gameHandler, errorRouter)

	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "An error has occurred. Please try again.\n")
	}

	mux.GET(cfg.Prefix+"/", serveHomePage(cfg))
	mux.GET(cfg.Prefix+"/healthz", serveHealthCheck(registry))
	mux.GET(cfg.Prefix+"/robots.txt", serveRobots(cfg))
	mux.GET(cfg.Prefix+"/version", serveVersion(cfg, version))
	mux.GET(cfg.Prefix+"/metrics", httprouter.Handle(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		metrics.Handler().ServeHTTP(w, r)
	}))
	mux.GET(cfg.Prefix+"/ws/:username", serveWS(cfg, registry, d))
	mux.GET(cfg.Prefix+"/games/:gameid/qr", qrHandler(registry))

	if cfg.Profile {
		registerProfileHandlers(cfg, mux)
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Bind, strconv.Itoa(cfg.Port)),
		Handler:           mux,
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       requestTimeout,
		ReadHeaderTimeout: requestTimeout,
		WriteTimeout:      requestTimeout,
	}

	startReapers(cfg, registry)
	go updateGauges(registry)

	go func() {
		var err error
		logf(cfg, "SERVE: listening on %s://%s%s/", cfg.Scheme(), srv.Addr, cfg.Prefix)
		if cfg.TLSCert != "" && cfg.TLSKey != "" {
			err = srv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("%s | ERROR: %v\n", time.Now().Format(logDate), err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
