package webserver

import (
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/seednode-labs/quickdraw/internal/config"
	"github.com/seednode-labs/quickdraw/internal/game"
)

// fixedResponseHeaders are the headers securityHeaders sets on the home,
// version and robots pages and on the panic response; /healthz, /metrics
// and the QR endpoint do not send them. Game ids double as join-URL path segments that get pasted into
// chat apps and printed as QR codes (qrHandler), so framing/embedding and
// cross-origin reads of those pages are locked down the same way a
// websocket handshake endpoint would be, even though most of these routes
// are plain-text status pages rather than the handshake itself.
var fixedResponseHeaders = []struct{ name, value string }{
	{"Cross-Origin-Embedder-Policy", "require-corp"},
	{"Cross-Origin-Opener-Policy", "same-origin"},
	{"Cross-Origin-Resource-Policy", "same-site"},
	{"Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"X-Content-Type-Options", "nosniff"},
	{"Content-Security-Policy", "default-src 'self'"},
}

// securityHeaders writes fixedResponseHeaders plus, over TLS, HSTS.
func securityHeaders(cfg *config.Config, w http.ResponseWriter) {
	for _, h := range fixedResponseHeaders {
		w.Header().Set(h.name, h.value)
	}
	if cfg.Scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

// proxyIPHeaders are checked in priority order for a client address a
// fronting proxy recorded, since r.RemoteAddr is the proxy's own address
// once quickdraw sits behind one. Used only for the WS connect/disconnect
// log lines (websocket.go), not for any trust decision.
var proxyIPHeaders = []string{"CF-Connecting-IP", "X-Real-IP"}

// connectionAddr renders the caller's address for a websocket log line,
// preferring a trusted-proxy header over r.RemoteAddr when one parses as a
// valid IP.
func connectionAddr(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)

	for _, header := range proxyIPHeaders {
		if ip := r.Header.Get(header); ip != "" && net.ParseIP(ip) != nil {
			host = ip
			break
		}
	}

	if strings.Contains(host, ":") && net.ParseIP(host) != nil {
		host = "[" + host + "]"
	}
	if port == "" {
		return host
	}
	return host + ":" + port
}

func serveVersion(cfg *config.Config, version string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("quickdraw v" + version + "\n"))
	}
}

func serveHealthCheck(registry *game.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Ok: %d users, %d games\n", registry.UserCount(), registry.GameCount())
	}
}

func serveRobots(cfg *config.Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data := `User-agent: *
Disallow: /`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, _ = w.Write([]byte(data))
	}
}

// serveHomePage describes the /ws/:username handshake, since there is no
// bundled graphical client in scope (spec.md's Non-goals exclude it).
func serveHomePage(cfg *config.Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		_, _ = w.Write([]byte("quickdraw: connect a websocket client to " + cfg.Prefix + "/ws/:username\n"))
	}
}

func registerProfileHandlers(cfg *config.Config, mux *httprouter.Router) {
	mux.Handler("GET", cfg.Prefix+"/pprof/allocs", pprof.Handler("allocs"))
	mux.Handler("GET", cfg.Prefix+"/pprof/block", pprof.Handler("block"))
	mux.Handler("GET", cfg.Prefix+"/pprof/goroutine", pprof.Handler("goroutine"))
	mux.Handler("GET", cfg.Prefix+"/pprof/heap", pprof.Handler("heap"))
	mux.Handler("GET", cfg.Prefix+"/pprof/mutex", pprof.Handler("mutex"))
	mux.Handler("GET", cfg.Prefix+"/pprof/threadcreate", pprof.Handler("threadcreate"))
	mux.HandlerFunc("GET", cfg.Prefix+"/pprof/cmdline", pprof.Cmdline)
	mux.HandlerFunc("GET", cfg.Prefix+"/pprof/profile", pprof.Profile)
	mux.HandlerFunc("GET", cfg.Prefix+"/pprof/symbol", pprof.Symbol)
	mux.HandlerFunc("GET", cfg.Prefix+"/pprof/trace", pprof.Trace)
}

// qrHandler renders a PNG QR code encoding the join URL for :gameid,
// grounded on the teacher's own qrHandler in celebrity.go.
func qrHandler(registry *game.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}
		if _, exc := registry.GetGame(gameID); exc != nil {
			http.Error(w, exc.Error(), http.StatusNotFound)
			return
		}

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		path := strings.TrimSuffix(r.URL.Path, "/qr")
		url := scheme + "://" + r.Host + path

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}
