// Package metrics exposes the server's Prometheus instrumentation.
// Grounded on rias-glitch-telegram-webapp's internal/http/middleware
// metrics, which registers its vectors via a package-level MustRegister
// rather than a constructor-built registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

var (
	// LiveUsers is the current count of connected users.
	LiveUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "quickdraw_live_users",
		Help: "Number of currently connected users.",
	})

	// LiveGames is the current count of rooms known to the registry.
	LiveGames = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "quickdraw_live_games",
		Help: "Number of currently registered games.",
	})

	// MessagesTotal counts dispatched messages by topic and outcome.
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quickdraw_messages_total",
		Help: "Total inbound messages routed by the dispatcher, by topic and outcome.",
	}, []string{"topic", "outcome"})

	// TurnsTotal counts turns played, by difficulty.
	TurnsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quickdraw_turns_total",
		Help: "Total turns played, by difficulty.",
	}, []string{"difficulty"})

	// TricksTotal counts tricks released, by operation.
	TricksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quickdraw_tricks_total",
		Help: "Total tricks released on drawers, by trick operation.",
	}, []string{"operation"})

	// GamesReapedTotal counts games removed by the idle-game reaper.
	GamesReapedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quickdraw_games_reaped_total",
		Help: "Total games removed by the idle-game reaper.",
	})
)

func init() {
	prometheus.MustRegister(
		LiveUsers,
		LiveGames,
		MessagesTotal,
		TurnsTotal,
		TricksTotal,
		GamesReapedTotal,
	)
}

// Handler returns the http.Handler that serves the registered metrics in
// the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
