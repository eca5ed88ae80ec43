package webserver

import (
	"time"

	"github.com/seednode-labs/quickdraw/internal/config"
	"github.com/seednode-labs/quickdraw/internal/game"
	"github.com/seednode-labs/quickdraw/internal/metrics"
)

// startReapers launches the idle-connection and idle-game background
// loops, grounded on the teacher's GameManager.reaperLoop (celebrity.go),
// generalized to cover both connections and games per spec.md section 6's
// player-timeout/game-timeout configuration.
func startReapers(cfg *config.Config, registry *game.Registry) {
	if cfg.PlayerTimeout > 0 {
		go reapIdlePlayers(cfg, registry)
	}
	if cfg.GameTimeout > 0 {
		go reapIdleGames(cfg, registry)
	}
}

func reapIdlePlayers(cfg *config.Config, registry *game.Registry) {
	ticker := time.NewTicker(cfg.PlayerTimeout / 2)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-cfg.PlayerTimeout)
		for _, u := range registry.Users() {
			if u.LastActive().Before(cutoff) {
				logf(cfg, "REAP: idle player %s", u.Name)
				u.CloseSink()
			}
		}
	}
}

func reapIdleGames(cfg *config.Config, registry *game.Registry) {
	ticker := time.NewTicker(cfg.GameTimeout / 2)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-cfg.GameTimeout)
		reaped := registry.ReapIdleGames(cutoff)
		for _, g := range reaped {
			logf(cfg, "REAP: idle game %s", g.ID())
			metrics.GamesReapedTotal.Inc()
		}
	}
}

// updateGauges periodically syncs the live-user/live-game Prometheus
// gauges to the registry's current counts.
func updateGauges(registry *game.Registry) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		metrics.LiveUsers.Set(float64(registry.UserCount()))
		metrics.LiveGames.Set(float64(registry.GameCount()))
	}
}
