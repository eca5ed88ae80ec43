package webserver

import (
	"log"
	"time"

	"github.com/seednode-labs/quickdraw/internal/config"
)

const logDate = `2006-01-02T15:04:05.000-07:00`

// logf writes a timestamped line when cfg.Verbose is set, matching the
// teacher's own logf helper.
func logf(cfg *config.Config, format string, args ...any) {
	if !cfg.Verbose {
		return
	}
	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}
