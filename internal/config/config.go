// Package config binds quickdraw's command-line flags, environment
// variables, and defaults into a single Config value, the way the
// teacher's root config.go wires cobra, pflag and viper together.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every knob spec.md section 6 and this module's ambient
// stack expose. It is passed explicitly rather than read from package
// globals, per spec.md section 9's redesign note on process-global state.
type Config struct {
	Bind    string
	Port    int
	Prefix  string
	Profile bool
	TLSCert string
	TLSKey  string
	Verbose bool
	Version bool

	PlayerTimeout time.Duration
	GameTimeout   time.Duration

	MinPlayers     int
	GameLengthMin  int
	GameLengthMax  int
	PostWinPause   time.Duration
	TurnDurations  []int
	WinnerScoreEasy   int
	WinnerScoreMedium int
	WinnerScoreHard   int

	PhraseDictionaries string
}

// Validate checks invariants Cobra's flag parser can't express on its own.
func (c *Config) Validate() error {
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.MinPlayers < 1 {
		return errors.New("--min-players must be at least 1")
	}
	if c.GameLengthMin < 1 || c.GameLengthMax < c.GameLengthMin {
		return errors.New("--game-length-min must be at least 1 and no greater than --game-length-max")
	}
	for _, d := range c.TurnDurations {
		if d <= 0 {
			return fmt.Errorf("invalid turn duration: %d", d)
		}
	}
	if c.PhraseDictionaries == "" {
		return errors.New("--phrase-dictionaries is required")
	}
	return nil
}

// Scheme reports "https" when a TLS cert/key pair is configured.
func (c *Config) Scheme() string {
	if c.TLSCert != "" && c.TLSKey != "" {
		return "https"
	}
	return "http"
}

// releaseVersion is set at build time via -ldflags, matching the teacher's
// own releaseVersion convention.
var releaseVersion = "dev"

// NewCommand builds the root cobra.Command, binding every flag to its
// QUICKDRAW_-prefixed environment variable via viper, the way the
// teacher's newCmd does for PARTYBOX_.
func NewCommand(cfg *Config, run func(cmd *cobra.Command, args []string) error) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("QUICKDRAW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "quickdraw",
		Short:         "A realtime multiplayer draw-and-guess game server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: QUICKDRAW_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: QUICKDRAW_PORT)")
	fs.StringVar(&cfg.Prefix, "prefix", "", "path to prepend to all URLs, for use behind a reverse proxy (env: QUICKDRAW_PREFIX)")
	fs.BoolVar(&cfg.Profile, "profile", false, "register net/http/pprof handlers (env: QUICKDRAW_PROFILE)")
	fs.StringVar(&cfg.TLSCert, "tls-cert", "", "path to tls certificate (env: QUICKDRAW_TLS_CERT)")
	fs.StringVar(&cfg.TLSKey, "tls-key", "", "path to tls keyfile (env: QUICKDRAW_TLS_KEY)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "display additional output (env: QUICKDRAW_VERBOSE)")
	fs.BoolVarP(&cfg.Version, "version", "V", false, "display version and exit (env: QUICKDRAW_VERSION)")

	fs.DurationVar(&cfg.PlayerTimeout, "player-timeout", 10*time.Minute, "time before an idle connection is dropped (env: QUICKDRAW_PLAYER_TIMEOUT)")
	fs.DurationVar(&cfg.GameTimeout, "game-timeout", 60*time.Minute, "time before an idle game is reaped (env: QUICKDRAW_GAME_TIMEOUT)")

	fs.IntVar(&cfg.MinPlayers, "min-players", 3, "minimum members required to start or continue a game (env: QUICKDRAW_MIN_PLAYERS)")
	fs.IntVar(&cfg.GameLengthMin, "game-length-min", 3, "minimum number of turns in a newly created game (env: QUICKDRAW_GAME_LENGTH_MIN)")
	fs.IntVar(&cfg.GameLengthMax, "game-length-max", 15, "maximum number of turns in a newly created game (env: QUICKDRAW_GAME_LENGTH_MAX)")
	fs.DurationVar(&cfg.PostWinPause, "post-win-pause", 5*time.Second, "pause between a winning guess and the next turn (env: QUICKDRAW_POST_WIN_PAUSE)")
	fs.IntSliceVar(&cfg.TurnDurations, "turn-durations", []int{30, 60}, "allowed turn durations, in seconds (env: QUICKDRAW_TURN_DURATIONS)")
	fs.IntVar(&cfg.WinnerScoreEasy, "winner-score-easy", 50, "points awarded for winning an easy turn (env: QUICKDRAW_WINNER_SCORE_EASY)")
	fs.IntVar(&cfg.WinnerScoreMedium, "winner-score-medium", 100, "points awarded for winning a medium turn (env: QUICKDRAW_WINNER_SCORE_MEDIUM)")
	fs.IntVar(&cfg.WinnerScoreHard, "winner-score-hard", 50, "points awarded for winning a hard turn (env: QUICKDRAW_WINNER_SCORE_HARD)")

	fs.StringVar(&cfg.PhraseDictionaries, "phrase-dictionaries", "./phrases", "directory containing easy.txt, medium.txt and hard.txt (env: QUICKDRAW_PHRASE_DICTIONARIES)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("quickdraw v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
