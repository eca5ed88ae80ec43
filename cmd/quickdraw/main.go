/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seednode-labs/quickdraw/internal/config"
	"github.com/seednode-labs/quickdraw/internal/game"
	"github.com/seednode-labs/quickdraw/internal/phrase"
	"github.com/seednode-labs/quickdraw/internal/webserver"
)

const releaseVersion = "0.1.0"

func main() {
	log.SetFlags(0)
	cfg := &config.Config{}

	cmd := config.NewCommand(cfg, func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), cfg)
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cobra.CheckErr(cmd.ExecuteContext(ctx))
}

func run(ctx context.Context, cfg *config.Config) error {
	source, err := phrase.NewSource(cfg.PhraseDictionaries)
	if err != nil {
		return err
	}

	scores := game.WinnerScore{
		phrase.Easy:   cfg.WinnerScoreEasy,
		phrase.Medium: cfg.WinnerScoreMedium,
		phrase.Hard:   cfg.WinnerScoreHard,
	}

	registry := game.NewRegistry(game.RegistryOptions{
		MinPlayers:    cfg.MinPlayers,
		Durations:     cfg.TurnDurations,
		WinnerScores:  scores,
		GameLengthMin: cfg.GameLengthMin,
		GameLengthMax: cfg.GameLengthMax,
		PhraseSource:  source,
	})

	trick := game.NewTrickGenerator(rand.New(rand.NewSource(rand.Int63())))

	return webserver.Serve(ctx, cfg, registry, trick, releaseVersion)
}
