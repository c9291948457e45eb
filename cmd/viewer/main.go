//go:build ebiten

package main

import (
	"errors"
	"flag"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"spin-mc/internal/app"
	_ "spin-mc/internal/classical"
	"spin-mc/internal/logging"
	_ "spin-mc/internal/quantum"
)

func main() {
	cfg := app.NewConfig()
	cfg.Bind(flag.CommandLine)
	flag.Parse()
	log := logging.Default().WithComponent("viewer")

	session, err := app.NewSession(cfg)
	if err != nil {
		log.Error("cannot start engine", logging.WithField("model", cfg.Model), logging.WithField("error", err))
		os.Exit(1)
	}
	game := app.New(session, cfg.Scale)
	w, h := game.Layout(0, 0)

	ebiten.SetWindowTitle("spin-mc: " + session.Name())
	ebiten.SetTPS(cfg.TPS)
	ebiten.SetWindowSize(w, h)

	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Error("viewer stopped", logging.WithField("error", err))
		os.Exit(1)
	}
}
