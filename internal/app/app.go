//go:build ebiten

package app

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"spin-mc/internal/render"
	"spin-mc/internal/ui"
)

// hudWidth is the width of the parameter panel right of the lattice.
const hudWidth = 220

// Game adapts a Session to the ebiten.Game interface.
type Game struct {
	session *Session
	painter *render.GridPainter
	hud     *ui.HUD
	palette []render.RGBA
	scale   int
}

// New constructs a Game for the provided session.
func New(s *Session, scale int) *Game {
	g := s.Grid()
	return &Game{
		session: s,
		painter: render.NewGridPainter(g.W, g.H),
		hud:     ui.NewHUD(s, hudWidth),
		palette: render.SpinPalette(),
		scale:   scale,
	}
}

// Update handles per-frame logic and advances the engine.
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.session.TogglePause()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		g.session.Advance(1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.session.Reset()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyUp) {
		g.session.AdjustBeta(1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyDown) {
		g.session.AdjustBeta(-1)
	}
	g.session.Tick()
	g.hud.Update()
	return nil
}

// Draw renders the current spin state.
func (g *Game) Draw(screen *ebiten.Image) {
	g.painter.Blit(screen, g.session.Cells(), g.palette, g.scale)
	grid := g.session.Grid()
	g.hud.Draw(screen, grid.W*g.scale, grid.H*g.scale)
}

// Layout returns the logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	grid := g.session.Grid()
	return grid.W*g.scale + hudWidth, grid.H * g.scale
}
