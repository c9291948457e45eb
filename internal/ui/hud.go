//go:build ebiten

package ui

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"

	"spin-mc/internal/core"
)

const (
	panelPadding = 10
	lineHeight   = 16
)

// Source supplies what the HUD shows.
type Source interface {
	Name() string
	Paused() bool
	Parameters() core.ParameterSnapshot
}

// HUD renders the parameter panel to the right of the lattice view.
type HUD struct {
	src        Source
	width      int
	panel      *ebiten.Image
	lastHeight int
	snapshot   core.ParameterSnapshot
}

// NewHUD constructs a HUD for the provided source and panel width.
func NewHUD(src Source, width int) *HUD {
	return &HUD{src: src, width: max(width, 0)}
}

// Update refreshes the cached parameter snapshot.
func (h *HUD) Update() {
	if h == nil || h.src == nil {
		return
	}
	h.snapshot = h.src.Parameters()
}

// Draw paints the panel at offsetX with the given height.
func (h *HUD) Draw(screen *ebiten.Image, offsetX, height int) {
	if h == nil || h.width <= 0 || height <= 0 {
		return
	}
	if h.panel == nil || h.lastHeight != height {
		h.panel = ebiten.NewImage(h.width, height)
		h.lastHeight = height
	}
	h.panel.Fill(color.RGBA{R: 16, G: 16, B: 20, A: 255})

	face := basicfont.Face7x13
	title := h.src.Name()
	if h.src.Paused() {
		title += " (paused)"
	}
	y := panelPadding + lineHeight
	text.Draw(h.panel, title, face, panelPadding, y, color.RGBA{R: 200, G: 200, B: 210, A: 255})
	for _, g := range h.snapshot.Groups {
		y += lineHeight + 4
		text.Draw(h.panel, g.Name, face, panelPadding, y, color.RGBA{R: 140, G: 170, B: 220, A: 255})
		for _, p := range g.Params {
			y += lineHeight
			line := fmt.Sprintf("%-14s %s", p.Label, p.Value)
			text.Draw(h.panel, line, face, panelPadding, y, color.RGBA{R: 220, G: 220, B: 230, A: 255})
		}
	}
	y += 2 * lineHeight
	for _, help := range []string{"space pause  n step", "up/down beta  r reset", "q quit"} {
		text.Draw(h.panel, help, face, panelPadding, y, color.RGBA{R: 160, G: 160, B: 170, A: 255})
		y += lineHeight
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(offsetX), 0)
	screen.DrawImage(h.panel, op)
}
