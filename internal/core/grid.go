package core

// Grid maps 2D periodic coordinates onto site indices in row-major order.
type Grid struct {
	W, H int
}

// NewGrid returns a grid with the given dimensions, clamping both to at least 1.
func NewGrid(w, h int) Grid {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	return Grid{W: w, H: h}
}

// Sites returns the number of sites on the grid.
func (g Grid) Sites() int { return g.W * g.H }

// Index returns the linear site index for coordinates (x, y).
func (g Grid) Index(x, y int) int { return y*g.W + x }

// Coords is the inverse of Index.
func (g Grid) Coords(site int) (int, int) { return site % g.W, site / g.W }

// Wrap applies toroidal wrapping to the provided coordinates.
func (g Grid) Wrap(x, y int) (int, int) {
	x = (x%g.W + g.W) % g.W
	y = (y%g.H + g.H) % g.H
	return x, y
}

// Neighbor returns the index of the site displaced by (dx, dy) from site,
// with periodic boundaries.
func (g Grid) Neighbor(site, dx, dy int) int {
	x, y := g.Coords(site)
	return g.Index(g.Wrap(x+dx, y+dy))
}
