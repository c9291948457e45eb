// Package topology builds neighbor providers for the engines: periodic square
// and anisotropic rectangular grids, and bond lists loaded from disk.
package topology

import (
	"errors"

	"spin-mc/internal/core"
	"spin-mc/internal/neighbor"
)

var (
	// ErrBadShape is returned for grids or arrays with unusable dimensions.
	ErrBadShape = errors.New("topology: bad shape")
	// ErrBadFormat is returned when a bond file cannot be decoded.
	ErrBadFormat = errors.New("topology: bad format")
	// ErrUnknownBondClass is returned when a bond class has no strength.
	ErrUnknownBondClass = errors.New("topology: unknown bond class")
)

// Square returns the periodic w×h square lattice with unit bonds. Each site
// lists its left, right, up and down neighbors in that order.
func Square(w, h int) (int, neighbor.Provider, error) {
	return Rect(w, h, 1)
}

// Rect returns the periodic w×h lattice whose horizontal bonds have strength 1
// and vertical bonds strength t2.
func Rect(w, h int, t2 float64) (int, neighbor.Provider, error) {
	if w < 3 || h < 3 {
		return 0, nil, ErrBadShape
	}
	g := core.NewGrid(w, h)
	return g.Sites(), func(site int) []neighbor.Entry {
		return []neighbor.Entry{
			{Site: g.Neighbor(site, -1, 0), Strength: 1},
			{Site: g.Neighbor(site, 1, 0), Strength: 1},
			{Site: g.Neighbor(site, 0, -1), Strength: t2},
			{Site: g.Neighbor(site, 0, 1), Strength: t2},
		}
	}, nil
}

// Bond is one undirected edge of a loaded topology.
type Bond struct {
	A, B  int
	Class int
}

// FromBonds turns an undirected bond list into a provider. Bond classes index
// strengths; a nil table gives every bond strength 1. The site count is one
// more than the largest index.
func FromBonds(bonds []Bond, strengths []float64) (int, neighbor.Provider, error) {
	if len(bonds) == 0 {
		return 0, nil, ErrBadShape
	}
	sites := 0
	for _, b := range bonds {
		if b.A < 0 || b.B < 0 {
			return 0, nil, ErrBadShape
		}
		if strengths != nil && (b.Class < 0 || b.Class >= len(strengths)) {
			return 0, nil, ErrUnknownBondClass
		}
		sites = max(sites, b.A+1, b.B+1)
	}
	adj := make([][]neighbor.Entry, sites)
	for _, b := range bonds {
		j := 1.0
		if strengths != nil {
			j = strengths[b.Class]
		}
		adj[b.A] = append(adj[b.A], neighbor.Entry{Site: b.B, Strength: j})
		adj[b.B] = append(adj[b.B], neighbor.Entry{Site: b.A, Strength: j})
	}
	return sites, func(site int) []neighbor.Entry { return adj[site] }, nil
}
