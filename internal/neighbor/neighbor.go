// Package neighbor stores per-site neighbor relations inline in fixed-capacity
// lists so that building a lattice performs no per-site heap allocation.
package neighbor

import (
	"errors"
	"fmt"
	"math"
)

// Capacity is the largest coordination number a site may have.
const Capacity = 12

var (
	// ErrCapacity is returned when a site has more than Capacity neighbors.
	ErrCapacity = errors.New("neighbor: list capacity exceeded")
	// ErrSiteRange is returned when a neighbor index is outside the lattice.
	ErrSiteRange = errors.New("neighbor: site out of range")
	// ErrSelfLoop is returned when a site lists itself as a neighbor.
	ErrSelfLoop = errors.New("neighbor: site lists itself")
	// ErrBadStrength is returned for NaN or infinite bond strengths.
	ErrBadStrength = errors.New("neighbor: bond strength must be finite")
	// ErrNilProvider is returned when a lattice with sites has no provider.
	ErrNilProvider = errors.New("neighbor: nil provider")
)

// Entry is one weighted bond as seen from its owning site.
type Entry struct {
	Site     int
	Strength float64
}

// Provider returns the bonds of site. It is called once per site when an
// engine is built and must be pure.
type Provider func(site int) []Entry

// Unweighted adapts an index-only neighbor function to a Provider with unit
// bond strengths.
func Unweighted(f func(site int) []int) Provider {
	return func(site int) []Entry {
		idx := f(site)
		out := make([]Entry, len(idx))
		for i, n := range idx {
			out[i] = Entry{Site: n, Strength: 1}
		}
		return out
	}
}

// List is a capacity-bounded ordered collection of entries.
type List struct {
	items [Capacity]Entry
	n     int
}

// Push appends e, failing with ErrCapacity when the list is full.
func (l *List) Push(e Entry) error {
	if l.n == Capacity {
		return ErrCapacity
	}
	l.items[l.n] = e
	l.n++
	return nil
}

// Len returns the number of stored entries.
func (l *List) Len() int { return l.n }

// At returns the i-th entry.
func (l *List) At(i int) Entry { return l.items[i] }

// Entries returns the stored entries. The slice aliases the list.
func (l *List) Entries() []Entry { return l.items[:l.n] }

// Contains reports whether site appears in the list.
func (l *List) Contains(site int) bool {
	for _, e := range l.items[:l.n] {
		if e.Site == site {
			return true
		}
	}
	return false
}

// Build calls p for every site and validates the result. Any violation aborts
// the build; no partial topology is returned.
func Build(sites int, p Provider) ([]List, error) {
	if p == nil && sites > 0 {
		return nil, ErrNilProvider
	}
	lists := make([]List, sites)
	for site := 0; site < sites; site++ {
		for _, e := range p(site) {
			switch {
			case e.Site < 0 || e.Site >= sites:
				return nil, fmt.Errorf("site %d: neighbor %d of %d sites: %w", site, e.Site, sites, ErrSiteRange)
			case e.Site == site:
				return nil, fmt.Errorf("site %d: %w", site, ErrSelfLoop)
			case math.IsNaN(e.Strength) || math.IsInf(e.Strength, 0):
				return nil, fmt.Errorf("site %d: neighbor %d strength %v: %w", site, e.Site, e.Strength, ErrBadStrength)
			}
			if err := lists[site].Push(e); err != nil {
				return nil, fmt.Errorf("site %d: more than %d neighbors: %w", site, Capacity, err)
			}
		}
	}
	return lists, nil
}
