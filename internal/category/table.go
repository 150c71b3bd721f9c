// Package category maps random numbers onto weighted discrete categories
// using a cumulative-distribution breakpoint table.
package category

import (
	"errors"
	"fmt"
)

// MaxChance is the exclusive upper bound of the values a Table accepts.
const MaxChance = 100

var (
	ErrRangeOutOfBounds = errors.New("category: range out of bounds")
	ErrInvalidTable     = errors.New("category: invalid breakpoint table")
)

// Breakpoint is one entry of a cumulative distribution. Every value up to and
// including UpperBound that is above the previous entry's bound maps to Category.
type Breakpoint struct {
	UpperBound uint64
	Category   int
	Name       string
}

// Table is an ordered breakpoint table covering [0, MaxChance-1].
type Table struct {
	points []Breakpoint
}

// NewTable validates the breakpoints and returns a table. Bounds must be
// strictly increasing and the last bound must be MaxChance-1.
func NewTable(points ...Breakpoint) (*Table, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no breakpoints", ErrInvalidTable)
	}
	for i, p := range points {
		if p.UpperBound >= MaxChance {
			return nil, fmt.Errorf("%w: bound %d exceeds %d", ErrInvalidTable, p.UpperBound, MaxChance-1)
		}
		if i > 0 && p.UpperBound <= points[i-1].UpperBound {
			return nil, fmt.Errorf("%w: bound %d not above %d", ErrInvalidTable, p.UpperBound, points[i-1].UpperBound)
		}
	}
	if last := points[len(points)-1].UpperBound; last != MaxChance-1 {
		return nil, fmt.Errorf("%w: final bound is %d, want %d", ErrInvalidTable, last, MaxChance-1)
	}

	cp := make([]Breakpoint, len(points))
	copy(cp, points)
	return &Table{points: cp}, nil
}

// FromWeights builds a table from per-category percentage weights. Weights
// must be positive and sum to MaxChance; category i gets index i and names[i]
// when present.
func FromWeights(names []string, weights ...uint64) (*Table, error) {
	var (
		points []Breakpoint
		sum    uint64
	)
	for i, w := range weights {
		if w == 0 {
			return nil, fmt.Errorf("%w: weight %d is zero", ErrInvalidTable, i)
		}
		sum += w
		p := Breakpoint{UpperBound: sum - 1, Category: i}
		if i < len(names) {
			p.Name = names[i]
		}
		points = append(points, p)
	}
	if sum != MaxChance {
		return nil, fmt.Errorf("%w: weights sum to %d, want %d", ErrInvalidTable, sum, MaxChance)
	}
	return NewTable(points...)
}

// DogBreeds is the collection's breed table: 10% PUG, 30% SHIBA_INU,
// 60% ST_BERNARD.
func DogBreeds() *Table {
	t, err := NewTable(
		Breakpoint{UpperBound: 9, Category: 0, Name: "PUG"},
		Breakpoint{UpperBound: 39, Category: 1, Name: "SHIBA_INU"},
		Breakpoint{UpperBound: 99, Category: 2, Name: "ST_BERNARD"},
	)
	if err != nil {
		panic(err)
	}
	return t
}

// Resolve returns the category of the first breakpoint whose bound is at
// least rng. Values of MaxChance or more are rejected, never clamped.
func (t *Table) Resolve(rng uint64) (int, error) {
	if rng >= MaxChance {
		return 0, fmt.Errorf("%w: %d", ErrRangeOutOfBounds, rng)
	}
	for _, p := range t.points {
		if rng <= p.UpperBound {
			return p.Category, nil
		}
	}
	return 0, fmt.Errorf("%w: %d", ErrRangeOutOfBounds, rng)
}

// Name returns the display name for a category index, or "" if unnamed.
func (t *Table) Name(cat int) string {
	for _, p := range t.points {
		if p.Category == cat {
			return p.Name
		}
	}
	return ""
}

// Breakpoints returns a copy of the table's entries.
func (t *Table) Breakpoints() []Breakpoint {
	cp := make([]Breakpoint, len(t.points))
	copy(cp, t.points)
	return cp
}

// Len returns the number of breakpoints.
func (t *Table) Len() int {
	return len(t.points)
}
