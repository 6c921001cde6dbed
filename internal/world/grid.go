package world

import (
	"math"

	"github.com/l1jgo/worldstate/internal/core/ecs"
	"github.com/l1jgo/worldstate/internal/core/vec"
)

// Grid buckets linked entities into cubic cells so radius queries (the
// transition list around a landmark) only visit nearby cells.
// Accessed only from the simulation goroutine.

const cellSize = 256.0

type cellKey struct {
	cx, cy, cz int32
}

func toCell(v float64) int32 {
	return int32(math.Floor(v / cellSize))
}

func keyOf(p vec.Vec3) cellKey {
	return cellKey{toCell(p.X), toCell(p.Y), toCell(p.Z)}
}

type Grid struct {
	cells map[cellKey]map[ecs.EntityID]struct{}
}

func NewGrid() *Grid {
	return &Grid{cells: make(map[cellKey]map[ecs.EntityID]struct{})}
}

// Add places id into the cell containing p.
func (g *Grid) Add(id ecs.EntityID, p vec.Vec3) {
	k := keyOf(p)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[ecs.EntityID]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
}

// Remove takes id out of the cell containing p.
func (g *Grid) Remove(id ecs.EntityID, p vec.Vec3) {
	k := keyOf(p)
	if cell := g.cells[k]; cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

// Move relocates id, touching the maps only when the cell changes.
func (g *Grid) Move(id ecs.EntityID, from, to vec.Vec3) {
	if keyOf(from) == keyOf(to) {
		return
	}
	g.Remove(id, from)
	g.Add(id, to)
}

// Near returns the ids in every cell overlapping the cube of half-width
// radius around center. Callers filter by exact distance.
func (g *Grid) Near(center vec.Vec3, radius float64) []ecs.EntityID {
	lo := keyOf(center.Sub(vec.Splat(radius)))
	hi := keyOf(center.Add(vec.Splat(radius)))
	var out []ecs.EntityID
	for x := lo.cx; x <= hi.cx; x++ {
		for y := lo.cy; y <= hi.cy; y++ {
			for z := lo.cz; z <= hi.cz; z++ {
				for id := range g.cells[cellKey{x, y, z}] {
					out = append(out, id)
				}
			}
		}
	}
	return out
}

// Reset empties the grid.
func (g *Grid) Reset() {
	clear(g.cells)
}
