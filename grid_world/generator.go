package grid_world

import (
	"math/rand"
)

// Generator builds floor layouts from an explicit random source, so that equal
// seeds and parameters always produce identical floors and placements.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a generator seeded with @seed.
func NewGenerator(seed int64) *Generator {
	return NewGeneratorFromRand(rand.New(rand.NewSource(seed)))
}

// NewGeneratorFromRand wraps an existing random source. The generator takes
// ownership; the source must not be shared with concurrent users.
func NewGeneratorFromRand(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

// Generate builds a fresh floor and picks the agent and target start cells.
//
// Generation runs in two phases. First every cell independently becomes a hole
// with probability cfg.HoleProbability. Then the present tiles are scanned in
// (x, then z) order: an unplaced agent claims a tile on a 10% draw, otherwise an
// unplaced target claims it on its own 10% draw. Whatever the scan leaves
// unplaced is resolved by a deterministic fallback, forcing a cell present when
// the floor has no usable tile, so the agent and target always start on
// distinct present tiles.
func (gen *Generator) Generate(cfg GridConfig) (*FloorLayout, Placement, error) {
	if err := cfg.Validate(); err != nil {
		return nil, Placement{}, err
	}

	layout := gen.presenceMap(&cfg)
	placement := gen.place(&cfg, layout)
	return layout, placement, nil
}

// presenceMap draws a value in [0,100) per cell; the cell is a hole when the draw
// falls below the hole percentage.
func (gen *Generator) presenceMap(cfg *GridConfig) *FloorLayout {
	layout := &FloorLayout{
		Width:    cfg.Width,
		Depth:    cfg.Depth,
		TileSize: cfg.TileSize,
		Origin:   cfg.Origin,
		Cells:    make([][]Tile, 0, cfg.Width),
	}

	holePercent := cfg.HoleProbability * 100
	for x := 0; x < cfg.Width; x++ {
		layout.Cells = append(layout.Cells, make([]Tile, 0, cfg.Depth))
		for z := 0; z < cfg.Depth; z++ {
			layout.Cells[x] = append(layout.Cells[x], Tile{
				X:       x,
				Z:       z,
				Center:  cfg.TileCenter(x, z),
				Present: gen.rng.Float64()*100 >= holePercent,
			})
		}
	}
	return layout
}

func (gen *Generator) place(cfg *GridConfig, layout *FloorLayout) (placement Placement) {
	var agent, target *Cell
	for _, tile := range layout.Present() {
		cell := Cell{X: tile.X, Z: tile.Z}
		if agent == nil && gen.rng.Intn(100) < PLACEMENT_PERCENT {
			agent = &cell
		} else if target == nil && gen.rng.Intn(100) < PLACEMENT_PERCENT {
			target = &cell
		}
	}

	if agent == nil {
		agent = firstCell(layout, target)
		placement.AgentForced = true
	}
	if target == nil {
		target = lastCell(layout, agent)
		placement.TargetForced = true
	}

	placement.AgentCell = *agent
	placement.TargetCell = *target
	placement.Agent = cfg.RestingPoint(agent.X, agent.Z)
	placement.Target = cfg.RestingPoint(target.X, target.Z)
	return
}

// firstCell returns the first present cell in scan order other than @exclude. If
// the floor has none, the first non-excluded cell is forced present.
func firstCell(layout *FloorLayout, exclude *Cell) *Cell {
	var present, fallback *Cell
	layout.Visit(func(t *Tile) {
		if exclude != nil && t.X == exclude.X && t.Z == exclude.Z {
			return
		}
		if fallback == nil {
			fallback = &Cell{X: t.X, Z: t.Z}
		}
		if present == nil && t.Present {
			present = &Cell{X: t.X, Z: t.Z}
		}
	})
	if present != nil {
		return present
	}
	layout.Cells[fallback.X][fallback.Z].Present = true
	return fallback
}

// lastCell is firstCell in reverse scan order.
func lastCell(layout *FloorLayout, exclude *Cell) *Cell {
	var present, fallback *Cell
	layout.Visit(func(t *Tile) {
		if exclude != nil && t.X == exclude.X && t.Z == exclude.Z {
			return
		}
		fallback = &Cell{X: t.X, Z: t.Z}
		if t.Present {
			present = &Cell{X: t.X, Z: t.Z}
		}
	})
	if present != nil {
		return present
	}
	layout.Cells[fallback.X][fallback.Z].Present = true
	return fallback
}
