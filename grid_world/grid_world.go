package grid_world

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vec3 is a world-space position or extent. The x/z plane is the floor; y is up.
type Vec3 = r3.Vec

// Tile is a single floor cell. Cells are created in bulk per episode and never
// mutated afterward; a cell that is not Present is a hole in the floor.
type Tile struct {
	X, Z    int
	Center  Vec3
	Present bool
}

// Cell identifies a grid position.
type Cell struct {
	X, Z int
}

// FloorLayout is the full Width x Depth grid of cells, indexed [x][z].
type FloorLayout struct {
	Width, Depth int
	TileSize     Vec3
	Origin       Vec3
	Cells        [][]Tile
}

// Placement holds the start poses for the agent and the target, and whether
// either needed the fallback because no tile won its placement draw.
type Placement struct {
	Agent, Target         Vec3
	AgentCell, TargetCell Cell
	AgentForced           bool
	TargetForced          bool
}

// GridConfig parameterizes floor generation.
type GridConfig struct {
	Width           int
	Depth           int
	HoleProbability float64
	TileSize        Vec3
	Origin          Vec3
}

const (
	// Tiles rest one unit below the agent's resting plane.
	FLOOR_Y_OFFSET = -1.0
	// Percent chance that a present tile claims the agent, or the target, during the scan.
	PLACEMENT_PERCENT = 10
)

var (
	ErrInvalidDimensions      = errors.New("grid must have positive dimensions and at least two cells")
	ErrInvalidHoleProbability = errors.New("hole probability must be within [0,1]")
	ErrInvalidTileSize        = errors.New("tile size must be positive along x and z")
)

// Validate rejects configurations that cannot produce a layout. Values are never clamped.
func (cfg *GridConfig) Validate() error {
	if cfg.Width <= 0 || cfg.Depth <= 0 || cfg.Width*cfg.Depth < 2 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, cfg.Width, cfg.Depth)
	}
	if math.IsNaN(cfg.HoleProbability) || cfg.HoleProbability < 0 || cfg.HoleProbability > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidHoleProbability, cfg.HoleProbability)
	}
	if !(cfg.TileSize.X > 0) || !(cfg.TileSize.Z > 0) {
		return fmt.Errorf("%w: %v", ErrInvalidTileSize, cfg.TileSize)
	}
	return nil
}

// TileCenter returns the world position of the tile at cell (x, z).
func (cfg *GridConfig) TileCenter(x, z int) Vec3 {
	return r3.Add(cfg.RestingPoint(x, z), Vec3{Y: FLOOR_Y_OFFSET})
}

// RestingPoint is where an entity placed on cell (x, z) sits.
func (cfg *GridConfig) RestingPoint(x, z int) Vec3 {
	return r3.Add(cfg.Origin, Vec3{
		X: float64(x) * cfg.TileSize.X,
		Z: float64(z) * cfg.TileSize.Z,
	})
}

// TileAt returns the tile at (x, z), and false if the cell is outside the grid.
func (layout *FloorLayout) TileAt(x, z int) (Tile, bool) {
	if x < 0 || x >= layout.Width || z < 0 || z >= layout.Depth {
		return Tile{}, false
	}
	return layout.Cells[x][z], true
}

// Present returns the present tiles in scan order (x, then z).
func (layout *FloorLayout) Present() (tiles []Tile) {
	layout.Visit(func(t *Tile) {
		if t.Present {
			tiles = append(tiles, *t)
		}
	})
	return
}

// Holes counts the absent cells.
func (layout *FloorLayout) Holes() (holes int) {
	layout.Visit(func(t *Tile) {
		if !t.Present {
			holes++
		}
	})
	return
}

// CellOf maps a world point to the grid cell whose tile footprint contains it.
// Tiles are centred on their cell's resting point, so the footprint of cell x
// spans [x-0.5, x+0.5) tile widths from the origin.
func (layout *FloorLayout) CellOf(point Vec3) (x, z int, ok bool) {
	fx := (point.X-layout.Origin.X)/layout.TileSize.X + 0.5
	fz := (point.Z-layout.Origin.Z)/layout.TileSize.Z + 0.5
	x = int(math.Floor(fx))
	z = int(math.Floor(fz))
	ok = x >= 0 && x < layout.Width && z >= 0 && z < layout.Depth
	return
}

// Visits every cell in scan order using the passed function.
func (layout *FloorLayout) Visit(fn func(t *Tile)) {
	for x := range layout.Cells {
		for z := range layout.Cells[x] {
			fn(&layout.Cells[x][z])
		}
	}
}

// Render draws the layout with z increasing upward: '#' tile, '.' hole,
// 'A' agent start and 'T' target start.
func Render(layout *FloorLayout, placement Placement) string {
	var sb strings.Builder
	for _, z := range Rev(layout.Depth) {
		for x := 0; x < layout.Width; x++ {
			cell := Cell{X: x, Z: z}
			switch {
			case cell == placement.AgentCell:
				sb.WriteString("A ")
			case cell == placement.TargetCell:
				sb.WriteString("T ")
			case layout.Cells[x][z].Present:
				sb.WriteString("# ")
			default:
				sb.WriteString(". ")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Show the floor, for visual reference.
func ShowGrid(w io.Writer, layout *FloorLayout, placement Placement) {
	fmt.Fprint(w, Render(layout, placement))
	fmt.Fprintf(w, "holes: %d/%d\n", layout.Holes(), layout.Width*layout.Depth)
}

// Returns reversed indices of a slice, e.g. for ranging over.
func Rev(length int) []int {
	indices := make([]int, length)
	for i := 0; i < length; i++ {
		indices[i] = length - i - 1
	}
	return indices
}

// TAG_TARGET tags the target entity in contact events.
const TAG_TARGET = "Target"

// World axes. Actions translate along Right and Forward; ground probes cast Down.
var (
	Right   = Vec3{X: 1}
	Forward = Vec3{Z: 1}
	Down    = Vec3{Y: -1}
)
