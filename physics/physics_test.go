package physics

import (
	"testing"

	"avoidholes/grid_world"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var Down = grid_world.Down

func unit() Vec3 { return Vec3{X: 1, Y: 1, Z: 1} }

// loadedWorld builds a 3x1 floor with a hole in the middle cell and the target on the last cell.
func loadedWorld(t *testing.T) *World {
	t.Helper()
	layout, _, err := grid_world.NewGenerator(1).Generate(grid_world.GridConfig{
		Width: 3, Depth: 1, HoleProbability: 0, TileSize: unit(),
	})
	require.NoError(t, err)
	layout.Cells[1][0].Present = false

	w := NewWorld(unit(), unit(), 10, 1)
	w.Load(layout, Vec3{X: 2})
	return w
}

func TestBoxRaycast(t *testing.T) {
	box := BoxAt(Vec3{Y: -1}, unit())

	tests := []struct {
		name      string
		origin    Vec3
		direction Vec3
		maxDist   float64
		want      bool
	}{
		{"Straight down within reach", Vec3{}, Down, 1, true},
		{"Straight down out of reach", Vec3{}, Down, 0.4, false},
		{"Straight up misses", Vec3{}, Vec3{Y: 1}, 5, false},
		{"Beside the box", Vec3{X: 0.6}, Down, 5, false},
		{"On the box edge", Vec3{X: 0.5}, Down, 1, true},
		{"Unnormalized direction", Vec3{}, Vec3{Y: -10}, 1, true},
		{"Zero direction", Vec3{}, Vec3{}, 1, false},
		{"Diagonal", Vec3{X: -1, Y: 0, Z: 0}, Vec3{X: 1, Y: -1}, 2, true},
		{"Origin inside the box", Vec3{Y: -1}, Down, 0.1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, box.Raycast(tt.origin, tt.direction, tt.maxDist))
		})
	}
}

func TestBoxOverlaps(t *testing.T) {
	a := BoxAt(Vec3{}, unit())
	assert.True(t, a.Overlaps(BoxAt(Vec3{X: 0.9}, unit())))
	assert.False(t, a.Overlaps(BoxAt(Vec3{X: 1}, unit())), "shared faces are not contacts")
	assert.False(t, a.Overlaps(BoxAt(Vec3{Z: 3}, unit())))
}

func TestWorldProbe(t *testing.T) {
	w := loadedWorld(t)

	assert.True(t, w.Probe(Vec3{}, Down, 1))
	assert.False(t, w.Probe(Vec3{X: 1}, Down, 1), "hole in the middle cell")
	assert.True(t, w.Probe(Vec3{X: 2}, Down, 1))
	assert.False(t, w.Probe(Vec3{X: 5}, Down, 1), "beyond the floor")
}

func TestWorldContacts(t *testing.T) {
	w := loadedWorld(t)

	assert.Empty(t, w.Contacts(Vec3{}))
	assert.Empty(t, w.Contacts(Vec3{X: 1}), "adjacent cells only touch")
	assert.Equal(t, []string{grid_world.TAG_TARGET}, w.Contacts(Vec3{X: 1.5}))
}

func TestWorldSettle(t *testing.T) {
	w := loadedWorld(t)

	assert.Equal(t, Vec3{}, w.Settle(Vec3{}, 0.5), "supported agents do not move")

	fallen := w.Settle(Vec3{X: 1, Y: 3}, 0.5)
	assert.Equal(t, Vec3{X: 1, Y: -2}, fallen)
}

func TestWorldReload(t *testing.T) {
	w := loadedWorld(t)

	layout, _, err := grid_world.NewGenerator(2).Generate(grid_world.GridConfig{
		Width: 2, Depth: 1, HoleProbability: 1, TileSize: unit(),
	})
	require.NoError(t, err)
	w.Load(layout, Vec3{X: 1})

	// The forced tiles of the new floor replace the old ones entirely.
	assert.Len(t, w.tiles, 2)
	assert.False(t, w.Probe(Vec3{X: 2}, Down, 1))
}
