package physics

import (
	"math"

	"avoidholes/grid_world"
	"avoidholes/logger"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"
)

type Vec3 = grid_world.Vec3

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max Vec3
}

// BoxAt returns the box of extent @size centred on @center.
func BoxAt(center, size Vec3) Box {
	half := r3.Scale(0.5, size)
	return Box{
		Min: r3.Sub(center, half),
		Max: r3.Add(center, half),
	}
}

// Overlaps reports whether the interiors of two boxes intersect. Boxes that only
// share a face do not overlap, so entities on neighbouring cells are not in contact.
func (b Box) Overlaps(other Box) bool {
	return b.Min.X < other.Max.X && b.Max.X > other.Min.X &&
		b.Min.Y < other.Max.Y && b.Max.Y > other.Min.Y &&
		b.Min.Z < other.Max.Z && b.Max.Z > other.Min.Z
}

// Raycast reports whether the ray from @origin along @direction meets the box
// within @maxDistance, using the slab method. @direction need not be unit
// length; distance is measured along its normalized form. A zero direction
// never hits.
func (b Box) Raycast(origin, direction Vec3, maxDistance float64) bool {
	norm := r3.Norm(direction)
	if norm == 0 || maxDistance < 0 {
		return false
	}
	dir := r3.Scale(1/norm, direction)

	tmin, tmax := 0.0, maxDistance
	axes := [3][4]float64{
		{origin.X, dir.X, b.Min.X, b.Max.X},
		{origin.Y, dir.Y, b.Min.Y, b.Max.Y},
		{origin.Z, dir.Z, b.Min.Z, b.Max.Z},
	}
	for _, axis := range axes {
		o, d, lo, hi := axis[0], axis[1], axis[2], axis[3]
		if d == 0 {
			// Parallel to this slab: the origin must already lie within it.
			if o < lo || o > hi {
				return false
			}
			continue
		}
		t1, t2 := (lo-o)/d, (hi-o)/d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return false
		}
	}
	return true
}

// World is a deterministic stand-in for the physics engine: it answers ground
// probes against the present floor tiles, reports contacts with the target, and
// applies gravity to an unsupported agent. A World belongs to one environment.
type World struct {
	AgentSize     Vec3
	TargetSize    Vec3
	FallSpeed     float64
	ProbeDistance float64

	tiles  []Box
	target Box
	log    *logrus.Entry
}

// NewWorld returns an empty world; Load must be called before probing.
func NewWorld(agentSize, targetSize Vec3, fallSpeed, probeDistance float64) *World {
	return &World{
		AgentSize:     agentSize,
		TargetSize:    targetSize,
		FallSpeed:     fallSpeed,
		ProbeDistance: probeDistance,
		log:           logger.For("physics"),
	}
}

// Load replaces the floor colliders and the target collider wholesale.
func (w *World) Load(layout *grid_world.FloorLayout, target Vec3) {
	w.tiles = w.tiles[:0]
	for _, tile := range layout.Present() {
		w.tiles = append(w.tiles, BoxAt(tile.Center, layout.TileSize))
	}
	w.target = BoxAt(target, w.TargetSize)

	w.log.WithFields(logrus.Fields{
		"tiles":  len(w.tiles),
		"target": target,
	}).Debug("floor loaded")
}

// Probe reports whether any floor tile lies along the ray within @maxDistance.
func (w *World) Probe(origin, direction Vec3, maxDistance float64) bool {
	for _, tile := range w.tiles {
		if tile.Raycast(origin, direction, maxDistance) {
			return true
		}
	}
	return false
}

// Contacts returns the tags of the entities whose colliders overlap the agent's.
func (w *World) Contacts(agent Vec3) (tags []string) {
	if BoxAt(agent, w.AgentSize).Overlaps(w.target) {
		tags = append(tags, grid_world.TAG_TARGET)
	}
	return
}

// Settle lets an agent with no floor beneath its center fall for @dt seconds.
// Supported agents are returned unchanged.
func (w *World) Settle(agent Vec3, dt float64) Vec3 {
	if w.Probe(agent, grid_world.Down, w.ProbeDistance) {
		return agent
	}
	agent.Y -= w.FallSpeed * dt
	return agent
}
