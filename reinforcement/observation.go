package reinforcement

import (
	"avoidholes/grid_world"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// OBSERVATION_SIZE is the length of the observation vector:
// 4 corner ground flags + agent position + direction to target + target position.
const OBSERVATION_SIZE = 13

// Offsets of each observation segment.
const (
	OBS_CORNERS   = 0
	OBS_AGENT     = 4
	OBS_DIRECTION = 7
	OBS_TARGET    = 10
)

// Observation is the fixed-size vector handed to a policy each tick:
// [A, B, C, D, agent.x, agent.y, agent.z, dir.x, dir.y, dir.z, target.x, target.y, target.z].
// Corner flags are 1 when grounded and 0 otherwise.
type Observation [OBSERVATION_SIZE]float64

// Slice returns the observation as a slice, e.g. for a learner's input layer.
func (obs Observation) Slice() []float64 {
	return obs[:]
}

// Vector returns the observation as a gonum vector.
func (obs Observation) Vector() *mat.VecDense {
	return mat.NewVecDense(OBSERVATION_SIZE, obs.Slice())
}

// Grounded returns the corner flags A, B, C, D.
func (obs Observation) Grounded() (corners [4]bool) {
	for i := range corners {
		corners[i] = obs[OBS_CORNERS+i] != 0
	}
	return
}

func (obs Observation) Agent() Vec3     { return obs.vec(OBS_AGENT) }
func (obs Observation) Direction() Vec3 { return obs.vec(OBS_DIRECTION) }
func (obs Observation) Target() Vec3    { return obs.vec(OBS_TARGET) }

func (obs Observation) vec(offset int) Vec3 {
	return Vec3{X: obs[offset], Y: obs[offset+1], Z: obs[offset+2]}
}

func (obs *Observation) put(offset int, v Vec3) {
	obs[offset], obs[offset+1], obs[offset+2] = v.X, v.Y, v.Z
}

// BuildObservation assembles the observation for the current world. It only reads
// the world and issues probes; it never mutates either.
//
// The agent's footprint corners, at the agent's current height, each probe straight
// down for ground:
//
//	A ---- B
//	 \      \
//	  C ---- D
func BuildObservation(world *WorldState, probe GroundProbe, probeDistance float64) (obs Observation) {
	for i, corner := range Corners(world.Agent, world.AgentSize) {
		if probe.Probe(corner, grid_world.Down, probeDistance) {
			obs[OBS_CORNERS+i] = 1
		}
	}
	obs.put(OBS_AGENT, world.Agent)
	obs.put(OBS_DIRECTION, Normalize(r3.Sub(world.Target, world.Agent)))
	obs.put(OBS_TARGET, world.Target)
	return
}

// Corners returns the footprint corners of a body of extent @size centred on
// @center, in A (min x, min z), B (max x, min z), C (min x, max z), D (max x, max z) order.
func Corners(center, size Vec3) [4]Vec3 {
	hx, hz := size.X/2, size.Z/2
	return [4]Vec3{
		{X: center.X - hx, Y: center.Y, Z: center.Z - hz},
		{X: center.X + hx, Y: center.Y, Z: center.Z - hz},
		{X: center.X - hx, Y: center.Y, Z: center.Z + hz},
		{X: center.X + hx, Y: center.Y, Z: center.Z + hz},
	}
}

// Normalize returns the unit vector along @v, or the zero vector when @v is zero.
func Normalize(v Vec3) Vec3 {
	norm := r3.Norm(v)
	if norm == 0 {
		return Vec3{}
	}
	return r3.Scale(1/norm, v)
}
