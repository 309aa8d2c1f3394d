package reinforcement

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBuildObservation(t *testing.T) {
	Convey("Given an agent and a target", t, func() {
		world := &WorldState{
			Agent:     Vec3{X: 0, Y: 0, Z: 0},
			Target:    Vec3{X: 3, Y: 0, Z: 4},
			AgentSize: Vec3{X: 1, Y: 1, Z: 2},
		}
		// Ground exists only on the negative-x side.
		probe := &fakeEngine{grounded: func(origin Vec3) bool { return origin.X < 0 }}

		obs := BuildObservation(world, probe, 1)

		Convey("Segments are laid out in order", func() {
			So(obs.Slice()[:OBS_DIRECTION], ShouldResemble, []float64{
				1, 0, 1, 0,
				0, 0, 0,
			})
			So(obs.Slice()[OBS_TARGET:], ShouldResemble, []float64{3, 0, 4})
			So(obs.Vector().Len(), ShouldEqual, OBSERVATION_SIZE)
		})

		Convey("Corners are probed in A, B, C, D order", func() {
			So(obs.Grounded(), ShouldResemble, [4]bool{true, false, true, false})
		})

		Convey("The direction points from the agent to the target", func() {
			So(obs.Direction().X, ShouldAlmostEqual, 0.6, 1e-12)
			So(obs.Direction().Z, ShouldAlmostEqual, 0.8, 1e-12)
			So(obs.Agent(), ShouldResemble, world.Agent)
			So(obs.Target(), ShouldResemble, world.Target)
		})

		Convey("Coincident agent and target give a zero direction", func() {
			world.Target = world.Agent
			obs := BuildObservation(world, probe, 1)
			So(obs.Direction(), ShouldResemble, Vec3{})
		})

		Convey("Building never moves the world", func() {
			before := *world
			BuildObservation(world, probe, 1)
			So(*world, ShouldResemble, before)
		})
	})
}

func TestCorners(t *testing.T) {
	Convey("Corners follow the current pose", t, func() {
		corners := Corners(Vec3{X: 10, Y: 2, Z: -4}, Vec3{X: 2, Y: 1, Z: 4})
		So(corners, ShouldResemble, [4]Vec3{
			{X: 9, Y: 2, Z: -6},
			{X: 11, Y: 2, Z: -6},
			{X: 9, Y: 2, Z: -2},
			{X: 11, Y: 2, Z: -2},
		})
	})
}

func TestNormalize(t *testing.T) {
	Convey("Normalize returns unit vectors", t, func() {
		v := Normalize(Vec3{X: 0, Y: -5, Z: 0})
		So(v, ShouldResemble, Vec3{Y: -1})
		So(Normalize(Vec3{}), ShouldResemble, Vec3{})
	})
}
