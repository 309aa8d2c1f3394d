package reinforcement

import (
	"context"
	"math/rand"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPolicies(t *testing.T) {
	obs := Observation{}
	obs.put(OBS_DIRECTION, Vec3{X: 0.6, Z: -0.8})

	Convey("Random actions stay within [-1,1]", t, func() {
		policy := RandomPolicy(rand.New(rand.NewSource(3)))
		for i := 0; i < 1000; i++ {
			action := policy(obs)
			So(action.X, ShouldBeBetweenOrEqual, -1, 1)
			So(action.Z, ShouldBeBetweenOrEqual, -1, 1)
		}
	})

	Convey("A greedy seeker follows the observed direction", t, func() {
		policy := SeekPolicy(0, rand.New(rand.NewSource(3)))
		So(policy(obs), ShouldResemble, Action{X: 0.6, Z: -0.8})
	})

	Convey("A heuristic policy reads the keys on every call", t, func() {
		keys := Keys{}
		policy := HeuristicPolicy(func() Keys { return keys })
		So(policy(obs), ShouldResemble, Action{})
		keys.Right = true
		So(policy(obs), ShouldResemble, Action{X: 1})
	})
}

func TestTrain(t *testing.T) {
	Convey("When training runs until its deadline", t, func() {
		cfg := DefaultTrainingConfig()
		cfg.Env.MaxSteps = 20
		cfg.Env.Seed = 5
		stats := NewStats()

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		count := 0
		policies := func(worker int) PolicyFunc {
			return SeekPolicy(DEFAULT_EPSILON, rand.New(rand.NewSource(int64(worker))))
		}
		err := Train(ctx, cfg, stats, 3, policies, func(_ context.Context, n int) {
			count = n
		})

		So(err, ShouldBeNil)
		So(count, ShouldBeGreaterThan, 0)

		snap := stats.Snapshot()
		So(snap.Episodes, ShouldBeGreaterThanOrEqualTo, count)
		So(snap.Successes+snap.Failures+snap.Interrupted, ShouldEqual, snap.Episodes)
	})

	Convey("Training needs a worker", t, func() {
		err := Train(context.Background(), DefaultTrainingConfig(), NewStats(), 0, nil, nil)
		So(err, ShouldNotBeNil)
	})

	Convey("Invalid configs stop training before any worker starts", t, func() {
		cfg := DefaultTrainingConfig()
		cfg.Env.GridDepth = 0
		err := Train(context.Background(), cfg, NewStats(), 1, nil, nil)
		So(err, ShouldNotBeNil)
	})
}
