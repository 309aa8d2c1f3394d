package reinforcement

import (
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestStats(t *testing.T) {
	Convey("When environments record concurrently", t, func() {
		stats := NewStats()
		numWriters := 8
		numEpisodes := 1000

		wg := sync.WaitGroup{}
		wg.Add(numWriters)
		for i := 0; i < numWriters; i++ {
			go func(writer int) {
				defer wg.Done()
				for j := 0; j < numEpisodes; j++ {
					if writer%2 == 0 {
						stats.RecordSuccess()
					} else {
						stats.RecordFailure()
					}
					stats.RecordEpisode()
					stats.RecordReturn(0.5)
				}
			}(i)
		}
		wg.Wait()

		snap := stats.Snapshot()
		So(snap.Episodes, ShouldEqual, numWriters*numEpisodes)
		So(snap.Successes, ShouldEqual, numWriters*numEpisodes/2)
		So(snap.Failures, ShouldEqual, numWriters*numEpisodes/2)
		So(snap.Interrupted, ShouldEqual, 0)
		So(snap.TotalReturn, ShouldEqual, 0.5*float64(numWriters*numEpisodes))
		So(snap.SuccessRate(), ShouldEqual, 0.5)
		So(snap.MeanReturn(), ShouldEqual, 0.5)
	})

	Convey("Before any episode the rates are zero", t, func() {
		snap := NewStats().Snapshot()
		So(snap.SuccessRate(), ShouldEqual, 0)
		So(snap.MeanReturn(), ShouldEqual, 0)
	})
}

func TestHeuristic(t *testing.T) {
	Convey("Keys map to unit actions", t, func() {
		cases := []struct {
			keys Keys
			want Action
		}{
			{Keys{}, Action{}},
			{Keys{Left: true}, Action{X: -1}},
			{Keys{Right: true}, Action{X: 1}},
			{Keys{Up: true}, Action{Z: 1}},
			{Keys{Down: true}, Action{Z: -1}},
			{Keys{Left: true, Right: true}, Action{X: 1}},
			{Keys{Up: true, Down: true}, Action{Z: -1}},
			{Keys{Left: true, Up: true}, Action{X: -1, Z: 1}},
		}
		for _, c := range cases {
			So(Heuristic(c.keys), ShouldResemble, c.want)
		}
	})
}
