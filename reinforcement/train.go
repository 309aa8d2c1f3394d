package reinforcement

import (
	"context"
	"fmt"
	"math/rand"

	"avoidholes/logger"
	"avoidholes/physics"

	"github.com/google/uuid"
	channerics "github.com/niceyeti/channerics/channels"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Default runner hyper-parameters, overridable via the config's hyperParams.
const (
	DEFAULT_TICK_SECONDS = 0.02
	DEFAULT_EPSILON      = 0.1
)

// Transition is a single tick of an agent: observe, act, receive a reward.
type Transition struct {
	Observation Observation
	Action      Action
	Reward      float64
}

// Trajectory is one finished episode of one worker.
type Trajectory struct {
	WorkerID uuid.UUID
	Episode  int
	Steps    []Transition
	Return   float64
	Outcome  Outcome
}

// PolicyFunc maps an observation to an action.
type PolicyFunc func(Observation) Action

// PolicyFactory builds the policy of each worker. Policies are not shared between
// workers, so they may keep unsynchronized state such as a random source.
type PolicyFactory func(worker int) PolicyFunc

// ProgressFunc is a callback by which the runner lends progress details, while
// exercising some level of control over its cancellation to prevent blocking.
// ProgressFunc is synchronous/blocking and should be defined to complete quickly.
type ProgressFunc func(context.Context, int)

// RandomPolicy acts uniformly at random in [-1,1] on both axes.
func RandomPolicy(rng *rand.Rand) PolicyFunc {
	return func(Observation) Action {
		return Action{
			X: rng.Float64()*2 - 1,
			Z: rng.Float64()*2 - 1,
		}
	}
}

// SeekPolicy heads straight for the target along the observed direction, and with
// probability @epsilon explores with a random action instead.
func SeekPolicy(epsilon float64, rng *rand.Rand) PolicyFunc {
	explore := RandomPolicy(rng)
	return func(obs Observation) Action {
		if rng.Float64() <= epsilon {
			return explore(obs)
		}
		dir := obs.Direction()
		return Action{X: dir.X, Z: dir.Z}
	}
}

// HeuristicPolicy acts on key states read from @keys, e.g. a human at a keyboard.
func HeuristicPolicy(keys func() Keys) PolicyFunc {
	return func(Observation) Action {
		return Heuristic(keys())
	}
}

// Train runs @nworkers environments in parallel until @ctx is done, each on its
// own physics world and generator seeded with Seed+worker, all reporting to
// @sink. Finished episodes are fanned in to a single collector which calls
// @progressFn with the running trajectory count. Train blocks; it returns nil
// on cancellation and the first worker error otherwise.
func Train(
	ctx context.Context,
	config *TrainingConfig,
	sink StatsSink,
	nworkers int,
	policies PolicyFactory,
	progressFn ProgressFunc,
) error {
	if nworkers <= 0 {
		return fmt.Errorf("train: need at least one worker, got %d", nworkers)
	}
	tick := config.GetHyperParamOrDefault("tickSeconds", DEFAULT_TICK_SECONDS)
	log := logger.For("train")

	envs := make([]*Environment, 0, nworkers)
	for i := 0; i < nworkers; i++ {
		cfg := config.Env
		cfg.Seed += int64(i)
		world := physics.NewWorld(cfg.AgentSize, cfg.TargetSize, cfg.FallSpeed, cfg.ProbeDistance)
		env, err := NewEnvironment(cfg, world, sink)
		if err != nil {
			return fmt.Errorf("train: worker %d: %w", i, err)
		}
		envs = append(envs, env)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	workers := []<-chan Trajectory{}
	for i, env := range envs {
		trajectories := make(chan Trajectory)
		workers = append(workers, trajectories)
		env, policy := env, policies(i)
		group.Go(func() error {
			defer close(trajectories)
			return runWorker(groupCtx, env, policy, tick, trajectories)
		})
	}

	log.WithFields(logrus.Fields{
		"workers": nworkers,
		"tick":    tick,
	}).Info("training started")

	// Fan in the workers to a single channel; the collector throttles the workers
	// simply by not pulling from it.
	count := 0
	for range channerics.Merge(groupCtx.Done(), workers...) {
		count++
		progressFn(groupCtx, count)
	}

	err := group.Wait()
	log.WithField("trajectories", count).Info("training stopped")
	return err
}

// runWorker generates and sends trajectories until cancellation.
func runWorker(
	ctx context.Context,
	env *Environment,
	policy PolicyFunc,
	tick float64,
	out chan<- Trajectory,
) error {
	for {
		traj := Trajectory{
			WorkerID: env.ID,
			Episode:  env.Episode(),
		}
		obs := env.Observation()
		for {
			// done-guard
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			action := policy(obs)
			ts, err := env.Step(action, tick)
			if err != nil {
				return fmt.Errorf("worker %s: %w", env.ID, err)
			}
			traj.Steps = append(traj.Steps, Transition{
				Observation: obs,
				Action:      action,
				Reward:      ts.Reward,
			})
			obs = ts.Observation
			if ts.Done {
				traj.Return = ts.Return
				traj.Outcome = ts.Outcome
				break
			}
		}

		select {
		case out <- traj:
		case <-ctx.Done():
			return nil
		}
	}
}
