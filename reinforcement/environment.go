package reinforcement

import (
	"errors"
	"fmt"

	"avoidholes/grid_world"
	"avoidholes/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"
)

type Vec3 = grid_world.Vec3

// Rewards
const (
	// Paid every tick the agent stays over the floor, to favour moving over idling.
	GROUNDED_REWARD = 0.0001
	FAIL_REWARD     = -0.1
	SUCCESS_REWARD  = 1.0
)

// GroundProbe reports whether a solid surface lies within @maxDistance of @origin
// along @direction. Probes are synchronous and side-effect free.
type GroundProbe interface {
	Probe(origin, direction Vec3, maxDistance float64) bool
}

// Engine is the physics collaborator of an environment: it answers ground probes,
// reports contacts and applies gravity. An Engine serves a single environment.
type Engine interface {
	GroundProbe
	// Load replaces the floor and the target for a new episode.
	Load(layout *grid_world.FloorLayout, target Vec3)
	// Contacts returns the tags of entities whose colliders overlap the agent's.
	Contacts(agent Vec3) []string
	// Settle applies gravity to the agent for @dt seconds and returns its new position.
	Settle(agent Vec3, dt float64) Vec3
}

// Action is the two continuous control scalars: X moves the agent along the
// right axis, Z along the forward axis. Magnitudes are used as given.
type Action struct {
	X, Z float64
}

// Outcome is how a tick left the episode.
type Outcome int

const (
	Running Outcome = iota
	Success
	Failure
	// Interrupted episodes hit the step limit without success or failure.
	Interrupted
)

func (o Outcome) String() string {
	switch o {
	case Running:
		return "running"
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Interrupted:
		return "interrupted"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// WorldState is the simulated world of the current episode.
type WorldState struct {
	Layout    *grid_world.FloorLayout
	Placement grid_world.Placement
	Agent     Vec3
	Target    Vec3
	AgentSize Vec3
}

// TimeStep is the result of one tick, as seen by the training loop.
type TimeStep struct {
	Observation Observation
	// Reward is this tick's reward; Return is the episode's cumulative reward so far.
	Reward  float64
	Return  float64
	Done    bool
	Outcome Outcome
	// Episode is the index of the episode this tick belonged to, Step the tick within it (from 1).
	Episode int
	Step    int
}

var (
	ErrInvalidTimeStep = errors.New("tick duration must be finite and non-negative")
	ErrActionSize      = errors.New("action vector must hold exactly two scalars")
)

// Environment drives episodes: each Step applies an action, resolves contacts and
// falls into a reward, and on termination records telemetry and regenerates the
// world so the next Step starts a new episode. An Environment is not safe for
// concurrent use; run one per goroutine and share only the StatsSink.
type Environment struct {
	ID uuid.UUID

	cfg    EnvConfig
	engine Engine
	sink   StatsSink
	gen    *grid_world.Generator
	world  WorldState

	// Contact tags delivered via Notify since the last tick.
	pending []string
	ret     float64
	step    int
	episode int
	log     *logrus.Entry
}

// Option configures an Environment.
type Option func(*Environment)

// WithGenerator replaces the generator seeded from EnvConfig.Seed.
func WithGenerator(gen *grid_world.Generator) Option {
	return func(env *Environment) {
		env.gen = gen
	}
}

// WithID sets the instance id used in logs and trajectories.
func WithID(id uuid.UUID) Option {
	return func(env *Environment) {
		env.ID = id
	}
}

// NewEnvironment validates the config and generates the first episode's world.
func NewEnvironment(
	cfg EnvConfig,
	engine Engine,
	sink StatsSink,
	opts ...Option,
) (*Environment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	env := &Environment{
		ID:     uuid.New(),
		cfg:    cfg,
		engine: engine,
		sink:   sink,
	}
	for _, opt := range opts {
		opt(env)
	}
	if env.gen == nil {
		env.gen = grid_world.NewGenerator(cfg.Seed)
	}
	env.log = logger.For("environment").WithField("env_id", env.ID)

	if _, err := env.Reset(); err != nil {
		return nil, err
	}
	return env, nil
}

// Reset discards the current episode without recording it and starts a fresh one.
func (env *Environment) Reset() (Observation, error) {
	layout, placement, err := env.gen.Generate(env.cfg.GridConfig())
	if err != nil {
		return Observation{}, fmt.Errorf("regenerate world: %w", err)
	}

	env.world = WorldState{
		Layout:    layout,
		Placement: placement,
		Agent:     placement.Agent,
		Target:    placement.Target,
		AgentSize: env.cfg.AgentSize,
	}
	env.engine.Load(layout, placement.Target)
	env.pending = env.pending[:0]
	env.ret = 0
	env.step = 0

	if placement.AgentForced || placement.TargetForced {
		env.log.WithFields(logrus.Fields{
			"episode":       env.episode,
			"agent_forced":  placement.AgentForced,
			"target_forced": placement.TargetForced,
		}).Debug("placement fell back")
	}
	return env.Observation(), nil
}

// Step advances the episode by one tick of @dt seconds.
//
// A tick moves the agent, lets the engine apply gravity, then resolves in order:
// contact with the target ends the episode in success (+1.0); otherwise ground
// under the agent's center pays GROUNDED_REWARD; otherwise an agent at or below
// ground level has fallen and the episode ends in failure (-0.1). An agent that
// is unsupported but still above ground level is mid-fall and earns nothing.
//
// The returned observation describes the state the tick reached. When the tick
// ends the episode, the world has already been regenerated on return; use
// Observation for the new episode's first observation.
func (env *Environment) Step(action Action, dt float64) (TimeStep, error) {
	if !isFinite(dt) || dt < 0 {
		return TimeStep{}, fmt.Errorf("%w: %v", ErrInvalidTimeStep, dt)
	}

	world := &env.world
	world.Agent = r3.Add(world.Agent, r3.Scale(action.X*env.cfg.MoveSpeed*dt, grid_world.Right))
	world.Agent = r3.Add(world.Agent, r3.Scale(action.Z*env.cfg.MoveSpeed*dt, grid_world.Forward))
	world.Agent = env.engine.Settle(world.Agent, dt)
	env.step++

	ts := TimeStep{
		Episode: env.episode,
		Step:    env.step,
	}
	switch {
	case env.touchingTarget():
		ts.Reward = SUCCESS_REWARD
		ts.Outcome = Success
		env.sink.RecordSuccess()
	case env.engine.Probe(world.Agent, grid_world.Down, env.cfg.ProbeDistance):
		ts.Reward = GROUNDED_REWARD
	case world.Agent.Y <= env.cfg.GroundLevel:
		ts.Reward = FAIL_REWARD
		ts.Outcome = Failure
		env.sink.RecordFailure()
	}
	if ts.Outcome == Running && env.cfg.MaxSteps > 0 && env.step >= env.cfg.MaxSteps {
		ts.Outcome = Interrupted
	}

	env.ret += ts.Reward
	ts.Return = env.ret
	ts.Observation = BuildObservation(world, env.engine, env.cfg.ProbeDistance)

	if ts.Outcome != Running {
		ts.Done = true
		if err := env.endEpisode(ts.Outcome); err != nil {
			return ts, err
		}
	}
	return ts, nil
}

// StepVector is Step for learners that emit raw action vectors.
func (env *Environment) StepVector(action []float64, dt float64) (TimeStep, error) {
	if len(action) != 2 {
		return TimeStep{}, fmt.Errorf("%w: got %d", ErrActionSize, len(action))
	}
	return env.Step(Action{X: action[0], Z: action[1]}, dt)
}

// Notify delivers a contact event from an external engine. It is consumed by the next Step.
func (env *Environment) Notify(tag string) {
	env.pending = append(env.pending, tag)
}

// Observation builds the observation of the current world.
func (env *Environment) Observation() Observation {
	return BuildObservation(&env.world, env.engine, env.cfg.ProbeDistance)
}

// World returns a copy of the current world state.
func (env *Environment) World() WorldState {
	return env.world
}

// Episode returns the index of the current episode, counted from zero per instance.
func (env *Environment) Episode() int {
	return env.episode
}

// touchingTarget consumes notified contacts and checks the engine's contacts.
func (env *Environment) touchingTarget() bool {
	tags := append(env.pending, env.engine.Contacts(env.world.Agent)...)
	env.pending = env.pending[:0]
	for _, tag := range tags {
		if tag == grid_world.TAG_TARGET {
			return true
		}
	}
	return false
}

func (env *Environment) endEpisode(outcome Outcome) error {
	env.sink.RecordEpisode()
	env.sink.RecordReturn(env.ret)

	env.log.WithFields(logrus.Fields{
		"episode": env.episode,
		"outcome": outcome,
		"steps":   env.step,
		"return":  env.ret,
	}).Debug("episode ended")

	env.episode++
	_, err := env.Reset()
	return err
}
