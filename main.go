/*
Avoidholes trains agents to reach a target across a floor of randomly missing tiles.
Every episode regenerates the floor; an agent that walks off the floor falls and fails,
an agent that touches the target succeeds. Workers run environments in parallel and
report to shared stats, which are served over http and websocket while training runs.
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"time"

	"avoidholes/grid_world"
	"avoidholes/logger"
	"avoidholes/reinforcement"
	"avoidholes/server"

	"github.com/joho/godotenv"
	channerics "github.com/niceyeti/channerics/channels"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	// Trajectories between progress logs.
	progressInterval = 1000
	statsInterval    = time.Second * 2
)

func main() {
	for _, envFile := range []string{
		".env",
		"../.env",
	} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}
	logger.Init()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "avoidholes",
		Short:        "Avoidholes trains agents to reach a target on a floor full of holes.",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newTrainCmd(), newGenerateCmd())
	return rootCmd
}

type trainOptions struct {
	config  string
	workers int
	addr    string
	policy  string
	seed    int64
}

func newTrainCmd() *cobra.Command {
	opts := &trainOptions{}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Run parallel environments until the training deadline or an interrupt",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()
			return runTraining(ctx, cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.config, "config", "./config.yaml", "path to the training config")
	cmd.Flags().IntVar(&opts.workers, "workers", runtime.NumCPU(), "number of parallel environments")
	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "telemetry listen address; empty disables the server")
	cmd.Flags().StringVar(&opts.policy, "policy", "seek", "acting policy: seek or random")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "base world seed, overriding the config")
	return cmd
}

// loadConfig reads the config file, falling back to the defaults when the default
// path does not exist.
func loadConfig(cmd *cobra.Command, path string) (*reinforcement.TrainingConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		logger.For("main").WithField("path", path).Warn("no config file, using defaults")
		return reinforcement.DefaultTrainingConfig(), nil
	}
	return reinforcement.FromYaml(path)
}

func selectPolicy(name string, epsilon float64) (reinforcement.PolicyFactory, error) {
	switch name {
	case "seek":
		return func(worker int) reinforcement.PolicyFunc {
			return reinforcement.SeekPolicy(epsilon, rand.New(rand.NewSource(time.Now().UnixNano()+int64(worker))))
		}, nil
	case "random":
		return func(worker int) reinforcement.PolicyFunc {
			return reinforcement.RandomPolicy(rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker))))
		}, nil
	}
	return nil, fmt.Errorf("unknown policy %q", name)
}

func runTraining(ctx context.Context, cmd *cobra.Command, opts *trainOptions) (err error) {
	log := logger.For("main")

	var cfg *reinforcement.TrainingConfig
	if cfg, err = loadConfig(cmd, opts.config); err != nil {
		return
	}
	if cmd.Flags().Changed("seed") {
		cfg.Env.Seed = opts.seed
	}

	var policies reinforcement.PolicyFactory
	epsilon := cfg.GetHyperParamOrDefault("epsilon", reinforcement.DEFAULT_EPSILON)
	if policies, err = selectPolicy(opts.policy, epsilon); err != nil {
		return
	}

	trainingCtx, cancel, err := cfg.WithTrainingDeadline(ctx)
	if err != nil {
		return
	}
	defer cancel()

	stats := reinforcement.NewStats()
	group, groupCtx := errgroup.WithContext(trainingCtx)

	group.Go(func() error {
		defer cancel()
		return reinforcement.Train(groupCtx, cfg, stats, opts.workers, policies, progress(stats))
	})
	group.Go(func() error {
		printStats(groupCtx.Done(), stats)
		return nil
	})
	if opts.addr != "" {
		srv := server.NewServer(opts.addr, stats)
		group.Go(func() error {
			return srv.Serve(groupCtx)
		})
	}

	if err = group.Wait(); err != nil {
		return
	}

	snap := stats.Snapshot()
	log.WithFields(statsFields(snap)).Info("training complete")
	fmt.Fprintf(cmd.OutOrStdout(), "episodes: %d success rate: %.3f mean return: %.4f\n",
		snap.Episodes, snap.SuccessRate(), snap.MeanReturn())
	return
}

// progress returns a progress callback logging every progressInterval trajectories.
func progress(stats *reinforcement.Stats) reinforcement.ProgressFunc {
	return func(_ context.Context, count int) {
		if count%progressInterval == 0 {
			logger.For("train").
				WithField("trajectories", count).
				WithFields(statsFields(stats.Snapshot())).
				Debug("progress")
		}
	}
}

func printStats(done <-chan struct{}, stats *reinforcement.Stats) {
	log := logger.For("stats")
	for range channerics.NewTicker(done, statsInterval) {
		log.WithFields(statsFields(stats.Snapshot())).Info("stats")
	}
}

func statsFields(snap reinforcement.EpisodeStats) logrus.Fields {
	return logrus.Fields{
		"episodes":     snap.Episodes,
		"successes":    snap.Successes,
		"failures":     snap.Failures,
		"interrupted":  snap.Interrupted,
		"success_rate": snap.SuccessRate(),
		"mean_return":  snap.MeanReturn(),
	}
}

type generateOptions struct {
	config string
	seed   int64
	count  int
}

func newGenerateCmd() *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print generated floors for the configured world",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.config, "config", "./config.yaml", "path to the training config")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "world seed, overriding the config")
	cmd.Flags().IntVar(&opts.count, "count", 1, "number of floors to print")
	return cmd
}

func runGenerate(cmd *cobra.Command, opts *generateOptions) error {
	cfg, err := loadConfig(cmd, opts.config)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		cfg.Env.Seed = opts.seed
	}

	out := cmd.OutOrStdout()
	gen := grid_world.NewGenerator(cfg.Env.Seed)
	for i := 0; i < opts.count; i++ {
		layout, placement, err := gen.Generate(cfg.Env.GridConfig())
		if err != nil {
			return err
		}
		grid_world.ShowGrid(out, layout, placement)
		fmt.Fprintf(out, "agent: %v forced: %t\ntarget: %v forced: %t\n\n",
			placement.AgentCell, placement.AgentForced,
			placement.TargetCell, placement.TargetForced)
	}
	return nil
}
