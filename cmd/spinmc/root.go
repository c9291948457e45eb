package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"spin-mc/internal/config"
	"spin-mc/internal/logging"
	"spin-mc/internal/metrics"
)

// planFlags are the flag names understood by config.Plan.With, with dashes
// instead of underscores.
var planFlags = []struct {
	name, usage string
}{
	{"model", "engine: ising, xy, heisenberg or quantum"},
	{"topology", "lattice kind: square, rect or bonds"},
	{"rows", "lattice rows"},
	{"cols", "lattice columns"},
	{"t2", "vertical bond strength of rect lattices"},
	{"bonds", "bond list file (.npy or .csv)"},
	{"strengths", "comma separated strength per bond class"},
	{"temp-start", "lowest temperature of a one-pass sweep"},
	{"temp-end", "highest temperature of a one-pass sweep"},
	{"temp-count", "temperatures per one-pass sweep"},
	{"t2-start", "first anisotropy of a batch"},
	{"t2-end", "last anisotropy of a batch"},
	{"t2-count", "anisotropies per batch (0 runs only --t2)"},
	{"trials", "trials per temperature, burn-in included"},
	{"bottom", "lowest beta of a search"},
	{"top", "highest beta of a search"},
	{"layers", "search refinement layers"},
	{"per-layer", "betas per search layer"},
	{"workers", "concurrent jobs"},
	{"seed", "base random seed"},
	{"stack-capacity", "cluster stack capacity (0 keeps the engine default)"},
	{"out", "output directory"},
	{"log-level", "debug, info, warn or error"},
	{"metrics-addr", "serve Prometheus metrics on this address while running"},
}

type cli struct {
	v       *viper.Viper
	cfgFile string
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	c.v.SetEnvPrefix("SPINMC")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "spinmc",
		Short:         "Monte Carlo sweeps of classical and quantum lattice spin models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "YAML plan file")
	for _, f := range planFlags {
		root.PersistentFlags().String(f.name, "", f.usage)
	}
	if err := c.v.BindPFlags(root.PersistentFlags()); err != nil {
		panic(err)
	}

	root.AddCommand(
		c.newRunCmd(),
		c.newSweepCmd(config.ModeOnePass),
		c.newSweepCmd(config.ModeSearch),
		c.newParamsCmd(),
		newModelsCmd(),
	)
	return root
}

// plan resolves the plan from defaults, the --config file, SPINMC_* variables
// and flags, in increasing priority, then installs its logger.
func (c *cli) plan() (config.Plan, error) {
	p := config.DefaultPlan()
	if c.cfgFile != "" {
		loaded, err := config.Load(c.cfgFile)
		if err != nil {
			return p, err
		}
		p = loaded
	}
	overrides := map[string]string{}
	for _, f := range planFlags {
		if c.v.IsSet(f.name) {
			if val := c.v.GetString(f.name); val != "" {
				overrides[strings.ReplaceAll(f.name, "-", "_")] = val
			}
		}
	}
	p = p.With(overrides)
	logging.SetDefault(logging.New(p.LogLevel, os.Stderr))
	return p, nil
}

// serveMetrics exposes /metrics on addr until ctx is done. An empty addr
// disables it.
func serveMetrics(ctx context.Context, addr string) func() {
	if addr == "" {
		return func() {}
	}
	log := logging.Default().WithComponent("metrics")
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("serving metrics", logging.WithField("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", logging.WithField("error", err))
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
