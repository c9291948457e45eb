package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"spin-mc/internal/config"
	"spin-mc/internal/core"
	"spin-mc/internal/sweep"
)

func engineOptions(p config.Plan, extra ...core.Option) []core.Option {
	var opts []core.Option
	if p.StackCapacity > 0 {
		opts = append(opts, core.WithStackCapacity(p.StackCapacity))
	}
	return append(opts, extra...)
}

func (c *cli) newRunCmd() *cobra.Command {
	var beta float64
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one engine at a single inverse temperature",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := c.plan()
			if err != nil {
				return err
			}
			if err := p.Validate(); err != nil {
				return err
			}
			defer serveMetrics(cmd.Context(), p.MetricsAddr)()

			sites, topo, err := p.Topology.Build(p.Topology.T2)
			if err != nil {
				return err
			}
			e, err := core.New(p.Model, sites, topo, engineOptions(p, core.WithSeed(p.Seed))...)
			if err != nil {
				return err
			}
			start := time.Now()
			rep := e.Run(beta, p.Trials, core.NoCheckpoint)
			printReport(cmd.OutOrStdout(), e, beta, rep, time.Since(start))
			return nil
		},
	}
	cmd.Flags().Float64Var(&beta, "beta", 0.44, "inverse temperature")
	return cmd
}

func printReport(w io.Writer, e core.Engine, beta float64, rep core.Report, elapsed time.Duration) {
	label := color.New(color.FgCyan).SprintFunc()
	fmt.Fprintf(w, "%s %s, %d sites, beta %g\n", label("engine"), e.Name(), e.Sites(), beta)
	fmt.Fprintf(w, "%s %.6f ± %.6f\n", label("magnetization"), rep.Magnetization, rep.MagnetizationErr)
	fmt.Fprintf(w, "%s %.6f ± %.6f\n", label("susceptibility"), rep.Susceptibility, rep.SusceptibilityErr)
	fmt.Fprintf(w, "%s %d\n", label("samples"), rep.Samples)
	fmt.Fprintf(w, "%s %.2f\n", label("mean cluster"), rep.MeanClusterSize)
	if rep.MeanInterfaces > 0 {
		fmt.Fprintf(w, "%s %.2f\n", label("interfaces/site"), rep.MeanInterfaces)
	}
	if rep.Overflows > 0 {
		fmt.Fprintf(w, "%s %d\n", color.YellowString("overflows"), rep.Overflows)
	}
	fmt.Fprintf(w, "%s %s\n", label("elapsed"), elapsed.Round(time.Millisecond))
}

func (c *cli) newSweepCmd(mode string) *cobra.Command {
	use, short := "sweep", "Sweep temperatures for every anisotropy and save the series"
	if mode == config.ModeSearch {
		use, short = "search", "Refine the beta window around the transition for every anisotropy"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := c.plan()
			if err != nil {
				return err
			}
			p.Mode = mode
			if err := p.Validate(); err != nil {
				return err
			}
			defer serveMetrics(cmd.Context(), p.MetricsAddr)()

			b := &sweep.Batch{
				Model:        p.Model,
				Label:        p.Topology.Kind,
				Topology:     p.Topology.Build,
				Anisotropies: p.Anisotropies(),
				Drive:        p.Driver(),
				Seed:         p.Seed,
				Workers:      p.Workers,
				OutputDir:    p.OutputDir,
				Options:      engineOptions(p),
				Parameters:   p.Flat(),
			}
			results, err := b.Run(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range results {
				tc := "n/a"
				if r.Summary.CriticalTemperature != nil {
					tc = fmt.Sprintf("%.4f", *r.Summary.CriticalTemperature)
				}
				fmt.Fprintf(out, "%s %d points, Tc %s, %s\n",
					color.GreenString(r.Job.Name), r.Series.Len(), tc, r.Path)
			}
			return nil
		},
	}
}

func (c *cli) newParamsCmd() *cobra.Command {
	var save string
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Print the resolved plan",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := c.plan()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, g := range p.Parameters().Groups {
				fmt.Fprintln(out, color.New(color.Bold).Sprint(g.Name))
				for _, param := range g.Params {
					fmt.Fprintf(out, "  %-18s %s\n", param.Label, param.Value)
				}
			}
			if save != "" {
				if err := p.Save(save); err != nil {
					return err
				}
				fmt.Fprintln(out, "saved", save)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&save, "save", "", "write the resolved plan as YAML")
	return cmd
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the registered engines",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range core.EngineNames() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
