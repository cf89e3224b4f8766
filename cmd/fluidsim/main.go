package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/fluidsim/internal/analysis"
	"github.com/san-kum/fluidsim/internal/automation"
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/experiment"
	"github.com/san-kum/fluidsim/internal/export"
	"github.com/san-kum/fluidsim/internal/gui"
	"github.com/san-kum/fluidsim/internal/metrics"
	"github.com/san-kum/fluidsim/internal/optim"
	"github.com/san-kum/fluidsim/internal/physics"
	"github.com/san-kum/fluidsim/internal/storage"
	"github.com/san-kum/fluidsim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir  string
	logLevel string
	// run configuration
	configFile  string
	preset      string
	dt          float64
	steps       int
	workers     int
	sampleEvery int
	noSave      bool
	save        bool
	// output
	outFile string
	table   string
	scale   float64
	// analysis and sweeps
	settleFrac float64
	sweepArgs  []string
	maximize   bool

	registry = experiment.NewRegistry()
)

// main registers the commands and runs the root command, exiting with
// status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:           "fluidsim",
		Short:         "2d particle fluid simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive(registry)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".fluidsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [solver]",
		Short: "run a headless simulation and store the result",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().IntVar(&sampleEvery, "sample-every", 10, "record metrics every n steps")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	liveCmd := &cobra.Command{
		Use:   "live [solver]",
		Short: "run with the terminal visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)

	guiCmd := &cobra.Command{
		Use:   "gui [solver]",
		Short: "run in a window",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runGUI,
	}
	addConfigFlags(guiCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run metrics",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().String("metric", "", "plot only this metric")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a run table as csv",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")
	exportCSVCmd.Flags().StringVar(&table, "table", "metrics", "table to export (metrics, particles)")

	compareCmd := &cobra.Command{
		Use:   "compare [solver|config.yaml]...",
		Short: "run several configurations concurrently and compare final metrics",
		Args:  cobra.MinimumNArgs(1),
		RunE:  compareRuns,
	}
	compareCmd.Flags().IntVar(&steps, "steps", 0, "steps per run")
	compareCmd.Flags().IntVar(&sampleEvery, "sample-every", 10, "record metrics every n steps")
	compareCmd.Flags().BoolVar(&save, "save", false, "store every run")

	benchCmd := &cobra.Command{
		Use:   "bench [solver]",
		Short: "time solver steps",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchSolver,
	}
	addConfigFlags(benchCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list presets",
		RunE:  listPresets,
	}

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write a config file with the solver defaults",
		Args:  cobra.ExactArgs(1),
		RunE:  initConfig,
	}
	initCmd.Flags().StringVar(&preset, "preset", "", "start from a preset")
	initCmd.Flags().String("solver", physics.ExplicitName, "solver (sph, pbf)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "draw the final particles, or one metric, as svg",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")
	exportSVGCmd.Flags().String("metric", "", "plot this metric instead of the particles")
	exportSVGCmd.Flags().Float64Var(&scale, "scale", 1, "pixels per world unit")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "sloshing frequency and settling time of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().String("metric", "kinetic_energy", "metric to analyze")
	analyzeCmd.Flags().Float64Var(&settleFrac, "settle", 0.05, "settled once the metric stays below this fraction of its peak")

	sweepCmd := &cobra.Command{
		Use:   "sweep [solver]",
		Short: "grid search over config parameters",
		Long: "Runs every combination of the given parameter values and reports the final value of --metric.\n" +
			"Parameters: " + strings.Join(optim.ParamNames(), ", "),
		Args: cobra.MaximumNArgs(1),
		RunE: sweepParams,
	}
	addConfigFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&sweepArgs, "param", nil, "name=v1,v2,... (repeatable)")
	sweepCmd.Flags().String("metric", "kinetic_energy", "metric to optimize")
	sweepCmd.Flags().BoolVar(&maximize, "max", false, "maximize instead of minimize")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file.yaml]",
		Short: "run a scripted sequence of simulations",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&save, "save", false, "store every run")

	rootCmd.AddCommand(runCmd, liveCmd, guiCmd, listCmd, plotCmd, exportJSONCmd, exportCSVCmd,
		exportSVGCmd, analyzeCmd, compareCmd, benchCmd, sweepCmd, scenarioCmd, presetsCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Float64Var(&dt, "dt", 0, "timestep (default per solver)")
	cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of steps")
	cmd.Flags().IntVar(&workers, "workers", 1, "worker goroutines (pbf)")
}

func newLogger() (*log.Logger, error) {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		Prefix:          "fluidsim",
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	}), nil
}

// resolveConfig picks the base configuration (config file, then preset,
// then solver defaults) and applies the flags that were set explicitly.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	solver := physics.ExplicitName
	if len(args) > 0 {
		solver = args[0]
	}

	var cfg *config.Config
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	case preset != "":
		cfg = config.GetPreset(solver, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(solver))
		}
	default:
		cfg = config.ForSolver(solver)
	}

	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("steps") {
		cfg.Steps = steps
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = workers
	}
	if err := registry.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	exp, err := experiment.New(cfg, registry,
		experiment.WithLogger(logger), experiment.WithSampleEvery(sampleEvery))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %s simulation...\n", cfg.Solver)
	result, runErr := exp.Run(ctx)
	if result == nil {
		return runErr
	}

	fmt.Printf("completed in %v\n", result.Elapsed.Round(time.Millisecond))
	fmt.Printf("steps: %d\n", result.Steps)
	fmt.Printf("particles: %d (dropped %d)\n", len(result.Final), result.Rejected)
	fmt.Println("\nmetrics:")
	for _, name := range result.Metrics {
		if v, ok := result.Last(name); ok {
			fmt.Printf("  %s: %.6g\n", name, v)
		}
	}

	if !noSave {
		st := storage.New(dataDir).WithLogger(logger)
		runID, err := st.Save(result)
		if err != nil {
			return err
		}
		fmt.Printf("\nrun id: %s\n", runID)
	}
	return runErr
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	// the terminal belongs to the view; the simulation logs nowhere
	return viz.RunLive(cfg, registry, experiment.WithLogger(log.New(io.Discard)))
}

func runGUI(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	return gui.Run(cfg, registry, experiment.WithLogger(logger))
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSOLVER\tTIME\tSTEPS\tDT\tPARTICLES\tELAPSED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%g\t%d\t%dms\n",
			run.ID,
			run.Solver,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Dt,
			run.Particles,
			run.ElapsedMS,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	metric, _ := cmd.Flags().GetString("metric")
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}
	if len(series.Times) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("solver: %s\n", meta.Solver)
	fmt.Printf("samples: %d\n\n", len(series.Times))

	names := series.Names
	if metric != "" {
		if _, ok := series.Values[metric]; !ok {
			return fmt.Errorf("unknown metric %q (available: %s)", metric, strings.Join(series.Names, ", "))
		}
		names = []string{metric}
	}
	for _, name := range names {
		data := series.Values[name]
		if len(data) < 2 {
			continue
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(70),
			asciigraph.Caption(fmt.Sprintf("%s vs time", name)),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func output() (io.Writer, func() error, error) {
	if outFile == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	w, closeFn, err := output()
	if err != nil {
		return err
	}
	if err := storage.New(dataDir).ExportJSON(args[0], w); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func exportCSV(cmd *cobra.Command, args []string) error {
	if table != "metrics" && table != "particles" {
		return fmt.Errorf("unknown table %q (metrics, particles)", table)
	}
	w, closeFn, err := output()
	if err != nil {
		return err
	}
	if err := storage.New(dataDir).ExportCSV(args[0], table, w); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

// compareRuns accepts solver names and config file paths, runs them all
// concurrently and prints their final metrics side by side.
func compareRuns(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}

	cfgs := make([]*config.Config, 0, len(args))
	for _, arg := range args {
		var cfg *config.Config
		if strings.HasSuffix(arg, ".yaml") || strings.HasSuffix(arg, ".yml") {
			if cfg, err = config.Load(arg); err != nil {
				return err
			}
		} else {
			cfg = config.ForSolver(arg)
		}
		if cmd.Flags().Changed("steps") {
			cfg.Steps = steps
		}
		cfgs = append(cfgs, cfg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := experiment.Compare(ctx, cfgs, registry, logger, sampleEvery)
	if err != nil {
		return err
	}

	names := results[0].Metrics
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RUN\tSOLVER\tSTEPS\tELAPSED\t%s\n", strings.ToUpper(strings.Join(names, "\t")))
	for i, res := range results {
		row := []string{args[i], res.Solver, fmt.Sprint(res.Steps), res.Elapsed.Round(time.Millisecond).String()}
		for _, name := range names {
			v, _ := res.Last(name)
			row = append(row, fmt.Sprintf("%.4g", v))
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !save {
		return nil
	}
	st := storage.New(dataDir).WithLogger(logger)
	for _, res := range results {
		runID, err := st.Save(res)
		if err != nil {
			return err
		}
		fmt.Printf("saved %s\n", runID)
	}
	return nil
}

func benchSolver(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	exp, err := experiment.New(cfg, registry, experiment.WithMetrics(metrics.NewCount()))
	if err != nil {
		return err
	}

	fmt.Printf("benchmarking %s: %d steps, %d workers (%d cpus)\n", cfg.Solver, cfg.Steps, max(cfg.Workers, 1), runtime.NumCPU())
	res, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}

	perStep := res.Elapsed / time.Duration(max(res.Steps, 1))
	fmt.Printf("elapsed: %v\n", res.Elapsed.Round(time.Millisecond))
	fmt.Printf("particles: %d\n", len(res.Final))
	fmt.Printf("per step: %v\n", perStep)
	fmt.Printf("steps/sec: %.1f\n", float64(res.Steps)/res.Elapsed.Seconds())
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOLVER\tPRESET\tSTEPS\tDT\tSCENE\tPOUR")
	for _, solver := range config.ListSolvers() {
		for _, name := range config.ListPresets(solver) {
			cfg := config.GetPreset(solver, name)
			fmt.Fprintf(w, "%s\t%s\t%d\t%g\t%d\t%d/%d\n",
				solver, name, cfg.Steps, cfg.Dt,
				cfg.Scene.Cols*cfg.Scene.Rows,
				cfg.Pour.Count, cfg.Pour.Every,
			)
		}
	}
	return w.Flush()
}

func initConfig(cmd *cobra.Command, args []string) error {
	solver, _ := cmd.Flags().GetString("solver")
	cfg := config.ForSolver(solver)
	if preset != "" {
		if cfg = config.GetPreset(solver, preset); cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(solver))
		}
	}
	if err := registry.Validate(cfg); err != nil {
		return err
	}
	if err := config.Save(args[0], cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[0])
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	metric, _ := cmd.Flags().GetString("metric")
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	w, closeFn, err := output()
	if err != nil {
		return err
	}
	if metric != "" {
		series, err := st.LoadSeries(runID)
		if err == nil {
			err = export.SeriesSVG(w, series.Times, series.Values[metric], 800, 300, "#00ff88")
		}
		if err != nil {
			closeFn()
			return err
		}
		return closeFn()
	}

	ps, err := st.LoadParticles(runID)
	if err != nil {
		closeFn()
		return err
	}
	cfg := meta.Config
	if cfg == nil {
		cfg = config.ForSolver(meta.Solver)
	}
	p := cfg.Params()
	if err := export.ParticlesSVG(w, ps, p.Domain(), p.DrawRadius, scale); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	metric, _ := cmd.Flags().GetString("metric")
	st := storage.New(dataDir)
	series, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	data, ok := series.Values[metric]
	if !ok {
		return fmt.Errorf("unknown metric %q (available: %s)", metric, strings.Join(series.Names, ", "))
	}
	if len(series.Times) < 3 {
		return fmt.Errorf("run has %d samples, need at least 3", len(series.Times))
	}

	sampleDt, uniform := uniformSamples(series.Times, data)

	fmt.Printf("run: %s\n", args[0])
	fmt.Printf("metric: %s (%d samples every %g)\n\n", metric, len(data), sampleDt)

	if freq, amp, ok := analysis.PowerSpectrum(uniform, sampleDt).Dominant(); ok {
		fmt.Printf("dominant frequency: %.4g (period %.4g, amplitude %.3g)\n", freq, 1/freq, amp)
	} else {
		fmt.Println("dominant frequency: none (flat series)")
	}
	if i := analysis.SettlingIndex(data, settleFrac); i >= 0 {
		fmt.Printf("settled below %g of peak at t=%g\n", settleFrac, series.Times[i])
	} else {
		fmt.Printf("never settled below %g of peak\n", settleFrac)
	}
	return nil
}

// uniformSamples returns the sampling interval and data without a final
// sample that falls off the grid. Times are accumulated step by step, so
// gaps are compared with a relative tolerance.
func uniformSamples(times, data []float64) (float64, []float64) {
	sampleDt := times[1] - times[0]
	n := len(times)
	if gap := times[n-1] - times[n-2]; math.Abs(gap-sampleDt) > 1e-6*sampleDt {
		return sampleDt, data[:n-1]
	}
	return sampleDt, data
}

// parseSweep turns "name=v1,v2" flags into parallel name and value lists.
func parseSweep(args []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(args))
	ranges := make([][]float64, 0, len(args))
	for _, arg := range args {
		name, list, ok := strings.Cut(arg, "=")
		if !ok || list == "" {
			return nil, nil, fmt.Errorf("bad --param %q, want name=v1,v2", arg)
		}
		var values []float64
		for _, f := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("--param %s: %w", name, err)
			}
			values = append(values, v)
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}

func sweepParams(cmd *cobra.Command, args []string) error {
	metric, _ := cmd.Flags().GetString("metric")
	if len(sweepArgs) == 0 {
		return fmt.Errorf("at least one --param is required")
	}
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	names, ranges, err := parseSweep(sweepArgs)
	if err != nil {
		return err
	}
	gs, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	trials, best, err := gs.Search(ctx, cfg, registry, metric, maximize)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", strings.ToUpper(strings.Join(names, "\t")), strings.ToUpper(metric))
	for i, tr := range trials {
		row := make([]string, 0, len(names)+1)
		for _, name := range names {
			row = append(row, fmt.Sprintf("%g", tr.Params[name]))
		}
		switch {
		case tr.Err != nil:
			row = append(row, "error: "+tr.Err.Error())
		case i == best:
			row = append(row, fmt.Sprintf("%.6g *", tr.Value))
		default:
			row = append(row, fmt.Sprintf("%.6g", tr.Value))
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

func runScenario(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	if sc.Name != "" {
		fmt.Printf("scenario: %s\n", sc.Name)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, runErr := automation.RunScenario(ctx, sc, registry, logger)
	st := storage.New(dataDir).WithLogger(logger)
	for i, res := range results {
		ke, _ := res.Last("kinetic_energy")
		fmt.Printf("  %d. %s: %d steps, %d particles, kinetic energy %.4g\n", i+1, res.Solver, res.Steps, len(res.Final), ke)
		if save {
			runID, err := st.Save(res)
			if err != nil {
				return err
			}
			fmt.Printf("     saved %s\n", runID)
		}
	}
	return runErr
}
