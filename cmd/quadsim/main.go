package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/skysim/quadsim/internal/command"
	"github.com/skysim/quadsim/internal/config"
	"github.com/skysim/quadsim/internal/flight"
	"github.com/skysim/quadsim/internal/metrics"
	"github.com/skysim/quadsim/internal/sim"
	"github.com/skysim/quadsim/internal/storage"
	"github.com/skysim/quadsim/internal/telemetry"
	"github.com/skysim/quadsim/internal/tune"
	"github.com/skysim/quadsim/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	dt         float64
	duration   float64
	kp         float64
	ki         float64
	kd         float64
	mass       float64
	plotAfter  bool
	// serve overrides
	commandAddr   string
	canInterface  string
	telemetryAddr string
	// tune grids
	kpGrid string
	kiGrid string
	kdGrid string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "quadsim",
		Short: "velocity-tracking quadrotor flight simulator",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".quadsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset scenario")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a scripted simulation",
		RunE:  runSimulation,
	}
	addSimFlags(runCmd)
	runCmd.Flags().BoolVar(&plotAfter, "plot", false, "plot velocities after the run")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "fly interactively in the terminal",
		RunE:  runLive,
	}
	addSimFlags(liveCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run the vehicle in real time with network command input",
		RunE:  runServe,
	}
	addSimFlags(serveCmd)
	serveCmd.Flags().StringVar(&commandAddr, "listen", "", "UDP command listen address")
	serveCmd.Flags().StringVar(&canInterface, "can", "", "SocketCAN command interface (linux)")
	serveCmd.Flags().StringVar(&telemetryAddr, "telemetry", "", "telemetry destination address")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a saved run to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a saved run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset scenarios",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				fmt.Println(name)
			}
		},
	}

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid-search gains against a scenario",
		RunE:  runTune,
	}
	addSimFlags(tuneCmd)
	tuneCmd.Flags().StringVar(&kpGrid, "kp-grid", "0.5,1,2,4", "comma-separated kp values")
	tuneCmd.Flags().StringVar(&kiGrid, "ki-grid", "0", "comma-separated ki values")
	tuneCmd.Flags().StringVar(&kdGrid, "kd-grid", "0", "comma-separated kd values")

	rootCmd.AddCommand(runCmd, liveCmd, serveCmd, tuneCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().Float64Var(&kp, "kp", config.DefaultKp, "proportional gain, all channels")
	cmd.Flags().Float64Var(&ki, "ki", 0, "integral gain, all channels")
	cmd.Flags().Float64Var(&kd, "kd", 0, "derivative gain, all channels")
	cmd.Flags().Float64Var(&mass, "mass", config.DefaultMass, "vehicle mass")
}

// resolveConfig layers preset, config file and CLI flags, latest wins.
func resolveConfig(cmd *cobra.Command) (*config.Config, string, error) {
	cfg := config.DefaultConfig()
	scenario := "custom"

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
		scenario = preset
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		if preset != "" {
			// keep the preset script unless the file brings its own
			if len(loaded.Script) == 0 {
				loaded.Script = cfg.Script
			}
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("dt") {
		cfg.Sim.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Sim.Duration = duration
	}
	if cmd.Flags().Changed("mass") {
		cfg.Vehicle.Mass = mass
	}
	for _, pair := range []struct {
		flag string
		set  func(*config.ChannelConfig)
	}{
		{"kp", func(ch *config.ChannelConfig) { ch.Kp = kp }},
		{"ki", func(ch *config.ChannelConfig) { ch.Ki = ki }},
		{"kd", func(ch *config.ChannelConfig) { ch.Kd = kd }},
	} {
		if cmd.Flags().Changed(pair.flag) {
			pair.set(&cfg.Gains.X)
			pair.set(&cfg.Gains.Y)
			pair.set(&cfg.Gains.Z)
			pair.set(&cfg.Gains.Yaw)
		}
	}

	return cfg, scenario, nil
}

func buildRunner(cfg *config.Config, script *command.Script) (*sim.Runner, *flight.Controller, error) {
	b := cfg.Body()
	ctrl, err := flight.New(b, cfg.FlightConfig())
	if err != nil {
		return nil, nil, err
	}
	return sim.NewRunner(b, ctrl, script), ctrl, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, scenario, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	runner, _, err := buildRunner(cfg, cfg.CommandScript())
	if err != nil {
		return err
	}
	runner.AddMetric(metrics.NewTrackingError())
	runner.AddMetric(metrics.NewControlEffort())
	runner.AddMetric(metrics.NewSaturation())

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("running %s...\n", scenario)
	start := time.Now()

	result, err := runner.Run(context.Background(), cfg.RunConfig())
	if err != nil {
		return err
	}

	elapsed := time.Since(start)

	runID, err := st.Save(scenario, cfg.RunConfig(), result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("ticks: %d\n", len(result.Snapshots))
	fmt.Println("\nmetrics:")
	for name, val := range result.Metrics {
		fmt.Printf("  %s: %.6f\n", name, val)
	}

	if plotAfter {
		plotResult(result)
	}

	return nil
}

func plotResult(result *sim.Result) {
	series := []struct {
		caption string
		pick    func(s sim.Snapshot) float64
	}{
		{"vx (m/s)", func(s sim.Snapshot) float64 { return s.LinVel.X }},
		{"vy (m/s)", func(s sim.Snapshot) float64 { return s.LinVel.Y }},
		{"vz (m/s)", func(s sim.Snapshot) float64 { return s.LinVel.Z }},
		{"yaw rate (rad/s)", func(s sim.Snapshot) float64 { return s.AngVel.Z }},
	}

	for _, sr := range series {
		data := make([]float64, len(result.Snapshots))
		for i, snap := range result.Snapshots {
			data[i] = sr.pick(snap)
		}
		fmt.Println()
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(8),
			asciigraph.Width(80),
			asciigraph.Caption(sr.caption),
		))
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, _, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	runner, ctrl, err := buildRunner(cfg, nil)
	if err != nil {
		return err
	}

	p := tea.NewProgram(viz.NewModel(runner, ctrl, cfg.Sim.Dt))
	_, err = p.Run()
	return err
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, _, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("listen") {
		cfg.Serve.CommandAddr = commandAddr
	}
	if cmd.Flags().Changed("can") {
		cfg.Serve.CANInterface = canInterface
	}
	if cmd.Flags().Changed("telemetry") {
		cfg.Serve.TelemetryAddr = telemetryAddr
	}

	runner, ctrl, err := buildRunner(cfg, nil)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	udpSrc, err := command.ListenUDP(cfg.Serve.CommandAddr, logger)
	if err != nil {
		return err
	}
	defer udpSrc.Close()
	go func() {
		if err := udpSrc.Serve(ctx, ctrl); err != nil && ctx.Err() == nil {
			logger.Error("command source failed", "error", err)
		}
	}()
	logger.Info("listening for commands", "addr", udpSrc.Addr().String())

	if cfg.Serve.CANInterface != "" {
		canSrc, err := command.DialCAN(ctx, cfg.Serve.CANInterface, logger)
		if err != nil {
			return err
		}
		defer canSrc.Close()
		go func() {
			if err := canSrc.Serve(ctx, ctrl); err != nil && ctx.Err() == nil {
				logger.Error("can source failed", "error", err)
			}
		}()
		logger.Info("listening on can bus", "interface", cfg.Serve.CANInterface)
	}

	var mu sync.Mutex
	var last sim.Snapshot

	if cfg.Serve.TelemetryAddr != "" {
		pub, err := telemetry.Dial(cfg.Serve.TelemetryAddr, cfg.Serve.TelemetryRate, logger)
		if err != nil {
			return err
		}
		defer pub.Close()
		go func() {
			err := pub.Run(ctx, func() telemetry.FlightData {
				mu.Lock()
				defer mu.Unlock()
				return telemetry.FlightData{Time: last.Time, Yaw: last.Yaw}
			})
			if err != nil && ctx.Err() == nil {
				logger.Error("telemetry publisher failed", "error", err)
			}
		}()
		logger.Info("publishing telemetry",
			"addr", cfg.Serve.TelemetryAddr, "rate_hz", cfg.Serve.TelemetryRate)
	}

	logger.Info("flight loop started", "dt", cfg.Sim.Dt)
	ticker := time.NewTicker(time.Duration(cfg.Sim.Dt * float64(time.Second)))
	defer ticker.Stop()
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case <-ticker.C:
			snap := runner.Tick(time.Since(start).Seconds(), cfg.Sim.Dt)
			mu.Lock()
			last = snap
			mu.Unlock()
		}
	}
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, scenario, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if len(cfg.Script) == 0 {
		return fmt.Errorf("tune needs a scenario with commands; pick a preset or add a script")
	}

	kps, err := parseGrid(kpGrid)
	if err != nil {
		return err
	}
	kis, err := parseGrid(kiGrid)
	if err != nil {
		return err
	}
	kds, err := parseGrid(kdGrid)
	if err != nil {
		return err
	}

	fmt.Printf("tuning against %s (%d combinations)...\n",
		scenario, len(kps)*len(kis)*len(kds))

	g := tune.NewGridSearch([]string{"kp", "ki", "kd"}, [][]float64{kps, kis, kds})
	best, score, err := g.Search(context.Background(),
		func(params map[string]float64) (*sim.Runner, sim.Config, error) {
			trial := *cfg
			ch := config.ChannelConfig{Kp: params["kp"], Ki: params["ki"], Kd: params["kd"]}
			trial.Gains = config.GainsConfig{X: ch, Y: ch, Z: ch, Yaw: ch}

			runner, _, err := buildRunner(&trial, trial.CommandScript())
			if err != nil {
				return nil, sim.Config{}, err
			}
			runner.AddMetric(metrics.NewTrackingError())
			return runner, trial.RunConfig(), nil
		},
		"tracking_rms")
	if err != nil {
		return err
	}
	if best == nil {
		return fmt.Errorf("no combination produced a run")
	}

	fmt.Printf("best: kp=%.3f ki=%.3f kd=%.3f\n", best["kp"], best["ki"], best["kd"])
	fmt.Printf("tracking_rms: %.6f\n", score)
	return nil
}

func parseGrid(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	vals := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bad grid value %q: %w", p, err)
		}
		vals = append(vals, v)
	}
	return vals, nil
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
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tDURATION\tDT")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	header, rows, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Scenario)
	fmt.Printf("samples: %d\n", len(rows))

	captions := map[string]string{
		"vx":   "vx (m/s)",
		"vy":   "vy (m/s)",
		"vz":   "vz (m/s)",
		"wyaw": "yaw rate (rad/s)",
		"pz":   "altitude (m)",
	}

	for col, name := range header {
		caption, ok := captions[name]
		if !ok {
			continue
		}
		data := make([]float64, 0, len(rows))
		for _, row := range rows {
			if col < len(row) {
				data = append(data, row[col])
			}
		}
		fmt.Println()
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(8),
			asciigraph.Width(80),
			asciigraph.Caption(caption),
		))
	}

	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	header, rows, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = strconv.FormatFloat(v, 'f', 6, 64)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	header, rows, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}

	out := struct {
		Meta    *storage.RunMetadata `json:"meta"`
		Columns []string             `json:"columns"`
		Rows    [][]float64          `json:"rows"`
	}{meta, header, rows}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
