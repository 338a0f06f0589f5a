package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"trainload/internal/config"
	"trainload/internal/service"
	"trainload/internal/store"
	"trainload/internal/tui"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "trainload",
		Short: "Training load and threshold analysis for activity files",
		Long: `Analyze FIT and TCX recordings: training stress (TSS/FSS), efficiency,
aerobic decoupling over a steady window and a VT2 threshold estimate.
Results are kept in a local history for fitness trend tracking.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetOutput(os.Stderr)
			log.SetFormatter(&log.TextFormatter{
				FullTimestamp:   true,
				TimestampFormat: time.RFC3339,
			})
			if verbose {
				log.SetLevel(log.DebugLevel)
			} else {
				log.SetLevel(log.WarnLevel)
			}
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(analyzeCmd(), historyCmd(), initCmd())
	return cmd
}

// loadConfig reads the config file, falling back to defaults when none exists
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if errors.Is(err, config.ErrNoConfig) {
		log.Debug("no config file, using defaults")
		def := config.DefaultConfig()
		return &def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (*store.Store, error) {
	path, err := cfg.DBPath()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return st, nil
}

func analyzeCmd() *cobra.Command {
	var (
		ftp         float64
		hrThreshold float64
		window      float64
		mode        string
		sport       string
		exportDir   string
		format      string
		noSave      bool
		workers     int
	)
	cmd := &cobra.Command{
		Use:   "analyze FILE...",
		Short: "Analyze one or more activity files",
		Long: `Analyze FIT or TCX activity files (optionally gzipped) and print a report
for each. Flags override the values from the config file.`,
		Example: `trainload analyze ride.fit
trainload analyze --mode decoupling_valid --window 30 --export-dir out/ *.tcx.gz`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("ftp") {
				cfg.Athlete.FTP = ftp
			}
			if flags.Changed("hr-threshold") {
				cfg.Athlete.ThresholdHR = hrThreshold
			}
			if flags.Changed("window") {
				cfg.Analysis.WindowMinutes = window
			}
			if flags.Changed("mode") {
				cfg.Analysis.Mode = mode
			}
			if flags.Changed("sport") {
				cfg.Analysis.Sport = sport
			}
			if flags.Changed("export-dir") {
				cfg.Export.Dir = exportDir
			}
			if flags.Changed("format") {
				cfg.Export.Format = format
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			var st *store.Store
			if !noSave {
				st, err = openStore(cfg)
				if err != nil {
					return err
				}
				defer st.Close()
			}

			svc := service.NewAnalysisService(st, cfg.AnalysisConfig(), service.Options{
				ExportDir:    cfg.Export.Dir,
				ExportFormat: cfg.Export.Format,
				Save:         !noSave,
			}, log.StandardLogger())

			ctx := cmd.Context()
			params := cfg.Params()

			if len(args) == 1 {
				res, err := svc.AnalyzeFile(ctx, args[0], params)
				if err != nil {
					return err
				}
				printResult(cmd, res)
				return nil
			}

			progress := make(chan service.BatchProgress)
			done := make(chan struct{})
			go func() {
				defer close(done)
				for p := range progress {
					fmt.Fprintf(cmd.ErrOrStderr(), "\r%s %d/%d",
						tui.RenderProgressBar(float64(p.Completed)/float64(p.Total), 30), p.Completed, p.Total)
				}
				fmt.Fprintln(cmd.ErrOrStderr())
			}()

			result, err := svc.AnalyzeBatch(ctx, args, params, workers, progress)
			<-done
			if result != nil {
				for _, res := range result.Files {
					if res != nil {
						printResult(cmd, res)
					}
				}
				for _, fe := range result.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", fe)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d of %d files analyzed\n", result.Succeeded(), len(args))
			}
			if err != nil {
				return err
			}
			if result.Succeeded() == 0 {
				return errors.New("no files could be analyzed")
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64Var(&ftp, "ftp", 0, "functional threshold power in watts (bike) or speed in km/h (run)")
	f.Float64Var(&hrThreshold, "hr-threshold", 0, "threshold heart rate in bpm")
	f.Float64Var(&window, "window", 0, "window length in minutes (5-180)")
	f.StringVar(&mode, "mode", "", "window selection mode: best or decoupling_valid")
	f.StringVar(&sport, "sport", "", "sport: auto, bike or run")
	f.StringVar(&exportDir, "export-dir", "", "directory for per-sample exports and summaries")
	f.StringVar(&format, "format", "", "export format: parquet or csv")
	f.BoolVar(&noSave, "no-save", false, "do not record the runs in history")
	f.IntVar(&workers, "workers", service.DefaultBatchWorkers, "files analyzed concurrently")
	return cmd
}

func printResult(cmd *cobra.Command, res *service.FileResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, tui.RenderReport(res))
	for _, p := range res.ExportPaths {
		fmt.Fprintf(out, "  wrote %s\n", p)
	}
	fmt.Fprintln(out)
}

func historyCmd() *cobra.Command {
	var (
		plain bool
		limit int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse past analysis runs and the fitness trend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			svc := service.NewAnalysisService(st, cfg.AnalysisConfig(), service.Options{}, log.StandardLogger())

			if plain {
				page, err := svc.History(limit, 0)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderHistoryTable(page))
				return nil
			}

			// logrus output would corrupt the alt screen
			log.SetOutput(io.Discard)
			p := tea.NewProgram(tui.NewApp(svc), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("running TUI: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print a table instead of the interactive browser")
	cmd.Flags().IntVar(&limit, "limit", service.DefaultHistoryLimit, "runs to print with --plain")
	return cmd
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write an example config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateExample()
			if err != nil {
				return fmt.Errorf("creating example config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config file at:\n  %s\n\nEdit ftp_w and hr_threshold_bpm to match the athlete.\n", path)
			return nil
		},
	}
}
