package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	flowtime "github.com/flowtime-fn/flowtime-go"
	"github.com/flowtime-fn/flowtime-go/extensions"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "flowtime",
		Short:         "Time-indexed pipeline evaluation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().String("config", "", "config file path")

	viper.SetEnvPrefix("FLOWTIME")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))

	cobra.OnInitialize(func() {
		if cfg, _ := root.PersistentFlags().GetString("config"); cfg != "" {
			viper.SetConfigFile(cfg)
			if err := viper.ReadInConfig(); err != nil {
				fmt.Fprintln(os.Stderr, "config:", err)
				os.Exit(1)
			}
		}
	})

	root.AddCommand(newPlayCmd())
	return root
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().Level(level)
}

// lineData is the payload produced by the built-in line-based loader:
// one text line per data object.
type lineData struct {
	Line string
}

func (d *lineData) Clone() flowtime.DataObject {
	clone := *d
	return &clone
}

func loadLines(req flowtime.EvaluationRequest, path string, frame int) (*flowtime.DataCollection, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data := flowtime.NewDataCollection()
	for _, line := range strings.Split(strings.TrimRight(string(raw), "\n"), "\n") {
		data.AddObject(&lineData{Line: line})
	}
	return data, nil
}

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play <file>",
		Short: "Scrub the timeline over a file-backed pipeline",
		Long: `Builds a pipeline headed by a file source, evaluates every frame of
the timeline and reports each frame's status. Frames are evaluated
concurrently up to the worker limit; each evaluation still shares the
node caches, so repeated frames are free.`,
		Args: cobra.ExactArgs(1),
		RunE: runPlay,
	}
	cmd.Flags().Int("frames", 10, "number of frames to evaluate")
	cmd.Flags().Int("workers", 4, "concurrent frame evaluations")
	cmd.Flags().String("snapshot", "", "write the last frame's state snapshot to this file")
	cmd.Flags().Bool("break-on-error", false, "stop the chain at the first failing stage")
	_ = viper.BindPFlag("frames", cmd.Flags().Lookup("frames"))
	_ = viper.BindPFlag("workers", cmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("snapshot", cmd.Flags().Lookup("snapshot"))
	_ = viper.BindPFlag("break-on-error", cmd.Flags().Lookup("break-on-error"))
	return cmd
}

func runPlay(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	frames := viper.GetInt("frames")
	workers := viper.GetInt("workers")

	pctx := flowtime.NewPipelineContext(
		flowtime.WithLogger(logger),
		flowtime.WithExtensions(
			extensions.NewLoggingExtension(logger),
			extensions.NewPipelineDebugExtension(logger),
		),
	)
	defer pctx.Close()

	type built struct {
		source *flowtime.FileSource
		app    *flowtime.ModifierApplication
		err    error
	}
	done := make(chan built, 1)
	pctx.Submit(func() {
		source, err := flowtime.NewFileSource(pctx, args[0], loadLines,
			flowtime.WithFrameCount(frames))
		if err != nil {
			done <- built{err: err}
			return
		}
		app := flowtime.NewModifierApplication(pctx, source.Handle(), nil)
		done <- built{source: source, app: app}
	})
	b := <-done
	if b.err != nil {
		return b.err
	}
	defer b.source.Close()

	acc := flowtime.Access(pctx, b.app.Handle())

	var opts []flowtime.RequestOption
	if viper.GetBool("break-on-error") {
		opts = append(opts, flowtime.WithBreakOnError())
	}

	var lastState flowtime.PipelineFlowState
	g, gctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(workers)
	for frame := 0; frame < frames; frame++ {
		frame := frame
		g.Go(func() error {
			t := flowtime.TimeForFrame(frame)
			state, err := acc.Get(gctx, t, opts...)
			if err != nil {
				return fmt.Errorf("frame %d: %w", frame, err)
			}
			logger.Info().
				Int("frame", frame).
				Int64("time", int64(t)).
				Str("status", state.Status().String()).
				Int("objects", objectCount(state)).
				Msg("frame evaluated")
			if frame == frames-1 {
				lastState = state
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if path := viper.GetString("snapshot"); path != "" {
		if err := flowtime.SaveSnapshot(path, lastState); err != nil {
			return err
		}
		logger.Info().Str("path", path).Msg("snapshot written")
	}
	return nil
}

func objectCount(state flowtime.PipelineFlowState) int {
	if state.Data() == nil {
		return 0
	}
	return state.Data().Len()
}
