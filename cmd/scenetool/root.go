package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/milk9111/cocoa2d/config"
	"github.com/milk9111/cocoa2d/ecs"
	"github.com/milk9111/cocoa2d/ecs/component"
	"github.com/milk9111/cocoa2d/scene"
	"github.com/pkg/profile"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	profile    string
	verbose    bool

	stderr   io.Writer
	stopProf interface{ Stop() }
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{stderr: stderr}
	root := &cobra.Command{
		Use:           "scenetool",
		Short:         "Inspect and bake cocoa2d scene documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.profile {
			case "":
			case "cpu":
				opts.stopProf = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook, profile.Quiet)
			case "mem":
				opts.stopProf = profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook, profile.Quiet)
			default:
				return eris.Errorf("unknown profile mode %q", opts.profile)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.stopProf != nil {
				opts.stopProf.Stop()
			}
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "settings file (YAML)")
	root.PersistentFlags().StringVar(&opts.profile, "profile", "", "write a cpu or mem profile to the working directory")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(newValidateCmd(opts), newSimulateCmd(opts), newDiffCmd())
	return root
}

func (o *rootOptions) logger() zerolog.Logger {
	level := zerolog.WarnLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: o.stderr, TimeFormat: time.Kitchen, NoColor: true}).
		Level(level).With().Timestamp().Logger()
}

func (o *rootOptions) openScene(path string) (*scene.Scene, error) {
	settings, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	sc, err := scene.New(settings, o.logger())
	if err != nil {
		return nil, err
	}
	if err := sc.Load(path); err != nil {
		return nil, err
	}
	return sc, nil
}

var reportedKinds = []ecs.AnyKind{
	component.TransformComponent,
	component.TagComponent,
	component.SpriteRendererComponent,
	component.FontRendererComponent,
	component.Rigidbody2DComponent,
	component.Box2DComponent,
	component.CircleComponent,
	component.AABBComponent,
}

func report(out io.Writer, sc *scene.Scene) {
	w := sc.World()
	fmt.Fprintf(out, "entities: %d\n", len(ecs.Entities(w)))
	for _, k := range reportedKinds {
		if n := len(ecs.Query(w, k)); n > 0 {
			fmt.Fprintf(out, "  %-15s %d\n", k.Name(), n)
		}
	}
	fmt.Fprintf(out, "bodies: %d\n", sc.Physics().BodyCount())
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scene.json>",
		Short: "Load a scene and report what it contains",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := opts.openScene(args[0])
			if err != nil {
				return err
			}
			defer sc.FreeResources()
			report(cmd.OutOrStdout(), sc)
			return nil
		},
	}
}

func newSimulateCmd(opts *rootOptions) *cobra.Command {
	var (
		seconds float64
		dt      float64
		out     string
	)
	cmd := &cobra.Command{
		Use:   "simulate <scene.json>",
		Short: "Play a scene headlessly and bake the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dt <= 0 || seconds < 0 {
				return eris.Errorf("need --dt > 0 and --seconds >= 0, got %g and %g", dt, seconds)
			}
			sc, err := opts.openScene(args[0])
			if err != nil {
				return err
			}
			defer sc.FreeResources()

			if err := sc.Play(); err != nil {
				return err
			}
			frames := int(seconds/dt + 0.5)
			for i := 0; i < frames; i++ {
				sc.Update(dt)
			}
			if out != "" {
				if err := sc.Save(out); err != nil {
					sc.Stop()
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "simulated %d frames (%.3fs)\n", frames, float64(frames)*dt)
			report(cmd.OutOrStdout(), sc)
			return sc.Stop()
		},
	}
	cmd.Flags().Float64Var(&seconds, "seconds", 1, "simulated time")
	cmd.Flags().Float64Var(&dt, "dt", 1.0/60.0, "frame time")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the simulated scene here")
	return cmd
}

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <a.json> <b.json>",
		Short: "Print the JSON patch turning one scene into another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := os.ReadFile(args[0])
			if err != nil {
				return eris.Wrapf(err, "read %s", args[0])
			}
			b, err := os.ReadFile(args[1])
			if err != nil {
				return eris.Wrapf(err, "read %s", args[1])
			}
			patch, err := scene.DiffSnapshots(a, b)
			if err != nil {
				return err
			}
			if len(patch) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "identical")
				return nil
			}
			data, err := json.MarshalIndent(patch, "", "  ")
			if err != nil {
				return eris.Wrap(err, "encode patch")
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
