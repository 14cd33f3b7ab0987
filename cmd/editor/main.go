package main

import (
	"flag"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/milk9111/cocoa2d/config"
	"github.com/milk9111/cocoa2d/editor"
	"github.com/milk9111/cocoa2d/scene"
	"github.com/pkg/profile"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "cocoa.yaml", "settings file (YAML)")
	scenePath := flag.String("scene", "", "scene to open, overrides general.current_scene")
	debug := flag.Bool("debug", false, "draw physics shapes and log at debug level")
	profileMode := flag.String("profile", "", "write a cpu or mem profile to the working directory")
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	switch *profileMode {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "":
	default:
		logger.Fatal().Str("profile", *profileMode).Msg("unknown profile mode")
	}

	settings, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load settings")
	}
	if *scenePath != "" {
		settings.General.CurrentScene = *scenePath
	}

	textures := newTextureCache(logger)
	sc, err := scene.New(settings, logger, scene.WithReleaser(textures))
	if err != nil {
		logger.Fatal().Err(err).Msg("create scene")
	}
	if path := settings.General.CurrentScene; path != "" {
		if err := sc.Load(path); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("starting with an empty scene")
			sc.SetPath(path)
		}
	}

	opts := []editor.Option{editor.WithClipboard(newSystemClipboard(logger))}
	if tmp := settings.General.ScriptModuleTmp; tmp != "" {
		watcher, err := editor.NewWatcher(tmp)
		if err != nil {
			logger.Warn().Err(err).Str("path", tmp).Msg("script watcher disabled, polling instead")
		} else {
			defer watcher.Close()
			opts = append(opts, editor.WithWatcher(watcher))
		}
	}
	session := editor.NewSession(sc, logger, opts...)

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(1280, 720)
	ebiten.SetWindowTitle("cocoa2d editor")

	game := newGame(session, textures, *debug)
	if err := ebiten.RunGame(game); err != nil {
		logger.Error().Err(err).Msg("editor exited")
	}
	if sc.State() == scene.Playing {
		if err := sc.Stop(); err != nil {
			logger.Warn().Err(err).Msg("stop play mode")
		}
	}
	sc.FreeResources()
}
