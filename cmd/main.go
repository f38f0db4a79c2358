package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/schollz/progressbar/v3"
	"github.com/smasonuk/audioworld"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML configuration")
	flag.Parse()

	if err := run(*configPath); err != nil {
		sentry.CaptureException(err)
		sentry.Flush(2 * time.Second)
		slog.Error("Audio world stopped", "err", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	conf, err := audioworld.ReadConfig(configPath)
	if err != nil {
		return err
	}

	level, err := audioworld.ParseLogLevel(conf.AudioWorld.LogLevel)
	if err != nil {
		slog.Warn("Using info logging", "err", err)
	}
	slog.SetLogLoggerLevel(level)
	log := slog.Default()

	if conf.AudioWorld.SentryDsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: conf.AudioWorld.SentryDsn}); err != nil {
			log.Warn("Sentry disabled", "err", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	log.Info("Building scene...")
	scene, models, err := conf.BuildScene(log)
	if err != nil {
		return err
	}

	audio, err := startAudio(conf, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := audio.Destroy(); err != nil {
			log.Warn("Closing audio failed", "err", err)
		}
	}()

	loadSounds(audio, conf, log)

	log.Info("Registering walls...")
	walls := scene.ModelsOfKind(audioworld.KindWall)
	bar := progressbar.Default(int64(len(walls)), "Registering walls")
	n, err := audioworld.RegisterSceneWalls(scene, audio, log, func() { bar.Add(1) })
	if err != nil {
		sentry.CaptureException(err)
	}
	log.Info("Walls registered", "count", n, "skipped", len(walls)-n, "polygons", audio.PolygonCount())

	state := audioworld.NewSceneState(models, 0)
	sync := audioworld.NewSynchronizer(scene, audio, state, conf.SyncConfig(), log)
	game := audioworld.NewGame(scene, audio, sync, conf.AudioWorld.WindowWidth, conf.AudioWorld.WindowHeight, log)

	ebiten.SetWindowSize(conf.AudioWorld.WindowWidth, conf.AudioWorld.WindowHeight)
	ebiten.SetWindowTitle("Audio World")
	return ebiten.RunGame(game)
}

// startAudio opens the configured backend, falling back to silence when no
// sound device can be opened.
func startAudio(conf audioworld.Config, log *slog.Logger) (*audioworld.AudioManager, error) {
	var backend audioworld.Backend
	switch conf.Audio.Backend {
	case audioworld.BackendBeep:
		backend = audioworld.NewBeepBackend()
	case audioworld.BackendSilent:
		backend = audioworld.NewSilentBackend()
	default:
		return nil, fmt.Errorf("unknown audio backend %q: %w", conf.Audio.Backend, audioworld.ErrInvalidInput)
	}

	audio := audioworld.NewAudioManager(backend, conf.AudioConfig(), log)
	err := audio.Initialize()
	if err == nil || conf.Audio.Backend == audioworld.BackendSilent {
		return audio, err
	}

	log.Warn("No sound device, continuing silently", "err", err)
	sentry.CaptureException(err)
	audio = audioworld.NewAudioManager(audioworld.NewSilentBackend(), conf.AudioConfig(), log)
	return audio, audio.Initialize()
}

// loadSounds loads every sound the scene uses. A sound that fails to load is
// reported and its models stay silent.
func loadSounds(audio *audioworld.AudioManager, conf audioworld.Config, log *slog.Logger) {
	modes := make(map[string]audioworld.SoundMode)
	for _, s := range conf.Scene.Sounds {
		mode, err := audioworld.ParseSoundMode(s.Mode)
		if err != nil {
			log.Warn("Loading as 3d sound", "path", s.Path, "err", err)
			mode = audioworld.Sound3D
		}
		modes[s.Path] = mode
	}

	paths := conf.SoundPaths()
	bar := progressbar.Default(int64(len(paths)), "Loading sounds")
	var errs []error
	for _, path := range paths {
		mode, ok := modes[path]
		if !ok {
			mode = audioworld.Sound3D
		}
		if err := audio.LoadSound(path, mode); err != nil {
			log.Error("Loading sound failed", "path", path, "err", err)
			errs = append(errs, err)
		}
		bar.Add(1)
	}
	if err := errors.Join(errs...); err != nil {
		sentry.CaptureException(err)
	}
}
