// Command wavyplay plays a sound file or a test tone through wavy.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bloeys/wavy/v2"
)

var (
	listDevices  = flag.Bool("list", false, "List playback devices and exit")
	settingsPath = flag.String("settings", wavy.DefaultSettingsPath, "Audio settings file")
	saveSettings = flag.Bool("save", false, "Save the settings used for this run")
	device       = flag.Int("device", -1, "Playback device index (default: from settings)")
	driverName   = flag.String("driver", "malgo", "Audio driver: malgo or oto")
	channels     = flag.Int("channels", 2, "Output channel count")
	stream       = flag.Bool("stream", false, "Stream the file instead of decoding it up front")
	loop         = flag.Bool("loop", false, "Loop the file until interrupted")
	volume       = flag.Float64("volume", 1, "Source volume")
	pitch        = flag.Float64("pitch", 1, "Source pitch")
	fade         = flag.Duration("fade", 0, "Fade in duration")
	tremolo      = flag.Float64("tremolo", 0, "Tremolo frequency in Hz, 0 disables it")
	tone         = flag.Float64("tone", 440, "Test tone frequency when no file is given")
	debug        = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(log, flag.Arg(0)); err != nil {
		log.Error("wavyplay failed", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(log *slog.Logger, fpath string) error {

	var driver wavy.Driver
	switch *driverName {
	case "malgo":
		driver = wavy.NewMalgoDriver()
	case "oto":
		driver = wavy.NewOtoDriver()
	default:
		return fmt.Errorf("unknown driver %q", *driverName)
	}

	ctx := wavy.NewContext(wavy.WithDriver(driver), wavy.WithLogger(log))

	if *listDevices {
		devices, err := ctx.Devices()
		if err != nil {
			return err
		}
		for _, d := range devices {
			def := ""
			if d.IsDefault {
				def = " (default)"
			}
			fmt.Printf("%d: %s%s\n", d.Index, d.Name, def)
		}
		return nil
	}

	settings := wavy.DefaultSettings()
	if err := settings.Load(*settingsPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("ignoring audio settings", slog.String("path", *settingsPath), slog.Any("err", err))
	}
	if *device >= 0 {
		settings.DeviceID = uint32(*device)
	}

	if err := ctx.InitializeWithSettings(settings, wavy.SoundChannelCount(*channels)); err != nil {
		return err
	}
	defer ctx.Deinitialize()

	if *saveSettings {
		if err := settings.Save(*settingsPath); err != nil {
			return err
		}
	}

	listener := wavy.NewListener(nil)
	ctx.AddListener(listener)

	src := wavy.NewSource(nil)
	ctx.AddSource(src)
	src.SetVolume(float32(*volume))
	src.SetPitch(float32(*pitch))
	src.SetLoop(*loop)

	if *fade > 0 {
		src.AddEffect(wavy.NewFadeIn(*fade, ctx.SampleRate()))
	}
	if *tremolo > 0 {
		src.AddEffect(wavy.NewLFO(wavy.Waveform_Sine, float32(*tremolo), ctx.SampleRate()))
	}

	ended := make(chan struct{}, 1)
	src.OnEnd = func() {
		select {
		case ended <- struct{}{}:
		default:
		}
	}

	if fpath == "" {
		src.AddGenerator(wavy.NewOscillator(wavy.Waveform_Sine, float32(*tone), 0.3, ctx.SampleRate()))
		src.Play()
		log.Info("playing test tone", slog.Float64("hz", *tone))
	} else {
		clip, err := ctx.NewClipFromFile(fpath, *stream)
		if err != nil {
			return err
		}
		src.OnLoad = func() {
			log.Info("playing", slog.String("file", fpath), slog.String("type", clip.Type.String()), slog.Int64("frames", src.Length()))
		}
		if err := src.PlayClip(clip); err != nil {
			return err
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigChan:
			log.Info("stopping", slog.String("signal", sig.String()))
			return nil
		case <-ended:
			return nil
		case <-ticker.C:
			ctx.NewFrame()
		}
	}
}
