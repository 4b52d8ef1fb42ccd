/*
Copyright (C) 2026 Philippe Proulx <eepp.ca>

SPDX-License-Identifier: MIT
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/eepp/cabjovi/internal/config"
	"github.com/eepp/cabjovi/internal/logging"
	"github.com/eepp/cabjovi/internal/mute"
	"github.com/eepp/cabjovi/internal/playback"
	"github.com/eepp/cabjovi/internal/schedule"
	"github.com/eepp/cabjovi/internal/telemetry"
	"github.com/eepp/cabjovi/internal/version"
)

var (
	logger zerolog.Logger
	cfg    *config.Config

	flagConfigFile string
)

var rootCmd = &cobra.Command{
	Use:   "cabjovi",
	Short: "cabjovi - cabinet jukebox daemon",
	Long: "cabjovi plays randomized tracks from time-scheduled directories " +
		"and mutes playback while the cabinet door switch is closed.",
}

var runCmd = &cobra.Command{
	Use:   "run [base-dir]",
	Short: "Run the playback daemon",
	Long: "Run the daemon against a base directory whose subdirectories are " +
		"named DAY-HOUR:DAY-HOUR (e.g. mon-7:fri-22) or \"default\".",
	Args: cobra.MaximumNArgs(1),
	RunE: runDaemon,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("cabjovi " + version.Version)
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&flagConfigFile, "config", "", "YAML configuration file")
	f.String("env", "", "environment (production or development)")
	f.StringP("alsa-card", "c", "", "ALSA card name for the mixer control")
	f.StringP("alsa-mixer", "m", "", "ALSA mixer control name")
	f.String("alsa-device", "", "ALSA playback device for the decoder")
	f.String("gpio-chip", "", "GPIO chip (e.g. gpiochip0)")
	f.IntP("gpio-pin", "g", -1, "GPIO pin for mute control: short with ground to mute")
	f.Duration("switch-debounce", 0, "switch debounce delay")
	f.Duration("door-lockout", 0, "unmute lockout after a mute")
	f.Duration("auto-mute-delay", 0, "inactivity auto-mute delay")
	f.DurationP("poll-interval", "p", 0, "schedule polling interval")
	f.String("mpg123-bin", "", "mpg123 binary")
	f.String("metrics-bind", "", "Prometheus metrics bind address (empty disables)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig builds the final configuration: defaults, then the
// optional YAML file, then environment, then flags, then the
// positional base directory argument.
func loadConfig(cmd *cobra.Command, args []string) error {
	cfg = config.Load()

	if flagConfigFile != "" {
		if err := cfg.ApplyFile(flagConfigFile); err != nil {
			return err
		}
	}

	f := cmd.Flags()
	if f.Changed("env") {
		cfg.Environment, _ = f.GetString("env")
	}
	if f.Changed("alsa-card") {
		cfg.AlsaCard, _ = f.GetString("alsa-card")
	}
	if f.Changed("alsa-mixer") {
		cfg.AlsaMixer, _ = f.GetString("alsa-mixer")
	}
	if f.Changed("alsa-device") {
		cfg.AlsaDevice, _ = f.GetString("alsa-device")
	}
	if f.Changed("gpio-chip") {
		cfg.GPIOChip, _ = f.GetString("gpio-chip")
	}
	if f.Changed("gpio-pin") {
		cfg.GPIOPin, _ = f.GetInt("gpio-pin")
	}
	if f.Changed("switch-debounce") {
		cfg.SwitchDebounce, _ = f.GetDuration("switch-debounce")
	}
	if f.Changed("door-lockout") {
		cfg.DoorLockout, _ = f.GetDuration("door-lockout")
	}
	if f.Changed("auto-mute-delay") {
		cfg.AutoMuteDelay, _ = f.GetDuration("auto-mute-delay")
	}
	if f.Changed("poll-interval") {
		cfg.PollInterval, _ = f.GetDuration("poll-interval")
	}
	if f.Changed("mpg123-bin") {
		cfg.Mpg123Bin, _ = f.GetString("mpg123-bin")
	}
	if f.Changed("metrics-bind") {
		cfg.MetricsBind, _ = f.GetString("metrics-bind")
	}

	if len(args) == 1 {
		cfg.BaseDir = args[0]
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if err := loadConfig(cmd, args); err != nil {
		return err
	}

	logger = logging.Setup(cfg.Environment)
	logger.Info().
		Str("version", version.Version).
		Str("base_dir", cfg.BaseDir).
		Msg("cabjovi starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Fatal configuration checks: mixer control and GPIO line must be
	// usable before the daemon settles in.
	mixer := mute.NewAlsaMixer(cfg.AlsaCard, cfg.AlsaMixer, logger)
	if err := mixer.Probe(); err != nil {
		return fmt.Errorf("audio device: %w", err)
	}

	sensor, err := mute.NewGPIOSensor(cfg.GPIOChip, cfg.GPIOPin, logger)
	if err != nil {
		return fmt.Errorf("mute sensor: %w", err)
	}
	defer sensor.Close()

	controller := mute.NewController(sensor, mixer, mute.Config{
		Debounce:      cfg.SwitchDebounce,
		Lockout:       cfg.DoorLockout,
		AutoMuteDelay: cfg.AutoMuteDelay,
	}, logger)

	player := playback.NewMPG123(cfg.Mpg123Bin, cfg.AlsaDevice, logger)
	director := playback.NewDirector(schedule.NewLibrary(cfg.BaseDir), player, controller, cfg.PollInterval, logger)

	if cfg.MetricsBind != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.Handler())
		srv := &http.Server{Addr: cfg.MetricsBind, Handler: mux}
		go func() {
			logger.Info().Str("addr", cfg.MetricsBind).Msg("metrics listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
		defer srv.Close()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := controller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("mute controller failed")
			cancel()
		}
	}()

	if err := director.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("playback director failed")
	}

	cancel()
	wg.Wait()

	logger.Info().Msg("chow les caves!")
	return nil
}
